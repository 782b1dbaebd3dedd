// Package db is the sqlite-backed store for saved routes and the seeded
// place gazetteer used by the mock geocoder. Live playback sessions are never
// persisted; a process restart loses them by design.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/routeplay/internal/geo"
)

// ErrRouteNotFound is returned when a route id has no row.
var ErrRouteNotFound = errors.New("route not found")

type DB struct {
	*sql.DB
}

// OpenDB opens (or creates) the sqlite database at path. Schema is managed
// by migrations; call MigrateUp before serving.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// Route is a saved, named waypoint list. Waypoints are stored as a JSON
// column; listing omits them to keep the payload small.
type Route struct {
	RouteID       string           `json:"route_id"`
	Name          string           `json:"name"`
	WaypointCount int              `json:"waypoint_count"`
	TotalDistance float64          `json:"total_distance"`
	Waypoints     []geo.Coordinate `json:"waypoints,omitempty"`
	CreatedUnix   int64            `json:"created_unix"`
}

// SaveRoute stores a named route and returns the persisted record.
func (db *DB) SaveRoute(name string, waypoints []geo.Coordinate) (*Route, error) {
	encoded, err := json.Marshal(waypoints)
	if err != nil {
		return nil, fmt.Errorf("failed to encode waypoints: %w", err)
	}

	route := &Route{
		RouteID:       uuid.New().String(),
		Name:          name,
		WaypointCount: len(waypoints),
		TotalDistance: geo.TotalDistance(waypoints),
		Waypoints:     waypoints,
		CreatedUnix:   time.Now().Unix(),
	}

	_, err = db.Exec(
		"INSERT INTO routes (route_id, name, waypoint_count, total_distance, waypoints_json, created_unix) VALUES (?, ?, ?, ?, ?, ?)",
		route.RouteID, route.Name, route.WaypointCount, route.TotalDistance, string(encoded), route.CreatedUnix,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert route: %w", err)
	}
	return route, nil
}

// ListRoutes returns saved routes, newest first, without waypoint bodies.
func (db *DB) ListRoutes() ([]Route, error) {
	rows, err := db.Query("SELECT route_id, name, waypoint_count, total_distance, created_unix FROM routes ORDER BY created_unix DESC, route_id LIMIT 500")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []Route
	for rows.Next() {
		var r Route
		if err := rows.Scan(&r.RouteID, &r.Name, &r.WaypointCount, &r.TotalDistance, &r.CreatedUnix); err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return routes, nil
}

// GetRoute loads one saved route including its waypoints.
func (db *DB) GetRoute(routeID string) (*Route, error) {
	var r Route
	var encoded string
	err := db.QueryRow(
		"SELECT route_id, name, waypoint_count, total_distance, waypoints_json, created_unix FROM routes WHERE route_id = ?",
		routeID,
	).Scan(&r.RouteID, &r.Name, &r.WaypointCount, &r.TotalDistance, &encoded, &r.CreatedUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRouteNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(encoded), &r.Waypoints); err != nil {
		return nil, fmt.Errorf("failed to decode waypoints for route %s: %w", routeID, err)
	}
	return &r, nil
}

// DeleteRoute removes a saved route. Deleting a missing route is a no-op.
func (db *DB) DeleteRoute(routeID string) error {
	_, err := db.Exec("DELETE FROM routes WHERE route_id = ?", routeID)
	return err
}

// Place is one gazetteer entry served by the mock geocoder.
type Place struct {
	Name     string         `json:"name"`
	Position geo.Coordinate `json:"position"`
}

// LookupPlaces returns gazetteer entries whose name starts with q,
// case-insensitively, ordered by name.
func (db *DB) LookupPlaces(q string, limit int) ([]Place, error) {
	rows, err := db.Query(
		"SELECT name, lat, lng FROM places WHERE name LIKE ? || '%' COLLATE NOCASE ORDER BY name LIMIT ?",
		q, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []Place
	for rows.Next() {
		var p Place
		if err := rows.Scan(&p.Name, &p.Position.Lat, &p.Position.Lng); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return places, nil
}

// AttachAdminRoutes mounts the debug endpoints on mux, including a tailSQL
// instance pointed at this database. These routes are for localhost/Tailscale
// access only and are not part of the public API surface.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://routeplay.db", db.DB, &tailsql.DBOptions{
		Label: "Routeplay DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("routes", "List saved routes as JSON", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		routes, err := db.ListRoutes()
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to list routes: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(routes); err != nil {
			log.Printf("failed to encode routes: %v", err)
		}
	}))
}
