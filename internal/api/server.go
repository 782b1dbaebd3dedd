// Package api serves the route management HTTP surface: uploads, saved
// route retrieval, the mock geocoder, and a rendered route profile chart.
// Playback itself happens over the websocket endpoint, not here.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/routeplay/internal/config"
	"github.com/banshee-data/routeplay/internal/db"
	"github.com/banshee-data/routeplay/internal/geo"
	"github.com/banshee-data/routeplay/internal/geocode"
	"github.com/banshee-data/routeplay/internal/routes"
	"github.com/banshee-data/routeplay/internal/sim"
)

// ANSI escape codes for request log coloring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db       *db.DB
	geocoder *geocode.Geocoder
	cfg      *config.PlaybackConfig
}

func NewServer(database *db.DB, cfg *config.PlaybackConfig) *Server {
	return &Server{
		db:       database,
		geocoder: geocode.NewGeocoder(database, cfg.GetGeocodeLimit()),
		cfg:      cfg,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/routes", s.handleRoutes)
	mux.HandleFunc("/api/routes/", s.handleRouteByID)
	mux.HandleFunc("/api/geocode", s.handleGeocode)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// handleRoutes serves GET (list) and POST (upload) on /api/routes.
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listRoutes(w, r)
	case http.MethodPost:
		s.uploadRoute(w, r)
	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listRoutes(w http.ResponseWriter, _ *http.Request) {
	saved, err := s.db.ListRoutes()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list routes: %v", err))
		return
	}
	if saved == nil {
		saved = []db.Route{}
	}
	s.writeJSON(w, http.StatusOK, saved)
}

// uploadRoute accepts a multipart form with a "route" file part and an
// optional "name" field. The file format is chosen by extension.
func (s *Server) uploadRoute(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.GetMaxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("malformed upload: %v", err))
		return
	}

	file, header, err := r.FormFile("route")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "missing route file part")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	waypoints, err := routes.Parse(header.Filename, data)
	if err != nil {
		var verr *routes.ValidationError
		if errors.As(err, &verr) {
			s.writeJSONError(w, http.StatusBadRequest, verr.Error())
		} else {
			s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to parse route: %v", err))
		}
		return
	}
	if len(waypoints) < 2 {
		s.writeJSONError(w, http.StatusBadRequest, sim.ErrTooFewWaypoints.Error())
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	saved, err := s.db.SaveRoute(name, waypoints)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save route: %v", err))
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

// handleRouteByID serves /api/routes/{id} and /api/routes/{id}/profile.
func (s *Server) handleRouteByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/routes/")
	routeID, sub, _ := strings.Cut(rest, "/")
	if routeID == "" {
		s.writeJSONError(w, http.StatusNotFound, "route id required")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.getRoute(w, routeID)
	case sub == "" && r.Method == http.MethodDelete:
		s.deleteRoute(w, routeID)
	case sub == "profile" && r.Method == http.MethodGet:
		s.routeProfile(w, routeID)
	default:
		s.writeJSONError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) getRoute(w http.ResponseWriter, routeID string) {
	route, err := s.db.GetRoute(routeID)
	if errors.Is(err, db.ErrRouteNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "route not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load route: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, route)
}

func (s *Server) deleteRoute(w http.ResponseWriter, routeID string) {
	if err := s.db.DeleteRoute(routeID); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete route: %v", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// routeProfile renders an HTML line chart of per-segment distances for a
// saved route. Debug and inspection aid, not a data API.
func (s *Server) routeProfile(w http.ResponseWriter, routeID string) {
	route, err := s.db.GetRoute(routeID)
	if errors.Is(err, db.ErrRouteNotFound) {
		s.writeJSONError(w, http.StatusNotFound, "route not found")
		return
	}
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load route: %v", err))
		return
	}

	segments := geo.SegmentDistances(route.Waypoints)
	summary := geo.Summarize(route.Waypoints)

	labels := make([]string, len(segments))
	data := make([]opts.LineData, len(segments))
	for i, d := range segments {
		labels[i] = strconv.Itoa(i + 1)
		data[i] = opts.LineData{Value: d}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Route Profile", Width: "1200px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Route %s", route.Name),
			Subtitle: fmt.Sprintf("segments=%d total=%.6f mean=%.6f stddev=%.6f",
				summary.Segments, summary.TotalDistance, summary.MeanSegment, summary.StdDevSegment),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "segment"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "distance (deg)"}),
	)
	line.SetXAxis(labels).AddSeries("segment distance", data)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(w); err != nil {
		log.Printf("failed to render route profile: %v", err)
	}
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	places, err := s.geocoder.Lookup(r.URL.Query().Get("q"))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("geocode lookup failed: %v", err))
		return
	}
	if places == nil {
		places = []db.Place{}
	}
	s.writeJSON(w, http.StatusOK, places)
}
