// Package routes parses uploaded route files into waypoint lists. The
// format is chosen by file extension; all formats normalize to the same
// []geo.Coordinate in upload order.
package routes

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/routeplay/internal/geo"
)

// ValidationError reports a malformed upload. API handlers map it to a
// 400 response; anything else is a 500.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Parse decodes data into waypoints based on the extension of name.
// Supported: .csv, .json, .geojson, .txt.
func Parse(name string, data []byte) ([]geo.Coordinate, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return parseCSV(data)
	case ".json":
		return parseJSON(data)
	case ".geojson":
		return parseGeoJSON(data)
	case ".txt":
		return parseTXT(data)
	default:
		return nil, validationErrorf("unsupported route file type %q", filepath.Ext(name))
	}
}

// parseCSV reads lat,lng records. A first record whose fields don't parse
// as numbers is treated as a header and skipped.
func parseCSV(data []byte) ([]geo.Coordinate, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, validationErrorf("malformed CSV: %v", err)
	}

	var waypoints []geo.Coordinate
	for i, rec := range records {
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if latErr != nil || lngErr != nil {
			if i == 0 {
				continue // header row
			}
			return nil, validationErrorf("CSV record %d: not a lat,lng pair: %q,%q", i+1, rec[0], rec[1])
		}
		waypoints = append(waypoints, geo.Coordinate{Lat: lat, Lng: lng})
	}
	return waypoints, nil
}

func parseJSON(data []byte) ([]geo.Coordinate, error) {
	var waypoints []geo.Coordinate
	if err := json.Unmarshal(data, &waypoints); err != nil {
		return nil, validationErrorf("malformed JSON route: %v", err)
	}
	return waypoints, nil
}

// geoJSON mirrors just enough of the GeoJSON structure to extract
// coordinates. Feature geometry coordinates are [lng, lat].
type geoJSON struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Geometry struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

func parseGeoJSON(data []byte) ([]geo.Coordinate, error) {
	var doc geoJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, validationErrorf("malformed GeoJSON: %v", err)
	}
	if doc.Type != "FeatureCollection" {
		return nil, validationErrorf("GeoJSON type %q not supported, want FeatureCollection", doc.Type)
	}

	var waypoints []geo.Coordinate
	for i, f := range doc.Features {
		switch f.Geometry.Type {
		case "Point":
			var pos [2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &pos); err != nil {
				return nil, validationErrorf("feature %d: malformed Point coordinates: %v", i, err)
			}
			waypoints = append(waypoints, geo.Coordinate{Lat: pos[1], Lng: pos[0]})
		case "LineString":
			var line [][2]float64
			if err := json.Unmarshal(f.Geometry.Coordinates, &line); err != nil {
				return nil, validationErrorf("feature %d: malformed LineString coordinates: %v", i, err)
			}
			for _, pos := range line {
				waypoints = append(waypoints, geo.Coordinate{Lat: pos[1], Lng: pos[0]})
			}
		default:
			return nil, validationErrorf("feature %d: geometry type %q not supported", i, f.Geometry.Type)
		}
	}
	return waypoints, nil
}

// parseTXT reads one lat,lng pair per line. Blank lines and lines starting
// with # are skipped.
func parseTXT(data []byte) ([]geo.Coordinate, error) {
	var waypoints []geo.Coordinate
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, validationErrorf("line %d: want lat,lng, got %q", i+1, line)
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if latErr != nil || lngErr != nil {
			return nil, validationErrorf("line %d: not a lat,lng pair: %q", i+1, line)
		}
		waypoints = append(waypoints, geo.Coordinate{Lat: lat, Lng: lng})
	}
	return waypoints, nil
}
