package routes

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/routeplay/internal/geo"
)

func TestParseFormats(t *testing.T) {
	want := []geo.Coordinate{
		{Lat: 52.52, Lng: 13.405},
		{Lat: 52.5206, Lng: 13.4094},
	}

	tests := []struct {
		name string
		file string
		data string
	}{
		{
			name: "csv",
			file: "route.csv",
			data: "52.52,13.405\n52.5206,13.4094\n",
		},
		{
			name: "csv with header",
			file: "route.csv",
			data: "lat,lng\n52.52,13.405\n52.5206,13.4094\n",
		},
		{
			name: "json",
			file: "route.json",
			data: `[{"lat":52.52,"lng":13.405},{"lat":52.5206,"lng":13.4094}]`,
		},
		{
			name: "geojson points",
			file: "route.geojson",
			data: `{"type":"FeatureCollection","features":[
				{"geometry":{"type":"Point","coordinates":[13.405,52.52]}},
				{"geometry":{"type":"Point","coordinates":[13.4094,52.5206]}}]}`,
		},
		{
			name: "geojson linestring",
			file: "route.geojson",
			data: `{"type":"FeatureCollection","features":[
				{"geometry":{"type":"LineString","coordinates":[[13.405,52.52],[13.4094,52.5206]]}}]}`,
		},
		{
			name: "txt",
			file: "route.txt",
			data: "# berlin\n\n52.52, 13.405\n52.5206,13.4094\n",
		},
		{
			name: "uppercase extension",
			file: "ROUTE.CSV",
			data: "52.52,13.405\n52.5206,13.4094\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.file, []byte(tt.data))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("waypoints mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"unknown extension", "route.kml", "<kml/>"},
		{"csv non-numeric body row", "route.csv", "lat,lng\n52.52,13.405\nnorth,east\n"},
		{"csv wrong field count", "route.csv", "52.52,13.405,7\n"},
		{"json not an array", "route.json", `{"lat":1,"lng":2}`},
		{"geojson not a collection", "route.geojson", `{"type":"Feature"}`},
		{"geojson polygon geometry", "route.geojson", `{"type":"FeatureCollection","features":[{"geometry":{"type":"Polygon","coordinates":[]}}]}`},
		{"txt missing comma", "route.txt", "52.52 13.405\n"},
		{"txt non-numeric", "route.txt", "52.52,east\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.file, []byte(tt.data))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error %v is not a ValidationError", err)
			}
		})
	}
}

func TestParseEmptyInputs(t *testing.T) {
	// Empty files parse to zero waypoints; the minimum-length rule is
	// enforced by the caller, not the parser.
	for _, file := range []string{"route.csv", "route.txt"} {
		got, err := Parse(file, nil)
		if err != nil {
			t.Errorf("Parse(%q, empty): %v", file, err)
		}
		if len(got) != 0 {
			t.Errorf("Parse(%q, empty) = %v, want none", file, got)
		}
	}
}
