// Package geo holds the route geometry primitives shared by the playback
// engine and the HTTP API. All distances are Euclidean in coordinate-degree
// space (sqrt of squared lat/lng deltas); the playback protocol's speed unit
// is defined against this metric, so it must not be replaced with a geodesic
// formula.
package geo

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Coordinate is a single geographic point. Values are accepted as-is; the
// engine imposes no range checks beyond being finite numbers.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SegmentDistance returns the straight-line distance between two coordinates
// in degree space. Equal points yield 0.
func SegmentDistance(a, b Coordinate) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng
	return math.Sqrt(dLat*dLat + dLng*dLng)
}

// TotalDistance sums SegmentDistance over consecutive waypoint pairs.
// Routes with fewer than two waypoints have zero length.
func TotalDistance(waypoints []Coordinate) float64 {
	var total float64
	for i := 1; i < len(waypoints); i++ {
		total += SegmentDistance(waypoints[i-1], waypoints[i])
	}
	return total
}

// SegmentDistances returns the per-segment distances of a route in order.
func SegmentDistances(waypoints []Coordinate) []float64 {
	if len(waypoints) < 2 {
		return nil
	}
	out := make([]float64, 0, len(waypoints)-1)
	for i := 1; i < len(waypoints); i++ {
		out = append(out, SegmentDistance(waypoints[i-1], waypoints[i]))
	}
	return out
}

// Lerp interpolates component-wise between a and b. t is not clamped; the
// caller is responsible for keeping it in [0, 1].
func Lerp(a, b Coordinate, t float64) Coordinate {
	return Coordinate{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// BoundingBox is the axis-aligned extent of a set of coordinates.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// RouteSummary describes a route's shape for display and reporting.
type RouteSummary struct {
	Segments      int         `json:"segments"`
	TotalDistance float64     `json:"total_distance"`
	MeanSegment   float64     `json:"mean_segment"`
	StdDevSegment float64     `json:"stddev_segment"`
	Bounds        BoundingBox `json:"bounds"`
}

// Summarize computes segment statistics and the bounding box for a route.
// Routes shorter than two waypoints produce a zero-valued summary.
func Summarize(waypoints []Coordinate) RouteSummary {
	if len(waypoints) == 0 {
		return RouteSummary{}
	}

	bounds := BoundingBox{
		MinLat: waypoints[0].Lat, MaxLat: waypoints[0].Lat,
		MinLng: waypoints[0].Lng, MaxLng: waypoints[0].Lng,
	}
	for _, wp := range waypoints[1:] {
		bounds.MinLat = math.Min(bounds.MinLat, wp.Lat)
		bounds.MaxLat = math.Max(bounds.MaxLat, wp.Lat)
		bounds.MinLng = math.Min(bounds.MinLng, wp.Lng)
		bounds.MaxLng = math.Max(bounds.MaxLng, wp.Lng)
	}

	summary := RouteSummary{Bounds: bounds}
	segments := SegmentDistances(waypoints)
	if len(segments) == 0 {
		return summary
	}

	summary.Segments = len(segments)
	summary.TotalDistance = TotalDistance(waypoints)
	summary.MeanSegment = stat.Mean(segments, nil)
	if len(segments) > 1 {
		summary.StdDevSegment = stat.StdDev(segments, nil)
	}
	return summary
}
