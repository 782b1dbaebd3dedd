// Package geocode resolves place names to coordinates from the seeded
// gazetteer table. It is a mock: every answer comes from the local
// database and no external geocoding service is contacted.
package geocode

import (
	"strings"

	"github.com/banshee-data/routeplay/internal/db"
)

type Geocoder struct {
	db    *db.DB
	limit int
}

// NewGeocoder returns a geocoder over the places table. limit caps the
// number of results per lookup.
func NewGeocoder(database *db.DB, limit int) *Geocoder {
	return &Geocoder{db: database, limit: limit}
}

// Lookup returns gazetteer entries whose name starts with q, ignoring
// case and surrounding whitespace. An empty query returns no results.
func (g *Geocoder) Lookup(q string) ([]db.Place, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	return g.db.LookupPlaces(q, g.limit)
}
