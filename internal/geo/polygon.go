package geo

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is a single outer ring of vertices. The ring may be open or
// explicitly closed; self-intersecting rings are not supported.
type Polygon []Point

// Validate checks the ring has enough distinct vertices to enclose area.
func (p Polygon) Validate() error {
	ring := p.ring()
	if len(ring) < 3 {
		return errors.New("polygon requires at least 3 vertices")
	}
	return nil
}

// Contains reports whether pt lies inside the polygon, using the even-odd
// ray casting rule. Points exactly on an edge may fall on either side; zone
// boundaries are not expected to split a street address that finely.
func (p Polygon) Contains(pt Point) bool {
	ring := p.ring()
	if len(ring) < 3 {
		return false
	}
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		vi, vj := ring[i], ring[j]
		if (vi.Lat > pt.Lat) != (vj.Lat > pt.Lat) {
			intersectLng := (vj.Lng-vi.Lng)*(pt.Lat-vi.Lat)/(vj.Lat-vi.Lat) + vi.Lng
			if pt.Lng < intersectLng {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// ring strips a closing vertex when the ring is explicitly closed.
func (p Polygon) ring() []Point {
	if len(p) > 1 && p[0] == p[len(p)-1] {
		return p[:len(p)-1]
	}
	return p
}

// geoJSON mirrors the GeoJSON Polygon object used on the wire and in storage.
type geoJSON struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// MarshalJSON renders the polygon as a GeoJSON Polygon ([lng, lat] order).
func (p Polygon) MarshalJSON() ([]byte, error) {
	ring := make([][]float64, 0, len(p))
	for _, pt := range p {
		ring = append(ring, []float64{pt.Lng, pt.Lat})
	}
	return json.Marshal(geoJSON{Type: "Polygon", Coordinates: [][][]float64{ring}})
}

// UnmarshalJSON accepts a GeoJSON Polygon and keeps its outer ring.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var gj geoJSON
	if err := json.Unmarshal(data, &gj); err != nil {
		return err
	}
	if gj.Type != "Polygon" {
		return fmt.Errorf("unsupported geometry type %q", gj.Type)
	}
	if len(gj.Coordinates) == 0 {
		return errors.New("polygon has no rings")
	}
	outer := gj.Coordinates[0]
	ring := make(Polygon, 0, len(outer))
	for _, pos := range outer {
		if len(pos) < 2 {
			return errors.New("position requires lng and lat")
		}
		ring = append(ring, Point{Lng: pos[0], Lat: pos[1]})
	}
	*p = ring
	return nil
}
