package types

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinates fall in the WGS84 range.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Bounds is an inclusive geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// Valid reports whether the box is well formed.
func (b Bounds) Valid() bool {
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return false
	}
	min := LatLng{Lat: b.MinLat, Lng: b.MinLng}
	max := LatLng{Lat: b.MaxLat, Lng: b.MaxLng}
	return min.Valid() && max.Valid()
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
