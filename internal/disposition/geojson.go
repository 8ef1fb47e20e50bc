package disposition

// GeoJSON feature assembly for map rendering. Style attributes ride in
// feature properties so the renderer stays a dumb projection of state.

// FeatureCollection is a GeoJSON FeatureCollection of property markers.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single GeoJSON point feature.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   PointGeometry     `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// PointGeometry holds coordinates in GeoJSON order, longitude first.
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureProperties is the attribute bag attached to each marker feature.
type FeatureProperties struct {
	PropertyID  string `json:"propertyId"`
	Disposition string `json:"dispositionType"`
	Status      string `json:"status"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	MarkerColor string `json:"markerColor"`
	Shape       string `json:"shape"`
}

// ToGeoJSON projects markers into a FeatureCollection ready for the map
// layer. Features is never nil, so an empty viewport still serializes as
// an empty array.
func ToGeoJSON(markers []Marker) FeatureCollection {
	features := make([]Feature, 0, len(markers))
	for _, m := range markers {
		features = append(features, Feature{
			Type: "Feature",
			Geometry: PointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{m.Location.Lng, m.Location.Lat},
			},
			Properties: FeatureProperties{
				PropertyID:  m.PropertyID,
				Disposition: string(m.Disposition),
				Status:      m.Status,
				Icon:        m.Style.Icon,
				Color:       m.Style.Color,
				MarkerColor: m.Style.MarkerColor,
				Shape:       string(m.Style.Shape),
			},
		})
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}
