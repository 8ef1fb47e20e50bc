package types

import "testing"

func TestBoundsContainsIsInclusive(t *testing.T) {
	box := Bounds{MinLat: 36.0, MaxLat: 36.5, MinLng: -96.0, MaxLng: -95.5}

	if !box.Contains(LatLng{Lat: 36.0, Lng: -96.0}) {
		t.Fatal("expected corner point to be inside")
	}
	if !box.Contains(LatLng{Lat: 36.25, Lng: -95.75}) {
		t.Fatal("expected interior point to be inside")
	}
	if box.Contains(LatLng{Lat: 36.51, Lng: -95.75}) {
		t.Fatal("expected point above box to be outside")
	}
}

func TestBoundsValid(t *testing.T) {
	if (Bounds{MinLat: 1, MaxLat: 0}).Valid() {
		t.Fatal("inverted latitudes must be invalid")
	}
	if (Bounds{MinLat: -91, MaxLat: 0, MinLng: 0, MaxLng: 1}).Valid() {
		t.Fatal("latitude out of range must be invalid")
	}
	if !(Bounds{MinLat: 36, MaxLat: 37, MinLng: -96, MaxLng: -95}).Valid() {
		t.Fatal("expected well-formed box to be valid")
	}
}
