package utils

import (
	"math"
	"testing"

	"fastaid/models"
)

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude is ~111.19 km on a 6371 km sphere.
	got := Haversine(10, 10, 11, 10)
	if math.Abs(got-111.19) > 0.05 {
		t.Fatalf("Haversine = %.3f km", got)
	}
	if Haversine(10, 10, 10, 10) != 0 {
		t.Fatalf("distance to self must be zero")
	}
}

func TestValidPoint(t *testing.T) {
	cases := []struct {
		p    models.GeoPoint
		want bool
	}{
		{models.NewPoint(10, 10), true},
		{models.NewPoint(-90, 180), true},
		{models.NewPoint(91, 0), false},
		{models.NewPoint(0, -181), false},
		{models.NewPoint(math.NaN(), 0), false},
		{models.GeoPoint{Type: "Point", Coordinates: []float64{1}}, false},
	}
	for _, tc := range cases {
		if got := ValidPoint(tc.p); got != tc.want {
			t.Errorf("ValidPoint(%v) = %v, want %v", tc.p.Coordinates, got, tc.want)
		}
	}
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	center := models.NewPoint(10, 10)
	minLat, maxLat, minLon, maxLon := BoundingBox(center, 2000)

	edge := models.NewPoint(10+0.017, 10) // ~1.89 km north
	if edge.Lat() < minLat || edge.Lat() > maxLat {
		t.Fatalf("point inside radius fell outside latitude bounds")
	}
	east := models.NewPoint(10, 10.018) // ~1.97 km east
	if east.Lon() < minLon || east.Lon() > maxLon {
		t.Fatalf("point inside radius fell outside longitude bounds")
	}
}

// destination walks distKm from (lat, lon) along bearing degrees.
func destination(lat, lon, bearing, distKm float64) (float64, float64) {
	rad := math.Pi / 180
	d := distKm / earthRadiusKm
	lat1, lon1, brg := lat*rad, lon*rad, bearing*rad
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	return lat2 / rad, lon2 / rad
}

func TestBoundingBoxCoversCircleAtHighLatitude(t *testing.T) {
	for _, tc := range []struct{ lat, lon, radiusKm float64 }{
		{70, 20, 500},
		{-60, -150, 300},
		{45, 100, 50},
		{10, 10, 2},
	} {
		center := models.NewPoint(tc.lat, tc.lon)
		minLat, maxLat, minLon, maxLon := BoundingBox(center, tc.radiusKm*1000)
		for bearing := 0.0; bearing < 360; bearing += 0.5 {
			lat, lon := destination(tc.lat, tc.lon, bearing, tc.radiusKm*0.9999)
			if lat < minLat || lat > maxLat || lon < minLon || lon > maxLon {
				t.Fatalf("center (%v,%v) r=%vkm: point at bearing %v (%.4f,%.4f) outside box [%.4f,%.4f]x[%.4f,%.4f]",
					tc.lat, tc.lon, tc.radiusKm, bearing, lat, lon, minLat, maxLat, minLon, maxLon)
			}
		}
	}
}

func TestBoundingBoxWidensToFullLongitude(t *testing.T) {
	// 2000 km around 80N reaches past the pole.
	_, maxLat, minLon, maxLon := BoundingBox(models.NewPoint(80, 0), 2_000_000)
	if maxLat != 90 || minLon != -180 || maxLon != 180 {
		t.Fatalf("expected a polar cap box, got maxLat=%v lon=[%v,%v]", maxLat, minLon, maxLon)
	}
}
