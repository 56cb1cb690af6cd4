package utils

import (
	"math"

	"fastaid/models"
)

const earthRadiusKm = 6371

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * (math.Pi / 180)
	dLon := (lon2 - lon1) * (math.Pi / 180)
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DistanceMeters is Haversine between two GeoJSON points, in metres.
func DistanceMeters(a, b models.GeoPoint) float64 {
	return Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon()) * 1000
}

// ValidPoint reports whether p holds a real latitude/longitude pair.
func ValidPoint(p models.GeoPoint) bool {
	if len(p.Coordinates) != 2 {
		return false
	}
	lat, lon := p.Lat(), p.Lon()
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// BoundingBox returns a lat/lon box that contains every point within
// radiusMeters of center. Used to prefilter before exact haversine.
func BoundingBox(center models.GeoPoint, radiusMeters float64) (minLat, maxLat, minLon, maxLon float64) {
	latDelta := radiusMeters / 1000 / earthRadiusKm * (180 / math.Pi)
	minLat = math.Max(center.Lat()-latDelta, -90)
	maxLat = math.Min(center.Lat()+latDelta, 90)

	// The widest longitude spread of a spherical cap is asin(sin(d)/cos(lat)),
	// reached poleward of the center's parallel.
	angular := radiusMeters / 1000 / earthRadiusKm
	cosLat := math.Cos(center.Lat() * math.Pi / 180)
	if cosLat < 1e-6 || minLat == -90 || maxLat == 90 {
		return minLat, maxLat, -180, 180
	}
	ratio := math.Sin(angular) / cosLat
	if ratio >= 1 {
		return minLat, maxLat, -180, 180
	}
	lonDelta := math.Asin(ratio) * (180 / math.Pi)
	minLon = center.Lon() - lonDelta
	maxLon = center.Lon() + lonDelta
	if minLon < -180 || maxLon > 180 {
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, minLon, maxLon
}
