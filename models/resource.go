package models

import "time"

// Resource is a transport unit (ambulance) and its operator.
// Available is written only through the availability ledger.
type Resource struct {
	ID            string    `bson:"id" json:"id"`
	OperatorName  string    `bson:"operatorName" json:"operatorName"`
	OperatorPhone string    `bson:"operatorPhone" json:"operatorPhone"`
	LicenseID     string    `bson:"licenseId" json:"licenseId"`
	Location      GeoPoint  `bson:"location" json:"location"`
	Available     bool      `bson:"available" json:"available"`
	Verified      bool      `bson:"verified" json:"verified"`
	FCMToken      string    `bson:"fcmToken,omitempty" json:"-"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Bookable reports whether the locator may hand this resource out.
func (r Resource) Bookable() bool {
	return r.Available && r.Verified
}

// ResourceDistance is one row of a geospatial nearest-available query.
type ResourceDistance struct {
	Resource       Resource `bson:",inline" json:"resource"`
	DistanceMeters float64  `bson:"distanceMeters" json:"distanceMeters"`
}
