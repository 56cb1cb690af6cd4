package models

import "time"

// Requester is a person asking for emergency transport.
type Requester struct {
	ID          string    `bson:"id" json:"id"`
	PhoneNumber string    `bson:"phoneNumber" json:"phoneNumber"`
	Name        string    `bson:"name" json:"name"`
	Location    GeoPoint  `bson:"location" json:"location"`
	FCMToken    string    `bson:"fcmToken,omitempty" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
