package models

// RegisterRequesterRequest is the payload for creating a requester.
type RegisterRequesterRequest struct {
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Location    LatLng `json:"location"`
	FCMToken    string `json:"fcmToken,omitempty"`
}

// RegisterResourceRequest is the payload for enrolling a transport unit.
type RegisterResourceRequest struct {
	OperatorName  string `json:"operatorName" binding:"required"`
	OperatorPhone string `json:"operatorPhone" binding:"required"`
	LicenseID     string `json:"licenseId" binding:"required"`
	Location      LatLng `json:"location"`
	FCMToken      string `json:"fcmToken,omitempty"`
}

// Registration is returned after enrolment with a bearer token for the new identity.
type Registration struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Token string `json:"token"`
}
