package handlers

import (
	"net/http"
	"strconv"

	"fastaid/apperrors"
	"fastaid/middleware"
	"fastaid/models"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
)

func isAdmin(c *gin.Context) bool {
	return middleware.Role(c) == utils.RoleAdmin
}

// requireSelf allows the caller acting on their own record, or an admin.
func requireSelf(c *gin.Context, role, id string) bool {
	if isAdmin(c) || (middleware.Role(c) == role && middleware.Subject(c) == id) {
		return true
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "You can only act on your own account"})
	return false
}

// canView reports whether the caller is a party to the booking.
func canView(c *gin.Context, b *models.Booking) bool {
	switch middleware.Role(c) {
	case utils.RoleAdmin:
		return true
	case utils.RoleRequester:
		return b.RequesterID == middleware.Subject(c)
	case utils.RoleOperator:
		return b.ResourceID == middleware.Subject(c)
	}
	return false
}

// queryPoint reads a latitude/longitude pair from the query string.
func queryPoint(c *gin.Context, latKey, lonKey string) (models.GeoPoint, error) {
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		return models.GeoPoint{}, apperrors.InvalidArgument("handlers.queryPoint", "%s must be a number", latKey)
	}
	lon, err := strconv.ParseFloat(c.Query(lonKey), 64)
	if err != nil {
		return models.GeoPoint{}, apperrors.InvalidArgument("handlers.queryPoint", "%s must be a number", lonKey)
	}
	p := models.NewPoint(lat, lon)
	if !utils.ValidPoint(p) {
		return models.GeoPoint{}, apperrors.InvalidArgument("handlers.queryPoint", "coordinates out of range")
	}
	return p, nil
}

func queryFloat(c *gin.Context, key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(c.Query(key), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}
