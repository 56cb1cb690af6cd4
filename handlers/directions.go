package handlers

import (
	"net/http"

	"fastaid/apperrors"
	"fastaid/services/routing"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
)

// DirectionsHandler previews a road route between two points.
type DirectionsHandler struct {
	Router routing.Router
}

func NewDirectionsHandler(router routing.Router) *DirectionsHandler {
	return &DirectionsHandler{Router: router}
}

// GetRoute expects originLat, originLng, destLat and destLng query parameters.
func (h *DirectionsHandler) GetRoute(c *gin.Context) {
	origin, err := queryPoint(c, "originLat", "originLng")
	if err != nil {
		utils.RespondError(c, "Invalid origin", err)
		return
	}
	dest, err := queryPoint(c, "destLat", "destLng")
	if err != nil {
		utils.RespondError(c, "Invalid destination", err)
		return
	}
	if h.Router == nil {
		utils.RespondError(c, "Routing is not configured",
			apperrors.New(apperrors.KindExternalServiceUnavailable, "directions.GetRoute", "no router"))
		return
	}

	route, err := h.Router.Route(c.Request.Context(), origin, dest)
	if err != nil {
		utils.RespondError(c, "Failed to fetch route", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"distanceMeters":  route.DistanceMeters,
		"durationSeconds": route.DurationSeconds,
		"polyline":        route.Polyline,
	})
}
