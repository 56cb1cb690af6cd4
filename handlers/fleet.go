package handlers

import (
	"net/http"
	"time"

	"fastaid/models"
	"fastaid/services/fleet"
	"fastaid/services/locator"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
)

const defaultNearbyLimit = 10

// FleetHandler serves requester and resource enrolment and positions.
type FleetHandler struct {
	Fleet    fleet.FleetService
	Locator  locator.Locator
	TokenTTL time.Duration
}

func NewFleetHandler(fleetSvc fleet.FleetService, loc locator.Locator, tokenTTL time.Duration) *FleetHandler {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &FleetHandler{Fleet: fleetSvc, Locator: loc, TokenTTL: tokenTTL}
}

func (h *FleetHandler) RegisterRequester(c *gin.Context) {
	var req models.RegisterRequesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	requester, err := h.Fleet.RegisterRequester(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, "Failed to register requester", err)
		return
	}
	h.respondRegistration(c, requester.ID, utils.RoleRequester, requester)
}

func (h *FleetHandler) GetRequester(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, utils.RoleRequester, id) {
		return
	}
	requester, err := h.Fleet.GetRequester(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Failed to fetch requester", err)
		return
	}
	c.JSON(http.StatusOK, requester)
}

func (h *FleetHandler) UpdateRequesterLocation(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, utils.RoleRequester, id) {
		return
	}
	var loc models.LatLng
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if err := h.Fleet.UpdateRequesterLocation(c.Request.Context(), id, loc.Point()); err != nil {
		utils.RespondError(c, "Failed to update location", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location updated"})
}

func (h *FleetHandler) RegisterResource(c *gin.Context) {
	var req models.RegisterResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	resource, err := h.Fleet.RegisterResource(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, "Failed to register resource", err)
		return
	}
	h.respondRegistration(c, resource.ID, utils.RoleOperator, resource)
}

func (h *FleetHandler) GetResource(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, utils.RoleOperator, id) {
		return
	}
	resource, err := h.Fleet.GetResource(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Failed to fetch resource", err)
		return
	}
	c.JSON(http.StatusOK, resource)
}

func (h *FleetHandler) UpdateResourceLocation(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, utils.RoleOperator, id) {
		return
	}
	var loc models.LatLng
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if err := h.Fleet.UpdateResourceLocation(c.Request.Context(), id, loc.Point()); err != nil {
		utils.RespondError(c, "Failed to update location", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location updated"})
}

// NearbyResources lists bookable resources around ?lat=&lon=, nearest first.
// radius is in meters; zero uses the configured search radius.
func (h *FleetHandler) NearbyResources(c *gin.Context) {
	point, err := queryPoint(c, "lat", "lon")
	if err != nil {
		utils.RespondError(c, "Invalid location", err)
		return
	}
	rows, err := h.Locator.Nearby(c.Request.Context(), point, queryFloat(c, "radius", 0), queryInt(c, "limit", defaultNearbyLimit))
	if err != nil {
		utils.RespondError(c, "Failed to find nearby resources", err)
		return
	}
	if rows == nil {
		rows = []models.ResourceDistance{}
	}
	c.JSON(http.StatusOK, gin.H{"resources": rows})
}

func (h *FleetHandler) respondRegistration(c *gin.Context, id, role string, entity any) {
	token, err := utils.GenerateToken(id, role, h.TokenTTL)
	if err != nil {
		getLogger(c).Error("Failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"registration": models.Registration{ID: id, Role: role, Token: token},
		role:           entity,
	})
}
