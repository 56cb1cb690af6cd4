package handlers

import (
	"net/http"

	"fastaid/apperrors"
	"fastaid/services/booking"
	"fastaid/services/fleet"
	"fastaid/services/ledger"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler covers out-of-band verification and ledger repair.
type AdminHandler struct {
	Fleet    fleet.FleetService
	Ledger   ledger.Ledger
	Bookings booking.BookingService
}

func NewAdminHandler(fleetSvc fleet.FleetService, led ledger.Ledger, bookings booking.BookingService) *AdminHandler {
	return &AdminHandler{Fleet: fleetSvc, Ledger: led, Bookings: bookings}
}

func (h *AdminHandler) VerifyResource(c *gin.Context) {
	var input struct {
		Verified *bool `json:"verified" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.Fleet.VerifyResource(c.Request.Context(), id, *input.Verified); err != nil {
		utils.RespondError(c, "Failed to update verification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "verified": *input.Verified})
}

// SetAvailability overwrites the ledger entry. It exists to repair a resource
// left held after a failed release, so freeing a resource that a pending or
// accepted booking still holds is refused.
func (h *AdminHandler) SetAvailability(c *gin.Context) {
	var input struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	id := c.Param("id")
	if *input.Available {
		active, err := h.Bookings.PendingForResource(c.Request.Context(), id)
		if err != nil {
			utils.RespondError(c, "Failed to check resource bookings", err)
			return
		}
		if len(active) > 0 {
			utils.RespondError(c, "Resource is still held",
				apperrors.AlreadyHandled("admin.SetAvailability", "resource %s is held by booking %s", id, active[0].ID))
			return
		}
	}
	if err := h.Ledger.SetAvailable(c.Request.Context(), id, *input.Available); err != nil {
		utils.RespondError(c, "Failed to set availability", err)
		return
	}
	getLogger(c).Info("Availability overridden", zap.String("resourceID", id), zap.Bool("available", *input.Available))
	c.JSON(http.StatusOK, gin.H{"id": id, "available": *input.Available})
}

func (h *AdminHandler) GetAvailability(c *gin.Context) {
	id := c.Param("id")
	available, err := h.Ledger.IsAvailable(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Failed to read availability", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "available": available})
}
