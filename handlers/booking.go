package handlers

import (
	"net/http"

	"fastaid/middleware"
	"fastaid/models"
	"fastaid/services/booking"
	"fastaid/utils"

	"github.com/gin-gonic/gin"
)

// BookingHandler exposes the booking lifecycle.
type BookingHandler struct {
	Bookings booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: svc}
}

type createBookingInput struct {
	Pickup      models.LatLng `json:"pickup" binding:"required"`
	Destination models.LatLng `json:"destination" binding:"required"`
}

// CreateBooking dispatches the nearest bookable resource to the caller.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var input createBookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	b, err := h.Bookings.Create(c.Request.Context(), middleware.Subject(c), input.Pickup.Point(), input.Destination.Point())
	if err != nil {
		utils.RespondError(c, "Failed to create booking", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": b})
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// ListMyBookings returns the caller's bookings, newest first.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	list, err := h.Bookings.ListForRequester(c.Request.Context(), middleware.Subject(c))
	if err != nil {
		utils.RespondError(c, "Failed to list bookings", err)
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

// ResourceQueue lists the pending bookings assigned to a resource.
func (h *BookingHandler) ResourceQueue(c *gin.Context) {
	id := c.Param("id")
	if !requireSelf(c, utils.RoleOperator, id) {
		return
	}
	list, err := h.Bookings.PendingForResource(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Failed to load queue", err)
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	b, err := h.Bookings.Accept(c.Request.Context(), c.Param("id"), middleware.Subject(c))
	h.respondTransition(c, "Failed to accept booking", b, err)
}

func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	b, err := h.Bookings.Complete(c.Request.Context(), c.Param("id"), middleware.Subject(c))
	h.respondTransition(c, "Failed to complete booking", b, err)
}

// RejectBooking is only open to the assigned resource.
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	if middleware.Role(c) == utils.RoleRequester {
		c.JSON(http.StatusForbidden, gin.H{"error": "Requesters cancel, they do not reject"})
		return
	}
	b, err := h.Bookings.Reject(c.Request.Context(), current.ID)
	h.respondTransition(c, "Failed to reject booking", b, err)
}

// CancelBooking is open to either party and to admins.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	current, ok := h.load(c)
	if !ok {
		return
	}
	b, err := h.Bookings.Cancel(c.Request.Context(), current.ID)
	h.respondTransition(c, "Failed to cancel booking", b, err)
}

// load fetches the booking in the path and checks the caller is a party to it.
func (h *BookingHandler) load(c *gin.Context) (*models.Booking, bool) {
	b, err := h.Bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, "Failed to fetch booking", err)
		return nil, false
	}
	if !canView(c, b) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a party to this booking"})
		return nil, false
	}
	return b, true
}

func (h *BookingHandler) respondTransition(c *gin.Context, message string, b *models.Booking, err error) {
	if err != nil {
		utils.RespondError(c, message, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}
