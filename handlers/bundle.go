package handlers

// HandlerBundle groups the endpoint handlers for route registration.
type HandlerBundle struct {
	Fleet      *FleetHandler
	Booking    *BookingHandler
	Payment    *PaymentHandler
	Directions *DirectionsHandler
	Stats      *StatsHandler
	Admin      *AdminHandler
	Stream     *StreamHandler
}
