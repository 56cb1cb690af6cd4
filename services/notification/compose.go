package notification

import (
	"strings"

	"fastaid/models"
)

const (
	TargetRequester = "requester"
	TargetResource  = "resource"
)

type message struct {
	title, body string
}

var requesterMessages = map[string]message{
	models.ChangeBookingAccepted:  {"Ambulance on the way", "Your request was accepted. Track the ambulance in the app."},
	models.ChangeBookingRejected:  {"Request declined", "The ambulance could not take your request. Please request again."},
	models.ChangeBookingCompleted: {"Trip completed", "Your trip is complete. Take care."},
	models.ChangeBookingCancelled: {"Booking cancelled", "Your booking was cancelled."},
	models.ChangeBookingPaid:      {"Payment received", "Thank you, your payment went through."},
}

var resourceMessages = map[string]message{
	models.ChangeBookingCreated:   {"New emergency request", "A requester nearby needs transport. Open the app to respond."},
	models.ChangeBookingCancelled: {"Request cancelled", "The requester cancelled the booking."},
	models.ChangeBookingPaid:      {"Trip paid", "Payment for your last trip was received."},
}

// Compose turns a change signal into a push for the party owning the signal
// key. Changes nobody should be paged about return ok=false.
func Compose(signal models.ChangeSignal) (models.PushPayload, bool) {
	target, id, found := strings.Cut(signal.Key, ":")
	if !found || id == "" {
		return models.PushPayload{}, false
	}

	var table map[string]message
	switch target {
	case TargetRequester:
		table = requesterMessages
	case TargetResource:
		table = resourceMessages
	default:
		return models.PushPayload{}, false
	}
	m, ok := table[signal.Change]
	if !ok {
		return models.PushPayload{}, false
	}
	return models.PushPayload{
		Target:   target,
		TargetID: id,
		Title:    m.title,
		Body:     m.body,
		Change:   signal.Change,
		EntityID: signal.EntityID,
	}, true
}
