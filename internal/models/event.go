package models

import "time"

// Parcel event types pushed to listeners.
const (
	EventParcelPaid    = "parcel_paid"
	EventRiderAssigned = "rider_assigned"
	EventParcelUpdated = "parcel_updated"
)

// ParcelEvent is a change to a parcel's lifecycle that other parties may want
// to hear about.
type ParcelEvent struct {
	Type        string    `json:"type"`
	ParcelID    string    `json:"parcelId"`
	TrackingID  string    `json:"trackingId,omitempty"`
	SenderEmail string    `json:"senderEmail"`
	RiderEmail  string    `json:"riderEmail,omitempty"`
	At          time.Time `json:"at"`
}
