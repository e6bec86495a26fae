package models

import "time"

// NATS Event Types
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCanceled  = "booking.canceled"
)

// BookingCreatedEvent represents a pending booking entering checkout
type BookingCreatedEvent struct {
	BookingID  int64     `json:"booking_id"`
	PropertyID int64     `json:"property_id"`
	UserID     *int64    `json:"user_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingConfirmedEvent represents a verified payment completion
type BookingConfirmedEvent struct {
	BookingID  int64     `json:"booking_id"`
	PropertyID int64     `json:"property_id"`
	TotalPrice int64     `json:"total_price"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingCanceledEvent represents an abandoned or expired checkout
type BookingCanceledEvent struct {
	BookingID  int64     `json:"booking_id"`
	PropertyID int64     `json:"property_id"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}
