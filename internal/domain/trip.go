package domain

import (
	"math"
	"time"
)

// BookingStatus represents where a booking is in its lifecycle.
type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "REQUESTED"
	BookingStatusAccepted  BookingStatus = "ACCEPTED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Platform split applied to every finalized fare.
const (
	CommissionRate = 0.20
	EarningsRate   = 0.80
)

// TripBooking is a passenger's trip request moving through the registry.
type TripBooking struct {
	BookingID         string
	PassengerUsername string
	Destination       string
	RequestedAt       time.Time

	IsAccepted  bool
	IsCompleted bool
	IsCancelled bool

	DriverUsername string  // empty until accepted
	FinalFare      float64 // frozen at acceptance
}

// Status derives the lifecycle state from the booking flags.
func (b *TripBooking) Status() BookingStatus {
	switch {
	case b.IsCancelled:
		return BookingStatusCancelled
	case b.IsCompleted:
		return BookingStatusCompleted
	case b.IsAccepted:
		return BookingStatusAccepted
	default:
		return BookingStatusRequested
	}
}

// Receipt is the immutable record of a finalized fare split.
type Receipt struct {
	Timestamp      time.Time
	DriverName     string
	PlateNumber    string
	PassengerName  string
	Destination    string
	TotalFare      float64
	Commission     float64
	DriverEarnings float64
	TransactionID  string
}

// SplitFare divides a fare into platform commission and driver earnings.
func SplitFare(fare float64) (commission, earnings float64) {
	return RoundMoney(fare * CommissionRate), RoundMoney(fare * EarningsRate)
}

// RoundMoney rounds an amount to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
