package service

import (
	"context"
	"fmt"
	"time"

	"swift/internal/domain"
	"swift/internal/logger"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationBookingRequested NotificationType = "BOOKING_REQUESTED"
	NotificationDriverAssigned   NotificationType = "DRIVER_ASSIGNED"
	NotificationTripCompleted    NotificationType = "TRIP_COMPLETED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationDriverRated      NotificationType = "DRIVER_RATED"
	NotificationReceiptReady     NotificationType = "RECEIPT_READY"
)

// Notification is a lifecycle notice addressed to one account.
type Notification struct {
	Type      NotificationType
	Recipient string // username
	BookingID string
	Title     string
	Message   string
	Data      map[string]any
	CreatedAt time.Time
}

// NotificationService tells passengers and drivers about booking transitions.
// Delivery is the structured log; the dashboards poll for state.
type NotificationService struct {
	log *logger.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log *logger.Logger) *NotificationService {
	return &NotificationService{log: log}
}

// NotifyBookingRequested confirms a new booking to the passenger.
func (s *NotificationService) NotifyBookingRequested(ctx context.Context, b *domain.TripBooking, quotedFare float64) {
	s.send(ctx, Notification{
		Type:      NotificationBookingRequested,
		Recipient: b.PassengerUsername,
		BookingID: b.BookingID,
		Title:     "Booking Requested",
		Message:   fmt.Sprintf("Looking for a driver to %s. Estimated fare: P%.2f", b.Destination, quotedFare),
		Data:      map[string]any{"destination": b.Destination, "fare": quotedFare},
	})
}

// NotifyDriverAssigned tells the passenger who accepted the booking.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, b *domain.TripBooking, driver *domain.Account) {
	s.send(ctx, Notification{
		Type:      NotificationDriverAssigned,
		Recipient: b.PassengerUsername,
		BookingID: b.BookingID,
		Title:     "Driver Assigned",
		Message:   fmt.Sprintf("Driver %s (%s) accepted your booking", driver.Username, driver.PlateNumber),
		Data: map[string]any{
			"driver": driver.Username,
			"plate":  driver.PlateNumber,
			"fare":   b.FinalFare,
		},
	})
}

// NotifyTripCompleted asks the passenger to rate the driver.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, b *domain.TripBooking) {
	s.send(ctx, Notification{
		Type:      NotificationTripCompleted,
		Recipient: b.PassengerUsername,
		BookingID: b.BookingID,
		Title:     "Trip Completed",
		Message:   fmt.Sprintf("You arrived at %s. Please rate your driver.", b.Destination),
		Data:      map[string]any{"driver": b.DriverUsername, "fare": b.FinalFare},
	})
}

// NotifyBookingCancelled confirms a cancellation to the passenger.
func (s *NotificationService) NotifyBookingCancelled(ctx context.Context, b *domain.TripBooking) {
	s.send(ctx, Notification{
		Type:      NotificationBookingCancelled,
		Recipient: b.PassengerUsername,
		BookingID: b.BookingID,
		Title:     "Booking Cancelled",
		Message:   fmt.Sprintf("Your booking to %s was cancelled", b.Destination),
	})
}

// NotifyDriverRated tells the driver about a new rating.
func (s *NotificationService) NotifyDriverRated(ctx context.Context, b *domain.TripBooking, rating int, average float64) {
	s.send(ctx, Notification{
		Type:      NotificationDriverRated,
		Recipient: b.DriverUsername,
		BookingID: b.BookingID,
		Title:     "New Rating",
		Message:   fmt.Sprintf("%s rated you %d. Average: %.1f", b.PassengerUsername, rating, average),
		Data:      map[string]any{"rating": rating, "average": average},
	})
}

// NotifyReceiptReady tells the driver the fare was split and credited.
func (s *NotificationService) NotifyReceiptReady(ctx context.Context, r *domain.Receipt) {
	s.send(ctx, Notification{
		Type:      NotificationReceiptReady,
		Recipient: r.DriverName,
		Title:     "Receipt Ready",
		Message:   fmt.Sprintf("P%.2f credited for the trip to %s", r.DriverEarnings, r.Destination),
		Data: map[string]any{
			"transaction_id": r.TransactionID,
			"total_fare":     r.TotalFare,
			"commission":     r.Commission,
		},
	})
}

func (s *NotificationService) send(_ context.Context, n Notification) {
	if s == nil {
		return
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	additional := map[string]any{
		"type":  string(n.Type),
		"title": n.Title,
	}
	for k, v := range n.Data {
		additional[k] = v
	}

	s.log.Info(logger.Entry{
		Action:     "notification",
		Message:    n.Message,
		Actor:      n.Recipient,
		BookingID:  n.BookingID,
		Additional: additional,
	})
}
