package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"swift/internal/domain"
	"swift/internal/logger"
)

// TripRegistry owns every unresolved booking and serializes all transitions
// behind one mutex. Bookings are kept in request order.
type TripRegistry struct {
	fareService         *FareService
	accountService      *AccountService
	receiptService      *ReceiptService
	notificationService *NotificationService
	log                 *logger.Logger
	now                 func() time.Time

	mu       sync.Mutex
	bookings []*domain.TripBooking
}

// NewTripRegistry creates an empty registry.
func NewTripRegistry(
	fareService *FareService,
	accountService *AccountService,
	receiptService *ReceiptService,
	notificationService *NotificationService,
	log *logger.Logger,
) *TripRegistry {
	return &TripRegistry{
		fareService:         fareService,
		accountService:      accountService,
		receiptService:      receiptService,
		notificationService: notificationService,
		log:                 log,
		now:                 time.Now,
	}
}

// RequestTripRequest contains the parameters for booking a trip.
type RequestTripRequest struct {
	Passenger   string
	Destination string
}

// Request books a trip for a passenger with no unresolved booking.
func (r *TripRegistry) Request(ctx context.Context, req RequestTripRequest) (*domain.TripBooking, error) {
	if strings.TrimSpace(req.Passenger) == "" {
		return nil, ErrInvalidUsername
	}

	destination, _, ok := r.fareService.Lookup(req.Destination)
	if !ok {
		return nil, ErrUnknownDestination
	}

	r.mu.Lock()
	if r.findByPassengerLocked(req.Passenger) != nil {
		r.mu.Unlock()
		return nil, ErrDuplicateBooking
	}

	booking := &domain.TripBooking{
		BookingID:         newBookingID(),
		PassengerUsername: strings.TrimSpace(req.Passenger),
		Destination:       destination,
		RequestedAt:       r.now(),
	}
	r.bookings = append(r.bookings, booking)
	out := *booking
	r.mu.Unlock()

	r.log.Info(logger.Entry{
		Action:     "booking_requested",
		Message:    "trip requested",
		Actor:      out.PassengerUsername,
		BookingID:  out.BookingID,
		Additional: map[string]any{"destination": out.Destination},
	})
	r.notificationService.NotifyBookingRequested(ctx, &out, r.fareService.CalculateFare(out.Destination))

	return &out, nil
}

// Cancel withdraws a passenger's booking that no driver has accepted yet.
func (r *TripRegistry) Cancel(ctx context.Context, passenger string) (*domain.TripBooking, error) {
	r.mu.Lock()
	idx := r.indexByPassengerLocked(passenger)
	if idx < 0 {
		r.mu.Unlock()
		return nil, ErrNoActiveBooking
	}
	booking := r.bookings[idx]
	if booking.IsAccepted {
		r.mu.Unlock()
		return nil, ErrAlreadyAccepted
	}
	r.removeLocked(idx)
	out := *booking
	r.mu.Unlock()

	out.IsCancelled = true

	r.log.Info(logger.Entry{
		Action:    "booking_cancelled",
		Message:   "booking cancelled by passenger",
		Actor:     out.PassengerUsername,
		BookingID: out.BookingID,
	})
	r.notificationService.NotifyBookingCancelled(ctx, &out)

	return &out, nil
}

// Current returns the passenger's unresolved booking.
func (r *TripRegistry) Current(ctx context.Context, passenger string) (*domain.TripBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.findByPassengerLocked(passenger)
	if b == nil {
		return nil, ErrNoActiveBooking
	}
	out := *b
	return &out, nil
}

// IsBusy reports whether the driver holds an accepted, incomplete booking.
func (r *TripRegistry) IsBusy(ctx context.Context, driver string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeTripLocked(driver) != nil
}

// RemoveDriver deletes a driver account unless the driver is on a trip. The
// registry lock is held across the check and the delete so an Accept cannot
// assign a trip to a driver being removed.
func (r *TripRegistry) RemoveDriver(ctx context.Context, driver string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeTripLocked(driver) != nil {
		return ErrDriverBusy
	}
	return r.accountService.DeleteDriver(ctx, driver)
}

// ActiveTripFor returns the driver's incomplete trip.
func (r *TripRegistry) ActiveTripFor(ctx context.Context, driver string) (*domain.TripBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.activeTripLocked(driver)
	if b == nil {
		return nil, ErrNoActiveTrip
	}
	out := *b
	return &out, nil
}

// Count returns the number of unresolved bookings.
func (r *TripRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *TripRegistry) findByPassengerLocked(passenger string) *domain.TripBooking {
	if idx := r.indexByPassengerLocked(passenger); idx >= 0 {
		return r.bookings[idx]
	}
	return nil
}

func (r *TripRegistry) indexByPassengerLocked(passenger string) int {
	for i, b := range r.bookings {
		if domain.SameUser(b.PassengerUsername, passenger) {
			return i
		}
	}
	return -1
}

func (r *TripRegistry) activeTripLocked(driver string) *domain.TripBooking {
	for _, b := range r.bookings {
		if b.IsAccepted && !b.IsCompleted && domain.SameUser(b.DriverUsername, driver) {
			return b
		}
	}
	return nil
}

// removeLocked deletes the booking at idx keeping request order.
func (r *TripRegistry) removeLocked(idx int) {
	copy(r.bookings[idx:], r.bookings[idx+1:])
	r.bookings[len(r.bookings)-1] = nil
	r.bookings = r.bookings[:len(r.bookings)-1]
}

// newBookingID returns the first eight hex digits of a random UUID, upper-cased.
func newBookingID() string {
	return strings.ToUpper(uuid.New().String()[:8])
}
