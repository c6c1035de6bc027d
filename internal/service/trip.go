package service

import (
	"context"
	"errors"

	"swift/internal/domain"
	"swift/internal/logger"
	"swift/internal/repository"
)

// Complete marks the driver's accepted trip as finished. The booking stays in
// the registry until the passenger rates it.
func (r *TripRegistry) Complete(ctx context.Context, driver string) (*domain.TripBooking, error) {
	r.mu.Lock()
	booking := r.activeTripLocked(driver)
	if booking == nil {
		r.mu.Unlock()
		return nil, ErrNoActiveTrip
	}
	booking.IsCompleted = true
	out := *booking
	r.mu.Unlock()

	r.log.Info(logger.Entry{
		Action:    "trip_completed",
		Message:   "driver completed trip",
		Actor:     out.DriverUsername,
		BookingID: out.BookingID,
	})
	r.notificationService.NotifyTripCompleted(ctx, &out)

	return &out, nil
}

// RateRequest contains a passenger's rating for the completed trip.
type RateRequest struct {
	Passenger string
	Rating    int
}

// Rate records the rating on the driver and removes the completed booking.
// With no completed booking it returns (nil, nil).
func (r *TripRegistry) Rate(ctx context.Context, req RateRequest) (*domain.TripBooking, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	r.mu.Lock()
	idx := r.indexByPassengerLocked(req.Passenger)
	if idx < 0 || !r.bookings[idx].IsCompleted {
		r.mu.Unlock()
		return nil, nil
	}
	out := *r.bookings[idx]
	r.removeLocked(idx)
	r.mu.Unlock()

	driver, err := r.accountService.ApplyRating(ctx, out.DriverUsername, req.Rating)
	switch {
	case err == nil, errors.Is(err, ErrPersistence):
		r.notificationService.NotifyDriverRated(ctx, &out, req.Rating, driver.AverageRating())
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ErrNotADriver):
		r.log.Warn(logger.Entry{
			Action:    "rating_driver_missing",
			Message:   "driver no longer exists, rating dropped",
			Actor:     out.PassengerUsername,
			BookingID: out.BookingID,
			Additional: map[string]any{
				"driver": out.DriverUsername,
				"rating": req.Rating,
			},
		})
	default:
		return nil, err
	}

	r.log.Info(logger.Entry{
		Action:     "booking_rated",
		Message:    "passenger rated trip",
		Actor:      out.PassengerUsername,
		BookingID:  out.BookingID,
		Additional: map[string]any{"rating": req.Rating},
	})
	return &out, nil
}
