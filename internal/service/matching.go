package service

import (
	"context"
	"errors"
	"iter"

	"swift/internal/domain"
	"swift/internal/logger"
)

// ListOpenJobs yields unaccepted bookings in request order. The sequence
// iterates a snapshot taken on the call; listing reserves nothing.
func (r *TripRegistry) ListOpenJobs(ctx context.Context) iter.Seq[domain.TripBooking] {
	r.mu.Lock()
	snapshot := make([]domain.TripBooking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if !b.IsAccepted {
			snapshot = append(snapshot, *b)
		}
	}
	r.mu.Unlock()

	return func(yield func(domain.TripBooking) bool) {
		for _, b := range snapshot {
			if ctx.Err() != nil {
				return
			}
			if !yield(b) {
				return
			}
		}
	}
}

// JobOffer is an open booking priced for the driver dashboard.
type JobOffer struct {
	Booking        domain.TripBooking
	Fare           float64
	DriverEarnings float64
}

// OpenJobsFor lists open bookings with the current fare and the driver's cut.
// Busy drivers get ErrDriverBusy instead of a list.
func (r *TripRegistry) OpenJobsFor(ctx context.Context, driver string) ([]JobOffer, error) {
	if _, err := r.accountService.GetDriver(ctx, driver); err != nil {
		return nil, err
	}
	if r.IsBusy(ctx, driver) {
		return nil, ErrDriverBusy
	}

	offers := make([]JobOffer, 0)
	for b := range r.ListOpenJobs(ctx) {
		fare := r.fareService.CalculateFare(b.Destination)
		_, earnings := domain.SplitFare(fare)
		offers = append(offers, JobOffer{Booking: b, Fare: fare, DriverEarnings: earnings})
	}
	return offers, nil
}

// AcceptRequest identifies the booking a driver picked. BookingID is optional;
// when set it must match the passenger's current booking.
type AcceptRequest struct {
	Driver    string
	Passenger string
	BookingID string
}

// AcceptResult contains the outcome of a successful acceptance.
type AcceptResult struct {
	Booking *domain.TripBooking
	Receipt *domain.Receipt
	Driver  *domain.Account
}

// Accept assigns the passenger's booking to the driver, freezes the fare at the
// current surge, credits the driver's 80% share and issues the receipt.
// Of two drivers racing for one booking exactly one succeeds.
func (r *TripRegistry) Accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error) {
	// The driver lookup runs under r.mu so RemoveDriver cannot interleave.
	r.mu.Lock()
	driver, err := r.accountService.GetDriver(ctx, req.Driver)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if r.activeTripLocked(driver.Username) != nil {
		r.mu.Unlock()
		return nil, ErrDriverBusy
	}

	booking := r.findByPassengerLocked(req.Passenger)
	if booking == nil || (req.BookingID != "" && booking.BookingID != req.BookingID) {
		r.mu.Unlock()
		return nil, ErrBookingNotFound
	}
	if booking.IsAccepted {
		r.mu.Unlock()
		return nil, ErrAlreadyAccepted
	}

	fare := r.fareService.CalculateFare(booking.Destination)
	if fare <= 0 {
		r.mu.Unlock()
		r.log.Warn(logger.Entry{
			Action:    "accept_zero_fare",
			Message:   "refusing to accept booking priced at zero",
			Actor:     driver.Username,
			BookingID: booking.BookingID,
		})
		return nil, ErrUnknownDestination
	}

	booking.IsAccepted = true
	booking.DriverUsername = driver.Username
	booking.FinalFare = fare
	accepted := *booking
	r.mu.Unlock()

	r.log.Info(logger.Entry{
		Action:     "booking_accepted",
		Message:    "driver accepted booking",
		Actor:      driver.Username,
		BookingID:  accepted.BookingID,
		Additional: map[string]any{"passenger": accepted.PassengerUsername, "fare": fare},
	})

	_, earnings := domain.SplitFare(fare)
	credited, err := r.accountService.CreditWallet(ctx, driver.Username, earnings)
	switch {
	case err == nil, errors.Is(err, ErrPersistence):
		driver = credited
	default:
		// The trip stands without the credit.
		r.log.Warn(logger.Entry{
			Action:    "wallet_credit_skipped",
			Message:   "driver account unavailable for credit",
			Actor:     driver.Username,
			BookingID: accepted.BookingID,
			Error:     logger.Err(err),
		})
	}

	receipt, err := r.receiptService.Issue(ctx, IssueReceiptRequest{Booking: &accepted, Driver: driver})
	if err != nil && !errors.Is(err, ErrPersistence) {
		return nil, err
	}

	r.notificationService.NotifyDriverAssigned(ctx, &accepted, driver)

	return &AcceptResult{
		Booking: &accepted,
		Receipt: receipt,
		Driver:  driver,
	}, nil
}
