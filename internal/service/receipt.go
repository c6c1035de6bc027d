package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"swift/internal/domain"
	"swift/internal/logger"
	"swift/internal/repository"
)

// ReceiptService records the fare split of every accepted trip.
type ReceiptService struct {
	repo                repository.ReceiptRepository
	cache               ReportCache
	notificationService *NotificationService
	log                 *logger.Logger
	now                 func() time.Time
}

// NewReceiptService creates a new ReceiptService. cache may be nil.
func NewReceiptService(
	repo repository.ReceiptRepository,
	cache ReportCache,
	notificationService *NotificationService,
	log *logger.Logger,
) *ReceiptService {
	return &ReceiptService{
		repo:                repo,
		cache:               cache,
		notificationService: notificationService,
		log:                 log,
		now:                 time.Now,
	}
}

// IssueReceiptRequest contains the parameters for issuing a receipt.
type IssueReceiptRequest struct {
	Booking *domain.TripBooking
	Driver  *domain.Account
}

// Issue builds the 80/20 receipt for an accepted booking and appends it to the log.
// The returned receipt is valid even when the append fails; the error then wraps ErrPersistence.
func (s *ReceiptService) Issue(ctx context.Context, req IssueReceiptRequest) (*domain.Receipt, error) {
	if req.Booking == nil || req.Driver == nil {
		return nil, ErrBookingNotFound
	}

	commission, earnings := domain.SplitFare(req.Booking.FinalFare)
	receipt := &domain.Receipt{
		Timestamp:      s.now(),
		DriverName:     req.Driver.Username,
		PlateNumber:    req.Driver.PlateNumber,
		PassengerName:  req.Booking.PassengerUsername,
		Destination:    req.Booking.Destination,
		TotalFare:      req.Booking.FinalFare,
		Commission:     commission,
		DriverEarnings: earnings,
		TransactionID:  uuid.New().String(),
	}

	if err := s.repo.Append(ctx, receipt); err != nil {
		s.log.Error(logger.Entry{
			Action:     "receipt_append",
			Message:    "failed to append receipt",
			Actor:      receipt.DriverName,
			BookingID:  req.Booking.BookingID,
			Error:      logger.Err(err),
			Additional: map[string]any{"transaction_id": receipt.TransactionID},
		})
		return receipt, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn(logger.Entry{
				Action:  "report_cache_invalidate",
				Message: "failed to invalidate report cache",
				Error:   logger.Err(err),
			})
		}
	}

	s.notificationService.NotifyReceiptReady(ctx, receipt)
	return receipt, nil
}

// FormatReceipt renders a receipt for printing.
func (s *ReceiptService) FormatReceipt(receipt *domain.Receipt) string {
	return `
=====================================
        SWIFT TRIP RECEIPT
=====================================
Transaction: ` + receipt.TransactionID + `
Date:        ` + receipt.Timestamp.Format("Jan 02, 2006 3:04 PM") + `

TRIP DETAILS
-------------------------------------
Passenger:   ` + receipt.PassengerName + `
Driver:      ` + receipt.DriverName + ` (` + receipt.PlateNumber + `)
Route:       CIT -> ` + receipt.Destination + `

FARE BREAKDOWN
-------------------------------------
Total Fare:       P` + formatFloat(receipt.TotalFare) + `
Commission (20%): P` + formatFloat(receipt.Commission) + `
Driver (80%):     P` + formatFloat(receipt.DriverEarnings) + `

=====================================
     Thank you for riding with us!
=====================================
`
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
