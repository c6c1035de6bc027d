package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"swift/internal/domain"
	"swift/internal/repository"
	"swift/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrNoActiveBooking),
		errors.Is(err, service.ErrNoActiveTrip):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrUnknownDestination),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidSurge),
		errors.Is(err, service.ErrInvalidGranularity),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidPlate),
		errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrDuplicateBooking),
		errors.Is(err, service.ErrDriverBusy),
		errors.Is(err, service.ErrAlreadyAccepted),
		errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict

	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrNotADriver):
		return http.StatusForbidden

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// BookingResponse is the HTTP view of a trip booking.
type BookingResponse struct {
	BookingID   string    `json:"booking_id"`
	Passenger   string    `json:"passenger"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
	Driver      string    `json:"driver,omitempty"`
	FinalFare   float64   `json:"final_fare,omitempty"`
}

func toBookingResponse(b *domain.TripBooking) BookingResponse {
	return BookingResponse{
		BookingID:   b.BookingID,
		Passenger:   b.PassengerUsername,
		Destination: b.Destination,
		Status:      string(b.Status()),
		RequestedAt: b.RequestedAt,
		Driver:      b.DriverUsername,
		FinalFare:   b.FinalFare,
	}
}

// ReceiptResponse is the HTTP view of a receipt.
type ReceiptResponse struct {
	TransactionID  string    `json:"transaction_id"`
	Timestamp      time.Time `json:"timestamp"`
	Driver         string    `json:"driver"`
	PlateNumber    string    `json:"plate_number"`
	Passenger      string    `json:"passenger"`
	Destination    string    `json:"destination"`
	TotalFare      float64   `json:"total_fare"`
	Commission     float64   `json:"commission"`
	DriverEarnings float64   `json:"driver_earnings"`
}

func toReceiptResponse(r *domain.Receipt) ReceiptResponse {
	return ReceiptResponse{
		TransactionID:  r.TransactionID,
		Timestamp:      r.Timestamp,
		Driver:         r.DriverName,
		PlateNumber:    r.PlateNumber,
		Passenger:      r.PassengerName,
		Destination:    r.Destination,
		TotalFare:      r.TotalFare,
		Commission:     r.Commission,
		DriverEarnings: r.DriverEarnings,
	}
}

// AccountResponse is the HTTP view of an account. Credentials are never exposed.
type AccountResponse struct {
	Username      string  `json:"username"`
	Role          string  `json:"role"`
	PlateNumber   string  `json:"plate_number,omitempty"`
	WalletBalance float64 `json:"wallet_balance,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	RatingCount   int     `json:"rating_count,omitempty"`
	Status        string  `json:"status,omitempty"`
}

func toAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		Username:      a.Username,
		Role:          string(a.Role),
		PlateNumber:   a.PlateNumber,
		WalletBalance: a.WalletBalance,
		Rating:        a.AverageRating(),
		RatingCount:   a.RatingCount,
	}
}

// driverStatus derives availability from the registry.
func driverStatus(busy bool) domain.DriverStatus {
	if busy {
		return domain.DriverStatusOnTrip
	}
	return domain.DriverStatusAvailable
}
