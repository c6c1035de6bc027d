package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"swift/internal/middleware"
	"swift/internal/service"
)

// PassengerHandler serves the passenger dashboard.
type PassengerHandler struct {
	registry       *service.TripRegistry
	fareService    *service.FareService
	revenueService *service.RevenueService
	auditService   *service.AuditService
}

// NewPassengerHandler creates a new PassengerHandler.
func NewPassengerHandler(
	registry *service.TripRegistry,
	fareService *service.FareService,
	revenueService *service.RevenueService,
	auditService *service.AuditService,
) *PassengerHandler {
	return &PassengerHandler{
		registry:       registry,
		fareService:    fareService,
		revenueService: revenueService,
		auditService:   auditService,
	}
}

// BookTripRequest is the HTTP request body for booking a trip.
type BookTripRequest struct {
	Destination string `json:"destination"`
}

// BookTripResponse returns the new booking with its fare at the current surge.
type BookTripResponse struct {
	Booking     BookingResponse `json:"booking"`
	QuotedFare  float64         `json:"quoted_fare"`
	SurgeActive bool            `json:"surge_active"`
}

// RateTripRequest is the HTTP request body for rating a completed trip.
type RateTripRequest struct {
	Rating int `json:"rating"`
}

// RateTripResponse reports whether a completed trip was rated.
type RateTripResponse struct {
	Rated   bool             `json:"rated"`
	Booking *BookingResponse `json:"booking,omitempty"`
}

// BookTrip handles POST /v1/passenger/bookings
func (h *PassengerHandler) BookTrip(c *gin.Context) {
	var req BookTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	passenger := middleware.CallerUsername(c)

	booking, err := h.registry.Request(ctx, service.RequestTripRequest{
		Passenger:   passenger,
		Destination: req.Destination,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(ctx, passenger, "BOOK", "Booking %s to %s", booking.BookingID, booking.Destination)
	respondJSON(c, http.StatusCreated, BookTripResponse{
		Booking:     toBookingResponse(booking),
		QuotedFare:  h.fareService.CalculateFare(booking.Destination),
		SurgeActive: h.fareService.Surge() > 1.0,
	})
}

// CurrentBooking handles GET /v1/passenger/bookings/current
func (h *PassengerHandler) CurrentBooking(c *gin.Context) {
	booking, err := h.registry.Current(c.Request.Context(), middleware.CallerUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// CancelBooking handles POST /v1/passenger/bookings/current/cancel
func (h *PassengerHandler) CancelBooking(c *gin.Context) {
	ctx := c.Request.Context()
	passenger := middleware.CallerUsername(c)

	booking, err := h.registry.Cancel(ctx, passenger)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(ctx, passenger, "CANCEL", "Booking %s cancelled", booking.BookingID)
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// RateTrip handles POST /v1/passenger/bookings/current/rating
// Rating without a completed trip is a no-op and reports rated=false.
func (h *PassengerHandler) RateTrip(c *gin.Context) {
	var req RateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	passenger := middleware.CallerUsername(c)

	booking, err := h.registry.Rate(ctx, service.RateRequest{Passenger: passenger, Rating: req.Rating})
	if err != nil {
		respondError(c, err)
		return
	}
	if booking == nil {
		respondJSON(c, http.StatusOK, RateTripResponse{Rated: false})
		return
	}

	h.auditService.Record(ctx, passenger, "RATE", "Rated %s %d stars", booking.DriverUsername, req.Rating)
	resp := toBookingResponse(booking)
	respondJSON(c, http.StatusOK, RateTripResponse{Rated: true, Booking: &resp})
}

// Receipts handles GET /v1/passenger/receipts
func (h *PassengerHandler) Receipts(c *gin.Context) {
	receipts, err := h.revenueService.PassengerHistory(c.Request.Context(), middleware.CallerUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ReceiptResponse, 0, len(receipts))
	for i := range receipts {
		out = append(out, toReceiptResponse(&receipts[i]))
	}
	respondJSON(c, http.StatusOK, out)
}
