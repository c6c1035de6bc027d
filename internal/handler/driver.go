package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"swift/internal/middleware"
	"swift/internal/service"
)

// DriverHandler serves the driver dashboard.
type DriverHandler struct {
	registry       *service.TripRegistry
	accountService *service.AccountService
	receiptService *service.ReceiptService
	revenueService *service.RevenueService
	auditService   *service.AuditService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(
	registry *service.TripRegistry,
	accountService *service.AccountService,
	receiptService *service.ReceiptService,
	revenueService *service.RevenueService,
	auditService *service.AuditService,
) *DriverHandler {
	return &DriverHandler{
		registry:       registry,
		accountService: accountService,
		receiptService: receiptService,
		revenueService: revenueService,
		auditService:   auditService,
	}
}

// DriverStatusResponse is the driver dashboard header.
type DriverStatusResponse struct {
	Account    AccountResponse  `json:"account"`
	ActiveTrip *BookingResponse `json:"active_trip,omitempty"`
}

// JobResponse is an open booking offered to a driver.
type JobResponse struct {
	Booking        BookingResponse `json:"booking"`
	Fare           float64         `json:"fare"`
	DriverEarnings float64         `json:"driver_earnings"`
}

// AcceptJobRequest is the HTTP request body for accepting a job.
type AcceptJobRequest struct {
	Passenger string `json:"passenger"`
	BookingID string `json:"booking_id"`
}

// AcceptJobResponse is the HTTP response for an accepted job.
type AcceptJobResponse struct {
	Booking       BookingResponse `json:"booking"`
	Receipt       ReceiptResponse `json:"receipt"`
	ReceiptText   string          `json:"receipt_text"`
	WalletBalance float64         `json:"wallet_balance"`
}

// Status handles GET /v1/driver/status
func (h *DriverHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	username := middleware.CallerUsername(c)

	acct, err := h.accountService.GetDriver(ctx, username)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := DriverStatusResponse{Account: toAccountResponse(acct)}
	trip, err := h.registry.ActiveTripFor(ctx, username)
	switch {
	case err == nil:
		b := toBookingResponse(trip)
		resp.ActiveTrip = &b
	case !errors.Is(err, service.ErrNoActiveTrip):
		respondError(c, err)
		return
	}
	resp.Account.Status = string(driverStatus(resp.ActiveTrip != nil))

	respondJSON(c, http.StatusOK, resp)
}

// Jobs handles GET /v1/driver/jobs
func (h *DriverHandler) Jobs(c *gin.Context) {
	offers, err := h.registry.OpenJobsFor(c.Request.Context(), middleware.CallerUsername(c))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]JobResponse, 0, len(offers))
	for i := range offers {
		out = append(out, JobResponse{
			Booking:        toBookingResponse(&offers[i].Booking),
			Fare:           offers[i].Fare,
			DriverEarnings: offers[i].DriverEarnings,
		})
	}
	respondJSON(c, http.StatusOK, out)
}

// AcceptJob handles POST /v1/driver/jobs/accept
func (h *DriverHandler) AcceptJob(c *gin.Context) {
	var req AcceptJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Passenger == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "passenger is required"})
		return
	}

	ctx := c.Request.Context()
	driver := middleware.CallerUsername(c)

	result, err := h.registry.Accept(ctx, service.AcceptRequest{
		Driver:    driver,
		Passenger: req.Passenger,
		BookingID: req.BookingID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(ctx, driver, "ACCEPT", "Accepted %s for %s (P%.2f)",
		result.Booking.BookingID, result.Booking.PassengerUsername, result.Booking.FinalFare)

	respondJSON(c, http.StatusOK, AcceptJobResponse{
		Booking:       toBookingResponse(result.Booking),
		Receipt:       toReceiptResponse(result.Receipt),
		ReceiptText:   h.receiptService.FormatReceipt(result.Receipt),
		WalletBalance: result.Driver.WalletBalance,
	})
}

// CompleteTrip handles POST /v1/driver/trips/current/complete
func (h *DriverHandler) CompleteTrip(c *gin.Context) {
	ctx := c.Request.Context()
	driver := middleware.CallerUsername(c)

	booking, err := h.registry.Complete(ctx, driver)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(ctx, driver, "COMPLETE", "Completed %s", booking.BookingID)
	respondJSON(c, http.StatusOK, toBookingResponse(booking))
}

// Earnings handles GET /v1/driver/earnings?granularity=
func (h *DriverHandler) Earnings(c *gin.Context) {
	granularity := c.DefaultQuery("granularity", string(service.GranularityDaily))

	report, err := h.revenueService.Report(c.Request.Context(), service.ReportQuery{
		Granularity: service.Granularity(granularity),
		Driver:      middleware.CallerUsername(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, report)
}
