package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"swift/internal/domain"
	"swift/internal/middleware"
	"swift/internal/service"
)

// OperatorHandler serves the operator dashboard.
type OperatorHandler struct {
	accountService *service.AccountService
	registry       *service.TripRegistry
	fareService    *service.FareService
	revenueService *service.RevenueService
	auditService   *service.AuditService
}

// NewOperatorHandler creates a new OperatorHandler.
func NewOperatorHandler(
	accountService *service.AccountService,
	registry *service.TripRegistry,
	fareService *service.FareService,
	revenueService *service.RevenueService,
	auditService *service.AuditService,
) *OperatorHandler {
	return &OperatorHandler{
		accountService: accountService,
		registry:       registry,
		fareService:    fareService,
		revenueService: revenueService,
		auditService:   auditService,
	}
}

// CreateDriverRequest is the HTTP request body for adding a driver.
type CreateDriverRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	PlateNumber string `json:"plate_number"`
}

// SurgeRequest is the HTTP request body for setting the surge multiplier.
type SurgeRequest struct {
	Multiplier float64 `json:"multiplier"`
}

// SurgeResponse reports the current surge multiplier.
type SurgeResponse struct {
	Multiplier float64 `json:"multiplier"`
	Active     bool    `json:"active"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
}

// AuditEntryResponse is one line of the system trail.
type AuditEntryResponse struct {
	Timestamp string `json:"timestamp,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Action    string `json:"action,omitempty"`
	Details   string `json:"details"`
}

// ListDrivers handles GET /v1/operator/drivers
func (h *OperatorHandler) ListDrivers(c *gin.Context) {
	ctx := c.Request.Context()

	drivers := h.accountService.ListDrivers(ctx)
	out := make([]AccountResponse, 0, len(drivers))
	for _, d := range drivers {
		resp := toAccountResponse(d)
		resp.Status = string(driverStatus(h.registry.IsBusy(ctx, d.Username)))
		out = append(out, resp)
	}
	respondJSON(c, http.StatusOK, out)
}

// CreateDriver handles POST /v1/operator/drivers
func (h *OperatorHandler) CreateDriver(c *gin.Context) {
	var req CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	acct, err := h.accountService.Register(ctx, service.RegisterRequest{
		Role:        domain.RoleDriver,
		Username:    req.Username,
		Password:    req.Password,
		PlateNumber: req.PlateNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(ctx, middleware.CallerUsername(c), "ADD_DRIVER", "Added driver %s (%s)", acct.Username, acct.PlateNumber)
	resp := toAccountResponse(acct)
	resp.Status = string(domain.DriverStatusAvailable)
	respondJSON(c, http.StatusCreated, resp)
}

// DeleteDriver handles DELETE /v1/operator/drivers/:username
func (h *OperatorHandler) DeleteDriver(c *gin.Context) {
	ctx := c.Request.Context()
	username := c.Param("username")

	if err := h.registry.RemoveDriver(ctx, username); err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(ctx, middleware.CallerUsername(c), "DELETE_DRIVER", "Removed driver %s", username)
	c.Status(http.StatusNoContent)
}

// GetSurge handles GET /v1/operator/surge
func (h *OperatorHandler) GetSurge(c *gin.Context) {
	respondJSON(c, http.StatusOK, h.surgeResponse())
}

// SetSurge handles PUT /v1/operator/surge
func (h *OperatorHandler) SetSurge(c *gin.Context) {
	var req SurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.fareService.SetSurge(req.Multiplier); err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(c.Request.Context(), middleware.CallerUsername(c), "SURGE", "Surge set to %.2fx", req.Multiplier)
	respondJSON(c, http.StatusOK, h.surgeResponse())
}

func (h *OperatorHandler) surgeResponse() SurgeResponse {
	m := h.fareService.Surge()
	return SurgeResponse{
		Multiplier: m,
		Active:     m > 1.0,
		Min:        service.MinSurge,
		Max:        service.MaxSurge,
	}
}

// Report handles GET /v1/operator/reports?granularity=&driver=&passenger=
func (h *OperatorHandler) Report(c *gin.Context) {
	report, err := h.revenueService.Report(c.Request.Context(), service.ReportQuery{
		Granularity: service.Granularity(c.DefaultQuery("granularity", string(service.GranularityDaily))),
		Driver:      c.Query("driver"),
		Passenger:   c.Query("passenger"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, report)
}

// Audit handles GET /v1/operator/audit?limit=
func (h *OperatorHandler) Audit(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := h.auditService.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp := AuditEntryResponse{Actor: e.Actor, Action: e.Action, Details: e.Details}
		if !e.Timestamp.IsZero() {
			resp.Timestamp = e.Timestamp.Format("2006-01-02 15:04:05")
		}
		out = append(out, resp)
	}
	respondJSON(c, http.StatusOK, out)
}
