package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"swift/internal/auth"
	"swift/internal/domain"
	"swift/internal/service"
)

// AuthHandler handles sign-up and login for all three dashboards.
type AuthHandler struct {
	accountService      *service.AccountService
	tokens              auth.TokenIssuer
	auditService        *service.AuditService
	allowOperatorSignup bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	accountService *service.AccountService,
	tokens auth.TokenIssuer,
	auditService *service.AuditService,
	allowOperatorSignup bool,
) *AuthHandler {
	return &AuthHandler{
		accountService:      accountService,
		tokens:              tokens,
		auditService:        auditService,
		allowOperatorSignup: allowOperatorSignup,
	}
}

// RegisterRequest is the HTTP request body for account registration.
type RegisterRequest struct {
	Role        string `json:"role"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	PlateNumber string `json:"plate_number"`
}

// LoginRequest is the HTTP request body for login. Role is optional.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResponse carries the bearer token for the dashboard.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   AccountResponse `json:"account"`
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		respondError(c, service.ErrInvalidRole)
		return
	}
	if role == domain.RoleOperator && !h.allowOperatorSignup {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "operator sign-up is disabled"})
		return
	}

	acct, err := h.accountService.Register(c.Request.Context(), service.RegisterRequest{
		Role:        role,
		Username:    req.Username,
		Password:    req.Password,
		PlateNumber: req.PlateNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(c.Request.Context(), acct.Username, "REGISTER", "New %s account", acct.Role)
	respondJSON(c, http.StatusCreated, toAccountResponse(acct))
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var role domain.Role
	if req.Role != "" {
		parsed, ok := domain.ParseRole(req.Role)
		if !ok {
			respondError(c, service.ErrInvalidRole)
			return
		}
		role = parsed
	}

	acct, err := h.accountService.Authenticate(c.Request.Context(), service.AuthenticateRequest{
		Username: req.Username,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(acct.Username, acct.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	h.auditService.Record(c.Request.Context(), acct.Username, "LOGIN", "%s logged in", acct.Role)
	respondJSON(c, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   toAccountResponse(acct),
	})
}
