package app_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"swift/internal/app"
	"swift/internal/auth"
	"swift/internal/domain"
	"swift/internal/handler"
	"swift/internal/tests"
)

func newTestRouter(t *testing.T, accounts ...*domain.Account) (*gin.Engine, *tests.Fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := tests.NewFixture(accounts...)
	tokens := auth.NewJWTService("test-secret", time.Hour)

	router := app.NewRouter(app.RouterDeps{
		AuthHandler:      handler.NewAuthHandler(f.AccountSvc, tokens, f.AuditSvc, false),
		FareHandler:      handler.NewFareHandler(f.Fares),
		PassengerHandler: handler.NewPassengerHandler(f.Registry, f.Fares, f.Revenue, f.AuditSvc),
		DriverHandler:    handler.NewDriverHandler(f.Registry, f.AccountSvc, f.ReceiptSvc, f.Revenue, f.AuditSvc),
		OperatorHandler:  handler.NewOperatorHandler(f.AccountSvc, f.Registry, f.Fares, f.Revenue, f.AuditSvc),
		Tokens:           tokens,
		Accounts:         f.AccountSvc,
	})
	return router, f
}

func do(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/v1/auth/login", "", handler.LoginRequest{Username: username, Password: "pw"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	var resp handler.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRouter_FullTripFlow(t *testing.T) {
	r, f := newTestRouter(t, tests.Passenger("Maria"), tests.Driver("Juan", "GAB-1234"), tests.Operator("admin"))

	maria := login(t, r, "Maria")
	juan := login(t, r, "Juan")
	admin := login(t, r, "admin")

	// Passenger books.
	w := do(r, http.MethodPost, "/v1/passenger/bookings", maria, handler.BookTripRequest{Destination: "IT Park"})
	if w.Code != http.StatusCreated {
		t.Fatalf("book: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	booked := decode[handler.BookTripResponse](t, w)
	if booked.QuotedFare != 95 || booked.Booking.Status != "REQUESTED" {
		t.Errorf("unexpected booking %+v", booked)
	}

	// Driver sees the job.
	w = do(r, http.MethodGet, "/v1/driver/jobs", juan, nil)
	jobs := decode[[]handler.JobResponse](t, w)
	if len(jobs) != 1 || jobs[0].Fare != 95 || jobs[0].DriverEarnings != 76 {
		t.Fatalf("unexpected jobs %+v", jobs)
	}

	// Driver accepts.
	w = do(r, http.MethodPost, "/v1/driver/jobs/accept", juan, handler.AcceptJobRequest{
		Passenger: "Maria",
		BookingID: booked.Booking.BookingID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	accepted := decode[handler.AcceptJobResponse](t, w)
	if accepted.WalletBalance != 76 || accepted.Receipt.Commission != 19 {
		t.Errorf("unexpected accept response %+v", accepted)
	}
	if !strings.Contains(accepted.ReceiptText, "CIT -> IT Park") {
		t.Errorf("receipt text missing route: %s", accepted.ReceiptText)
	}

	// Accepted bookings cannot be cancelled.
	if w = do(r, http.MethodPost, "/v1/passenger/bookings/current/cancel", maria, nil); w.Code != http.StatusConflict {
		t.Errorf("cancel: expected 409, got %d", w.Code)
	}

	// Driver is on trip.
	w = do(r, http.MethodGet, "/v1/driver/status", juan, nil)
	status := decode[handler.DriverStatusResponse](t, w)
	if status.Account.Status != "ON_TRIP" || status.ActiveTrip == nil {
		t.Errorf("unexpected status %+v", status)
	}

	// Complete and rate.
	if w = do(r, http.MethodPost, "/v1/driver/trips/current/complete", juan, nil); w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", w.Code)
	}
	w = do(r, http.MethodPost, "/v1/passenger/bookings/current/rating", maria, handler.RateTripRequest{Rating: 5})
	rated := decode[handler.RateTripResponse](t, w)
	if !rated.Rated {
		t.Errorf("expected rating recorded, got %s", w.Body.String())
	}

	// Operator sees revenue and the audit trail.
	w = do(r, http.MethodGet, "/v1/operator/reports?granularity=daily", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report: expected 200, got %d", w.Code)
	}
	report := decode[struct {
		Total struct {
			Rides      int     `json:"rides"`
			TotalFare  float64 `json:"total_fare"`
			Commission float64 `json:"commission"`
		} `json:"total"`
	}](t, w)
	if report.Total.Rides != 1 || report.Total.TotalFare != 95 || report.Total.Commission != 19 {
		t.Errorf("unexpected report total %+v", report.Total)
	}

	w = do(r, http.MethodGet, "/v1/operator/audit", admin, nil)
	trail := decode[[]handler.AuditEntryResponse](t, w)
	actions := make(map[string]bool)
	for _, e := range trail {
		actions[e.Action] = true
	}
	for _, want := range []string{"LOGIN", "BOOK", "ACCEPT", "COMPLETE", "RATE"} {
		if !actions[want] {
			t.Errorf("audit trail missing %s: %+v", want, trail)
		}
	}

	// Passenger history.
	w = do(r, http.MethodGet, "/v1/passenger/receipts", maria, nil)
	receipts := decode[[]handler.ReceiptResponse](t, w)
	if len(receipts) != 1 || receipts[0].Driver != "Juan" {
		t.Errorf("unexpected receipts %+v", receipts)
	}

	if juanAcct := f.Accounts.Stored("Juan"); juanAcct.RatingCount != 1 || juanAcct.WalletBalance != 76 {
		t.Errorf("unexpected persisted driver %+v", juanAcct)
	}
}

func TestRouter_RoleGate(t *testing.T) {
	r, _ := newTestRouter(t, tests.Passenger("Maria"))
	maria := login(t, r, "Maria")

	if w := do(r, http.MethodGet, "/v1/operator/drivers", maria, nil); w.Code != http.StatusForbidden {
		t.Errorf("passenger on operator dashboard: expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/v1/driver/jobs", maria, nil); w.Code != http.StatusForbidden {
		t.Errorf("passenger on driver dashboard: expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/v1/passenger/receipts", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}
}

func TestRouter_Register(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodPost, "/v1/auth/register", "", handler.RegisterRequest{Role: "passenger", Username: "Maria", Password: "pw"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "hashed:") {
		t.Error("credential leaked in response")
	}

	if w := do(r, http.MethodPost, "/v1/auth/register", "", handler.RegisterRequest{Role: "Passenger", Username: "maria", Password: "pw"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/auth/register", "", handler.RegisterRequest{Role: "Operator", Username: "boss", Password: "pw"}); w.Code != http.StatusForbidden {
		t.Errorf("operator sign-up: expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/auth/register", "", handler.RegisterRequest{Role: "Driver", Username: "juan", Password: "pw"}); w.Code != http.StatusBadRequest {
		t.Errorf("driver without plate: expected 400, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/v1/auth/login", "", handler.LoginRequest{Username: "Maria", Password: "nope"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad login: expected 401, got %d", w.Code)
	}
}

func TestRouter_SurgeControl(t *testing.T) {
	r, _ := newTestRouter(t, tests.Operator("admin"))
	admin := login(t, r, "admin")

	if w := do(r, http.MethodPut, "/v1/operator/surge", admin, handler.SurgeRequest{Multiplier: 6}); w.Code != http.StatusBadRequest {
		t.Errorf("out of range: expected 400, got %d", w.Code)
	}

	w := do(r, http.MethodPut, "/v1/operator/surge", admin, handler.SurgeRequest{Multiplier: 1.5})
	surge := decode[handler.SurgeResponse](t, w)
	if surge.Multiplier != 1.5 || !surge.Active {
		t.Errorf("unexpected surge %+v", surge)
	}

	w = do(r, http.MethodGet, "/v1/fares?destination=lahug", "", nil)
	quote := decode[struct {
		Fare        float64 `json:"fare"`
		SurgeActive bool    `json:"surge_active"`
	}](t, w)
	if quote.Fare != 150 || !quote.SurgeActive {
		t.Errorf("unexpected quote %+v", quote)
	}

	if w := do(r, http.MethodGet, "/v1/fares?destination=Atlantis", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown destination: expected 400, got %d", w.Code)
	}
}

func TestRouter_OperatorManagesDrivers(t *testing.T) {
	r, _ := newTestRouter(t, tests.Operator("admin"), tests.Passenger("Maria"))
	admin := login(t, r, "admin")
	maria := login(t, r, "Maria")

	w := do(r, http.MethodPost, "/v1/operator/drivers", admin, handler.CreateDriverRequest{Username: "Juan", Password: "pw", PlateNumber: "GAB-1234"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create driver: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	juan := login(t, r, "Juan")
	do(r, http.MethodPost, "/v1/passenger/bookings", maria, handler.BookTripRequest{Destination: "Lahug"})
	do(r, http.MethodPost, "/v1/driver/jobs/accept", juan, handler.AcceptJobRequest{Passenger: "Maria"})

	w = do(r, http.MethodGet, "/v1/operator/drivers", admin, nil)
	drivers := decode[[]handler.AccountResponse](t, w)
	if len(drivers) != 1 || drivers[0].Status != "ON_TRIP" || drivers[0].WalletBalance != 80 {
		t.Errorf("unexpected drivers %+v", drivers)
	}

	if w := do(r, http.MethodDelete, "/v1/operator/drivers/Juan", admin, nil); w.Code != http.StatusConflict {
		t.Errorf("delete busy driver: expected 409, got %d", w.Code)
	}

	do(r, http.MethodPost, "/v1/driver/trips/current/complete", juan, nil)
	if w := do(r, http.MethodDelete, "/v1/operator/drivers/Juan", admin, nil); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/v1/operator/drivers/Juan", admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete again: expected 404, got %d", w.Code)
	}
}

func TestRouter_ForgedOperatorTokenRejected(t *testing.T) {
	r, f := newTestRouter(t, tests.Operator("admin"))
	forged, _, err := auth.NewJWTService("test-secret", time.Hour).Issue("mallory", domain.RoleOperator)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := do(r, http.MethodPut, "/v1/operator/surge", forged, handler.SurgeRequest{Multiplier: 5})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	if got := f.Fares.Surge(); got != 1.0 {
		t.Errorf("surge changed by forged token: %v", got)
	}
}

func TestRouter_DeletedDriverTokenRejected(t *testing.T) {
	r, _ := newTestRouter(t, tests.Operator("admin"), tests.Driver("Juan", "GAB-1234"))
	admin := login(t, r, "admin")
	juan := login(t, r, "Juan")

	if w := do(r, http.MethodGet, "/v1/driver/status", juan, nil); w.Code != http.StatusOK {
		t.Fatalf("status before delete: expected 200, got %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/v1/operator/drivers/Juan", admin, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/v1/driver/status", juan, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("stale token: expected 401, got %d", w.Code)
	}
}
