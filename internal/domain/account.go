package domain

import (
	"math"
	"strings"
)

// Role identifies which dashboard an account belongs to.
// The string value is the literal tag written to the account ledger.
type Role string

const (
	RoleOperator  Role = "Operator"
	RoleDriver    Role = "Driver"
	RolePassenger Role = "Passenger"
)

// ParseRole resolves a role tag case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "operator":
		return RoleOperator, true
	case "driver":
		return RoleDriver, true
	case "passenger":
		return RolePassenger, true
	default:
		return "", false
	}
}

// DriverStatus is the availability shown on the driver and operator dashboards.
// It is always derived from the booking set, never stored.
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "AVAILABLE"
	DriverStatusOnTrip    DriverStatus = "ON_TRIP"
)

// Account represents an operator, driver or passenger.
// Driver-only fields are zero for the other roles.
type Account struct {
	Role     Role
	Username string
	Password string // credential as stored in the ledger (bcrypt hash, or legacy plaintext)

	PlateNumber   string
	WalletBalance float64
	RatingSum     float64
	RatingCount   int
	IsOnline      bool
}

// Key returns the case-insensitive identity of the account.
func (a *Account) Key() string {
	return UsernameKey(a.Username)
}

// IsDriver reports whether the account carries the driver role.
func (a *Account) IsDriver() bool {
	return a.Role == RoleDriver
}

// AverageRating returns the mean rating rounded to one decimal place, or 0 with no ratings.
func (a *Account) AverageRating() float64 {
	if a.RatingCount == 0 {
		return 0
	}
	return math.Round(a.RatingSum/float64(a.RatingCount)*10) / 10
}

// Clone returns a copy safe to hand out of a locked store.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// UsernameKey normalises a username for lookups and identity comparison.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// SameUser compares two usernames case-insensitively.
func SameUser(a, b string) bool {
	return UsernameKey(a) == UsernameKey(b)
}
