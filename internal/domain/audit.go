package domain

import "time"

// AuditEntry is one line of the operator-visible system trail.
type AuditEntry struct {
	Timestamp time.Time
	Actor     string
	Action    string
	Details   string
}
