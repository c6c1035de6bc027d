package repository

import (
	"context"

	"swift/internal/domain"
)

// AuditRepository stores the append-only system trail.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error

	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
