package repository

import (
	"context"

	"swift/internal/domain"
)

// ReceiptRepository defines the operations on the append-only receipt log.
type ReceiptRepository interface {
	// Append writes one receipt. Receipts are never rewritten.
	Append(ctx context.Context, receipt *domain.Receipt) error

	// All returns every well-formed receipt in log order.
	All(ctx context.Context) ([]domain.Receipt, error)
}
