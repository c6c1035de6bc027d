package redis

import (
	"context"

	"swift/internal/service"
)

// LedgerLocker guards the flat-file ledger against concurrent server instances.
type LedgerLocker interface {
	Acquire(ctx context.Context) (bool, error)
	Refresh(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	KeepAlive(ctx context.Context, onLost func(error))
}

// Ensure concrete types implement interfaces.
var (
	_ service.ReportCache = (*ReportCache)(nil)
	_ LedgerLocker        = (*LedgerLock)(nil)
)
