package service

import (
	"context"
	"fmt"
	"time"

	"swift/internal/domain"
	"swift/internal/logger"
	"swift/internal/repository"
)

// DefaultAuditLimit is how many entries the operator trail shows.
const DefaultAuditLimit = 50

// AuditService records dashboard actions for the operator.
type AuditService struct {
	repo repository.AuditRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo repository.AuditRepository, log *logger.Logger) *AuditService {
	return &AuditService{repo: repo, log: log, now: time.Now}
}

// Record appends an entry. Write failures are logged and swallowed.
func (s *AuditService) Record(ctx context.Context, actor, action, format string, args ...any) {
	if s == nil {
		return
	}

	entry := domain.AuditEntry{
		Timestamp: s.now(),
		Actor:     actor,
		Action:    action,
		Details:   fmt.Sprintf(format, args...),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.log.Warn(logger.Entry{
			Action:  "audit_append",
			Message: "failed to write audit entry",
			Actor:   actor,
			Error:   logger.Err(err),
		})
	}
}

// Recent returns the newest entries. A non-positive limit uses DefaultAuditLimit.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	entries, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return entries, nil
}
