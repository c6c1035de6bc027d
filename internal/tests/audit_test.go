package tests

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"swift/internal/service"
)

// ──────────────────────────────────────────────
// 9. AUDIT TRAIL
// ──────────────────────────────────────────────

func TestAudit_RecordAndRecent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture()

	f.AuditSvc.Record(ctx, "admin", "SURGE", "surge set to %.2f", 1.5)
	f.AuditSvc.Record(ctx, "juan", "LOGIN", "Driver logged in")

	entries, err := f.AuditSvc.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Actor != "juan" || entries[1].Details != "surge set to 1.50" {
		t.Errorf("unexpected entries %+v", entries)
	}
	if entries[1].Timestamp.IsZero() {
		t.Error("expected timestamp on recorded entry")
	}
}

func TestAudit_DefaultLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := NewFixture()

	for i := 0; i < service.DefaultAuditLimit+10; i++ {
		f.AuditSvc.Record(ctx, "admin", "TICK", "%d", i)
	}

	entries, err := f.AuditSvc.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != service.DefaultAuditLimit {
		t.Errorf("expected %d entries, got %d", service.DefaultAuditLimit, len(entries))
	}
	if entries[0].Details != fmt.Sprint(service.DefaultAuditLimit+9) {
		t.Errorf("expected newest first, got %q", entries[0].Details)
	}
}

func TestAudit_WriteFailureSwallowed(t *testing.T) {
	t.Parallel()
	f := NewFixture()
	f.Audit.AppendError = errors.New("disk full")

	f.AuditSvc.Record(context.Background(), "admin", "SURGE", "ignored")

	var nilSvc *service.AuditService
	nilSvc.Record(context.Background(), "admin", "SURGE", "ignored")
}
