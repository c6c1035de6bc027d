package flatfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"swift/internal/domain"
	"swift/internal/repository"
)

const auditTimeLayout = "2006-01-02 15:04:05"

// AuditLog keeps the system trail as "timestamp | [actor] action: details" lines.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog creates an audit log stored at path.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

var _ repository.AuditRepository = (*AuditLog)(nil)

func (a *AuditLog) Append(ctx context.Context, e domain.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(encodeAudit(e) + "\n"); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (a *AuditLog) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var entries []domain.AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, decodeAudit(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	// newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func encodeAudit(e domain.AuditEntry) string {
	return fmt.Sprintf("%s | [%s] %s: %s",
		e.Timestamp.In(time.Local).Format(auditTimeLayout),
		sanitize(e.Actor),
		sanitize(e.Action),
		sanitize(e.Details),
	)
}

// decodeAudit never fails; lines it cannot split are returned whole as details.
func decodeAudit(line string) domain.AuditEntry {
	head, rest, ok := strings.Cut(line, " | ")
	if !ok {
		return domain.AuditEntry{Details: line}
	}
	ts, err := time.ParseInLocation(auditTimeLayout, strings.TrimSpace(head), time.Local)
	if err != nil {
		return domain.AuditEntry{Details: line}
	}

	e := domain.AuditEntry{Timestamp: ts, Details: rest}
	if !strings.HasPrefix(rest, "[") {
		return e
	}
	actor, body, ok := strings.Cut(rest[1:], "] ")
	if !ok {
		return e
	}
	action, details, _ := strings.Cut(body, ": ")
	e.Actor = actor
	e.Action = action
	e.Details = details
	return e
}
