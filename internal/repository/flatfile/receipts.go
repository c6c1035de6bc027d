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

	"swift/internal/domain"
	"swift/internal/logger"
	"swift/internal/repository"
)

// ReceiptLog is the append-only receipt file.
type ReceiptLog struct {
	path string
	log  *logger.Logger
	mu   sync.Mutex
}

// NewReceiptLog creates a receipt log stored at path.
func NewReceiptLog(path string, log *logger.Logger) *ReceiptLog {
	return &ReceiptLog{path: path, log: log}
}

var _ repository.ReceiptRepository = (*ReceiptLog)(nil)

// Append writes one receipt line.
func (r *ReceiptLog) Append(ctx context.Context, receipt *domain.Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create receipt dir: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open receipt log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(encodeReceipt(receipt) + "\n"); err != nil {
		return fmt.Errorf("append receipt: %w", err)
	}
	return nil
}

// All scans the log, skipping malformed lines.
func (r *ReceiptLog) All(ctx context.Context) ([]domain.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open receipt log: %w", err)
	}
	defer f.Close()

	var (
		receipts []domain.Receipt
		skipped  int
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := decodeReceipt(line)
		if err != nil {
			skipped++
			r.log.Debug(logger.Entry{
				Action:  "receipt_malformed_line",
				Message: "skipping unreadable receipt line",
				Error:   logger.Err(err),
			})
			continue
		}
		receipts = append(receipts, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read receipt log: %w", err)
	}

	if skipped > 0 {
		r.log.Warn(logger.Entry{
			Action:     "receipt_malformed_record",
			Message:    "skipped unreadable receipt lines",
			Additional: map[string]any{"skipped": skipped, "path": r.path},
		})
	}

	return receipts, nil
}
