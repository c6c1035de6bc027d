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

// AccountLedger is a pipe-delimited text implementation of repository.AccountRepository.
type AccountLedger struct {
	path string
	log  *logger.Logger
	mu   sync.Mutex
}

// NewAccountLedger creates a ledger stored at path.
func NewAccountLedger(path string, log *logger.Logger) *AccountLedger {
	return &AccountLedger{path: path, log: log}
}

// Ensure AccountLedger implements repository.AccountRepository.
var _ repository.AccountRepository = (*AccountLedger)(nil)

// Load reads the ledger. Malformed lines are skipped with a warning; a later
// line for the same username replaces an earlier one.
func (l *AccountLedger) Load(ctx context.Context) (map[string]*domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := make(map[string]*domain.Account)

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return accounts, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		acct, err := decodeAccount(line)
		if err != nil {
			l.log.Warn(logger.Entry{
				Action:     "ledger_malformed_record",
				Message:    "skipping unreadable account line",
				Error:      logger.Err(err),
				Additional: map[string]any{"line": lineNo, "path": l.path},
			})
			continue
		}
		accounts[acct.Key()] = acct
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	return accounts, nil
}

// Save appends one account record.
func (l *AccountLedger) Save(ctx context.Context, account *domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(encodeAccount(account) + "\n"); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// Rewrite replaces the ledger contents via a temp file and rename.
func (l *AccountLedger) Rewrite(ctx context.Context, accounts []*domain.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	for _, a := range accounts {
		if _, err := w.WriteString(encodeAccount(a) + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("write temp ledger: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
