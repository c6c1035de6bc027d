package flatfile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"swift/internal/domain"
	"swift/internal/repository"
)

const fieldSep = "|"

// legacyTimestampLayouts are accepted when reading receipts written by older builds.
var legacyTimestampLayouts = []string{
	"01/02/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"2006-01-02 15:04:05",
}

var fieldSanitizer = strings.NewReplacer(fieldSep, "/", "\r", " ", "\n", " ")

func sanitize(s string) string {
	return fieldSanitizer.Replace(s)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// encodeAccount renders Role|Username|Password[|Plate|Wallet|RatingSum|RatingCount].
func encodeAccount(a *domain.Account) string {
	fields := []string{string(a.Role), sanitize(a.Username), sanitize(a.Password)}
	if a.Role == domain.RoleDriver {
		fields = append(fields,
			sanitize(a.PlateNumber),
			formatAmount(a.WalletBalance),
			formatAmount(a.RatingSum),
			strconv.Itoa(a.RatingCount),
		)
	}
	return strings.Join(fields, fieldSep)
}

func decodeAccount(line string) (*domain.Account, error) {
	p := strings.Split(line, fieldSep)
	if len(p) < 3 {
		return nil, fmt.Errorf("%w: expected at least 3 fields, got %d", repository.ErrMalformedRecord, len(p))
	}

	username := strings.TrimSpace(p[1])
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", repository.ErrMalformedRecord)
	}

	acct := &domain.Account{
		Role:     domain.Role(p[0]),
		Username: username,
		Password: p[2],
		IsOnline: true,
	}

	switch acct.Role {
	case domain.RoleOperator, domain.RolePassenger:
		if len(p) != 3 {
			return nil, fmt.Errorf("%w: %s record has %d fields", repository.ErrMalformedRecord, acct.Role, len(p))
		}
		return acct, nil

	case domain.RoleDriver:
		if len(p) > 7 {
			return nil, fmt.Errorf("%w: driver record has %d fields", repository.ErrMalformedRecord, len(p))
		}
		acct.PlateNumber = "N/A"
		if len(p) > 3 {
			acct.PlateNumber = p[3]
		}
		if len(p) > 4 {
			w, err := parseAmount(p[4])
			if err != nil {
				return nil, fmt.Errorf("%w: wallet %q", repository.ErrMalformedRecord, p[4])
			}
			acct.WalletBalance = w
		}
		if len(p) > 5 {
			rs, err := parseAmount(p[5])
			if err != nil {
				return nil, fmt.Errorf("%w: rating sum %q", repository.ErrMalformedRecord, p[5])
			}
			acct.RatingSum = rs
		}
		if len(p) > 6 {
			rc, err := strconv.Atoi(strings.TrimSpace(p[6]))
			if err != nil || rc < 0 {
				return nil, fmt.Errorf("%w: rating count %q", repository.ErrMalformedRecord, p[6])
			}
			acct.RatingCount = rc
		}
		return acct, nil

	default:
		return nil, fmt.Errorf("%w: unknown role %q", repository.ErrMalformedRecord, p[0])
	}
}

// encodeReceipt renders Timestamp|Driver|Plate|Passenger|Destination|Total|Commission|Earnings|ID.
func encodeReceipt(r *domain.Receipt) string {
	return strings.Join([]string{
		r.Timestamp.Format(time.RFC3339),
		sanitize(r.DriverName),
		sanitize(r.PlateNumber),
		sanitize(r.PassengerName),
		sanitize(r.Destination),
		formatAmount(r.TotalFare),
		formatAmount(r.Commission),
		formatAmount(r.DriverEarnings),
		sanitize(r.TransactionID),
	}, fieldSep)
}

func decodeReceipt(line string) (domain.Receipt, error) {
	p := strings.Split(line, fieldSep)
	if len(p) < 8 {
		return domain.Receipt{}, fmt.Errorf("%w: expected at least 8 fields, got %d", repository.ErrMalformedRecord, len(p))
	}

	ts, err := parseTimestamp(p[0])
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%w: timestamp %q", repository.ErrMalformedRecord, p[0])
	}

	amounts := make([]float64, 3)
	for i, raw := range p[5:8] {
		v, err := parseAmount(raw)
		if err != nil {
			return domain.Receipt{}, fmt.Errorf("%w: amount %q", repository.ErrMalformedRecord, raw)
		}
		amounts[i] = v
	}

	r := domain.Receipt{
		Timestamp:      ts,
		DriverName:     p[1],
		PlateNumber:    p[2],
		PassengerName:  p[3],
		Destination:    p[4],
		TotalFare:      amounts[0],
		Commission:     amounts[1],
		DriverEarnings: amounts[2],
	}
	if len(p) > 8 {
		r.TransactionID = p[8]
	}
	return r, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range legacyTimestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
