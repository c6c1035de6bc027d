package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"swift/internal/domain"
	"swift/internal/logger"
	"swift/internal/repository"
)

// ReportCache stores rendered reports until the next receipt is appended.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context) error
}

// Granularity selects how receipts are grouped into periods.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity accepts daily or monthly, case-insensitively.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case GranularityDaily:
		return GranularityDaily, nil
	case GranularityMonthly:
		return GranularityMonthly, nil
	default:
		return "", ErrInvalidGranularity
	}
}

// Daily driver performance labels by earnings.
const (
	PerformanceExcellent = "EXCELLENT"
	PerformanceGood      = "GOOD"
	PerformanceFair      = "FAIR"

	excellentEarnings = 500.0
	goodEarnings      = 200.0
)

func performanceLabel(earnings float64) string {
	switch {
	case earnings > excellentEarnings:
		return PerformanceExcellent
	case earnings > goodEarnings:
		return PerformanceGood
	default:
		return PerformanceFair
	}
}

// ReportQuery selects the grouping and optional filters of a revenue report.
type ReportQuery struct {
	Granularity Granularity
	Driver      string
	Passenger   string
}

// ReportRow aggregates the receipts of one period.
type ReportRow struct {
	Period         string  `json:"period"`
	Rides          int     `json:"rides"`
	TotalFare      float64 `json:"total_fare"`
	Commission     float64 `json:"commission"`
	DriverEarnings float64 `json:"driver_earnings"`
	Performance    string  `json:"performance,omitempty"`
}

// RevenueReport is a set of period rows, newest first, with a grand total.
type RevenueReport struct {
	Granularity Granularity `json:"granularity"`
	Driver      string      `json:"driver,omitempty"`
	Passenger   string      `json:"passenger,omitempty"`
	Rows        []ReportRow `json:"rows"`
	Total       ReportRow   `json:"total"`
}

// RevenueService aggregates the receipt log.
type RevenueService struct {
	repo  repository.ReceiptRepository
	cache ReportCache
	log   *logger.Logger
	loc   *time.Location
}

// NewRevenueService creates a new RevenueService. cache may be nil.
func NewRevenueService(repo repository.ReceiptRepository, cache ReportCache, log *logger.Logger) *RevenueService {
	return &RevenueService{
		repo:  repo,
		cache: cache,
		log:   log,
		loc:   time.Local,
	}
}

// Report groups receipts by day or month.
func (s *RevenueService) Report(ctx context.Context, q ReportQuery) (*RevenueReport, error) {
	granularity, err := ParseGranularity(string(q.Granularity))
	if err != nil {
		return nil, err
	}
	q.Granularity = granularity

	key := reportCacheKey(q)
	if cached, ok := s.cachedReport(ctx, key); ok {
		return cached, nil
	}

	receipts, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read receipts: %w", err)
	}

	report := s.aggregate(receipts, q)
	s.storeReport(ctx, key, report)
	return report, nil
}

// PassengerHistory returns the passenger's receipts, newest first.
func (s *RevenueService) PassengerHistory(ctx context.Context, passenger string) ([]domain.Receipt, error) {
	receipts, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read receipts: %w", err)
	}

	out := make([]domain.Receipt, 0)
	for _, r := range receipts {
		if domain.SameUser(r.PassengerName, passenger) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

type periodBucket struct {
	start time.Time
	row   ReportRow
}

func (s *RevenueService) aggregate(receipts []domain.Receipt, q ReportQuery) *RevenueReport {
	buckets := make(map[string]*periodBucket)
	total := ReportRow{Period: "TOTAL"}

	for _, r := range receipts {
		if q.Driver != "" && !domain.SameUser(r.DriverName, q.Driver) {
			continue
		}
		if q.Passenger != "" && !domain.SameUser(r.PassengerName, q.Passenger) {
			continue
		}

		start, label := s.period(r.Timestamp, q.Granularity)
		b, ok := buckets[label]
		if !ok {
			b = &periodBucket{start: start, row: ReportRow{Period: label}}
			buckets[label] = b
		}
		addReceipt(&b.row, r)
		addReceipt(&total, r)
	}

	rows := make([]periodBucket, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, *b)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].start.After(rows[j].start) })

	report := &RevenueReport{
		Granularity: q.Granularity,
		Driver:      q.Driver,
		Passenger:   q.Passenger,
		Rows:        make([]ReportRow, 0, len(rows)),
		Total:       roundRow(total),
	}
	for _, b := range rows {
		row := roundRow(b.row)
		if q.Driver != "" && q.Granularity == GranularityDaily {
			row.Performance = performanceLabel(row.DriverEarnings)
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

func (s *RevenueService) period(ts time.Time, g Granularity) (time.Time, string) {
	t := ts.In(s.loc)
	if g == GranularityMonthly {
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, s.loc)
		return start, start.Format("January 2006")
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	return start, start.Format("2006-01-02")
}

func addReceipt(row *ReportRow, r domain.Receipt) {
	row.Rides++
	row.TotalFare += r.TotalFare
	row.Commission += r.Commission
	row.DriverEarnings += r.DriverEarnings
}

func roundRow(row ReportRow) ReportRow {
	row.TotalFare = domain.RoundMoney(row.TotalFare)
	row.Commission = domain.RoundMoney(row.Commission)
	row.DriverEarnings = domain.RoundMoney(row.DriverEarnings)
	return row
}

func reportCacheKey(q ReportQuery) string {
	return strings.Join([]string{
		string(q.Granularity),
		domain.UsernameKey(q.Driver),
		domain.UsernameKey(q.Passenger),
	}, ":")
}

func (s *RevenueService) cachedReport(ctx context.Context, key string) (*RevenueReport, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn(logger.Entry{Action: "report_cache_get", Message: "report cache read failed", Error: logger.Err(err)})
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var report RevenueReport
	if err := json.Unmarshal(raw, &report); err != nil {
		s.log.Warn(logger.Entry{Action: "report_cache_decode", Message: "discarding unreadable cached report", Error: logger.Err(err)})
		return nil, false
	}
	return &report, true
}

func (s *RevenueService) storeReport(ctx context.Context, key string, report *RevenueReport) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.log.Warn(logger.Entry{Action: "report_cache_set", Message: "report cache write failed", Error: logger.Err(err)})
	}
}
