package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/TEswarreddy/shopez-sub000/internal/domain"
)

// ReportService aggregates ledger rows into revenue views. Every operation
// is read-only; results may lag writers by the cache TTL.
type ReportService struct {
	payments PaymentStore
	cache    ReportCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewReportService(payments PaymentStore, cache ReportCache, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	return &ReportService{
		payments: payments,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Scope selects platform-wide revenue (empty VendorID, revenue = commission)
// or one vendor's revenue (revenue = vendor amount).
type Scope struct {
	VendorID string
}

func (s Scope) platform() bool { return s.VendorID == "" }

func (s Scope) authorized(actor domain.Actor) bool {
	if s.platform() {
		return domain.CanPerform(actor, domain.ActionPlatformReports, nil)
	}
	return domain.CanPerform(actor, domain.ActionVendorReports, s.VendorID)
}

type DashboardReport struct {
	Revenue             float64 `json:"revenue"`
	GrossRevenue        float64 `json:"gross_revenue"`
	TransactionCount    int     `json:"transaction_count"`
	TotalRefunded       float64 `json:"total_refunded"`
	AvgTransactionValue float64 `json:"avg_transaction_value"`
}

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

type TrendBucket struct {
	Period string `json:"period"`
	DashboardReport
}

type Dimension string

const (
	DimensionVendor        Dimension = "vendor"
	DimensionPaymentMethod Dimension = "payment_method"
)

type EntityTotal struct {
	Key              string  `json:"key"`
	Revenue          float64 `json:"revenue"`
	TransactionCount int     `json:"transaction_count"`
}

// settledStatuses are the ledger states that count as revenue. Pending and
// failed rows never reach the ledger; refunded rows are excluded outright.
var settledStatuses = []domain.PaymentStatus{
	domain.PaymentStatusCompleted,
	domain.PaymentStatusPartiallyRefunded,
}

func (s *ReportService) RevenueDashboard(ctx context.Context, scope Scope, from, to time.Time, actor domain.Actor) (*DashboardReport, error) {
	if !scope.authorized(actor) {
		return nil, domain.ErrUnauthorized
	}

	cacheKey := fmt.Sprintf("report:dashboard:%s:%d:%d", scope.VendorID, from.Unix(), to.Unix())
	var cached DashboardReport
	if s.fromCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	rows, err := s.payments.ListByFilter(ctx, domain.PaymentFilter{
		Statuses: settledStatuses,
		VendorID: scope.VendorID,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, err
	}

	report := aggregate(rows, scope)
	s.toCache(ctx, cacheKey, report)
	return &report, nil
}

func (s *ReportService) RevenueTrend(ctx context.Context, scope Scope, from, to time.Time, granularity Granularity, actor domain.Actor) ([]TrendBucket, error) {
	if !scope.authorized(actor) {
		return nil, domain.ErrUnauthorized
	}
	if granularity != GranularityDay && granularity != GranularityMonth {
		return nil, domain.NewValidationError("granularity", "must be day or month")
	}

	cacheKey := fmt.Sprintf("report:trend:%s:%s:%d:%d", scope.VendorID, granularity, from.Unix(), to.Unix())
	var cached []TrendBucket
	if s.fromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	rows, err := s.payments.ListByFilter(ctx, domain.PaymentFilter{
		Statuses: settledStatuses,
		VendorID: scope.VendorID,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, err
	}

	layout := "2006-01-02"
	if granularity == GranularityMonth {
		layout = "2006-01"
	}

	grouped := make(map[string][]domain.Payment)
	for _, p := range rows {
		period := p.CreatedAt.UTC().Format(layout)
		grouped[period] = append(grouped[period], p)
	}

	periods := make([]string, 0, len(grouped))
	for period := range grouped {
		periods = append(periods, period)
	}
	sort.Strings(periods)

	buckets := make([]TrendBucket, 0, len(periods))
	for _, period := range periods {
		buckets = append(buckets, TrendBucket{
			Period:          period,
			DashboardReport: aggregate(grouped[period], scope),
		})
	}
	s.toCache(ctx, cacheKey, buckets)
	return buckets, nil
}

// TopEntities ranks vendors by credited vendor amount, or payment methods by
// gross volume, over the settled rows in range.
func (s *ReportService) TopEntities(ctx context.Context, dimension Dimension, from, to time.Time, limit int, actor domain.Actor) ([]EntityTotal, error) {
	if !domain.CanPerform(actor, domain.ActionPlatformReports, nil) {
		return nil, domain.ErrUnauthorized
	}
	if dimension != DimensionVendor && dimension != DimensionPaymentMethod {
		return nil, domain.NewValidationError("dimension", "must be vendor or payment_method")
	}
	if limit <= 0 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("report:top:%s:%d:%d:%d", dimension, limit, from.Unix(), to.Unix())
	var cached []EntityTotal
	if s.fromCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	rows, err := s.payments.ListByFilter(ctx, domain.PaymentFilter{
		Statuses: settledStatuses,
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, err
	}

	totals := make(map[string]*EntityTotal)
	for _, p := range rows {
		var key string
		var metric float64
		switch dimension {
		case DimensionVendor:
			key = p.VendorID
			metric = p.VendorAmount
		case DimensionPaymentMethod:
			key = string(p.PaymentMethod)
			metric = p.TotalAmount
		}
		t, ok := totals[key]
		if !ok {
			t = &EntityTotal{Key: key}
			totals[key] = t
		}
		t.Revenue = domain.Round2(t.Revenue + metric)
		t.TransactionCount++
	}

	ranked := make([]EntityTotal, 0, len(totals))
	for _, t := range totals {
		ranked = append(ranked, *t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Revenue != ranked[j].Revenue {
			return ranked[i].Revenue > ranked[j].Revenue
		}
		return ranked[i].Key < ranked[j].Key
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	s.toCache(ctx, cacheKey, ranked)
	return ranked, nil
}

// ReconciliationQueue lists ledger rows by reconciliation flag, newest
// first. Never cached: reconciliation work happens right after reading it.
func (s *ReportService) ReconciliationQueue(ctx context.Context, reconciled bool, page, pageSize int, actor domain.Actor) ([]domain.Payment, error) {
	if !domain.CanPerform(actor, domain.ActionReconcile, nil) {
		return nil, domain.ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	rows, err := s.payments.ListByFilter(ctx, domain.PaymentFilter{
		Reconciled: &reconciled,
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(rows) {
		return []domain.Payment{}, nil
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

func aggregate(rows []domain.Payment, scope Scope) DashboardReport {
	var report DashboardReport
	for _, p := range rows {
		report.GrossRevenue += p.TotalAmount
		if scope.platform() {
			report.Revenue += p.PlatformCommission
		} else {
			report.Revenue += p.VendorAmount
		}
		if p.Status == domain.PaymentStatusPartiallyRefunded {
			report.TotalRefunded += p.RefundAmount
		}
		report.TransactionCount++
	}
	report.GrossRevenue = domain.Round2(report.GrossRevenue)
	report.Revenue = domain.Round2(report.Revenue)
	report.TotalRefunded = domain.Round2(report.TotalRefunded)
	if report.TransactionCount > 0 {
		report.AvgTransactionValue = domain.Round2(report.GrossRevenue / float64(report.TransactionCount))
	}
	return report
}

func (s *ReportService) fromCache(ctx context.Context, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("Failed to decode cached report", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *ReportService) toCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("Failed to encode report for cache", zap.String("key", key), zap.Error(err))
		return
	}
	s.cache.Set(ctx, key, data, s.cacheTTL)
}
