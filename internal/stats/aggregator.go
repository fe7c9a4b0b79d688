// Package stats computes the landlord dashboard statistics.
package stats

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/R3E-Network/rentals/internal/domain"
	"github.com/R3E-Network/rentals/internal/logging"
	"github.com/R3E-Network/rentals/internal/metrics"
)

// Stats is the landlord summary shown on the dashboard.
type Stats struct {
	Properties      int     `json:"total_properties"`
	ActiveLeases    int     `json:"active_leases"`
	PendingPayments int     `json:"pending_payments"`
	TotalRevenue    float64 `json:"total_revenue"`
}

// Source provides the three reads behind the statistics.
type Source interface {
	CountProperties(ctx context.Context, landlordID string) (int, error)
	CountActiveLeases(ctx context.Context, landlordID string) (int, error)
	ListPayments(ctx context.Context, landlordID string) ([]domain.Payment, error)
}

// Aggregator computes Stats.
type Aggregator struct {
	source  Source
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// NewAggregator creates an aggregator. m may be nil.
func NewAggregator(source Source, logger *logging.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{source: source, logger: logger, metrics: m}
}

// Compute fetches counts and payments concurrently and folds the payments in a
// single pass. Any failed read is logged and yields zero Stats; errors are
// never returned.
func (a *Aggregator) Compute(ctx context.Context, landlordID string) Stats {
	start := time.Now()

	var (
		properties int
		leases     int
		payments   []domain.Payment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.source.CountProperties(gctx, landlordID)
		properties = n
		return err
	})
	g.Go(func() error {
		n, err := a.source.CountActiveLeases(gctx, landlordID)
		leases = n
		return err
	})
	g.Go(func() error {
		p, err := a.source.ListPayments(gctx, landlordID)
		payments = p
		return err
	})

	if err := g.Wait(); err != nil {
		a.logger.WithContext(ctx).WithError(err).WithField("landlord_id", landlordID).
			Error("failed to compute landlord statistics")
		a.record(metrics.RefreshDegraded, start)
		return Stats{}
	}

	out := Fold(payments)
	out.Properties = properties
	out.ActiveLeases = leases
	a.record(metrics.RefreshOK, start)
	return out
}

// Fold derives the payment figures: pending and overdue payments are counted
// as pending, paid payments contribute amount plus late fee to revenue.
func Fold(payments []domain.Payment) Stats {
	var s Stats
	for _, p := range payments {
		switch {
		case p.Status.Outstanding():
			s.PendingPayments++
		case p.Status == domain.PaymentPaid:
			s.TotalRevenue += p.Total()
		}
	}
	return s
}

func (a *Aggregator) record(result string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordDashboardRefresh(result, time.Since(start))
	}
}
