package service

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/store"
)

const defaultMetricTimeout = 2 * time.Second

// Metric names as reported in Dashboard.Degraded.
const (
	MetricFleetCapacity  = "fleet_capacity"
	MetricMonthlyRevenue = "monthly_revenue"
	MetricActiveJobs     = "active_jobs"
	MetricOpenLoads      = "open_loads"
	MetricPendingBids    = "pending_bids"
)

// DashboardService computes the metrics panel. Each metric runs on its own
// goroutine with its own deadline; one slow or failing query never blanks
// the others.
type DashboardService struct {
	metrics store.MetricsStore
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

func NewDashboardService(metrics store.MetricsStore, timeout time.Duration, logger *slog.Logger) *DashboardService {
	if timeout <= 0 {
		timeout = defaultMetricTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		metrics: metrics,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger,
	}
}

func (s *DashboardService) Dashboard(ctx context.Context, userID string) (*models.Dashboard, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domainErrors.Validation("user_id", "is required")
	}

	d := &models.Dashboard{UserID: userID}
	monthStart, monthEnd := monthBounds(s.now())

	var (
		mu       sync.Mutex
		degraded []string
	)
	// Plain Group, not WithContext: a failed metric must not cancel the rest.
	var g errgroup.Group
	run := func(name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			mctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := fn(mctx); err != nil {
				s.logger.Warn("dashboard metric degraded", "metric", name, "user_id", userID, "error", err)
				mu.Lock()
				degraded = append(degraded, name)
				mu.Unlock()
			}
			return nil
		})
	}

	run(MetricFleetCapacity, func(ctx context.Context) error {
		v, err := s.metrics.FleetCapacity(ctx, userID)
		if err == nil {
			d.FleetCapacity = v
		}
		return err
	})
	run(MetricMonthlyRevenue, func(ctx context.Context) error {
		v, err := s.metrics.RevenueBetween(ctx, userID, monthStart, monthEnd)
		if err == nil {
			d.MonthlyRevenue = v
		}
		return err
	})
	run(MetricActiveJobs, func(ctx context.Context) error {
		v, err := s.metrics.CountActiveJobs(ctx, userID)
		if err == nil {
			d.ActiveJobs = v
		}
		return err
	})
	run(MetricOpenLoads, func(ctx context.Context) error {
		v, err := s.metrics.CountOpenLoads(ctx, userID)
		if err == nil {
			d.OpenLoads = v
		}
		return err
	})
	run(MetricPendingBids, func(ctx context.Context) error {
		v, err := s.metrics.CountPendingBids(ctx, userID)
		if err == nil {
			d.PendingBids = v
		}
		return err
	})
	_ = g.Wait()

	sort.Strings(degraded)
	d.Degraded = degraded
	return d, nil
}

// monthBounds returns [first of month, first of next month) in UTC.
func monthBounds(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
