package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
)

type fakeMetrics struct {
	failCapacity bool
	blockOpen    bool
	from, to     time.Time
}

func (f *fakeMetrics) FleetCapacity(context.Context, string) (float64, error) {
	if f.failCapacity {
		return 0, errors.New("connection reset")
	}
	return 42, nil
}

func (f *fakeMetrics) RevenueBetween(_ context.Context, _ string, from, to time.Time) (float64, error) {
	f.from, f.to = from, to
	return 250000, nil
}

func (f *fakeMetrics) CountActiveJobs(context.Context, string) (int, error) { return 2, nil }

func (f *fakeMetrics) CountOpenLoads(ctx context.Context, _ string) (int, error) {
	if f.blockOpen {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 3, nil
}

func (f *fakeMetrics) CountPendingBids(context.Context, string) (int, error) { return 7, nil }

func TestDashboardAllMetrics(t *testing.T) {
	m := &fakeMetrics{}
	svc := NewDashboardService(m, time.Second, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC) }

	d, err := svc.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", d.UserID)
	assert.Equal(t, 42.0, d.FleetCapacity)
	assert.Equal(t, 250000.0, d.MonthlyRevenue)
	assert.Equal(t, 2, d.ActiveJobs)
	assert.Equal(t, 3, d.OpenLoads)
	assert.Equal(t, 7, d.PendingBids)
	assert.Empty(t, d.Degraded)

	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), m.from)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), m.to)
}

func TestDashboardDegradesPerMetric(t *testing.T) {
	m := &fakeMetrics{failCapacity: true, blockOpen: true}
	svc := NewDashboardService(m, 20*time.Millisecond, nil)

	d, err := svc.Dashboard(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{MetricFleetCapacity, MetricOpenLoads}, d.Degraded)
	assert.Zero(t, d.FleetCapacity)
	assert.Zero(t, d.OpenLoads)
	assert.Equal(t, 2, d.ActiveJobs)
	assert.Equal(t, 7, d.PendingBids)
}

func TestDashboardRequiresUser(t *testing.T) {
	svc := NewDashboardService(&fakeMetrics{}, 0, nil)
	_, err := svc.Dashboard(context.Background(), "  ")
	assert.ErrorIs(t, err, domainErrors.ErrValidation)
}

func TestMonthBoundsAcrossYearEnd(t *testing.T) {
	from, to := monthBounds(time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), to)
}
