package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tanmoy095/loadboard/internal/currency"
	domainErrors "github.com/Tanmoy095/loadboard/internal/domain/errors"
	"github.com/Tanmoy095/loadboard/internal/models"
)

func TestSyncIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	loadID := h.postLoad(t, "shipper-1", "120000")

	sh, err := h.shipments.GetLoad(ctx, loadID)
	require.NoError(t, err)

	first, err := h.projector.Sync(ctx, sh)
	require.NoError(t, err)
	second, err := h.projector.Sync(ctx, sh)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	active, err := h.projector.GetActiveItems(ctx, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Lilongwe → Blantyre", active[0].Description)
}

func TestSyncRejectsUnknownSource(t *testing.T) {
	h := newHarness(t)
	_, err := h.projector.Sync(context.Background(), "not a listing")
	assert.ErrorIs(t, err, domainErrors.ErrValidation)
}

func TestPriceStringRoundTrip(t *testing.T) {
	p := NewProjector(nil, nil, nil)
	assert.Equal(t, models.OpenToBids, p.PriceString(nil))

	for _, v := range []float64{0, 1500, 90000, 120000, 2500000} {
		got, err := currency.ParseAmount(p.PriceString(&v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestItemStatusFor(t *testing.T) {
	cases := map[models.ShipmentStatus]models.ItemStatus{
		models.StatusBiddingOpen:       models.ItemActive,
		models.StatusFindingDriver:     models.ItemActive,
		models.StatusWaitingCommitment: models.ItemHandshake,
		models.StatusReadyForPickup:    models.ItemHandshake,
		models.StatusDelivered:         models.ItemHandshake,
		models.StatusCancelled:         models.ItemRemoved,
		models.StatusRejected:          models.ItemRemoved,
	}
	for status, want := range cases {
		assert.Equal(t, want, ItemStatusFor(status), status)
	}
}

func TestMarketViewIsFlattened(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	loadID := h.postLoad(t, "shipper-1", "")

	refresher := NewRefresher(h.store, h.projector, nil, nil)
	view, err := refresher.MarketView(ctx)
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, loadID, view[0]["load_id"])
	assert.Equal(t, "Lilongwe", view[0]["origin"])
	assert.Equal(t, models.OpenToBids, view[0]["price_str"])
}

func TestConcurrentMarketViewRequests(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.postLoad(t, "shipper-1", "5000")
	h.postLoad(t, "shipper-2", "")

	refresher := NewRefresher(h.store, h.projector, nil, nil)
	var wg sync.WaitGroup
	lens := make([]int, 8)
	errs := make([]error, 8)
	for i := range lens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view, err := refresher.MarketView(ctx)
			lens[i], errs[i] = len(view), err
		}(i)
	}
	wg.Wait()
	for i := range lens {
		require.NoError(t, errs[i])
		assert.Equal(t, 2, lens[i])
	}
}
