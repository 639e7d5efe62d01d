package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Tanmoy095/loadboard/internal/fanout"
	"github.com/Tanmoy095/loadboard/internal/kafka"
	"github.com/Tanmoy095/loadboard/internal/models"
	"github.com/Tanmoy095/loadboard/store"
	"github.com/Tanmoy095/loadboard/store/sqlstore"
)

type sentFrame struct {
	userID  string // empty for broadcasts
	event   string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	frames []sentFrame
}

func (n *recordingNotifier) SendToUser(_ context.Context, userID, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames = append(n.frames, sentFrame{userID: userID, event: event, payload: payload})
	return nil
}

func (n *recordingNotifier) Broadcast(_ context.Context, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.frames = append(n.frames, sentFrame{event: event, payload: payload})
	return nil
}

// last returns the most recent frame for userID and event.
func (n *recordingNotifier) last(userID, event string) (sentFrame, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.frames) - 1; i >= 0; i-- {
		if f := n.frames[i]; f.userID == userID && f.event == event {
			return f, true
		}
	}
	return sentFrame{}, false
}

// failingNotifier rejects every push, like a hub whose sessions are gone.
type failingNotifier struct {
	calls atomic.Int32
}

func (n *failingNotifier) SendToUser(context.Context, string, string, any) error {
	n.calls.Add(1)
	return errors.New("session closed")
}

func (n *failingNotifier) Broadcast(context.Context, string, any) error {
	n.calls.Add(1)
	return errors.New("session closed")
}

// failingMarket fails projection upserts while fail is set.
type failingMarket struct {
	store.MarketplaceStore
	fail atomic.Bool
}

func (m *failingMarket) UpsertItem(ctx context.Context, item *models.MarketplaceItem) error {
	if m.fail.Load() {
		return errors.New("marketplace write failed")
	}
	return m.MarketplaceStore.UpsertItem(ctx, item)
}

type publishedEvent struct {
	key   string
	event kafka.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, key string, ev kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, event: ev})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) has(key, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.key == key && e.event.Event == name {
			return true
		}
	}
	return false
}

type recordingReminders struct {
	mu    sync.Mutex
	loads []string
}

func (r *recordingReminders) ScheduleDepositReminder(_ context.Context, loadID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, loadID)
	return nil
}

type harness struct {
	store     *sqlstore.Store
	projector *Projector
	shipments *ShipmentService
	listings  *ListingService
	notifier  *recordingNotifier
	publisher *recordingPublisher
	reminders *recordingReminders
}

// harnessOptions swaps collaborators for failure tests.
type harnessOptions struct {
	wrapMarket func(store.MarketplaceStore) store.MarketplaceStore
	notifier   fanout.Notifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, harnessOptions{})
}

func newHarnessWith(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "loadboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		store:     st,
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		reminders: &recordingReminders{},
	}
	var market store.MarketplaceStore = st
	if opts.wrapMarket != nil {
		market = opts.wrapMarket(st)
	}
	var notifier fanout.Notifier = h.notifier
	if opts.notifier != nil {
		notifier = opts.notifier
	}
	h.projector = NewProjector(market, nil, logger)
	refresher := NewRefresher(st, h.projector, notifier, logger)
	h.shipments = NewShipmentService(ShipmentDeps{
		Tx:        st,
		Shipments: st,
		Bids:      st,
		ReadModel: st,
		Projector: h.projector,
		Refresher: refresher,
		Publisher: h.publisher,
		Reminders: h.reminders,
		Logger:    logger,
	})
	h.listings = NewListingService(st, st, h.projector, refresher, h.publisher, logger)
	return h
}

func (h *harness) postLoad(t *testing.T, shipperID, price string) string {
	t.Helper()
	sh, err := h.shipments.PostLoad(context.Background(), PostLoadInput{
		ShipperID:   shipperID,
		Origin:      "Lilongwe",
		Destination: "Blantyre",
		Cargo:       "Maize Bags",
		Weight:      12,
		Quantity:    300,
		Price:       price,
	})
	require.NoError(t, err)
	return sh.ID
}
