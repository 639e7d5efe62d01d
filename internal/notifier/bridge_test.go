package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeQueue struct {
	err       error
	published map[string][][]byte
}

func (q *fakeQueue) Publish(_ context.Context, queue string, body []byte) error {
	if q.err != nil {
		return q.err
	}
	if q.published == nil {
		q.published = map[string][][]byte{}
	}
	q.published[queue] = append(q.published[queue], body)
	return nil
}

func TestBridgeEnqueuesEmailEvents(t *testing.T) {
	q := &fakeQueue{}
	b := NewBridge(q, quiet)

	value := []byte(`{"event":"bid.accepted","payload":{"load":{"id":"load-1"}}}`)
	require.NoError(t, b.Handle(context.Background(), []byte("load-1"), value))

	require.Len(t, q.published[EmailQueue], 1)
	var job EmailJob
	require.NoError(t, json.Unmarshal(q.published[EmailQueue][0], &job))
	assert.Equal(t, "bid_accepted_email", job.Type)
	assert.Equal(t, "bid.accepted", job.Event)
	assert.Equal(t, "load-1", job.Key)
	assert.JSONEq(t, `{"load":{"id":"load-1"}}`, string(job.Payload))
}

func TestBridgeSkipsOtherEvents(t *testing.T) {
	q := &fakeQueue{}
	b := NewBridge(q, quiet)

	require.NoError(t, b.Handle(context.Background(), []byte("l"), []byte(`{"event":"listing.posted","payload":{}}`)))
	require.NoError(t, b.Handle(context.Background(), []byte("l"), []byte(`not json`)))
	assert.Empty(t, q.published)
}

func TestBridgeReturnsEnqueueFailure(t *testing.T) {
	b := NewBridge(&fakeQueue{err: errors.New("channel closed")}, quiet)
	err := b.Handle(context.Background(), []byte("l"), []byte(`{"event":"deposit.paid","payload":{}}`))
	assert.Error(t, err)
}

type fakeDelivery struct {
	acked, nacked, requeued bool
}

func (d *fakeDelivery) Ack(bool) error { d.acked = true; return nil }

func (d *fakeDelivery) Nack(_, requeue bool) error {
	d.nacked, d.requeued = true, requeue
	return nil
}

type fakeSender struct {
	err  error
	sent []EmailJob
}

func (s *fakeSender) Send(_ context.Context, job EmailJob) error {
	s.sent = append(s.sent, job)
	return s.err
}

func TestProcessDelivery(t *testing.T) {
	ctx := context.Background()
	body := []byte(`{"type":"new_bid_email","event":"bid.placed","key":"load-1","payload":{}}`)

	d := &fakeDelivery{}
	s := &fakeSender{}
	processDelivery(ctx, d, body, false, s, quiet)
	assert.True(t, d.acked)
	require.Len(t, s.sent, 1)
	assert.Equal(t, "new_bid_email", s.sent[0].Type)

	d = &fakeDelivery{}
	processDelivery(ctx, d, []byte(`{`), false, s, quiet)
	assert.True(t, d.nacked)
	assert.False(t, d.requeued)

	d = &fakeDelivery{}
	processDelivery(ctx, d, body, false, &fakeSender{err: errors.New("smtp down")}, quiet)
	assert.True(t, d.requeued)

	d = &fakeDelivery{}
	processDelivery(ctx, d, body, true, &fakeSender{err: errors.New("smtp down")}, quiet)
	assert.True(t, d.nacked)
	assert.False(t, d.requeued)
}
