package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	skafka "github.com/segmentio/kafka-go"
)

// fakeWriter is a test writer that records messages written.
type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewProducerWithWriter(fw, nil)
	err := p.Publish(context.Background(), "load-1", Event{Event: "bid.placed", Payload: map[string]string{"driver_id": "d1"}})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(fw.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fw.msgs))
	}
	if string(fw.msgs[0].Key) != "load-1" {
		t.Fatalf("key = %q, want load-1", fw.msgs[0].Key)
	}

	var got struct {
		Event   string            `json:"event"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(fw.msgs[0].Value, &got); err != nil {
		t.Fatalf("value is not json: %v", err)
	}
	if got.Event != "bid.placed" || got.Payload["driver_id"] != "d1" {
		t.Fatalf("unexpected envelope %+v", got)
	}
}

func TestPublishReturnsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&fakeWriter{err: boom}, nil)
	if err := p.Publish(context.Background(), "k", Event{Event: "x"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

type fakeReader struct {
	mu        sync.Mutex
	msgs      []skafka.Message
	committed []int64
	drained   chan struct{}
	once      sync.Once
}

func (f *fakeReader) FetchMessage(ctx context.Context) (skafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	f.once.Do(func() { close(f.drained) })
	<-ctx.Done()
	return skafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...skafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumerSkipsCommitOnHandlerError(t *testing.T) {
	r := &fakeReader{
		msgs: []skafka.Message{
			{Offset: 1, Value: []byte("ok")},
			{Offset: 2, Value: []byte("fail")},
			{Offset: 3, Value: []byte("ok")},
		},
		drained: make(chan struct{}),
	}
	c := NewConsumerWithReader(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Start(ctx, func(ctx context.Context, key, value []byte) error {
			if string(value) == "fail" {
				return errors.New("rabbit unavailable")
			}
			return nil
		})
	}()

	<-r.drained
	cancel()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.committed) != 2 || r.committed[0] != 1 || r.committed[1] != 3 {
		t.Fatalf("committed offsets = %v, want [1 3]", r.committed)
	}
}
