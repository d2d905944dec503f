package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore hands out records in id order and drops them once sent.
type memStore struct {
	mu   sync.Mutex
	recs []Record
}

func (s *memStore) Claim(ctx context.Context, limit, maxAttempts int, fn func(ctx context.Context, recs []Record) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var idx []int
	for i, rec := range s.recs {
		if len(idx) == limit {
			break
		}
		if rec.Attempts < maxAttempts {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return 0, nil
	}
	batch := make([]Record, len(idx))
	for i, j := range idx {
		batch[i] = s.recs[j]
	}
	if err := fn(ctx, batch); err != nil {
		if len(idx) == 1 {
			s.recs[idx[0]].Attempts++
		}
		return 0, err
	}
	sent := make(map[int]bool, len(idx))
	for _, j := range idx {
		sent[j] = true
	}
	kept := s.recs[:0]
	for i, rec := range s.recs {
		if !sent[i] {
			kept = append(kept, rec)
		}
	}
	s.recs = kept
	return len(idx), nil
}

func (s *memStore) Pending(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.recs)), nil
}

type mockWriter struct {
	msgs []kafka.Message
	err  error
	// reject fails any write containing a message with this value.
	reject string
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	for _, m := range msgs {
		if w.reject != "" && string(m.Value) == w.reject {
			return errors.New("message too large")
		}
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			ID:        int64(i + 1),
			EventID:   uuid.New(),
			Type:      "order.created",
			Key:       uuid.New(),
			Payload:   []byte(`{"status":"RECEIVED"}`),
			CreatedAt: time.Unix(1700000000, 0),
		}
	}
	return out
}

func TestRelay_Flush(t *testing.T) {
	store := &memStore{recs: records(5)}
	w := &mockWriter{}
	m := NewMetrics(prometheus.NewRegistry())
	r := NewRelay(store, NewKafkaPublisher(w), m, zap.NewNop(), RelayConfig{BatchSize: 2})

	n, err := r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Empty(t, store.recs)
	require.Len(t, w.msgs, 5)

	first := w.msgs[0]
	assert.Equal(t, `{"status":"RECEIVED"}`, string(first.Value))
	assert.Len(t, first.Key, 36)
	assert.Equal(t, "event_type", first.Headers[1].Key)
	assert.Equal(t, "order.created", string(first.Headers[1].Value))

	assert.Equal(t, 5.0, testutil.ToFloat64(m.Published))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Pending))
}

func TestRelay_FlushFailure(t *testing.T) {
	store := &memStore{recs: records(3)}
	w := &mockWriter{err: errors.New("broker down")}
	m := NewMetrics(prometheus.NewRegistry())
	r := NewRelay(store, NewKafkaPublisher(w), m, zap.NewNop(), RelayConfig{BatchSize: 10})

	n, err := r.Flush(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Len(t, store.recs, 3)
	assert.Equal(t, 1, store.recs[0].Attempts)
	assert.Zero(t, store.recs[1].Attempts)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Failed))
	assert.Zero(t, testutil.ToFloat64(m.Parked))

	w.err = nil
	n, err = r.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRelay_ParksFailingRecord(t *testing.T) {
	store := &memStore{recs: records(3)}
	store.recs[1].Payload = []byte(`"oversized"`)
	w := &mockWriter{reject: `"oversized"`}
	m := NewMetrics(prometheus.NewRegistry())
	r := NewRelay(store, NewKafkaPublisher(w), m, zap.NewNop(), RelayConfig{BatchSize: 10, MaxAttempts: 2})
	ctx := context.Background()

	// The batch fails, the record before the bad one still goes out.
	n, err := r.Flush(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.recs, 2)
	assert.Equal(t, 1, store.recs[0].Attempts)
	assert.Zero(t, store.recs[1].Attempts)

	n, err = r.Flush(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, store.recs[0].Attempts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Parked))

	// Parked records no longer block the ones behind them.
	n, err = r.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.recs, 1)
	assert.Equal(t, `"oversized"`, string(store.recs[0].Payload))
	assert.Len(t, w.msgs, 2)
}

func TestRelay_Backoff(t *testing.T) {
	r := NewRelay(&memStore{}, NewKafkaPublisher(&mockWriter{}), NewMetrics(prometheus.NewRegistry()), zap.NewNop(),
		RelayConfig{Interval: time.Second})
	assert.Equal(t, time.Second, r.backoff(0))
	assert.Equal(t, 4*time.Second, r.backoff(2))
	assert.Equal(t, maxBackoff, r.backoff(10))

	slow := NewRelay(&memStore{}, NewKafkaPublisher(&mockWriter{}), NewMetrics(prometheus.NewRegistry()), zap.NewNop(),
		RelayConfig{Interval: 5 * time.Minute})
	assert.Equal(t, 5*time.Minute, slow.backoff(3))
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	store := &memStore{recs: records(1)}
	w := &mockWriter{}
	r := NewRelay(store, NewKafkaPublisher(w), NewMetrics(prometheus.NewRegistry()), zap.NewNop(),
		RelayConfig{BatchSize: 10, Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, _ := store.Pending(ctx)
		return n == 0
	}, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
