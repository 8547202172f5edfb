package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/resilience"
)

type record struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// memSource serves msgs in order and cancels the run once they are used up.
type memSource struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	next      int
	committed []int64
	cancel    context.CancelFunc
	closed    bool
}

func (s *memSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == len(s.msgs) {
		s.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := s.msgs[s.next]
	s.next++
	return msg, nil
}

func (s *memSource) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.committed = append(s.committed, m.Offset)
	}
	return nil
}

func (s *memSource) Close() error {
	s.closed = true
	return nil
}

func newTestReader(t *testing.T, handle Handler[record], values ...string) (*Reader[record], *memSource, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	src := &memSource{cancel: cancel}
	for i, v := range values {
		src.msgs = append(src.msgs, kafka.Message{Offset: int64(i), Key: []byte("ingest"), Value: []byte(v)})
	}
	return &Reader[record]{
		src:    src,
		handle: handle,
		retry:  resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		stall:  time.Millisecond,
		logger: slog.Default(),
	}, src, ctx
}

func TestEncodeRoundTripsThroughRun(t *testing.T) {
	msgs, err := encode("ingest", []record{{Op: "add", Text: "the cat sat"}, {Op: "delete"}})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("ingest"), msgs[1].Key)

	var got []record
	r, _, ctx := newTestReader(t, func(_ context.Context, key string, v record) error {
		assert.Equal(t, "ingest", key)
		got = append(got, v)
		return nil
	}, string(msgs[0].Value), string(msgs[1].Value))

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, []record{{Op: "add", Text: "the cat sat"}, {Op: "delete"}}, got)
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode("k", []any{make(chan int)})
	assert.ErrorContains(t, err, "encoding record 0")
}

func TestRunCommitsUndecodable(t *testing.T) {
	calls := 0
	r, src, ctx := newTestReader(t, func(context.Context, string, record) error {
		calls++
		return nil
	}, "{not json", `{"op":"add"}`)

	require.NoError(t, r.Run(ctx))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int64{0, 1}, src.committed)
	assert.True(t, src.closed)
}

func TestRunHoldsFailingRecordUntilApplied(t *testing.T) {
	var seen []string
	failures := 0
	r, src, ctx := newTestReader(t, func(_ context.Context, _ string, v record) error {
		seen = append(seen, v.Op)
		if v.Op == "add" && failures < 5 {
			failures++
			return errors.New("document store full")
		}
		return nil
	}, `{"op":"add"}`, `{"op":"delete"}`)

	require.NoError(t, r.Run(ctx))

	assert.Equal(t, []string{"add", "add", "add", "add", "add", "add", "delete"}, seen,
		"later records wait for the failing one across retry rounds")
	assert.Equal(t, []int64{0, 1}, src.committed)
}

func TestRunStopsOnPermanentFailure(t *testing.T) {
	attempts := 0
	r, src, ctx := newTestReader(t, func(context.Context, string, record) error {
		attempts++
		return resilience.Permanent(errors.New("cannot apply"))
	}, `{"op":"add"}`, `{"op":"delete"}`)

	err := r.Run(ctx)
	require.ErrorContains(t, err, "cannot apply")
	assert.Equal(t, 1, attempts, "permanent errors are not retried")
	assert.Empty(t, src.committed)
	assert.Equal(t, 1, src.next, "nothing fetched past the failed record")
}

func TestRunReturnsNilWhenCancelledMidRetry(t *testing.T) {
	r, src, ctx := newTestReader(t, func(context.Context, string, record) error {
		return errors.New("redis down")
	}, `{"op":"add"}`)
	r.stall = time.Hour
	go func() {
		time.Sleep(20 * time.Millisecond)
		src.cancel()
	}()

	assert.NoError(t, r.Run(ctx))
	assert.Empty(t, src.committed)
}
