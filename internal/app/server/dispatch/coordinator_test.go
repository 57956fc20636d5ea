package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
)

// fakeClock is a manually advanced clock; After either fires immediately
// or never, depending on afterFires.
type fakeClock struct {
	mu         sync.Mutex
	now        time.Time
	afterFires bool
}

func newFakeClock(afterFires bool) *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), afterFires: afterFires}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) After(time.Duration) <-chan time.Time {
	if !c.afterFires {
		return nil
	}
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

// journalStub is an in-memory event journal used to observe coordinator
// status transitions.
type journalStub struct {
	mu     sync.Mutex
	seq    int64
	events map[uuid.UUID]*event.SyncEvent
	order  []uuid.UUID
}

func newJournalStub() *journalStub {
	return &journalStub{events: make(map[uuid.UUID]*event.SyncEvent)}
}

func (j *journalStub) add(t *testing.T, origin *string) *event.SyncEvent {
	t.Helper()
	evt, err := j.Append(context.Background(), event.AppendRequest{
		Type:          event.TypePriceUpdated,
		EntityType:    "pricing",
		EntityID:      "P1",
		OriginStoreID: origin,
		Payload:       json.RawMessage(`{"product_id":"P1"}`),
	})
	require.NoError(t, err)
	return evt
}

func (j *journalStub) status(id uuid.UUID) event.Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.events[id].Status
}

func (j *journalStub) attempts(id uuid.UUID) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.events[id].AttemptCount
}

func (j *journalStub) Append(_ context.Context, req event.AppendRequest) (*event.SyncEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	evt := &event.SyncEvent{
		ID:            uuid.New(),
		Seq:           j.seq,
		Type:          req.Type,
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		OriginStoreID: req.OriginStoreID,
		Payload:       req.Payload,
		Status:        event.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	j.events[evt.ID] = evt
	j.order = append(j.order, evt.ID)
	return evt, nil
}

func (j *journalStub) Get(_ context.Context, id uuid.UUID) (*event.SyncEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	evt, ok := j.events[id]
	if !ok {
		return nil, event.ErrNotFound
	}
	return evt, nil
}

func (j *journalStub) List(context.Context, event.Filter) ([]*event.SyncEvent, error) {
	return nil, nil
}

func (j *journalStub) Replay(_ context.Context, storeID string, afterSeq int64, limit int) ([]*event.SyncEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []*event.SyncEvent
	for _, id := range j.order {
		evt := j.events[id]
		if evt.Seq <= afterSeq {
			continue
		}
		if evt.OriginStoreID != nil && *evt.OriginStoreID == storeID {
			continue
		}
		out = append(out, evt)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (j *journalStub) Dispatchable(_ context.Context, limit int) ([]*event.SyncEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []*event.SyncEvent
	for _, id := range j.order {
		evt := j.events[id]
		if evt.Status == event.StatusPending || evt.Status == event.StatusRetry {
			copied := *evt
			out = append(out, &copied)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (j *journalStub) setStatus(id uuid.UUID, status event.Status, attempts int, at *time.Time, cause string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	evt, ok := j.events[id]
	if !ok {
		return event.ErrNotFound
	}
	evt.Status = status
	evt.AttemptCount = attempts
	evt.LastAttemptAt = at
	evt.Error = cause
	return nil
}

func (j *journalStub) MarkInProgress(_ context.Context, id uuid.UUID, attempts int, at time.Time) error {
	return j.setStatus(id, event.StatusInProgress, attempts, &at, "")
}

func (j *journalStub) MarkCompleted(_ context.Context, id uuid.UUID) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	evt, ok := j.events[id]
	if !ok {
		return event.ErrNotFound
	}
	evt.Status = event.StatusCompleted
	return nil
}

func (j *journalStub) MarkRetry(_ context.Context, id uuid.UUID, attempts int, at time.Time, cause string) error {
	return j.setStatus(id, event.StatusRetry, attempts, &at, cause)
}

func (j *journalStub) MarkFailed(_ context.Context, id uuid.UUID, attempts int, at time.Time, cause string) error {
	return j.setStatus(id, event.StatusFailed, attempts, &at, cause)
}

func (j *journalStub) Retry(_ context.Context, id uuid.UUID) (*event.SyncEvent, error) {
	if err := j.setStatus(id, event.StatusPending, 0, nil, ""); err != nil {
		return nil, err
	}
	return j.Get(context.Background(), id)
}

func (j *journalStub) Abandon(_ context.Context, id uuid.UUID) (*event.SyncEvent, error) {
	now := time.Now().UTC()
	if err := j.setStatus(id, event.StatusFailed, 0, &now, "abandoned by operator"); err != nil {
		return nil, err
	}
	return j.Get(context.Background(), id)
}

// ackLoop consumes a channel's queue and acks every envelope.
func ackLoop(ch *Channel) {
	go func() {
		for env := range ch.Out() {
			ch.Ack(env.Seq)
		}
	}()
}

func newCoordinator(journal *journalStub, reg *Registry, clock Clock) *Coordinator {
	policy := DefaultRetryPolicy()
	return NewCoordinator(journal, reg, policy, clock, 100*time.Millisecond, 5*time.Second, slog.Default())
}

func TestCoordinator_NoSubscribers_CompletesImmediately(t *testing.T) {
	journal := newJournalStub()
	reg := NewRegistry(50, slog.Default())
	coord := newCoordinator(journal, reg, newFakeClock(false))

	evt := journal.add(t, nil)

	require.NoError(t, coord.RunOnce(context.Background()))

	assert.Equal(t, event.StatusCompleted, journal.status(evt.ID))
	assert.Equal(t, 0, journal.attempts(evt.ID))
}

func TestCoordinator_AllAcked_Completes(t *testing.T) {
	journal := newJournalStub()
	reg := NewRegistry(50, slog.Default())
	coord := newCoordinator(journal, reg, newFakeClock(false))

	ackLoop(reg.Register("STORE-A"))
	ackLoop(reg.Register("STORE-B"))

	evt := journal.add(t, nil)

	require.NoError(t, coord.RunOnce(context.Background()))

	assert.Equal(t, event.StatusCompleted, journal.status(evt.ID))
	assert.Equal(t, 1, journal.attempts(evt.ID))
}

func TestCoordinator_OriginExcluded(t *testing.T) {
	journal := newJournalStub()
	reg := NewRegistry(50, slog.Default())
	coord := newCoordinator(journal, reg, newFakeClock(false))

	// Источник подключен, но молчит: конверт ему не шлется, подтверждение
	// не требуется.
	reg.Register("STORE-A")
	ackLoop(reg.Register("STORE-B"))

	origin := "STORE-A"
	evt := journal.add(t, &origin)

	require.NoError(t, coord.RunOnce(context.Background()))

	assert.Equal(t, event.StatusCompleted, journal.status(evt.ID))
}

func TestCoordinator_AckTimeout_RetriesThenFails(t *testing.T) {
	journal := newJournalStub()
	reg := NewRegistry(50, slog.Default())
	clock := newFakeClock(true) // таймаут подтверждения срабатывает сразу
	coord := newCoordinator(journal, reg, clock)

	reg.Register("STORE-A") // подключен, но не подтверждает

	evt := journal.add(t, nil)
	ctx := context.Background()

	// Первые четыре попытки уходят в RETRY с растущим счетчиком.
	for want := 1; want < 5; want++ {
		require.NoError(t, coord.RunOnce(ctx))
		assert.Equal(t, event.StatusRetry, journal.status(evt.ID), "attempt %d", want)
		assert.Equal(t, want, journal.attempts(evt.ID))
		clock.Advance(time.Minute) // дальше любой задержки повтора
	}

	// Пятая попытка исчерпывает политику.
	require.NoError(t, coord.RunOnce(ctx))
	assert.Equal(t, event.StatusFailed, journal.status(evt.ID))
	assert.Equal(t, 5, journal.attempts(evt.ID))

	// Дальнейшие проходы терминальное событие не трогают.
	require.NoError(t, coord.RunOnce(ctx))
	assert.Equal(t, event.StatusFailed, journal.status(evt.ID))
	assert.Equal(t, 5, journal.attempts(evt.ID))
}

func TestCoordinator_RetryWaitsForBackoff(t *testing.T) {
	journal := newJournalStub()
	reg := NewRegistry(50, slog.Default())
	clock := newFakeClock(true)
	coord := newCoordinator(journal, reg, clock)

	reg.Register("STORE-A")

	evt := journal.add(t, nil)
	ctx := context.Background()

	require.NoError(t, coord.RunOnce(ctx))
	require.Equal(t, 1, journal.attempts(evt.ID))

	// Задержка еще не прошла: событие не трогается.
	require.NoError(t, coord.RunOnce(ctx))
	assert.Equal(t, 1, journal.attempts(evt.ID))

	// После выдержки попытка повторяется.
	clock.Advance(2 * time.Second)
	require.NoError(t, coord.RunOnce(ctx))
	assert.Equal(t, 2, journal.attempts(evt.ID))
}

func TestCoordinator_PartialFailure_Retries(t *testing.T) {
	journal := newJournalStub()
	reg := NewRegistry(50, slog.Default())
	clock := newFakeClock(true)
	coord := newCoordinator(journal, reg, clock)

	ackLoop(reg.Register("STORE-A"))
	reg.Register("STORE-B") // не подтверждает

	evt := journal.add(t, nil)

	require.NoError(t, coord.RunOnce(context.Background()))

	// Сбой одного канала не завершает событие.
	assert.Equal(t, event.StatusRetry, journal.status(evt.ID))
	assert.Equal(t, 1, journal.attempts(evt.ID))
}

func TestCoordinator_SeqOrderPreserved(t *testing.T) {
	journal := newJournalStub()
	reg := NewRegistry(50, slog.Default())
	coord := newCoordinator(journal, reg, newFakeClock(false))

	ch := reg.Register("STORE-A")

	var mu sync.Mutex
	var got []int64
	go func() {
		for env := range ch.Out() {
			mu.Lock()
			got = append(got, env.Seq)
			mu.Unlock()
			ch.Ack(env.Seq)
		}
	}()

	first := journal.add(t, nil)
	second := journal.add(t, nil)
	third := journal.add(t, nil)

	require.NoError(t, coord.RunOnce(context.Background()))

	assert.Equal(t, event.StatusCompleted, journal.status(first.ID))
	assert.Equal(t, event.StatusCompleted, journal.status(second.ID))
	assert.Equal(t, event.StatusCompleted, journal.status(third.ID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2, 3}, got)
}
