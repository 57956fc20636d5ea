package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
)

// Coordinator вычитывает из журнала события, ожидающие доставки, и веерно
// рассылает их по каналам подключенных магазинов. Событие завершается,
// только когда каждый канал, видимый на момент рассылки, подтвердил
// получение. Сбой любого канала переводит событие в повторную доставку
// с экспоненциальной задержкой; исчерпание попыток — в FAILED.
type Coordinator struct {
	events     event.Servicer
	registry   *Registry
	policy     RetryPolicy
	clock      Clock
	poll       time.Duration
	ackTimeout time.Duration
	batchSize  int
	log        *slog.Logger

	kick chan struct{}
}

// NewCoordinator создает координатор доставки
func NewCoordinator(events event.Servicer, registry *Registry, policy RetryPolicy, clock Clock, poll, ackTimeout time.Duration, log *slog.Logger) *Coordinator {
	return &Coordinator{
		events:     events,
		registry:   registry,
		policy:     policy,
		clock:      clock,
		poll:       poll,
		ackTimeout: ackTimeout,
		batchSize:  100,
		log:        log.With("component", "dispatch_coordinator"),
		kick:       make(chan struct{}, 1),
	}
}

// Kick будит координатор после добавления нового факта, не дожидаясь тика
func (c *Coordinator) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run крутит цикл доставки до отмены контекста
func (c *Coordinator) Run(ctx context.Context) {
	c.log.Info("dispatch coordinator started", "poll_interval", c.poll, "max_attempts", c.policy.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("dispatch coordinator stopped")
			return
		case <-c.kick:
		case <-c.clock.After(c.poll):
		}

		if err := c.RunOnce(ctx); err != nil {
			c.log.Error("dispatch pass failed", "error", err)
		}
	}
}

// RunOnce выполняет один проход доставки: загружает готовые события
// и рассылает их по очереди в порядке Seq.
func (c *Coordinator) RunOnce(ctx context.Context) error {
	events, err := c.events.Dispatchable(ctx, c.batchSize)
	if err != nil {
		return fmt.Errorf("load dispatchable events: %w", err)
	}

	for _, evt := range events {
		if !c.due(evt) {
			continue
		}
		if err := c.deliver(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// due сообщает, наступило ли время доставки: PENDING доставляется сразу,
// RETRY ждет свою задержку.
func (c *Coordinator) due(evt *event.SyncEvent) bool {
	if evt.Status != event.StatusRetry {
		return true
	}
	if evt.LastAttemptAt == nil {
		return true
	}
	return !c.clock.Now().Before(evt.LastAttemptAt.Add(c.policy.Delay(evt.AttemptCount)))
}

// deliver рассылает одно событие всем каналам, кроме канала магазина-источника
func (c *Coordinator) deliver(ctx context.Context, evt *event.SyncEvent) error {
	channels := c.targets(evt)

	// Без подключенных получателей доставлять некому: событие завершено.
	if len(channels) == 0 {
		if err := c.events.MarkCompleted(ctx, evt.ID); err != nil {
			return fmt.Errorf("complete event %s: %w", evt.ID, err)
		}
		return nil
	}

	attempt := evt.AttemptCount + 1
	now := c.clock.Now()
	if err := c.events.MarkInProgress(ctx, evt.ID, attempt, now); err != nil {
		return fmt.Errorf("mark event %s in progress: %w", evt.ID, err)
	}

	env := NewEnvelope(evt)

	var wg sync.WaitGroup
	errs := make([]error, len(channels))
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch *Channel) {
			defer wg.Done()
			errs[i] = c.sendAndAwait(ctx, ch, env)
		}(i, ch)
	}
	wg.Wait()

	var firstErr error
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("store %s: %w", channels[i].StoreID(), err)
			}
		}
	}

	if failed == 0 {
		if err := c.events.MarkCompleted(ctx, evt.ID); err != nil {
			return fmt.Errorf("complete event %s: %w", evt.ID, err)
		}
		c.log.Debug("event delivered", "event_id", evt.ID, "seq", evt.Seq, "stores", len(channels), "attempt", attempt)
		return nil
	}

	cause := firstErr.Error()
	if c.policy.Exhausted(attempt) {
		if err := c.events.MarkFailed(ctx, evt.ID, attempt, now, cause); err != nil {
			return fmt.Errorf("fail event %s: %w", evt.ID, err)
		}
		c.log.Warn("event delivery failed permanently",
			"event_id", evt.ID, "seq", evt.Seq, "attempts", attempt, "cause", cause)
		return nil
	}

	if err := c.events.MarkRetry(ctx, evt.ID, attempt, now, cause); err != nil {
		return fmt.Errorf("retry event %s: %w", evt.ID, err)
	}
	c.log.Debug("event delivery retried",
		"event_id", evt.ID, "seq", evt.Seq, "attempt", attempt,
		"failed_stores", failed, "next_delay", c.policy.Delay(attempt))
	return nil
}

// targets возвращает каналы-получатели: все подключенные магазины, кроме
// источника события.
func (c *Coordinator) targets(evt *event.SyncEvent) []*Channel {
	snapshot := c.registry.Snapshot()
	if evt.OriginStoreID == nil {
		return snapshot
	}

	channels := snapshot[:0]
	for _, ch := range snapshot {
		if ch.StoreID() != *evt.OriginStoreID {
			channels = append(channels, ch)
		}
	}
	return channels
}

func (c *Coordinator) sendAndAwait(ctx context.Context, ch *Channel, env Envelope) error {
	ack, err := ch.Send(env)
	if err != nil {
		return err
	}

	select {
	case <-ack:
		return nil
	case <-ch.Done():
		return ErrChannelClosed
	case <-c.clock.After(c.ackTimeout):
		return fmt.Errorf("ack timeout after %s", c.ackTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
