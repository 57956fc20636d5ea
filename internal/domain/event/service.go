package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Recorder узкий интерфейс для доменных сервисов-производителей фактов.
// Append синхронный: доменное действие считается зафиксированным только
// после успешной записи в журнал (write-ahead семантика).
type Recorder interface {
	Append(ctx context.Context, req AppendRequest) (*SyncEvent, error)
}

// Servicer интерфейс журнала событий
type Servicer interface {
	Recorder

	// Get возвращает событие по идентификатору
	Get(ctx context.Context, id uuid.UUID) (*SyncEvent, error)

	// List возвращает события по фильтру (аудит, операторский экран)
	List(ctx context.Context, filter Filter) ([]*SyncEvent, error)

	// Replay возвращает события магазина после контрольной точки
	Replay(ctx context.Context, storeID string, afterSeq int64, limit int) ([]*SyncEvent, error)

	// Dispatchable возвращает события, ожидающие доставки
	Dispatchable(ctx context.Context, limit int) ([]*SyncEvent, error)

	// Методы машины состояний доставки — вызывает только координатор
	MarkInProgress(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time, cause string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time, cause string) error

	// Retry операторский повторный запуск: FAILED -> PENDING, счетчик попыток
	// сбрасывается
	Retry(ctx context.Context, id uuid.UUID) (*SyncEvent, error)

	// Abandon отменяет дальнейшие попытки доставки: событие переходит в FAILED
	Abandon(ctx context.Context, id uuid.UUID) (*SyncEvent, error)
}

// Service реализация журнала событий
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает сервис журнала событий
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "event_service"),
	}
}

var knownTypes = map[Type]struct{}{
	TypeInventoryUpdated:      {},
	TypePriceUpdated:          {},
	TypeTransferStatusChanged: {},
	TypePromotionUpdated:      {},
	TypeStoreAlert:            {},
	TypeSyncCompleted:         {},
}

// Append добавляет факт в журнал. Событие создается в статусе PENDING.
func (s *Service) Append(ctx context.Context, req AppendRequest) (*SyncEvent, error) {
	if _, ok := knownTypes[req.Type]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}
	if len(req.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if req.EntityType == "" || req.EntityID == "" {
		return nil, fmt.Errorf("%w: entity reference is required", ErrEmptyPayload)
	}

	evt := &SyncEvent{
		ID:            uuid.New(),
		Type:          req.Type,
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		OriginStoreID: req.OriginStoreID,
		Payload:       req.Payload,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.Append(ctx, evt); err != nil {
		return nil, fmt.Errorf("append event: %w", err)
	}

	s.log.Debug("event appended",
		"event_id", evt.ID, "seq", evt.Seq, "type", evt.Type,
		"entity_type", evt.EntityType, "entity_id", evt.EntityID)

	return evt, nil
}

// Get возвращает событие по идентификатору
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*SyncEvent, error) {
	evt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return evt, nil
}

// List возвращает события по фильтру
func (s *Service) List(ctx context.Context, filter Filter) ([]*SyncEvent, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// Replay возвращает события магазина после контрольной точки в порядке
// создания. Порядок в пределах одной сущности совпадает с порядком Seq.
func (s *Service) Replay(ctx context.Context, storeID string, afterSeq int64, limit int) ([]*SyncEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	events, err := s.repo.EventsAfter(ctx, storeID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("replay events: %w", err)
	}
	return events, nil
}

// Dispatchable возвращает события, ожидающие доставки
func (s *Service) Dispatchable(ctx context.Context, limit int) ([]*SyncEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	events, err := s.repo.Dispatchable(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("dispatchable events: %w", err)
	}
	return events, nil
}

// MarkInProgress помечает начало попытки доставки
func (s *Service) MarkInProgress(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time) error {
	return s.repo.UpdateStatus(ctx, id, StatusInProgress, attemptCount, &at, "")
}

// MarkCompleted помечает событие доставленным всем требуемым каналам
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusCompleted, 0, nil, "")
}

// MarkRetry помечает неудачную попытку с ожиданием повторной доставки
func (s *Service) MarkRetry(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time, cause string) error {
	return s.repo.UpdateStatus(ctx, id, StatusRetry, attemptCount, &at, cause)
}

// MarkFailed помечает событие требующим ручного вмешательства. FAILED —
// видимое терминальное состояние, событие не удаляется и не скрывается.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time, cause string) error {
	return s.repo.UpdateStatus(ctx, id, StatusFailed, attemptCount, &at, cause)
}

// Retry возвращает FAILED-событие в очередь доставки
func (s *Service) Retry(ctx context.Context, id uuid.UUID) (*SyncEvent, error) {
	evt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if evt.Status != StatusFailed {
		return nil, fmt.Errorf("%w: status %s", ErrNotRetryable, evt.Status)
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusPending, 0, nil, ""); err != nil {
		return nil, fmt.Errorf("reset event: %w", err)
	}

	s.log.Info("event requeued by operator", "event_id", id)

	evt.Status = StatusPending
	evt.AttemptCount = 0
	evt.Error = ""
	return evt, nil
}

// Abandon прекращает попытки доставки события
func (s *Service) Abandon(ctx context.Context, id uuid.UUID) (*SyncEvent, error) {
	evt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if evt.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrAlreadyFinal, evt.Status)
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, StatusFailed, evt.AttemptCount, &now, "abandoned by operator"); err != nil {
		return nil, fmt.Errorf("abandon event: %w", err)
	}

	s.log.Info("event abandoned by operator", "event_id", id)

	evt.Status = StatusFailed
	evt.Error = "abandoned by operator"
	return evt, nil
}
