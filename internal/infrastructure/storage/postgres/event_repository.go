package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
)

// EventRepository реализация журнала событий для PostgreSQL.
// Seq присваивается последовательностью БД, payload после вставки
// не обновляется.
type EventRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewEventRepository создает репозиторий журнала событий
func NewEventRepository(pool *pgxpool.Pool, log *slog.Logger) *EventRepository {
	return &EventRepository{
		pool: pool,
		log:  log.With("component", "event_repository"),
	}
}

const eventColumns = `id, seq, type, entity_type, entity_id, origin_store_id,
	       payload, status, created_at, last_attempt_at, attempt_count, error`

// Append добавляет событие; seq присваивает база
func (r *EventRepository) Append(ctx context.Context, evt *event.SyncEvent) error {
	const query = `
		INSERT INTO sync_events (id, type, entity_type, entity_id, origin_store_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`

	err := r.pool.QueryRow(ctx, query,
		evt.ID, evt.Type, evt.EntityType, evt.EntityID, evt.OriginStoreID,
		evt.Payload, evt.Status, evt.CreatedAt,
	).Scan(&evt.Seq)

	if err != nil {
		r.log.Error("failed to append event",
			"event_id", evt.ID, "type", evt.Type, "error", err)
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}

// GetByID возвращает событие по идентификатору
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.SyncEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM sync_events WHERE id = $1`

	evt, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		r.log.Error("failed to get event", "event_id", id, "error", err)
		return nil, fmt.Errorf("get event: %w", err)
	}

	return evt, nil
}

// List возвращает события по фильтру в порядке убывания Seq
func (r *EventRepository) List(ctx context.Context, filter event.Filter) ([]*event.SyncEvent, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, cond+" $"+strconv.Itoa(len(args)))
	}

	if filter.Status != "" {
		add("status =", filter.Status)
	}
	if filter.Type != "" {
		add("type =", filter.Type)
	}
	if filter.EntityType != "" {
		add("entity_type =", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id =", filter.EntityID)
	}
	if filter.StoreID != "" {
		add("origin_store_id =", filter.StoreID)
	}
	if filter.Since != nil {
		add("created_at >=", *filter.Since)
	}

	query := `SELECT ` + eventColumns + ` FROM sync_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list events", "error", err)
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventsAfter возвращает события магазина после контрольной точки:
// широковещательные и чужие адресные, в порядке Seq.
func (r *EventRepository) EventsAfter(ctx context.Context, storeID string, afterSeq int64, limit int) ([]*event.SyncEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM sync_events
		WHERE seq > $1
		  AND (origin_store_id IS NULL OR origin_store_id <> $2)
		ORDER BY seq ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, afterSeq, storeID, limit)
	if err != nil {
		r.log.Error("failed to query events after checkpoint",
			"store_id", storeID, "after_seq", afterSeq, "error", err)
		return nil, fmt.Errorf("events after: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Dispatchable возвращает события, ожидающие доставки, в порядке Seq
func (r *EventRepository) Dispatchable(ctx context.Context, limit int) ([]*event.SyncEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM sync_events
		WHERE status IN ($1, $2)
		ORDER BY seq ASC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, event.StatusPending, event.StatusRetry, limit)
	if err != nil {
		r.log.Error("failed to query dispatchable events", "error", err)
		return nil, fmt.Errorf("dispatchable events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// UpdateStatus обновляет состояние доставки события
func (r *EventRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status event.Status, attemptCount int, lastAttemptAt *time.Time, errMsg string) error {
	const query = `
		UPDATE sync_events
		SET status = $1, attempt_count = $2, last_attempt_at = $3, error = $4
		WHERE id = $5`

	tag, err := r.pool.Exec(ctx, query, status, attemptCount, lastAttemptAt, errMsg, id)
	if err != nil {
		r.log.Error("failed to update event status",
			"event_id", id, "status", status, "error", err)
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return event.ErrNotFound
	}

	return nil
}

func scanEvent(row pgx.Row) (*event.SyncEvent, error) {
	var evt event.SyncEvent
	err := row.Scan(
		&evt.ID,
		&evt.Seq,
		&evt.Type,
		&evt.EntityType,
		&evt.EntityID,
		&evt.OriginStoreID,
		&evt.Payload,
		&evt.Status,
		&evt.CreatedAt,
		&evt.LastAttemptAt,
		&evt.AttemptCount,
		&evt.Error,
	)
	if err != nil {
		return nil, err
	}
	return &evt, nil
}

func scanEvents(rows pgx.Rows) ([]*event.SyncEvent, error) {
	var events []*event.SyncEvent
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
