package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository интерфейс хранилища журнала событий
type Repository interface {
	// Append атомарно добавляет событие и присваивает ему Seq.
	Append(ctx context.Context, evt *SyncEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*SyncEvent, error)
	List(ctx context.Context, filter Filter) ([]*SyncEvent, error)

	// EventsAfter возвращает события для магазина (адресные и широковещательные)
	// с Seq больше указанного, в порядке создания.
	EventsAfter(ctx context.Context, storeID string, afterSeq int64, limit int) ([]*SyncEvent, error)

	// Dispatchable возвращает события в статусах PENDING/RETRY в порядке Seq.
	Dispatchable(ctx context.Context, limit int) ([]*SyncEvent, error)

	// UpdateStatus обновляет состояние доставки. Payload не затрагивается.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, attemptCount int, lastAttemptAt *time.Time, errMsg string) error
}
