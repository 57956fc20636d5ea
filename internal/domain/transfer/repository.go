package transfer

import (
	"context"

	"github.com/google/uuid"
)

// Repository интерфейс хранилища заявок
type Repository interface {
	Create(ctx context.Context, req *TransferRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*TransferRequest, error)
	List(ctx context.Context, filter Filter) ([]*TransferRequest, error)

	// Update сохраняет заявку при совпадении expectedVersion с текущей
	// версией и увеличивает Version на единицу. Несовпадение дает
	// ErrVersionConflict.
	Update(ctx context.Context, req *TransferRequest, expectedVersion int) error
}
