package pricing

import (
	"context"
	"time"
)

// Repository интерфейс хранилища цен
type Repository interface {
	// Get возвращает запись о цене товара либо ErrNotFound
	Get(ctx context.Context, productID string) (*PricingRecord, error)

	// GetMany возвращает записи для указанных товаров; отсутствующие
	// товары молча пропускаются
	GetMany(ctx context.Context, productIDs []string) ([]*PricingRecord, error)

	// Upsert заменяет запись целиком. Для новой записи expectedVersion
	// равен нулю. Несовпадение версии дает ErrVersionConflict.
	Upsert(ctx context.Context, rec *PricingRecord, expectedVersion int) error

	// TouchSynced обновляет отметку синхронизации без смены версии
	TouchSynced(ctx context.Context, productID string, syncedAt time.Time) error
}
