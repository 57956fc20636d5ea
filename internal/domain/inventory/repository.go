package inventory

import "context"

// Repository интерфейс хранилища остатков
type Repository interface {
	Get(ctx context.Context, storeID, productID string) (*StockLevel, error)
	ListByStore(ctx context.Context, storeID string) ([]*StockLevel, error)

	// Adjust атомарно изменяет остаток на delta и возвращает новое значение.
	// Отрицательный итог отклоняется с ErrNegativeQuantity.
	Adjust(ctx context.Context, storeID, productID string, delta int) (*StockLevel, error)
}
