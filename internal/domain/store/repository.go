package store

import "context"

// Repository интерфейс хранилища магазинов
type Repository interface {
	// Create регистрирует магазин и фиксирует его контрольную точку
	// (текущий максимальный Seq журнала событий).
	Create(ctx context.Context, st *Store) error
	GetByCode(ctx context.Context, code string) (*Store, error)
	List(ctx context.Context, activeOnly bool) ([]*Store, error)
	Deactivate(ctx context.Context, code string) error
}
