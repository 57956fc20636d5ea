package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/inventory"
)

// InventoryRepository реализация хранилища остатков для PostgreSQL
type InventoryRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewInventoryRepository создает репозиторий остатков
func NewInventoryRepository(pool *pgxpool.Pool, log *slog.Logger) *InventoryRepository {
	return &InventoryRepository{
		pool: pool,
		log:  log.With("component", "inventory_repository"),
	}
}

// Get возвращает остаток товара в магазине
func (r *InventoryRepository) Get(ctx context.Context, storeID, productID string) (*inventory.StockLevel, error) {
	const query = `
		SELECT store_id, product_id, quantity, updated_at, version
		FROM stock_levels
		WHERE store_id = $1 AND product_id = $2`

	var level inventory.StockLevel
	err := r.pool.QueryRow(ctx, query, storeID, productID).Scan(
		&level.StoreID, &level.ProductID, &level.Quantity, &level.UpdatedAt, &level.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, inventory.ErrNotFound
		}
		r.log.Error("failed to get stock level",
			"store_id", storeID, "product_id", productID, "error", err)
		return nil, fmt.Errorf("get stock level: %w", err)
	}

	return &level, nil
}

// ListByStore возвращает остатки магазина
func (r *InventoryRepository) ListByStore(ctx context.Context, storeID string) ([]*inventory.StockLevel, error) {
	const query = `
		SELECT store_id, product_id, quantity, updated_at, version
		FROM stock_levels
		WHERE store_id = $1
		ORDER BY product_id ASC`

	rows, err := r.pool.Query(ctx, query, storeID)
	if err != nil {
		r.log.Error("failed to list stock levels", "store_id", storeID, "error", err)
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()

	var levels []*inventory.StockLevel
	for rows.Next() {
		var level inventory.StockLevel
		if err := rows.Scan(
			&level.StoreID, &level.ProductID, &level.Quantity, &level.UpdatedAt, &level.Version,
		); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels = append(levels, &level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock levels: %w", err)
	}

	return levels, nil
}

// Adjust атомарно изменяет остаток. CHECK-ограничение на неотрицательность
// превращается в доменную ошибку.
func (r *InventoryRepository) Adjust(ctx context.Context, storeID, productID string, delta int) (*inventory.StockLevel, error) {
	const query = `
		INSERT INTO stock_levels (store_id, product_id, quantity, updated_at, version)
		VALUES ($1, $2, $3, NOW(), 1)
		ON CONFLICT (store_id, product_id) DO UPDATE SET
			quantity = stock_levels.quantity + EXCLUDED.quantity,
			updated_at = NOW(),
			version = stock_levels.version + 1
		RETURNING store_id, product_id, quantity, updated_at, version`

	var level inventory.StockLevel
	err := r.pool.QueryRow(ctx, query, storeID, productID, delta).Scan(
		&level.StoreID, &level.ProductID, &level.Quantity, &level.UpdatedAt, &level.Version,
	)
	if err != nil {
		if isCheckViolation(err) {
			return nil, inventory.ErrNegativeQuantity
		}
		r.log.Error("failed to adjust stock level",
			"store_id", storeID, "product_id", productID, "delta", delta, "error", err)
		return nil, fmt.Errorf("adjust stock level: %w", err)
	}

	return &level, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
