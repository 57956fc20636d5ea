package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/store"
)

// StoreRepository реализация реестра магазинов для PostgreSQL
type StoreRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewStoreRepository создает репозиторий магазинов
func NewStoreRepository(pool *pgxpool.Pool, log *slog.Logger) *StoreRepository {
	return &StoreRepository{
		pool: pool,
		log:  log.With("component", "store_repository"),
	}
}

// Create регистрирует магазин. Контрольная точка фиксируется в той же
// команде: текущий максимальный seq журнала на момент вставки.
func (r *StoreRepository) Create(ctx context.Context, st *store.Store) error {
	const query = `
		INSERT INTO stores (code, name, location, active, provisioned_seq, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE((SELECT MAX(seq) FROM sync_events), 0), $5, $6)
		RETURNING provisioned_seq`

	err := r.pool.QueryRow(ctx, query,
		st.Code, st.Name, st.Location, st.Active, st.CreatedAt, st.UpdatedAt,
	).Scan(&st.ProvisionedSeq)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		r.log.Error("failed to create store", "code", st.Code, "error", err)
		return fmt.Errorf("create store: %w", err)
	}

	return nil
}

// GetByCode возвращает магазин по коду
func (r *StoreRepository) GetByCode(ctx context.Context, code string) (*store.Store, error) {
	const query = `
		SELECT code, name, location, active, provisioned_seq, created_at, updated_at
		FROM stores
		WHERE code = $1`

	var st store.Store
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&st.Code, &st.Name, &st.Location, &st.Active,
		&st.ProvisionedSeq, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		r.log.Error("failed to get store", "code", code, "error", err)
		return nil, fmt.Errorf("get store: %w", err)
	}

	return &st, nil
}

// List возвращает магазины по коду в алфавитном порядке
func (r *StoreRepository) List(ctx context.Context, activeOnly bool) ([]*store.Store, error) {
	query := `
		SELECT code, name, location, active, provisioned_seq, created_at, updated_at
		FROM stores`
	if activeOnly {
		query += " WHERE active = true"
	}
	query += " ORDER BY code ASC"

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.log.Error("failed to list stores", "error", err)
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []*store.Store
	for rows.Next() {
		var st store.Store
		if err := rows.Scan(
			&st.Code, &st.Name, &st.Location, &st.Active,
			&st.ProvisionedSeq, &st.CreatedAt, &st.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stores: %w", err)
	}

	return stores, nil
}

// Deactivate выключает магазин, запись остается
func (r *StoreRepository) Deactivate(ctx context.Context, code string) error {
	const query = `
		UPDATE stores
		SET active = false, updated_at = NOW()
		WHERE code = $1`

	tag, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		r.log.Error("failed to deactivate store", "code", code, "error", err)
		return fmt.Errorf("deactivate store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}
