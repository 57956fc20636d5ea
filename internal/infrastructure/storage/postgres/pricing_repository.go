package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/pricing"
)

// PricingRepository реализация хранилища цен для PostgreSQL.
// Поправки по магазинам хранятся как JSONB и заменяются целиком.
type PricingRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPricingRepository создает репозиторий цен
func NewPricingRepository(pool *pgxpool.Pool, log *slog.Logger) *PricingRepository {
	return &PricingRepository{
		pool: pool,
		log:  log.With("component", "pricing_repository"),
	}
}

const pricingColumns = `product_id, base_price, store_adjustments, effective_date,
	       synced_at, version, created_at, updated_at`

// Get возвращает запись о цене товара
func (r *PricingRepository) Get(ctx context.Context, productID string) (*pricing.PricingRecord, error) {
	query := `SELECT ` + pricingColumns + ` FROM pricing_records WHERE product_id = $1`

	rec, err := scanPricing(r.pool.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrNotFound
		}
		r.log.Error("failed to get pricing record", "product_id", productID, "error", err)
		return nil, fmt.Errorf("get pricing record: %w", err)
	}

	return rec, nil
}

// GetMany возвращает записи для указанных товаров; отсутствующие пропускаются
func (r *PricingRepository) GetMany(ctx context.Context, productIDs []string) ([]*pricing.PricingRecord, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(productIDs))
	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	query := `SELECT ` + pricingColumns + ` FROM pricing_records
		WHERE product_id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY product_id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to query pricing records", "error", err)
		return nil, fmt.Errorf("query pricing records: %w", err)
	}
	defer rows.Close()

	var records []*pricing.PricingRecord
	for rows.Next() {
		rec, err := scanPricing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing records: %w", err)
	}

	return records, nil
}

// Upsert заменяет запись целиком при совпадении версии
func (r *PricingRepository) Upsert(ctx context.Context, rec *pricing.PricingRecord, expectedVersion int) error {
	const query = `
		INSERT INTO pricing_records
			(product_id, base_price, store_adjustments, effective_date, synced_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id) DO UPDATE SET
			base_price = EXCLUDED.base_price,
			store_adjustments = EXCLUDED.store_adjustments,
			effective_date = EXCLUDED.effective_date,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at
		WHERE pricing_records.version = $9`

	adjustments, err := json.Marshal(rec.StoreAdjustments)
	if err != nil {
		return fmt.Errorf("marshal adjustments: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query,
		rec.ProductID, rec.BasePrice, adjustments, rec.EffectiveDate,
		rec.SyncedAt, rec.Version, rec.CreatedAt, rec.UpdatedAt,
		expectedVersion,
	)
	if err != nil {
		r.log.Error("failed to upsert pricing record", "product_id", rec.ProductID, "error", err)
		return fmt.Errorf("upsert pricing record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pricing.ErrVersionConflict
	}

	return nil
}

// TouchSynced выставляет отметку синхронизации, версия не меняется
func (r *PricingRepository) TouchSynced(ctx context.Context, productID string, syncedAt time.Time) error {
	const query = `
		UPDATE pricing_records
		SET synced_at = $1
		WHERE product_id = $2`

	tag, err := r.pool.Exec(ctx, query, syncedAt, productID)
	if err != nil {
		r.log.Error("failed to touch pricing record", "product_id", productID, "error", err)
		return fmt.Errorf("touch pricing record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pricing.ErrNotFound
	}

	return nil
}

func scanPricing(row pgx.Row) (*pricing.PricingRecord, error) {
	var (
		rec         pricing.PricingRecord
		adjustments []byte
	)

	err := row.Scan(
		&rec.ProductID,
		&rec.BasePrice,
		&adjustments,
		&rec.EffectiveDate,
		&rec.SyncedAt,
		&rec.Version,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(adjustments, &rec.StoreAdjustments); err != nil {
		return nil, fmt.Errorf("unmarshal adjustments: %w", err)
	}

	return &rec, nil
}
