package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
	"storesync/internal/domain/notification"
)

// Servicer интерфейс сервиса цен
type Servicer interface {
	Get(ctx context.Context, productID string) (*PricingRecord, error)

	// UpdatePricing заменяет запись о цене целиком и публикует факт
	// PRICE_UPDATED. Разброс цен выше порога дает уведомление, не ошибку.
	UpdatePricing(ctx context.Context, req UpdateRequest) (*PricingRecord, error)

	// SyncPrices повторно публикует PRICE_UPDATED для сохраненных записей,
	// обновляя только отметку синхронизации
	SyncPrices(ctx context.Context, productIDs []string) (int, error)
}

// Service сервис цен
type Service struct {
	repo             Repository
	events           event.Recorder
	notifier         notification.Notifier
	varianceAlertPct decimal.Decimal
	log              *slog.Logger
}

// NewService создает сервис цен
func NewService(repo Repository, events event.Recorder, notifier notification.Notifier, varianceAlertPct float64, log *slog.Logger) *Service {
	return &Service{
		repo:             repo,
		events:           events,
		notifier:         notifier,
		varianceAlertPct: decimal.NewFromFloat(varianceAlertPct),
		log:              log.With("component", "pricing_service"),
	}
}

// Get возвращает запись о цене товара
func (s *Service) Get(ctx context.Context, productID string) (*PricingRecord, error) {
	rec, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get pricing: %w", err)
	}
	return rec, nil
}

// UpdatePricing заменяет запись о цене целиком
func (s *Service) UpdatePricing(ctx context.Context, req UpdateRequest) (*PricingRecord, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &PricingRecord{
		ProductID:        req.ProductID,
		BasePrice:        req.BasePrice,
		StoreAdjustments: req.StoreAdjustments,
		EffectiveDate:    req.EffectiveDate,
		Version:          req.ExpectedVersion + 1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if rec.EffectiveDate.IsZero() {
		rec.EffectiveDate = now
	}

	prev, err := s.repo.Get(ctx, req.ProductID)
	switch {
	case err == nil:
		if prev.Version != req.ExpectedVersion {
			return nil, fmt.Errorf("%w: expected %d, current %d", ErrVersionConflict, req.ExpectedVersion, prev.Version)
		}
		rec.CreatedAt = prev.CreatedAt
	case errors.Is(err, ErrNotFound):
		if req.ExpectedVersion != 0 {
			return nil, fmt.Errorf("%w: expected %d, record does not exist", ErrVersionConflict, req.ExpectedVersion)
		}
	default:
		return nil, fmt.Errorf("get pricing: %w", err)
	}

	// Write-ahead: сначала факт, затем запись.
	if err := s.appendPriceEvent(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, rec, req.ExpectedVersion); err != nil {
		return nil, fmt.Errorf("upsert pricing: %w", err)
	}

	if variance := rec.Variance(); variance.GreaterThan(s.varianceAlertPct) {
		s.notifier.Notify(ctx, "pricing",
			fmt.Sprintf("price variance %s%% for product %s exceeds threshold %s%%",
				variance, rec.ProductID, s.varianceAlertPct))
	}

	s.log.Info("pricing updated",
		"product_id", rec.ProductID, "base_price", rec.BasePrice,
		"adjustments", len(rec.StoreAdjustments), "version", rec.Version)

	return rec, nil
}

// SyncPrices повторно публикует факты о ценах. Возвращает число
// обработанных товаров.
func (s *Service) SyncPrices(ctx context.Context, productIDs []string) (int, error) {
	if len(productIDs) == 0 {
		return 0, &ValidationError{Field: "product_ids", Message: "must not be empty"}
	}

	records, err := s.repo.GetMany(ctx, productIDs)
	if err != nil {
		return 0, fmt.Errorf("get pricing records: %w", err)
	}

	now := time.Now().UTC()
	synced := 0
	for _, rec := range records {
		rec.SyncedAt = &now
		if err := s.appendPriceEvent(ctx, rec); err != nil {
			return synced, err
		}
		if err := s.repo.TouchSynced(ctx, rec.ProductID, now); err != nil {
			return synced, fmt.Errorf("touch synced: %w", err)
		}
		synced++
	}

	s.log.Info("pricing sync requested", "requested", len(productIDs), "synced", synced)
	return synced, nil
}

// appendPriceEvent добавляет факт PRICE_UPDATED с полным снимком записи.
// Поправки адресные, поэтому факт широковещательный: каждый магазин сам
// выбирает свою цену из снимка.
func (s *Service) appendPriceEvent(ctx context.Context, rec *PricingRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pricing snapshot: %w", err)
	}

	if _, err := s.events.Append(ctx, event.AppendRequest{
		Type:       event.TypePriceUpdated,
		EntityType: "pricing",
		EntityID:   rec.ProductID,
		Payload:    payload,
	}); err != nil {
		return fmt.Errorf("append pricing event: %w", err)
	}
	return nil
}

func validateUpdate(req UpdateRequest) error {
	if req.ProductID == "" {
		return &ValidationError{Field: "product_id", Message: "must not be empty"}
	}
	if !req.BasePrice.IsPositive() {
		return &ValidationError{Field: "base_price", Message: "must be positive"}
	}

	seen := make(map[string]struct{}, len(req.StoreAdjustments))
	for _, adj := range req.StoreAdjustments {
		if adj.StoreID == "" {
			return &ValidationError{Field: "store_adjustments", Message: "store id must not be empty"}
		}
		if _, dup := seen[adj.StoreID]; dup {
			return &ValidationError{Field: "store_adjustments", Message: "duplicate adjustment for store " + adj.StoreID}
		}
		seen[adj.StoreID] = struct{}{}

		if adj.AdjustmentPercentage.LessThan(MinAdjustmentPct) || adj.AdjustmentPercentage.GreaterThan(MaxAdjustmentPct) {
			return &ValidationError{
				Field: "store_adjustments",
				Message: fmt.Sprintf("adjustment %s%% for store %s is outside [%s, %s]",
					adj.AdjustmentPercentage, adj.StoreID, MinAdjustmentPct, MaxAdjustmentPct),
			}
		}
	}
	return nil
}
