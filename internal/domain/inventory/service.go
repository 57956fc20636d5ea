package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
)

// Servicer интерфейс сервиса остатков
type Servicer interface {
	// Available возвращает доступный остаток товара в магазине.
	// Отсутствие записи трактуется как нулевой остаток.
	Available(ctx context.Context, storeID, productID string) (int, error)

	ListByStore(ctx context.Context, storeID string) ([]*StockLevel, error)

	// Adjust изменяет остаток и публикует факт INVENTORY_UPDATED
	Adjust(ctx context.Context, storeID, productID string, delta int, reason string) (*StockLevel, error)
}

// Service сервис остатков
type Service struct {
	repo   Repository
	events event.Recorder
	log    *slog.Logger
}

// NewService создает сервис остатков
func NewService(repo Repository, events event.Recorder, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		log:    log.With("component", "inventory_service"),
	}
}

// Available возвращает доступный остаток
func (s *Service) Available(ctx context.Context, storeID, productID string) (int, error) {
	level, err := s.repo.Get(ctx, storeID, productID)
	if err != nil {
		if err == ErrNotFound {
			return 0, nil
		}
		return 0, fmt.Errorf("get stock level: %w", err)
	}
	return level.Quantity, nil
}

// ListByStore возвращает остатки магазина
func (s *Service) ListByStore(ctx context.Context, storeID string) ([]*StockLevel, error) {
	levels, err := s.repo.ListByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	return levels, nil
}

// Adjust изменяет остаток. Сначала фиксируется новое значение, затем
// в журнал добавляется факт с полным снимком остатка — потребители
// применяют замену целиком, а не дельту.
func (s *Service) Adjust(ctx context.Context, storeID, productID string, delta int, reason string) (*StockLevel, error) {
	level, err := s.repo.Adjust(ctx, storeID, productID, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	payload, err := json.Marshal(struct {
		*StockLevel
		Reason string `json:"reason,omitempty"`
	}{level, reason})
	if err != nil {
		return nil, fmt.Errorf("marshal stock payload: %w", err)
	}

	origin := storeID
	if _, err := s.events.Append(ctx, event.AppendRequest{
		Type:          event.TypeInventoryUpdated,
		EntityType:    "stock_level",
		EntityID:      storeID + ":" + productID,
		OriginStoreID: &origin,
		Payload:       payload,
	}); err != nil {
		return nil, fmt.Errorf("append inventory event: %w", err)
	}

	s.log.Debug("stock adjusted",
		"store_id", storeID, "product_id", productID, "delta", delta, "quantity", level.Quantity)

	return level, nil
}
