package client

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/app/client/config"
	"storesync/internal/domain/event"
	"storesync/internal/domain/pricing"
	"storesync/internal/domain/store"
	"storesync/internal/domain/transfer"

	"github.com/shopspring/decimal"
)

// App — агент магазина: локальное зеркало данных, HTTP-доступ к узлу
// синхронизации и слушатель потока событий.
type App struct {
	config   *config.Config
	log      *slog.Logger
	api      *httpClient
	mirror   Mirror
	listener *Listener
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	api, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	// Локальное зеркало (SQLite, при недоступности — память)
	var mirror Mirror
	sqliteMirror, err := NewSQLiteMirror(cfg.DataPath)
	if err != nil {
		log.Warn("Не удалось инициализировать SQLite, используем память", "error", err)
		mirror = NewMemoryMirror()
	} else {
		mirror = sqliteMirror
	}

	app := &App{
		config: cfg,
		log:    log,
		api:    api,
		mirror: mirror,
	}

	app.listener = NewListener(api, mirror, cfg.ReconnectBase, cfg.ReconnectMax, log)

	return app, nil
}

// StoreCode возвращает код магазина, от имени которого работает агент
func (a *App) StoreCode() string {
	return a.config.StoreCode
}

// Actor возвращает имя оператора из конфигурации
func (a *App) Actor() string {
	return a.config.Actor
}

// Mirror возвращает локальное зеркало
func (a *App) Mirror() Mirror {
	return a.mirror
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return a.api.HealthCheck(ctx)
}

// Watch подключается к потоку событий и блокируется до отмены контекста
func (a *App) Watch(ctx context.Context, onEvent func(env Envelope)) error {
	if a.config.StoreCode == "" {
		return fmt.Errorf("не задан код магазина (STORE_CODE)")
	}

	a.listener.OnEvent = onEvent
	return a.listener.Run(ctx)
}

// Checkpoint возвращает сохраненную контрольную точку
func (a *App) Checkpoint() (int64, error) {
	return a.mirror.Checkpoint()
}

func (a *App) Close() error {
	return a.mirror.Close()
}

// ==================== Stores ====================

func (a *App) ProvisionStore(ctx context.Context, code, name, location string) (*store.Store, error) {
	return a.api.ProvisionStore(ctx, code, name, location)
}

func (a *App) ListStores(ctx context.Context, activeOnly bool) ([]*store.Store, error) {
	return a.api.ListStores(ctx, activeOnly)
}

// ==================== Transfers ====================

func (a *App) CreateTransfer(ctx context.Context, req transfer.CreateRequest) (*transfer.TransferRequest, error) {
	return a.api.CreateTransfer(ctx, req)
}

func (a *App) GetTransfer(ctx context.Context, id string) (*transfer.TransferRequest, error) {
	return a.api.GetTransfer(ctx, id)
}

func (a *App) ListTransfers(ctx context.Context, storeID, status string) ([]*transfer.TransferRequest, error) {
	return a.api.ListTransfers(ctx, storeID, status)
}

func (a *App) ApproveTransfer(ctx context.Context, id, actor string, expectedVersion int, items []transfer.ApprovedItem) (*transfer.TransferRequest, error) {
	return a.api.ApproveTransfer(ctx, id, actor, expectedVersion, items)
}

func (a *App) RejectTransfer(ctx context.Context, id, actor string, expectedVersion int, reason string) (*transfer.TransferRequest, error) {
	return a.api.RejectTransfer(ctx, id, actor, expectedVersion, reason)
}

func (a *App) RequestModification(ctx context.Context, id, actor, message string) (*transfer.TransferRequest, error) {
	return a.api.RequestModification(ctx, id, actor, message)
}

// MoveTransfer переводит заявку в целевой статус
func (a *App) MoveTransfer(ctx context.Context, id, target, actor string, expectedVersion int, reason, location, notes string, received []transfer.ReceivedItem) (*transfer.TransferRequest, error) {
	return a.api.ChangeTransferStatus(ctx, id, statusChangeRequest{
		Target:          target,
		Actor:           actor,
		ExpectedVersion: expectedVersion,
		Reason:          reason,
		Location:        location,
		Notes:           notes,
		ReceivedItems:   received,
	})
}

func (a *App) SetTracking(ctx context.Context, id, trackingNumber string, estimated *time.Time, expectedVersion int) (*transfer.TransferRequest, error) {
	return a.api.SetTracking(ctx, id, trackingNumber, estimated, expectedVersion)
}

// ==================== Pricing ====================

func (a *App) GetPricing(ctx context.Context, productID string) (*pricing.PricingRecord, error) {
	return a.api.GetPricing(ctx, productID)
}

func (a *App) UpdatePricing(ctx context.Context, productID string, basePrice decimal.Decimal, adjustments []pricing.StoreAdjustment, expectedVersion int) (*pricing.PricingRecord, error) {
	return a.api.UpdatePricing(ctx, productID, basePrice, adjustments, expectedVersion)
}

func (a *App) SyncPricing(ctx context.Context, productIDs []string) (int, error) {
	return a.api.SyncPricing(ctx, productIDs)
}

// ==================== Sync events ====================

func (a *App) ListEvents(ctx context.Context, status string, limit int) ([]*event.SyncEvent, error) {
	return a.api.ListEvents(ctx, status, limit)
}

func (a *App) RetryEvent(ctx context.Context, id string) (*event.SyncEvent, error) {
	return a.api.RetryEvent(ctx, id)
}

func (a *App) AbandonEvent(ctx context.Context, id string) (*event.SyncEvent, error) {
	return a.api.AbandonEvent(ctx, id)
}
