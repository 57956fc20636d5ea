//ведение сквозного журнала событий синхронизации между магазинами;
//управление межмагазинными перемещениями товара;
//централизованное распространение цен с локальными корректировками;
//доставка событий подключенным магазинам с подтверждением приема.

//POST /api/v1/stores                          # Регистрация магазина
//GET  /api/v1/stores                          # Список магазинов
//POST /api/v1/transfers                       # Создать перемещение (auth магазина)
//POST /api/v1/transfers/{id}/status           # Перевод по жизненному циклу (auth магазина)
//PUT  /api/v1/pricing/{productId}             # Обновить цену (auth магазина)
//GET  /api/v1/sync/events                     # Журнал событий
//GET  /api/v1/stream                          # SSE-поток событий для магазина
//POST /api/v1/stream/ack                      # Подтверждение приема события

package api

import (
	healthAPI "storesync/internal/app/server/api/http/health"
	"storesync/internal/app/server/api/http/middleware"
	"storesync/internal/app/server/api/http/middleware/logger"
	"storesync/internal/app/server/api/http/middleware/storeauth"
	pricingAPI "storesync/internal/app/server/api/http/pricing"
	storesAPI "storesync/internal/app/server/api/http/stores"
	streamAPI "storesync/internal/app/server/api/http/stream"
	eventsAPI "storesync/internal/app/server/api/http/syncevents"
	transferAPI "storesync/internal/app/server/api/http/transfer"
	"storesync/internal/app/server/config"
	"storesync/internal/app/server/dispatch"
	"storesync/internal/domain/event"
	"storesync/internal/domain/inventory"
	"storesync/internal/domain/notification"
	"storesync/internal/domain/pricing"
	"storesync/internal/domain/store"
	"storesync/internal/domain/transfer"
	"storesync/internal/infrastructure/storage/postgres"

	"github.com/bwmarrin/snowflake"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health   *healthAPI.Handler
	Stores   *storesAPI.Handler
	Transfer *transferAPI.Handler
	Pricing  *pricingAPI.Handler
	Events   *eventsAPI.Handler
	Stream   *streamAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register.
// Возвращает также сервис журнала событий: он нужен координатору доставки.
func New(cfg *config.Config, storage *postgres.Storage, registry *dispatch.Registry, log *slog.Logger) (*chi.Mux, event.Servicer, error) {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("Storesync API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"storeID": {Type: "apiKey", In: "header", Name: "X-Store-ID"},
	}

	API := humachi.New(mux, humaConfig)

	h, events, err := handlers(cfg, storage, registry, log)
	if err != nil {
		return nil, nil, err
	}

	h.Health.SetupRoutes(API)
	h.Stores.SetupRoutes(API)
	h.Transfer.SetupRoutes(API)
	h.Pricing.SetupRoutes(API)
	h.Events.SetupRoutes(API)

	// SSE не укладывается в huma-операции, поток регистрируется прямо на mux.
	h.Stream.SetupRoutes(mux)

	return mux, events, nil
}

func handlers(cfg *config.Config, storage *postgres.Storage, registry *dispatch.Registry, log *slog.Logger) (*Handlers, event.Servicer, error) {
	node, err := snowflake.NewNode(cfg.Dispatch.SnowflakeNode)
	if err != nil {
		return nil, nil, err
	}

	eventRepo := postgres.NewEventRepository(storage.Pool(), log)
	eventService := event.NewService(eventRepo, log)

	storeRepo := postgres.NewStoreRepository(storage.Pool(), log)
	storeService := store.NewService(storeRepo, log)

	notifier := notification.NewLogNotifier(log)
	storeAuthMW := storeauth.New(storeService, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	storesHandler := storesAPI.NewHandler(storeService, log, middlewares.GetAllAndClear())

	inventoryRepo := postgres.NewInventoryRepository(storage.Pool(), log)
	inventoryService := inventory.NewService(inventoryRepo, eventService, log)

	transferRepo := postgres.NewTransferRepository(storage.Pool(), log)
	transferService := transfer.NewService(transferRepo, inventoryService, eventService, notifier, node, log)
	middlewares.Add(storeAuthMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	transferHandler := transferAPI.NewHandler(transferService, log, middlewares.GetAllAndClear())

	pricingRepo := postgres.NewPricingRepository(storage.Pool(), log)
	pricingService := pricing.NewService(pricingRepo, eventService, notifier, cfg.Pricing.VarianceAlertPct, log)
	middlewares.Add(storeAuthMW.Middleware())
	middlewares.Add(loggerMW.Middleware())
	pricingHandler := pricingAPI.NewHandler(pricingService, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	eventsHandler := eventsAPI.NewHandler(eventService, log, middlewares.GetAllAndClear())

	streamHandler := streamAPI.NewHandler(eventService, storeService, registry, log)

	return &Handlers{
		Health:   healthHandler,
		Stores:   storesHandler,
		Transfer: transferHandler,
		Pricing:  pricingHandler,
		Events:   eventsHandler,
		Stream:   streamHandler,
	}, eventService, nil
}
