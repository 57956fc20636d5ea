package storeauth

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/store"

	"github.com/danielgtaylor/huma/v2"
)

// StoreAuth middleware для операций, выполняемых от имени магазина.
// Заголовок X-Store-ID обязателен и должен называть активный магазин
// из реестра.
type StoreAuth struct {
	stores store.Servicer
	log    *slog.Logger
}

func New(stores store.Servicer, log *slog.Logger) *StoreAuth {
	return &StoreAuth{
		stores: stores,
		log:    log.With("component", "storeauth_middleware"),
	}
}

type contextKey string

const StoreIDKey contextKey = "storeID"

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *StoreAuth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		code := ctx.Header("X-Store-ID")
		if code == "" {
			a.reject(ctx, http.StatusUnauthorized, "X-Store-ID header is required")
			return
		}

		st, err := a.stores.Get(ctx.Context(), code)
		if err != nil {
			a.log.Warn("unknown store in request", "store_id", code, "error", err)
			a.reject(ctx, http.StatusUnauthorized, "unknown store")
			return
		}
		if !st.Active {
			a.reject(ctx, http.StatusForbidden, "store is deactivated")
			return
		}

		newCtx := context.WithValue(ctx.Context(), StoreIDKey, st.Code)
		next(huma.WithContext(ctx, newCtx))
	}
}

func (a *StoreAuth) reject(ctx huma.Context, status int, message string) {
	ctx.SetStatus(status)
	ctx.SetHeader("Content-Type", "application/json")
	if err := json.NewEncoder(ctx.BodyWriter()).Encode(map[string]string{"error": message}); err != nil {
		a.log.Error("failed to encode rejection", "error", err)
	}
}

// GetStoreID возвращает код магазина, от имени которого выполняется запрос
func GetStoreID(ctx context.Context) (string, bool) {
	code, ok := ctx.Value(StoreIDKey).(string)
	return code, ok
}
