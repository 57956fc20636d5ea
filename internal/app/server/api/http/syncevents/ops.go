package syncevents

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-events-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/events",
		Summary:     "Журнал событий синхронизации",
		Description: "Фильтруемый список фактов с числом попыток и последней ошибкой доставки.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) retryOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-events-retry",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/events/{id}/retry",
		Summary:     "Повторить доставку события",
		Description: "Возвращает FAILED-событие в очередь доставки со сброшенным счетчиком попыток.",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) abandonOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-events-abandon",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/events/{id}/abandon",
		Summary:     "Прекратить доставку события",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
