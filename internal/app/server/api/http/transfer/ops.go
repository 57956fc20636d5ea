package transfer

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) createOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-create",
		Method:      http.MethodPost,
		Path:        "/api/v1/transfers",
		Summary:     "Создать заявку на перемещение",
		Description: "Создает заявку в статусе DRAFT либо, при submit=true, сразу отправляет на согласование.",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/transfers",
		Summary:     "Список заявок",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/transfers/{id}",
		Summary:     "Получить заявку",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) approveOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-approve",
		Method:      http.MethodPost,
		Path:        "/api/v1/transfers/{id}/approve",
		Summary:     "Согласовать заявку",
		Description: "Согласует количества по позициям с проверкой остатков магазина-отправителя.",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) rejectOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-reject",
		Method:      http.MethodPost,
		Path:        "/api/v1/transfers/{id}/reject",
		Summary:     "Отклонить заявку",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) modificationOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-request-modification",
		Method:      http.MethodPost,
		Path:        "/api/v1/transfers/{id}/modification",
		Summary:     "Запросить доработку заявки",
		Description: "Передает замечания запрашивающему; заявка остается на согласовании.",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-update-status",
		Method:      http.MethodPost,
		Path:        "/api/v1/transfers/{id}/status",
		Summary:     "Перевести заявку в следующий статус",
		Description: "Выполняет переход по графу состояний, включая приемку (RECEIVED).",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) trackingOp() huma.Operation {
	return huma.Operation{
		OperationID: "transfers-update-tracking",
		Method:      http.MethodPut,
		Path:        "/api/v1/transfers/{id}/tracking",
		Summary:     "Обновить номер отслеживания",
		Tags:        []string{"transfers"},
		Middlewares: h.middleware,
	}
}
