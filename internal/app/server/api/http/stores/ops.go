package stores

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) provisionOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-provision",
		Method:      http.MethodPost,
		Path:        "/api/v1/stores",
		Summary:     "Зарегистрировать магазин",
		Description: "Регистрирует магазин и фиксирует его контрольную точку: исторические события до регистрации магазину не доставляются.",
		Tags:        []string{"stores"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores",
		Summary:     "Список магазинов",
		Tags:        []string{"stores"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/{code}",
		Summary:     "Получить магазин",
		Tags:        []string{"stores"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deactivateOp() huma.Operation {
	return huma.Operation{
		OperationID: "stores-deactivate",
		Method:      http.MethodDelete,
		Path:        "/api/v1/stores/{code}",
		Summary:     "Вывести магазин из эксплуатации",
		Description: "Магазин деактивируется, запись и его история сохраняются.",
		Tags:        []string{"stores"},
		Middlewares: h.middleware,
	}
}
