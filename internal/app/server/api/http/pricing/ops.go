package pricing

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) getOp() huma.Operation {
	return huma.Operation{
		OperationID: "pricing-get",
		Method:      http.MethodGet,
		Path:        "/api/v1/pricing/{productId}",
		Summary:     "Получить запись о цене товара",
		Tags:        []string{"pricing"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "pricing-update",
		Method:      http.MethodPut,
		Path:        "/api/v1/pricing/{productId}",
		Summary:     "Обновить цену товара",
		Description: "Заменяет запись о цене целиком и публикует факт PRICE_UPDATED для всех магазинов.",
		Tags:        []string{"pricing"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) syncOp() huma.Operation {
	return huma.Operation{
		OperationID: "pricing-sync",
		Method:      http.MethodPost,
		Path:        "/api/v1/pricing/sync",
		Summary:     "Повторно разослать цены",
		Description: "Повторно публикует PRICE_UPDATED для перечисленных товаров без изменения цен.",
		Tags:        []string{"pricing"},
		Middlewares: h.middleware,
	}
}
