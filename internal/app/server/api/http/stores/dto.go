package stores

import "storesync/internal/domain/store"

type provisionInput struct {
	Body provisionRequest
}

type provisionRequest struct {
	Code     string `json:"code" minLength:"1" doc:"Уникальный код магазина"`
	Name     string `json:"name" minLength:"1"`
	Location string `json:"location,omitempty"`
}

type storeOutput struct {
	Body *store.Store
}

type listInput struct {
	ActiveOnly bool `query:"active" doc:"Только действующие магазины"`
}

type listOutput struct {
	Body []*store.Store
}

type codeInput struct {
	Code string `path:"code" doc:"Код магазина"`
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
