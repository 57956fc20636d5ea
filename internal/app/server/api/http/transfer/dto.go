package transfer

import (
	"time"

	"storesync/internal/domain/transfer"

	"github.com/shopspring/decimal"
)

type createInput struct {
	Body createRequest
}

type createRequest struct {
	FromStoreID string        `json:"from_store_id" minLength:"1" doc:"Код магазина-отправителя"`
	ToStoreID   string        `json:"to_store_id" minLength:"1" doc:"Код магазина-получателя"`
	Priority    string        `json:"priority,omitempty" enum:"LOW,NORMAL,HIGH,URGENT" doc:"Приоритет заявки"`
	Items       []itemRequest `json:"items" minItems:"1"`
	RequestedBy string        `json:"requested_by" minLength:"1" doc:"Кто запрашивает перемещение"`
	Notes       string        `json:"notes,omitempty"`
	Submit      bool          `json:"submit,omitempty" doc:"Сразу отправить на согласование"`
}

type itemRequest struct {
	ProductID string          `json:"product_id" minLength:"1"`
	Quantity  int             `json:"quantity" minimum:"1"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type transferOutput struct {
	Body *transfer.TransferRequest
}

type getInput struct {
	ID string `path:"id" format:"uuid" doc:"Идентификатор заявки"`
}

type listInput struct {
	StoreID string `query:"store" doc:"Отправитель или получатель"`
	Status  string `query:"status" doc:"Статус заявки"`
	Limit   int    `query:"limit" doc:"Размер страницы"`
	Offset  int    `query:"offset"`
}

type listOutput struct {
	Body []*transfer.TransferRequest
}

type approveInput struct {
	ID   string `path:"id" format:"uuid"`
	Body approveRequest
}

type approveRequest struct {
	Actor           string                  `json:"actor" minLength:"1" doc:"Кто согласует"`
	ExpectedVersion int                     `json:"expected_version" minimum:"1"`
	Items           []transfer.ApprovedItem `json:"items" minItems:"1" doc:"Согласованные количества по позициям"`
}

type rejectInput struct {
	ID   string `path:"id" format:"uuid"`
	Body rejectRequest
}

type rejectRequest struct {
	Actor           string `json:"actor" minLength:"1"`
	ExpectedVersion int    `json:"expected_version" minimum:"1"`
	Reason          string `json:"reason" minLength:"1" doc:"Причина отклонения"`
}

type modificationInput struct {
	ID   string `path:"id" format:"uuid"`
	Body modificationRequest
}

type modificationRequest struct {
	Actor   string `json:"actor" minLength:"1"`
	Message string `json:"message" minLength:"1" doc:"Замечания для запрашивающего"`
}

type statusInput struct {
	ID   string `path:"id" format:"uuid"`
	Body statusRequest
}

type statusRequest struct {
	Target          string                  `json:"target" minLength:"1" doc:"Целевой статус"`
	Actor           string                  `json:"actor" minLength:"1"`
	ExpectedVersion int                     `json:"expected_version" minimum:"1"`
	Reason          string                  `json:"reason,omitempty" doc:"Обязательна для CANCELLED"`
	Location        string                  `json:"location,omitempty" doc:"Точка трекинг-истории"`
	Notes           string                  `json:"notes,omitempty"`
	ReceivedItems   []transfer.ReceivedItem `json:"received_items,omitempty" doc:"Принятые количества, для RECEIVED"`
}

type trackingInput struct {
	ID   string `path:"id" format:"uuid"`
	Body trackingRequest
}

type trackingRequest struct {
	TrackingNumber    string     `json:"tracking_number" minLength:"1"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ExpectedVersion   int        `json:"expected_version" minimum:"1"`
}

type statusOutput struct {
	Body statusResponse
}

type statusResponse struct {
	Status string `json:"status"`
}
