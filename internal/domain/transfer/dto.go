package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateRequest запрос на создание заявки
type CreateRequest struct {
	FromStoreID string        `json:"from_store_id"`
	ToStoreID   string        `json:"to_store_id"`
	Priority    Priority      `json:"priority,omitempty"`
	Items       []ItemRequest `json:"items"`
	RequestedBy string        `json:"requested_by"`
	Notes       string        `json:"notes,omitempty"`
	Submit      bool          `json:"submit,omitempty"` // сразу отправить на согласование
}

// ItemRequest позиция создаваемой заявки
type ItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// ApprovedItem согласованное количество по позиции. Отличие от
// запрошенного количества фиксируется, причина опциональна.
type ApprovedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason,omitempty"`
}

// ReceivedItem фактически принятое количество по позиции
type ReceivedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// TransitionRequest запрос на переход состояния.
// ExpectedVersion обязателен: несовпадение версии дает конфликт,
// а не молчаливую перезапись.
type TransitionRequest struct {
	TransferID      uuid.UUID      `json:"transfer_id"`
	Target          Status         `json:"target"`
	Actor           string         `json:"actor"`
	ExpectedVersion int            `json:"expected_version"`
	Reason          string         `json:"reason,omitempty"`   // REJECTED, CANCELLED
	Location        string         `json:"location,omitempty"` // трекинг-история
	Notes           string         `json:"notes,omitempty"`
	ApprovedItems   []ApprovedItem `json:"approved_items,omitempty"` // APPROVED
	ReceivedItems   []ReceivedItem `json:"received_items,omitempty"` // RECEIVED
}

// TrackingUpdate обновление номера отслеживания без смены состояния
type TrackingUpdate struct {
	TransferID        uuid.UUID  `json:"transfer_id"`
	TrackingNumber    string     `json:"tracking_number"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ExpectedVersion   int        `json:"expected_version"`
}

// Filter фильтр списка заявок
type Filter struct {
	StoreID string `json:"store_id,omitempty"` // отправитель или получатель
	Status  Status `json:"status,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}
