package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status состояние заявки на перемещение. Статус — единственный источник
// истины о положении заявки в жизненном цикле.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusPicking         Status = "PICKING"
	StatusPacked          Status = "PACKED"
	StatusInTransit       Status = "IN_TRANSIT"
	StatusDelivered       Status = "DELIVERED"
	StatusReceived        Status = "RECEIVED"
	StatusCancelled       Status = "CANCELLED"
	StatusRejected        Status = "REJECTED"
	StatusPartial         Status = "PARTIAL"
)

// Priority приоритет заявки
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ItemStage этап обработки позиции. Количества осмысленны только начиная
// со своего этапа: "еще не согласовано" — это отдельное проверяемое
// состояние, а не отсутствующее поле.
type ItemStage string

const (
	StageRequested ItemStage = "REQUESTED"
	StageApproved  ItemStage = "APPROVED"
	StageShipped   ItemStage = "SHIPPED"
	StageReceived  ItemStage = "RECEIVED"
)

// TransferItem позиция заявки. Принадлежит своей заявке целиком.
type TransferItem struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         string          `json:"product_id"`
	Stage             ItemStage       `json:"stage"`
	QuantityRequested int             `json:"quantity_requested"`
	QuantityApproved  int             `json:"quantity_approved,omitempty"`
	QuantityShipped   int             `json:"quantity_shipped,omitempty"`
	QuantityReceived  int             `json:"quantity_received,omitempty"`
	AdjustmentReason  string          `json:"adjustment_reason,omitempty"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
}

// Approved возвращает согласованное количество, если позиция прошла этап
// согласования.
func (i *TransferItem) Approved() (int, bool) {
	if i.Stage == StageRequested {
		return 0, false
	}
	return i.QuantityApproved, true
}

// Shipped возвращает отгруженное количество, если позиция отгружена.
func (i *TransferItem) Shipped() (int, bool) {
	if i.Stage != StageShipped && i.Stage != StageReceived {
		return 0, false
	}
	return i.QuantityShipped, true
}

// Received возвращает принятое количество, если позиция принята.
func (i *TransferItem) Received() (int, bool) {
	if i.Stage != StageReceived {
		return 0, false
	}
	return i.QuantityReceived, true
}

// TrackingEntry запись истории перемещения. Журнал только дополняется,
// записи никогда не редактируются.
type TrackingEntry struct {
	Status   Status    `json:"status"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	Actor    string    `json:"actor"`
	At       time.Time `json:"at"`
}

// TransferRequest заявка на перемещение товара между магазинами.
// Терминальные состояния (RECEIVED, CANCELLED, REJECTED, PARTIAL)
// неизменяемы.
type TransferRequest struct {
	ID                uuid.UUID       `json:"id"`
	TransferNumber    string          `json:"transfer_number"`
	FromStoreID       string          `json:"from_store_id"`
	ToStoreID         string          `json:"to_store_id"`
	Status            Status          `json:"status"`
	Priority          Priority        `json:"priority"`
	Items             []TransferItem  `json:"items"`
	RequestedBy       string          `json:"requested_by"`
	ApprovedBy        *string         `json:"approved_by,omitempty"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time      `json:"actual_delivery,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	Tracking          []TrackingEntry `json:"tracking"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Terminal возвращает true для состояний без исходящих переходов.
func (s Status) Terminal() bool {
	switch s {
	case StatusReceived, StatusCancelled, StatusRejected, StatusPartial:
		return true
	}
	return false
}
