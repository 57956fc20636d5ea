package client

import (
	"encoding/json"
	"time"
)

// Envelope — событие из потока сервера. Payload содержит полный снимок
// сущности на момент публикации.
type Envelope struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	StoreID   *string         `json:"store_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// LocalTransfer — локальная копия заявки на перемещение.
// Snapshot хранит полный JSON сущности, индексируемые поля дублируются колонками.
type LocalTransfer struct {
	ID             string          `json:"id"`
	TransferNumber string          `json:"transfer_number"`
	FromStoreID    string          `json:"from_store_id"`
	ToStoreID      string          `json:"to_store_id"`
	Status         string          `json:"status"`
	Version        int             `json:"version"`
	Snapshot       json.RawMessage `json:"snapshot"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LocalPrice — локальная копия ценовой записи.
type LocalPrice struct {
	ProductID string          `json:"product_id"`
	BasePrice string          `json:"base_price"`
	Version   int             `json:"version"`
	Snapshot  json.RawMessage `json:"snapshot"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LocalStock — локальная копия остатка.
type LocalStock struct {
	StoreID   string          `json:"store_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Version   int             `json:"version"`
	Snapshot  json.RawMessage `json:"snapshot"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// LocalAlert — полученное уведомление (STORE_ALERT, PROMOTION_UPDATED).
type LocalAlert struct {
	Seq        int64           `json:"seq"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}
