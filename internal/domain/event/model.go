package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status статус доставки события
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRetry      Status = "RETRY"
)

// Type тип события синхронизации
type Type string

const (
	TypeInventoryUpdated      Type = "INVENTORY_UPDATED"
	TypePriceUpdated          Type = "PRICE_UPDATED"
	TypeTransferStatusChanged Type = "TRANSFER_STATUS_CHANGED"
	TypePromotionUpdated      Type = "PROMOTION_UPDATED"
	TypeStoreAlert            Type = "STORE_ALERT"
	TypeSyncCompleted         Type = "SYNC_COMPLETED"
)

// SyncEvent факт синхронизации: неизменяемая запись о том, что с доменной
// сущностью что-то произошло. Payload после создания не редактируется —
// исправления оформляются новыми событиями. Статус меняет только
// координатор доставки.
type SyncEvent struct {
	ID            uuid.UUID       `json:"id"`
	Seq           int64           `json:"seq"`
	Type          Type            `json:"type"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	OriginStoreID *string         `json:"origin_store_id,omitempty"` // nil — предназначено всем магазинам
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	AttemptCount  int             `json:"attempt_count"`
	Error         string          `json:"error,omitempty"`
}

// Broadcast возвращает true, если событие адресовано всем магазинам.
func (e *SyncEvent) Broadcast() bool {
	return e.OriginStoreID == nil
}

// Terminal возвращает true для статусов, из которых координатор
// не предпринимает новых попыток доставки.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
