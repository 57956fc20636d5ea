package dispatch

import (
	"encoding/json"
	"time"

	"storesync/internal/domain/event"
)

// Envelope единица доставки в канал магазина
type Envelope struct {
	Seq       int64           `json:"seq"`
	Type      event.Type      `json:"type"`
	StoreID   *string         `json:"store_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope собирает конверт из события журнала
func NewEnvelope(evt *event.SyncEvent) Envelope {
	return Envelope{
		Seq:       evt.Seq,
		Type:      evt.Type,
		StoreID:   evt.OriginStoreID,
		Payload:   evt.Payload,
		Timestamp: evt.CreatedAt,
	}
}
