package event

import (
	"encoding/json"
	"time"
)

// AppendRequest запрос на добавление факта в журнал
type AppendRequest struct {
	Type          Type            `json:"type"`
	EntityType    string          `json:"entity_type"`
	EntityID      string          `json:"entity_id"`
	OriginStoreID *string         `json:"origin_store_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// Filter фильтр для выборки событий (операторский экран аудита)
type Filter struct {
	Status     Status     `json:"status,omitempty"`
	Type       Type       `json:"type,omitempty"`
	EntityType string     `json:"entity_type,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	StoreID    string     `json:"store_id,omitempty"`
	Since      *time.Time `json:"since,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
