package syncevents

import (
	"time"

	"storesync/internal/domain/event"
)

type listInput struct {
	Status     string `query:"status" enum:",PENDING,IN_PROGRESS,COMPLETED,FAILED,RETRY" doc:"Статус доставки"`
	Type       string `query:"type" doc:"Тип события"`
	EntityType string `query:"entity_type"`
	EntityID   string `query:"entity_id"`
	StoreID    string `query:"store" doc:"Магазин-источник"`
	Since      string `query:"since" doc:"RFC3339, нижняя граница времени создания"`
	Limit      int    `query:"limit"`
	Offset     int    `query:"offset"`
}

type listOutput struct {
	Body []*event.SyncEvent
}

type eventInput struct {
	ID string `path:"id" format:"uuid" doc:"Идентификатор события"`
}

type eventOutput struct {
	Body *event.SyncEvent
}

func parseSince(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
