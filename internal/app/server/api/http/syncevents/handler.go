package syncevents

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
)

// Handler операторский экран журнала доставки: просмотр, ручной повтор
// и отмена доставки.
type Handler struct {
	service    event.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service event.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.retryOp(), h.retry)
	huma.Register(api, h.abandonOp(), h.abandon)
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	since, err := parseSince(input.Since)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("since must be RFC3339")
	}

	events, err := h.service.List(ctx, event.Filter{
		Status:     event.Status(input.Status),
		Type:       event.Type(input.Type),
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		StoreID:    input.StoreID,
		Since:      since,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return nil, err
	}

	return &listOutput{Body: events}, nil
}

func (h *Handler) retry(ctx context.Context, input *eventInput) (*eventOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid event id")
	}

	evt, err := h.service.Retry(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return &eventOutput{Body: evt}, nil
}

func (h *Handler) abandon(ctx context.Context, input *eventInput) (*eventOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid event id")
	}

	evt, err := h.service.Abandon(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return &eventOutput{Body: evt}, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, event.ErrNotFound):
		return huma.Error404NotFound("event not found")
	case errors.Is(err, event.ErrNotRetryable), errors.Is(err, event.ErrAlreadyFinal):
		return huma.Error409Conflict(err.Error())
	default:
		return err
	}
}
