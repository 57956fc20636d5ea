package stores

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/store"
)

type Handler struct {
	service    store.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service store.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.provisionOp(), h.provision)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.deactivateOp(), h.deactivate)
}

func (h *Handler) provision(ctx context.Context, input *provisionInput) (*storeOutput, error) {
	st, err := h.service.Provision(ctx, input.Body.Code, input.Body.Name, input.Body.Location)
	if err != nil {
		return nil, mapError(err)
	}

	return &storeOutput{Body: st}, nil
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	stores, err := h.service.List(ctx, input.ActiveOnly)
	if err != nil {
		return nil, err
	}

	return &listOutput{Body: stores}, nil
}

func (h *Handler) get(ctx context.Context, input *codeInput) (*storeOutput, error) {
	st, err := h.service.Get(ctx, input.Code)
	if err != nil {
		return nil, mapError(err)
	}

	return &storeOutput{Body: st}, nil
}

func (h *Handler) deactivate(ctx context.Context, input *codeInput) (*statusOutput, error) {
	if err := h.service.Deactivate(ctx, input.Code); err != nil {
		return nil, mapError(err)
	}

	return &statusOutput{Body: statusResponse{Status: "Ok"}}, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return huma.Error404NotFound("store not found")
	case errors.Is(err, store.ErrAlreadyExists):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, store.ErrInvalidCode):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return err
	}
}
