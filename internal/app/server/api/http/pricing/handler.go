package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/pricing"
)

type Handler struct {
	service    pricing.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service pricing.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.updateOp(), h.update)
	huma.Register(api, h.syncOp(), h.sync)
}

func (h *Handler) get(ctx context.Context, input *getInput) (*recordOutput, error) {
	rec, err := h.service.Get(ctx, input.ProductID)
	if err != nil {
		return nil, mapError(err)
	}

	return &recordOutput{Body: rec}, nil
}

func (h *Handler) update(ctx context.Context, input *updateInput) (*recordOutput, error) {
	adjustments := make([]pricing.StoreAdjustment, 0, len(input.Body.StoreAdjustments))
	for _, adj := range input.Body.StoreAdjustments {
		adjustments = append(adjustments, pricing.StoreAdjustment{
			StoreID:              adj.StoreID,
			AdjustmentPercentage: adj.AdjustmentPercentage,
			Reason:               adj.Reason,
		})
	}

	var effective time.Time
	if input.Body.EffectiveDate != nil {
		effective = *input.Body.EffectiveDate
	}

	rec, err := h.service.UpdatePricing(ctx, pricing.UpdateRequest{
		ProductID:        input.ProductID,
		BasePrice:        input.Body.BasePrice,
		StoreAdjustments: adjustments,
		EffectiveDate:    effective,
		ExpectedVersion:  input.Body.ExpectedVersion,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &recordOutput{Body: rec}, nil
}

func (h *Handler) sync(ctx context.Context, input *syncInput) (*syncOutput, error) {
	synced, err := h.service.SyncPrices(ctx, input.Body.ProductIDs)
	if err != nil {
		return nil, mapError(err)
	}

	return &syncOutput{Body: syncResponse{Synced: synced}}, nil
}

func mapError(err error) error {
	var validation *pricing.ValidationError

	switch {
	case errors.Is(err, pricing.ErrNotFound):
		return huma.Error404NotFound("pricing record not found")
	case errors.Is(err, pricing.ErrVersionConflict):
		return huma.Error409Conflict(err.Error())
	case errors.As(err, &validation):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return err
	}
}
