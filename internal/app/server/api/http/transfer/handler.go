package transfer

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/transfer"
)

type Handler struct {
	service    transfer.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service transfer.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.createOp(), h.create)
	huma.Register(api, h.listOp(), h.list)
	huma.Register(api, h.getOp(), h.get)
	huma.Register(api, h.approveOp(), h.approve)
	huma.Register(api, h.rejectOp(), h.reject)
	huma.Register(api, h.modificationOp(), h.modification)
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.trackingOp(), h.tracking)
}

func (h *Handler) create(ctx context.Context, input *createInput) (*transferOutput, error) {
	items := make([]transfer.ItemRequest, 0, len(input.Body.Items))
	for _, item := range input.Body.Items {
		items = append(items, transfer.ItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitCost:  item.UnitCost,
		})
	}

	tr, err := h.service.Create(ctx, transfer.CreateRequest{
		FromStoreID: input.Body.FromStoreID,
		ToStoreID:   input.Body.ToStoreID,
		Priority:    transfer.Priority(input.Body.Priority),
		Items:       items,
		RequestedBy: input.Body.RequestedBy,
		Notes:       input.Body.Notes,
		Submit:      input.Body.Submit,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &transferOutput{Body: tr}, nil
}

func (h *Handler) get(ctx context.Context, input *getInput) (*transferOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid transfer id")
	}

	tr, err := h.service.Get(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}

	return &transferOutput{Body: tr}, nil
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	transfers, err := h.service.List(ctx, transfer.Filter{
		StoreID: input.StoreID,
		Status:  transfer.Status(input.Status),
		Limit:   input.Limit,
		Offset:  input.Offset,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &listOutput{Body: transfers}, nil
}

func (h *Handler) approve(ctx context.Context, input *approveInput) (*transferOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid transfer id")
	}

	tr, err := h.service.Transition(ctx, transfer.TransitionRequest{
		TransferID:      id,
		Target:          transfer.StatusApproved,
		Actor:           input.Body.Actor,
		ExpectedVersion: input.Body.ExpectedVersion,
		ApprovedItems:   input.Body.Items,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &transferOutput{Body: tr}, nil
}

func (h *Handler) reject(ctx context.Context, input *rejectInput) (*transferOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid transfer id")
	}

	tr, err := h.service.Transition(ctx, transfer.TransitionRequest{
		TransferID:      id,
		Target:          transfer.StatusRejected,
		Actor:           input.Body.Actor,
		ExpectedVersion: input.Body.ExpectedVersion,
		Reason:          input.Body.Reason,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &transferOutput{Body: tr}, nil
}

func (h *Handler) modification(ctx context.Context, input *modificationInput) (*statusOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid transfer id")
	}

	if err := h.service.RequestModification(ctx, id, input.Body.Actor, input.Body.Message); err != nil {
		return nil, mapError(err)
	}

	return &statusOutput{Body: statusResponse{Status: "Ok"}}, nil
}

func (h *Handler) status(ctx context.Context, input *statusInput) (*transferOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid transfer id")
	}

	tr, err := h.service.Transition(ctx, transfer.TransitionRequest{
		TransferID:      id,
		Target:          transfer.Status(input.Body.Target),
		Actor:           input.Body.Actor,
		ExpectedVersion: input.Body.ExpectedVersion,
		Reason:          input.Body.Reason,
		Location:        input.Body.Location,
		Notes:           input.Body.Notes,
		ReceivedItems:   input.Body.ReceivedItems,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &transferOutput{Body: tr}, nil
}

func (h *Handler) tracking(ctx context.Context, input *trackingInput) (*transferOutput, error) {
	id, err := uuid.Parse(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid transfer id")
	}

	tr, err := h.service.UpdateTracking(ctx, transfer.TrackingUpdate{
		TransferID:        id,
		TrackingNumber:    input.Body.TrackingNumber,
		EstimatedDelivery: input.Body.EstimatedDelivery,
		ExpectedVersion:   input.Body.ExpectedVersion,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &transferOutput{Body: tr}, nil
}

// mapError переводит доменные ошибки в HTTP-статусы:
// проверки входа — 422, конфликты и недопустимые переходы — 409,
// отсутствие заявки — 404.
func mapError(err error) error {
	var (
		validation *transfer.ValidationError
		invalid    *transfer.InvalidTransitionError
		stock      *transfer.InsufficientStockError
	)

	switch {
	case errors.Is(err, transfer.ErrNotFound):
		return huma.Error404NotFound("transfer not found")
	case errors.Is(err, transfer.ErrVersionConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, transfer.ErrNotCancellable),
		errors.As(err, &invalid),
		errors.As(err, &stock):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, transfer.ErrSameStore),
		errors.Is(err, transfer.ErrNoItems),
		errors.Is(err, transfer.ErrEmptyReason),
		errors.As(err, &validation):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		return err
	}
}
