package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
	"storesync/internal/domain/inventory"
	"storesync/internal/domain/notification"
)

// Servicer интерфейс движка перемещений
type Servicer interface {
	// Create создает заявку (DRAFT либо сразу PENDING_APPROVAL)
	Create(ctx context.Context, req CreateRequest) (*TransferRequest, error)

	Get(ctx context.Context, id uuid.UUID) (*TransferRequest, error)
	List(ctx context.Context, filter Filter) ([]*TransferRequest, error)

	// Transition выполняет переход состояния по графу. Итоговый статус
	// RECEIVED/PARTIAL вычисляется из данных позиций.
	Transition(ctx context.Context, req TransitionRequest) (*TransferRequest, error)

	// RequestModification отправляет запрашивающему замечания согласующего
	// без смены состояния заявки.
	RequestModification(ctx context.Context, id uuid.UUID, actor, message string) error

	// UpdateTracking обновляет номер отслеживания без смены состояния
	UpdateTracking(ctx context.Context, req TrackingUpdate) (*TransferRequest, error)
}

// Service движок перемещений
type Service struct {
	repo     Repository
	stock    inventory.Servicer
	events   event.Recorder
	notifier notification.Notifier
	node     *snowflake.Node
	log      *slog.Logger
}

// NewService создает движок перемещений
func NewService(repo Repository, stock inventory.Servicer, events event.Recorder, notifier notification.Notifier, node *snowflake.Node, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		stock:    stock,
		events:   events,
		notifier: notifier,
		node:     node,
		log:      log.With("component", "transfer_service"),
	}
}

// Create создает заявку на перемещение
func (s *Service) Create(ctx context.Context, req CreateRequest) (*TransferRequest, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tr := &TransferRequest{
		ID:             uuid.New(),
		TransferNumber: fmt.Sprintf("TR-%d", s.node.Generate().Int64()),
		FromStoreID:    req.FromStoreID,
		ToStoreID:      req.ToStoreID,
		Status:         StatusDraft,
		Priority:       req.Priority,
		RequestedBy:    req.RequestedBy,
		Notes:          req.Notes,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if tr.Priority == "" {
		tr.Priority = PriorityNormal
	}

	for _, item := range req.Items {
		tr.Items = append(tr.Items, TransferItem{
			ID:                uuid.New(),
			ProductID:         item.ProductID,
			Stage:             StageRequested,
			QuantityRequested: item.Quantity,
			UnitCost:          item.UnitCost,
		})
	}

	tr.Tracking = append(tr.Tracking, TrackingEntry{
		Status: StatusDraft,
		Actor:  req.RequestedBy,
		At:     now,
	})

	if req.Submit {
		tr.Status = StatusPendingApproval
		tr.Tracking = append(tr.Tracking, TrackingEntry{
			Status: StatusPendingApproval,
			Actor:  req.RequestedBy,
			At:     now,
		})
	}

	// Write-ahead: заявка считается созданной только после записи факта.
	if err := s.appendSnapshot(ctx, tr); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tr); err != nil {
		return nil, fmt.Errorf("create transfer: %w", err)
	}

	s.log.Info("transfer created",
		"transfer_number", tr.TransferNumber, "from", tr.FromStoreID, "to", tr.ToStoreID,
		"status", tr.Status, "items", len(tr.Items))

	return tr, nil
}

// Get возвращает заявку
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TransferRequest, error) {
	tr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return tr, nil
}

// List возвращает заявки по фильтру
func (s *Service) List(ctx context.Context, filter Filter) ([]*TransferRequest, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	transfers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return transfers, nil
}

// Transition выполняет переход состояния заявки
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*TransferRequest, error) {
	tr, err := s.repo.GetByID(ctx, req.TransferID)
	if err != nil {
		return nil, fmt.Errorf("get transfer: %w", err)
	}

	if req.ExpectedVersion != tr.Version {
		return nil, fmt.Errorf("%w: expected %d, current %d", ErrVersionConflict, req.ExpectedVersion, tr.Version)
	}

	// PARTIAL вычисляется, а не запрашивается.
	if req.Target == StatusPartial {
		return nil, &InvalidTransitionError{Current: tr.Status, Requested: req.Target}
	}

	if req.Target == StatusCancelled {
		if !cancellable(tr.Status) {
			return nil, fmt.Errorf("%w: status %s", ErrNotCancellable, tr.Status)
		}
	} else if !canTransition(tr.Status, req.Target) {
		return nil, &InvalidTransitionError{Current: tr.Status, Requested: req.Target}
	}

	now := time.Now().UTC()
	finalStatus := req.Target

	switch req.Target {
	case StatusApproved:
		if err := s.applyApproval(ctx, tr, req); err != nil {
			return nil, err
		}
	case StatusRejected, StatusCancelled:
		if req.Reason == "" {
			return nil, ErrEmptyReason
		}
	case StatusInTransit:
		if err := s.applyDispatch(ctx, tr); err != nil {
			return nil, err
		}
	case StatusDelivered:
		tr.ActualDelivery = &now
	case StatusReceived:
		computed, err := s.applyReceipt(ctx, tr, req, now)
		if err != nil {
			return nil, err
		}
		finalStatus = computed
	}

	prev := tr.Status
	tr.Status = finalStatus
	tr.Tracking = append(tr.Tracking, TrackingEntry{
		Status:   finalStatus,
		Location: req.Location,
		Notes:    firstNonEmpty(req.Reason, req.Notes),
		Actor:    req.Actor,
		At:       now,
	})
	tr.UpdatedAt = now
	tr.Version++

	// Write-ahead: сначала факт в журнал, затем запись заявки.
	if err := s.appendSnapshot(ctx, tr); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tr, req.ExpectedVersion); err != nil {
		// Факт уже записан; запись заявки не обновлена. Конфликт виден
		// вызывающему, факт остается в журнале аудита.
		s.log.Error("transfer update failed after event append",
			"transfer_number", tr.TransferNumber, "error", err)
		return nil, fmt.Errorf("update transfer: %w", err)
	}

	s.log.Info("transfer transitioned",
		"transfer_number", tr.TransferNumber, "from_status", prev, "to_status", finalStatus,
		"actor", req.Actor, "version", tr.Version)

	return tr, nil
}

// RequestModification передает замечания согласующего без смены состояния
func (s *Service) RequestModification(ctx context.Context, id uuid.UUID, actor, message string) error {
	if message == "" {
		return ErrEmptyReason
	}

	tr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get transfer: %w", err)
	}
	if tr.Status != StatusPendingApproval {
		return &InvalidTransitionError{Current: tr.Status, Requested: StatusPendingApproval}
	}

	payload, err := json.Marshal(map[string]string{
		"transfer_number": tr.TransferNumber,
		"actor":           actor,
		"message":         message,
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	origin := tr.FromStoreID
	if _, err := s.events.Append(ctx, event.AppendRequest{
		Type:          event.TypeStoreAlert,
		EntityType:    "transfer",
		EntityID:      tr.ID.String(),
		OriginStoreID: &origin,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("append alert event: %w", err)
	}

	s.notifier.Notify(ctx, tr.RequestedBy,
		fmt.Sprintf("modification requested for %s: %s", tr.TransferNumber, message))

	return nil
}

// UpdateTracking обновляет номер отслеживания
func (s *Service) UpdateTracking(ctx context.Context, req TrackingUpdate) (*TransferRequest, error) {
	if req.TrackingNumber == "" {
		return nil, &ValidationError{Field: "tracking_number", Message: "must not be empty"}
	}

	tr, err := s.repo.GetByID(ctx, req.TransferID)
	if err != nil {
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if tr.Status.Terminal() {
		return nil, &InvalidTransitionError{Current: tr.Status, Requested: tr.Status}
	}
	if req.ExpectedVersion != tr.Version {
		return nil, fmt.Errorf("%w: expected %d, current %d", ErrVersionConflict, req.ExpectedVersion, tr.Version)
	}

	tr.TrackingNumber = req.TrackingNumber
	if req.EstimatedDelivery != nil {
		tr.EstimatedDelivery = req.EstimatedDelivery
	}
	tr.UpdatedAt = time.Now().UTC()
	tr.Version++

	if err := s.appendSnapshot(ctx, tr); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, tr, req.ExpectedVersion); err != nil {
		return nil, fmt.Errorf("update transfer: %w", err)
	}

	return tr, nil
}

// applyApproval проверяет согласуемые количества против запрошенных и
// против доступного остатка магазина-отправителя.
func (s *Service) applyApproval(ctx context.Context, tr *TransferRequest, req TransitionRequest) error {
	if len(req.ApprovedItems) == 0 {
		return &ValidationError{Field: "approved_items", Message: "approval requires per-item quantities"}
	}

	byProduct := make(map[string]ApprovedItem, len(req.ApprovedItems))
	for _, ai := range req.ApprovedItems {
		byProduct[ai.ProductID] = ai
	}

	var shortfalls []ItemShortfall
	for i := range tr.Items {
		item := &tr.Items[i]

		ai, ok := byProduct[item.ProductID]
		if !ok {
			return &ValidationError{Field: "approved_items", Message: "missing quantity for product " + item.ProductID}
		}
		if ai.Quantity < 0 {
			return &ValidationError{Field: "approved_items", Message: "quantity must not be negative"}
		}
		if ai.Quantity > item.QuantityRequested {
			return &ValidationError{
				Field:   "approved_items",
				Message: fmt.Sprintf("approved %d exceeds requested %d for product %s", ai.Quantity, item.QuantityRequested, item.ProductID),
			}
		}

		available, err := s.stock.Available(ctx, tr.FromStoreID, item.ProductID)
		if err != nil {
			return fmt.Errorf("check stock: %w", err)
		}
		if ai.Quantity > available {
			shortfalls = append(shortfalls, ItemShortfall{
				ProductID: item.ProductID,
				Requested: ai.Quantity,
				Available: available,
			})
			continue
		}

		item.Stage = StageApproved
		item.QuantityApproved = ai.Quantity
		if ai.Quantity != item.QuantityRequested {
			item.AdjustmentReason = ai.Reason
		}
	}

	if len(shortfalls) > 0 {
		stockErr := &InsufficientStockError{StoreID: tr.FromStoreID, Shortfalls: shortfalls}
		s.notifier.Notify(ctx, tr.FromStoreID, "stock shortage during approval of "+tr.TransferNumber+": "+stockErr.Error())
		return stockErr
	}

	tr.ApprovedBy = &req.Actor
	return nil
}

// applyDispatch фиксирует отгрузку: отгружается согласованное количество,
// остаток магазина-отправителя уменьшается.
func (s *Service) applyDispatch(ctx context.Context, tr *TransferRequest) error {
	for i := range tr.Items {
		item := &tr.Items[i]

		approved, ok := item.Approved()
		if !ok {
			return &ValidationError{Field: "items", Message: "product " + item.ProductID + " was never approved"}
		}

		item.Stage = StageShipped
		item.QuantityShipped = approved

		if approved == 0 {
			continue
		}
		if _, err := s.stock.Adjust(ctx, tr.FromStoreID, item.ProductID, -approved, "dispatch "+tr.TransferNumber); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
	}
	return nil
}

// applyReceipt фиксирует приемку и вычисляет итоговый статус:
// недобор хотя бы по одной позиции дает PARTIAL вместо RECEIVED.
func (s *Service) applyReceipt(ctx context.Context, tr *TransferRequest, req TransitionRequest, now time.Time) (Status, error) {
	if len(req.ReceivedItems) == 0 {
		return "", &ValidationError{Field: "received_items", Message: "receipt requires per-item quantities"}
	}

	byProduct := make(map[string]int, len(req.ReceivedItems))
	for _, ri := range req.ReceivedItems {
		byProduct[ri.ProductID] = ri.Quantity
	}

	partial := false
	for i := range tr.Items {
		item := &tr.Items[i]

		shipped, ok := item.Shipped()
		if !ok {
			return "", &ValidationError{Field: "items", Message: "product " + item.ProductID + " was never shipped"}
		}

		received, ok := byProduct[item.ProductID]
		if !ok {
			return "", &ValidationError{Field: "received_items", Message: "missing quantity for product " + item.ProductID}
		}
		if received < 0 || received > shipped {
			return "", &ValidationError{
				Field:   "received_items",
				Message: fmt.Sprintf("received %d out of range [0, %d] for product %s", received, shipped, item.ProductID),
			}
		}

		item.Stage = StageReceived
		item.QuantityReceived = received
		if received < shipped {
			partial = true
		}

		if received > 0 {
			if _, err := s.stock.Adjust(ctx, tr.ToStoreID, item.ProductID, received, "receipt "+tr.TransferNumber); err != nil {
				return "", fmt.Errorf("increment stock: %w", err)
			}
		}
	}

	if tr.ActualDelivery == nil {
		tr.ActualDelivery = &now
	}

	if partial {
		return StatusPartial, nil
	}
	return StatusReceived, nil
}

// appendSnapshot добавляет в журнал факт с полным снимком заявки.
// Потребители применяют замену сущности целиком, что делает повторную
// доставку идемпотентной.
func (s *Service) appendSnapshot(ctx context.Context, tr *TransferRequest) error {
	payload, err := json.Marshal(tr)
	if err != nil {
		return fmt.Errorf("marshal transfer snapshot: %w", err)
	}

	if _, err := s.events.Append(ctx, event.AppendRequest{
		Type:       event.TypeTransferStatusChanged,
		EntityType: "transfer",
		EntityID:   tr.ID.String(),
		Payload:    payload,
	}); err != nil {
		return fmt.Errorf("append transfer event: %w", err)
	}
	return nil
}

func validateCreate(req CreateRequest) error {
	if req.FromStoreID == "" || req.ToStoreID == "" {
		return &ValidationError{Field: "stores", Message: "both stores are required"}
	}
	if req.FromStoreID == req.ToStoreID {
		return ErrSameStore
	}
	if req.RequestedBy == "" {
		return &ValidationError{Field: "requested_by", Message: "must not be empty"}
	}
	if len(req.Items) == 0 {
		return ErrNoItems
	}
	switch req.Priority {
	case "", PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
	default:
		return &ValidationError{Field: "priority", Message: "unknown priority " + string(req.Priority)}
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return &ValidationError{Field: "items", Message: "product id must not be empty"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: "items", Message: "quantity must be positive for product " + item.ProductID}
		}
		if item.UnitCost.IsNegative() {
			return &ValidationError{Field: "items", Message: "unit cost must not be negative for product " + item.ProductID}
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
