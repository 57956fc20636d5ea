package transfer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
	"storesync/internal/domain/inventory"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, req *TransferRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*TransferRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TransferRequest), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter Filter) ([]*TransferRequest, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*TransferRequest), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, req *TransferRequest, expectedVersion int) error {
	args := m.Called(ctx, req, expectedVersion)
	return args.Error(0)
}

// MockStock is a mock implementation of the inventory service
type MockStock struct {
	mock.Mock
}

func (m *MockStock) Available(ctx context.Context, storeID, productID string) (int, error) {
	args := m.Called(ctx, storeID, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockStock) ListByStore(ctx context.Context, storeID string) ([]*inventory.StockLevel, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.StockLevel), args.Error(1)
}

func (m *MockStock) Adjust(ctx context.Context, storeID, productID string, delta int, reason string) (*inventory.StockLevel, error) {
	args := m.Called(ctx, storeID, productID, delta, reason)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return &inventory.StockLevel{StoreID: storeID, ProductID: productID, Quantity: args.Int(0)}, nil
}

// MockRecorder counts appended sync events
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Append(ctx context.Context, req event.AppendRequest) (*event.SyncEvent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.SyncEvent), args.Error(1)
}

// MockNotifier records fire-and-forget notifications
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, recipient, message string) {
	m.Called(ctx, recipient, message)
}

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func TestService_Transition_Graph(t *testing.T) {
	all := []Status{
		StatusDraft, StatusPendingApproval, StatusApproved, StatusPicking,
		StatusPacked, StatusInTransit, StatusDelivered, StatusReceived,
		StatusCancelled, StatusRejected, StatusPartial,
	}

	for _, from := range all {
		for _, to := range all {
			if canTransition(from, to) {
				continue
			}
			if to == StatusCancelled {
				continue // отмена проверяется отдельно
			}
			if to == StatusPartial {
				continue // PARTIAL нельзя запросить — проверяется отдельно
			}

			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				tr := transferInStatus(from)
				svc, repo, _, _, _ := serviceWithTransfer(t, tr)

				_, err := svc.Transition(context.Background(), TransitionRequest{
					TransferID:      tr.ID,
					Target:          to,
					Actor:           "ivanova",
					ExpectedVersion: tr.Version,
					Reason:          "because",
				})

				require.Error(t, err)
				var invalid *InvalidTransitionError
				if assert.ErrorAs(t, err, &invalid) {
					assert.Equal(t, from, invalid.Current)
					assert.Equal(t, to, invalid.Requested)
				}
				// Запись не менялась: Update не вызывался.
				repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	}
}

func TestService_Transition_PartialNotRequestable(t *testing.T) {
	tr := transferInStatus(StatusDelivered)
	svc, _, _, _, _ := serviceWithTransfer(t, tr)

	_, err := svc.Transition(context.Background(), TransitionRequest{
		TransferID:      tr.ID,
		Target:          StatusPartial,
		Actor:           "ivanova",
		ExpectedVersion: tr.Version,
	})

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusPartial, invalid.Requested)
}

func TestService_Transition_HappyPathStep(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
	}{
		{"draft to pending approval", StatusDraft, StatusPendingApproval},
		{"approved to picking", StatusApproved, StatusPicking},
		{"picking to packed", StatusPicking, StatusPacked},
		{"in transit to delivered", StatusInTransit, StatusDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := transferInStatus(tt.from)
			svc, repo, _, recorder, _ := serviceWithTransfer(t, tr)

			repo.On("Update", mock.Anything, mock.Anything, 3).Return(nil)
			recorder.On("Append", mock.Anything, mock.MatchedBy(func(req event.AppendRequest) bool {
				return req.Type == event.TypeTransferStatusChanged && req.EntityID == tr.ID.String()
			})).Return(&event.SyncEvent{}, nil).Once()

			got, err := svc.Transition(context.Background(), TransitionRequest{
				TransferID:      tr.ID,
				Target:          tt.to,
				Actor:           "petrov",
				ExpectedVersion: 3,
				Location:        "dock 4",
				Notes:           "ok",
			})

			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
			assert.Equal(t, 4, got.Version)

			// Переход добавил ровно одну запись истории и ровно один факт.
			last := got.Tracking[len(got.Tracking)-1]
			assert.Equal(t, tt.to, last.Status)
			assert.Equal(t, "petrov", last.Actor)
			assert.Equal(t, "dock 4", last.Location)
			recorder.AssertNumberOfCalls(t, "Append", 1)

			// Снимок в факте — вся заявка целиком, не дельта.
			appendReq := recorder.Calls[0].Arguments.Get(1).(event.AppendRequest)
			var snapshot TransferRequest
			require.NoError(t, json.Unmarshal(appendReq.Payload, &snapshot))
			assert.Equal(t, tt.to, snapshot.Status)
			assert.Equal(t, got.Version, snapshot.Version)
		})
	}
}

func TestService_Transition_VersionConflict(t *testing.T) {
	tr := transferInStatus(StatusDraft)
	svc, repo, _, _, _ := serviceWithTransfer(t, tr)

	_, err := svc.Transition(context.Background(), TransitionRequest{
		TransferID:      tr.ID,
		Target:          StatusPendingApproval,
		Actor:           "petrov",
		ExpectedVersion: tr.Version - 1,
	})

	assert.ErrorIs(t, err, ErrVersionConflict)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient stock names the shortfall and never silently approves", func(t *testing.T) {
		// Магазин A: 100 единиц на складе, запрошено 150.
		tr := transferInStatus(StatusPendingApproval)
		tr.Items = []TransferItem{{
			ID: uuid.New(), ProductID: "P1", Stage: StageRequested, QuantityRequested: 150,
			UnitCost: decimal.NewFromInt(10),
		}}
		svc, repo, stock, _, notifier := serviceWithTransfer(t, tr)

		stock.On("Available", ctx, tr.FromStoreID, "P1").Return(100, nil)
		notifier.On("Notify", ctx, tr.FromStoreID, mock.Anything).Once()

		_, err := svc.Transition(ctx, TransitionRequest{
			TransferID:      tr.ID,
			Target:          StatusApproved,
			Actor:           "sidorov",
			ExpectedVersion: tr.Version,
			ApprovedItems:   []ApprovedItem{{ProductID: "P1", Quantity: 150}},
		})

		require.Error(t, err)
		var stockErr *InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		require.Len(t, stockErr.Shortfalls, 1)
		assert.Equal(t, "P1", stockErr.Shortfalls[0].ProductID)
		assert.Equal(t, 150, stockErr.Shortfalls[0].Requested)
		assert.Equal(t, 100, stockErr.Shortfalls[0].Available)

		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertExpectations(t)
	})

	t.Run("reduced quantity within stock succeeds and records the delta", func(t *testing.T) {
		tr := transferInStatus(StatusPendingApproval)
		tr.Items = []TransferItem{{
			ID: uuid.New(), ProductID: "P1", Stage: StageRequested, QuantityRequested: 150,
			UnitCost: decimal.NewFromInt(10),
		}}
		svc, repo, stock, recorder, _ := serviceWithTransfer(t, tr)

		stock.On("Available", ctx, tr.FromStoreID, "P1").Return(100, nil)
		repo.On("Update", mock.Anything, mock.Anything, tr.Version).Return(nil)
		recorder.On("Append", mock.Anything, mock.Anything).Return(&event.SyncEvent{}, nil).Once()

		got, err := svc.Transition(ctx, TransitionRequest{
			TransferID:      tr.ID,
			Target:          StatusApproved,
			Actor:           "sidorov",
			ExpectedVersion: tr.Version,
			ApprovedItems:   []ApprovedItem{{ProductID: "P1", Quantity: 100, Reason: "stock limit"}},
		})

		require.NoError(t, err)
		assert.Equal(t, StatusApproved, got.Status)
		require.NotNil(t, got.ApprovedBy)
		assert.Equal(t, "sidorov", *got.ApprovedBy)

		approved, ok := got.Items[0].Approved()
		require.True(t, ok)
		assert.Equal(t, 100, approved)
		assert.Equal(t, "stock limit", got.Items[0].AdjustmentReason)
	})

	t.Run("approved quantity above requested is rejected", func(t *testing.T) {
		tr := transferInStatus(StatusPendingApproval)
		tr.Items = []TransferItem{{
			ID: uuid.New(), ProductID: "P1", Stage: StageRequested, QuantityRequested: 10,
			UnitCost: decimal.NewFromInt(10),
		}}
		svc, _, _, _, _ := serviceWithTransfer(t, tr)

		_, err := svc.Transition(ctx, TransitionRequest{
			TransferID:      tr.ID,
			Target:          StatusApproved,
			Actor:           "sidorov",
			ExpectedVersion: tr.Version,
			ApprovedItems:   []ApprovedItem{{ProductID: "P1", Quantity: 11}},
		})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "approved_items", verr.Field)
	})
}

func TestService_Reject_RequiresReason(t *testing.T) {
	tr := transferInStatus(StatusPendingApproval)
	svc, _, _, _, _ := serviceWithTransfer(t, tr)

	_, err := svc.Transition(context.Background(), TransitionRequest{
		TransferID:      tr.ID,
		Target:          StatusRejected,
		Actor:           "sidorov",
		ExpectedVersion: tr.Version,
	})

	assert.ErrorIs(t, err, ErrEmptyReason)
}

func TestService_Cancel(t *testing.T) {
	t.Run("delivered transfer cannot be cancelled", func(t *testing.T) {
		tr := transferInStatus(StatusDelivered)
		svc, _, _, _, _ := serviceWithTransfer(t, tr)

		_, err := svc.Transition(context.Background(), TransitionRequest{
			TransferID:      tr.ID,
			Target:          StatusCancelled,
			Actor:           "petrov",
			ExpectedVersion: tr.Version,
			Reason:          "changed my mind",
		})

		assert.ErrorIs(t, err, ErrNotCancellable)
	})

	t.Run("in transit transfer can be cancelled with a reason", func(t *testing.T) {
		tr := transferInStatus(StatusInTransit)
		svc, repo, _, recorder, _ := serviceWithTransfer(t, tr)

		repo.On("Update", mock.Anything, mock.Anything, tr.Version).Return(nil)
		recorder.On("Append", mock.Anything, mock.Anything).Return(&event.SyncEvent{}, nil)

		got, err := svc.Transition(context.Background(), TransitionRequest{
			TransferID:      tr.ID,
			Target:          StatusCancelled,
			Actor:           "petrov",
			ExpectedVersion: tr.Version,
			Reason:          "truck breakdown",
		})

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
		assert.Equal(t, "truck breakdown", got.Tracking[len(got.Tracking)-1].Notes)
	})

	t.Run("cancel without reason is rejected", func(t *testing.T) {
		tr := transferInStatus(StatusPicking)
		svc, _, _, _, _ := serviceWithTransfer(t, tr)

		_, err := svc.Transition(context.Background(), TransitionRequest{
			TransferID:      tr.ID,
			Target:          StatusCancelled,
			Actor:           "petrov",
			ExpectedVersion: tr.Version,
		})

		assert.ErrorIs(t, err, ErrEmptyReason)
	})
}

func TestService_Dispatch_DecrementsSourceStock(t *testing.T) {
	ctx := context.Background()

	tr := transferInStatus(StatusPacked)
	tr.Items = []TransferItem{{
		ID: uuid.New(), ProductID: "P1", Stage: StageApproved,
		QuantityRequested: 30, QuantityApproved: 25,
		UnitCost: decimal.NewFromInt(4),
	}}
	svc, repo, stock, recorder, _ := serviceWithTransfer(t, tr)

	repo.On("Update", mock.Anything, mock.Anything, tr.Version).Return(nil)
	recorder.On("Append", mock.Anything, mock.Anything).Return(&event.SyncEvent{}, nil)
	stock.On("Adjust", ctx, "STORE-A", "P1", -25, mock.Anything).Return(75, nil).Once()

	got, err := svc.Transition(ctx, TransitionRequest{
		TransferID:      tr.ID,
		Target:          StatusInTransit,
		Actor:           "petrov",
		ExpectedVersion: tr.Version,
		Location:        "loading bay",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, got.Status)

	shipped, ok := got.Items[0].Shipped()
	require.True(t, ok)
	assert.Equal(t, 25, shipped)
	stock.AssertExpectations(t)
}

func TestService_Receive_PartialRule(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		shipped    int
		received   int
		wantStatus Status
	}{
		{"full receipt yields RECEIVED", 40, 40, StatusReceived},
		{"short receipt yields PARTIAL", 40, 25, StatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := transferInStatus(StatusDelivered)
			tr.Items = []TransferItem{{
				ID: uuid.New(), ProductID: "P1", Stage: StageShipped,
				QuantityRequested: 40, QuantityApproved: tt.shipped, QuantityShipped: tt.shipped,
				UnitCost: decimal.NewFromInt(5),
			}}
			svc, repo, stock, recorder, _ := serviceWithTransfer(t, tr)

			repo.On("Update", mock.Anything, mock.Anything, tr.Version).Return(nil)
			recorder.On("Append", mock.Anything, mock.Anything).Return(&event.SyncEvent{}, nil)
			stock.On("Adjust", ctx, tr.ToStoreID, "P1", tt.received, mock.Anything).Return(tt.received, nil)

			// Вызывающий всегда просит RECEIVED; PARTIAL вычисляет движок.
			got, err := svc.Transition(ctx, TransitionRequest{
				TransferID:      tr.ID,
				Target:          StatusReceived,
				Actor:           "ivanova",
				ExpectedVersion: tr.Version,
				ReceivedItems:   []ReceivedItem{{ProductID: "P1", Quantity: tt.received}},
			})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.NotNil(t, got.ActualDelivery)

			receivedQty, ok := got.Items[0].Received()
			require.True(t, ok)
			assert.Equal(t, tt.received, receivedQty)
		})
	}

	t.Run("received above shipped is rejected", func(t *testing.T) {
		tr := transferInStatus(StatusDelivered)
		tr.Items = []TransferItem{{
			ID: uuid.New(), ProductID: "P1", Stage: StageShipped,
			QuantityRequested: 40, QuantityApproved: 40, QuantityShipped: 40,
			UnitCost: decimal.NewFromInt(5),
		}}
		svc, _, _, _, _ := serviceWithTransfer(t, tr)

		_, err := svc.Transition(ctx, TransitionRequest{
			TransferID:      tr.ID,
			Target:          StatusReceived,
			Actor:           "ivanova",
			ExpectedVersion: tr.Version,
			ReceivedItems:   []ReceivedItem{{ProductID: "P1", Quantity: 41}},
		})

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "received_items", verr.Field)
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("same store is rejected", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockStock), new(MockRecorder), new(MockNotifier), testNode(t), slog.Default())

		_, err := svc.Create(ctx, CreateRequest{
			FromStoreID: "STORE-A", ToStoreID: "STORE-A", RequestedBy: "petrov",
			Items: []ItemRequest{{ProductID: "P1", Quantity: 1}},
		})

		assert.ErrorIs(t, err, ErrSameStore)
	})

	t.Run("submit goes straight to pending approval with one event", func(t *testing.T) {
		repo := new(MockRepository)
		recorder := new(MockRecorder)
		svc := NewService(repo, new(MockStock), recorder, new(MockNotifier), testNode(t), slog.Default())

		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		recorder.On("Append", mock.Anything, mock.MatchedBy(func(req event.AppendRequest) bool {
			return req.Type == event.TypeTransferStatusChanged
		})).Return(&event.SyncEvent{}, nil).Once()

		got, err := svc.Create(ctx, CreateRequest{
			FromStoreID: "STORE-A", ToStoreID: "STORE-B", RequestedBy: "petrov", Submit: true,
			Items: []ItemRequest{{ProductID: "P1", Quantity: 7, UnitCost: decimal.NewFromInt(3)}},
		})

		require.NoError(t, err)
		assert.Equal(t, StatusPendingApproval, got.Status)
		assert.Equal(t, PriorityNormal, got.Priority)
		assert.NotEmpty(t, got.TransferNumber)
		assert.Equal(t, StageRequested, got.Items[0].Stage)

		_, approvedYet := got.Items[0].Approved()
		assert.False(t, approvedYet, "freshly requested item must not look approved")

		recorder.AssertNumberOfCalls(t, "Append", 1)
	})
}

func TestService_RequestModification(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps request in pending approval", func(t *testing.T) {
		tr := transferInStatus(StatusPendingApproval)
		svc, repo, _, recorder, notifier := serviceWithTransfer(t, tr)

		recorder.On("Append", mock.Anything, mock.MatchedBy(func(req event.AppendRequest) bool {
			return req.Type == event.TypeStoreAlert
		})).Return(&event.SyncEvent{}, nil)
		notifier.On("Notify", ctx, tr.RequestedBy, mock.Anything).Once()

		err := svc.RequestModification(ctx, tr.ID, "sidorov", "please split into two shipments")

		require.NoError(t, err)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertExpectations(t)
	})

	t.Run("rejected outside pending approval", func(t *testing.T) {
		tr := transferInStatus(StatusApproved)
		svc, _, _, _, _ := serviceWithTransfer(t, tr)

		err := svc.RequestModification(ctx, tr.ID, "sidorov", "too late")

		var invalid *InvalidTransitionError
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestService_UpdateTracking(t *testing.T) {
	ctx := context.Background()

	tr := transferInStatus(StatusInTransit)
	svc, repo, _, recorder, _ := serviceWithTransfer(t, tr)

	repo.On("Update", mock.Anything, mock.Anything, tr.Version).Return(nil)
	recorder.On("Append", mock.Anything, mock.Anything).Return(&event.SyncEvent{}, nil).Once()

	eta := time.Now().Add(48 * time.Hour).UTC()
	got, err := svc.UpdateTracking(ctx, TrackingUpdate{
		TransferID:        tr.ID,
		TrackingNumber:    "1Z999AA10123456784",
		EstimatedDelivery: &eta,
		ExpectedVersion:   tr.Version,
	})

	require.NoError(t, err)
	assert.Equal(t, "1Z999AA10123456784", got.TrackingNumber)
	assert.Equal(t, &eta, got.EstimatedDelivery)
	assert.Equal(t, 4, got.Version)
}

// transferInStatus собирает заявку в заданном статусе с одной позицией
// на подходящем этапе.
func transferInStatus(status Status) *TransferRequest {
	stage := StageRequested
	switch status {
	case StatusApproved, StatusPicking, StatusPacked:
		stage = StageApproved
	case StatusInTransit, StatusDelivered:
		stage = StageShipped
	case StatusReceived, StatusPartial:
		stage = StageReceived
	}

	item := TransferItem{
		ID: uuid.New(), ProductID: "P1", Stage: stage,
		QuantityRequested: 10, UnitCost: decimal.NewFromInt(2),
	}
	if stage != StageRequested {
		item.QuantityApproved = 10
	}
	if stage == StageShipped || stage == StageReceived {
		item.QuantityShipped = 10
	}
	if stage == StageReceived {
		item.QuantityReceived = 10
	}

	now := time.Now().UTC()
	return &TransferRequest{
		ID:             uuid.New(),
		TransferNumber: "TR-1000",
		FromStoreID:    "STORE-A",
		ToStoreID:      "STORE-B",
		Status:         status,
		Priority:       PriorityNormal,
		Items:          []TransferItem{item},
		RequestedBy:    "petrov",
		Tracking:       []TrackingEntry{{Status: status, Actor: "petrov", At: now}},
		Version:        3,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func serviceWithTransfer(t *testing.T, tr *TransferRequest) (*Service, *MockRepository, *MockStock, *MockRecorder, *MockNotifier) {
	t.Helper()
	repo := new(MockRepository)
	stock := new(MockStock)
	recorder := new(MockRecorder)
	notifier := new(MockNotifier)

	repo.On("GetByID", mock.Anything, tr.ID).Return(tr, nil)

	svc := NewService(repo, stock, recorder, notifier, testNode(t), slog.Default())
	return svc, repo, stock, recorder, notifier
}
