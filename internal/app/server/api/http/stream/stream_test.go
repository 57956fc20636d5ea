package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"storesync/internal/app/server/dispatch"
	"storesync/internal/domain/event"
	"storesync/internal/domain/store"
)

// MockEvents is a mock implementation of the event service for testing
type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) Append(ctx context.Context, req event.AppendRequest) (*event.SyncEvent, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.SyncEvent), args.Error(1)
}

func (m *MockEvents) Get(ctx context.Context, id uuid.UUID) (*event.SyncEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.SyncEvent), args.Error(1)
}

func (m *MockEvents) List(ctx context.Context, filter event.Filter) ([]*event.SyncEvent, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.SyncEvent), args.Error(1)
}

func (m *MockEvents) Replay(ctx context.Context, storeID string, afterSeq int64, limit int) ([]*event.SyncEvent, error) {
	args := m.Called(ctx, storeID, afterSeq, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.SyncEvent), args.Error(1)
}

func (m *MockEvents) Dispatchable(ctx context.Context, limit int) ([]*event.SyncEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.SyncEvent), args.Error(1)
}

func (m *MockEvents) MarkInProgress(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time) error {
	return m.Called(ctx, id, attemptCount, at).Error(0)
}

func (m *MockEvents) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEvents) MarkRetry(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time, cause string) error {
	return m.Called(ctx, id, attemptCount, at, cause).Error(0)
}

func (m *MockEvents) MarkFailed(ctx context.Context, id uuid.UUID, attemptCount int, at time.Time, cause string) error {
	return m.Called(ctx, id, attemptCount, at, cause).Error(0)
}

func (m *MockEvents) Retry(ctx context.Context, id uuid.UUID) (*event.SyncEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.SyncEvent), args.Error(1)
}

func (m *MockEvents) Abandon(ctx context.Context, id uuid.UUID) (*event.SyncEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.SyncEvent), args.Error(1)
}

// MockStores is a mock implementation of the store registry for testing
type MockStores struct {
	mock.Mock
}

func (m *MockStores) Provision(ctx context.Context, code, name, location string) (*store.Store, error) {
	args := m.Called(ctx, code, name, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStores) Get(ctx context.Context, code string) (*store.Store, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStores) List(ctx context.Context, activeOnly bool) ([]*store.Store, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Store), args.Error(1)
}

func (m *MockStores) Deactivate(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func testEvent(seq int64, typ event.Type) *event.SyncEvent {
	return &event.SyncEvent{
		ID:        uuid.New(),
		Seq:       seq,
		Type:      typ,
		Payload:   json.RawMessage(`{"k":"v"}`),
		CreatedAt: time.Now().UTC(),
	}
}

func newTestHandler(events *MockEvents, stores *MockStores, reg *dispatch.Registry) *chi.Mux {
	mux := chi.NewMux()
	NewHandler(events, stores, reg, slog.Default()).SetupRoutes(mux)
	return mux
}

func TestStream_ReplayThenSyncCompleted(t *testing.T) {
	events := new(MockEvents)
	stores := new(MockStores)
	reg := dispatch.NewRegistry(50, slog.Default())

	stores.On("Get", mock.Anything, "STORE-A").
		Return(&store.Store{Code: "STORE-A", Active: true, ProvisionedSeq: 3}, nil)

	// Контрольная точка клиента (0) ниже точки ввода в эксплуатацию:
	// реплей идет от provisioned_seq.
	events.On("Replay", mock.Anything, "STORE-A", int64(3), replayPageSize).
		Return([]*event.SyncEvent{
			testEvent(4, event.TypePriceUpdated),
			testEvent(5, event.TypeTransferStatusChanged),
		}, nil).Once()
	events.On("Replay", mock.Anything, "STORE-A", int64(5), replayPageSize).
		Return([]*event.SyncEvent{}, nil).Once()

	srv := httptest.NewServer(newTestHandler(events, stores, reg))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/stream?store=STORE-A&checkpoint=0", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			types = append(types, strings.TrimPrefix(line, "event: "))
		}
		if strings.HasPrefix(line, "event: SYNC_COMPLETED") {
			break
		}
	}

	assert.Equal(t, []string{
		string(event.TypePriceUpdated),
		string(event.TypeTransferStatusChanged),
		string(event.TypeSyncCompleted),
	}, types)

	events.AssertExpectations(t)
}

func TestStream_UnknownStore(t *testing.T) {
	events := new(MockEvents)
	stores := new(MockStores)
	reg := dispatch.NewRegistry(50, slog.Default())

	stores.On("Get", mock.Anything, "GHOST").Return(nil, store.ErrNotFound)

	srv := httptest.NewServer(newTestHandler(events, stores, reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/stream?store=GHOST")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStream_DeactivatedStore(t *testing.T) {
	events := new(MockEvents)
	stores := new(MockStores)
	reg := dispatch.NewRegistry(50, slog.Default())

	stores.On("Get", mock.Anything, "STORE-A").
		Return(&store.Store{Code: "STORE-A", Active: false}, nil)

	srv := httptest.NewServer(newTestHandler(events, stores, reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/stream?store=STORE-A")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAck(t *testing.T) {
	events := new(MockEvents)
	stores := new(MockStores)
	reg := dispatch.NewRegistry(50, slog.Default())

	reg.Register("STORE-A")

	srv := httptest.NewServer(newTestHandler(events, stores, reg))
	defer srv.Close()

	t.Run("connected store", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/stream/ack", "application/json",
			strings.NewReader(`{"store":"STORE-A","seq":7}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("disconnected store", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/stream/ack", "application/json",
			strings.NewReader(`{"store":"STORE-B","seq":7}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/stream/ack", "application/json",
			strings.NewReader(`{`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
