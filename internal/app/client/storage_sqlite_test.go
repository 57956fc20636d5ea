package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMirror(t *testing.T) *SQLiteMirror {
	t.Helper()

	m, err := NewSQLiteMirror(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	return m
}

func TestSQLiteMirror_TransferUpsert(t *testing.T) {
	m := newTestMirror(t)

	tr := &LocalTransfer{
		ID:             "t-1",
		TransferNumber: "TRF-1",
		FromStoreID:    "STORE-A",
		ToStoreID:      "STORE-B",
		Status:         "DRAFT",
		Version:        1,
		Snapshot:       json.RawMessage(`{"status":"DRAFT"}`),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, m.ApplyTransfer(tr))

	tr.Status = "PENDING_APPROVAL"
	tr.Version = 2
	tr.Snapshot = json.RawMessage(`{"status":"PENDING_APPROVAL"}`)
	require.NoError(t, m.ApplyTransfer(tr))

	got, err := m.GetTransfer("t-1")
	require.NoError(t, err)
	assert.Equal(t, "PENDING_APPROVAL", got.Status)
	assert.Equal(t, 2, got.Version)
}

func TestSQLiteMirror_StaleVersionIgnored(t *testing.T) {
	m := newTestMirror(t)

	require.NoError(t, m.ApplyTransfer(&LocalTransfer{
		ID: "t-1", TransferNumber: "TRF-1", FromStoreID: "A", ToStoreID: "B",
		Status: "PACKED", Version: 5, Snapshot: json.RawMessage(`{}`), UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, m.ApplyTransfer(&LocalTransfer{
		ID: "t-1", TransferNumber: "TRF-1", FromStoreID: "A", ToStoreID: "B",
		Status: "APPROVED", Version: 3, Snapshot: json.RawMessage(`{}`), UpdatedAt: time.Now().UTC(),
	}))

	got, err := m.GetTransfer("t-1")
	require.NoError(t, err)
	assert.Equal(t, "PACKED", got.Status)
	assert.Equal(t, 5, got.Version)
}

func TestSQLiteMirror_PriceAndStock(t *testing.T) {
	m := newTestMirror(t)

	require.NoError(t, m.ApplyPrice(&LocalPrice{
		ProductID: "P1", BasePrice: "10.00", Version: 1,
		Snapshot: json.RawMessage(`{}`), UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, m.ApplyStock(&LocalStock{
		StoreID: "STORE-A", ProductID: "P1", Quantity: 15, Version: 2,
		Snapshot: json.RawMessage(`{}`), UpdatedAt: time.Now().UTC(),
	}))

	p, err := m.GetPrice("P1")
	require.NoError(t, err)
	assert.Equal(t, "10.00", p.BasePrice)

	stock, err := m.ListStock("STORE-A")
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, 15, stock[0].Quantity)
}

func TestSQLiteMirror_AlertsIgnoreDuplicates(t *testing.T) {
	m := newTestMirror(t)

	a := &LocalAlert{Seq: 4, Type: "STORE_ALERT", Payload: json.RawMessage(`{}`), ReceivedAt: time.Now().UTC()}
	require.NoError(t, m.SaveAlert(a))
	require.NoError(t, m.SaveAlert(a))

	alerts, err := m.ListAlerts(10)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestSQLiteMirror_Checkpoint(t *testing.T) {
	m := newTestMirror(t)

	seq, err := m.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, m.SetCheckpoint(12))
	require.NoError(t, m.SetCheckpoint(8))

	seq, err = m.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, int64(12), seq)
}
