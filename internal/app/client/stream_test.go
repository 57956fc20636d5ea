package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transferEnvelope(seq int64, status string, version int) Envelope {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":              "0b5e9c2a-9f3d-4c1e-8a7b-123456789abc",
		"transfer_number": "TRF-1001",
		"from_store_id":   "STORE-A",
		"to_store_id":     "STORE-B",
		"status":          status,
		"version":         version,
		"updated_at":      time.Now().UTC().Format(time.RFC3339),
	})
	return Envelope{
		Seq:       seq,
		Type:      typeTransferStatusChanged,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

func TestApplyEnvelope_Transfer(t *testing.T) {
	m := NewMemoryMirror()

	require.NoError(t, applyEnvelope(m, transferEnvelope(1, "PENDING_APPROVAL", 2)))

	tr, err := m.GetTransfer("0b5e9c2a-9f3d-4c1e-8a7b-123456789abc")
	require.NoError(t, err)
	assert.Equal(t, "TRF-1001", tr.TransferNumber)
	assert.Equal(t, "PENDING_APPROVAL", tr.Status)
	assert.Equal(t, 2, tr.Version)
}

func TestApplyEnvelope_Idempotent(t *testing.T) {
	m := NewMemoryMirror()
	env := transferEnvelope(1, "APPROVED", 3)

	require.NoError(t, applyEnvelope(m, env))
	require.NoError(t, applyEnvelope(m, env))

	transfers, err := m.ListTransfers("")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "APPROVED", transfers[0].Status)
}

func TestApplyEnvelope_StaleVersionIgnored(t *testing.T) {
	m := NewMemoryMirror()

	require.NoError(t, applyEnvelope(m, transferEnvelope(2, "IN_TRANSIT", 6)))
	// Повторная доставка более раннего снимка не откатывает состояние
	require.NoError(t, applyEnvelope(m, transferEnvelope(1, "APPROVED", 3)))

	tr, err := m.GetTransfer("0b5e9c2a-9f3d-4c1e-8a7b-123456789abc")
	require.NoError(t, err)
	assert.Equal(t, "IN_TRANSIT", tr.Status)
	assert.Equal(t, 6, tr.Version)
}

func TestApplyEnvelope_Price(t *testing.T) {
	m := NewMemoryMirror()

	payload, _ := json.Marshal(map[string]interface{}{
		"product_id": "PROD-1",
		"base_price": "19.99",
		"version":    1,
	})
	env := Envelope{Seq: 5, Type: typePriceUpdated, Payload: payload, Timestamp: time.Now().UTC()}

	require.NoError(t, applyEnvelope(m, env))

	p, err := m.GetPrice("PROD-1")
	require.NoError(t, err)
	assert.Equal(t, "19.99", p.BasePrice)
	assert.Equal(t, 1, p.Version)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestApplyEnvelope_Stock(t *testing.T) {
	m := NewMemoryMirror()

	payload, _ := json.Marshal(map[string]interface{}{
		"store_id":   "STORE-A",
		"product_id": "PROD-1",
		"quantity":   42,
		"version":    7,
	})
	env := Envelope{Seq: 9, Type: typeInventoryUpdated, Payload: payload, Timestamp: time.Now().UTC()}

	require.NoError(t, applyEnvelope(m, env))

	stock, err := m.ListStock("STORE-A")
	require.NoError(t, err)
	require.Len(t, stock, 1)
	assert.Equal(t, 42, stock[0].Quantity)
}

func TestApplyEnvelope_AlertDeduplicatedBySeq(t *testing.T) {
	m := NewMemoryMirror()

	env := Envelope{
		Seq:       11,
		Type:      typeStoreAlert,
		Payload:   json.RawMessage(`{"message":"variance exceeded"}`),
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, applyEnvelope(m, env))
	require.NoError(t, applyEnvelope(m, env))

	alerts, err := m.ListAlerts(0)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestApplyEnvelope_UnknownTypeSkipped(t *testing.T) {
	m := NewMemoryMirror()

	env := Envelope{Seq: 3, Type: "SOMETHING_NEW", Payload: json.RawMessage(`{}`)}
	assert.NoError(t, applyEnvelope(m, env))
}

func TestCheckpoint_Monotonic(t *testing.T) {
	m := NewMemoryMirror()

	require.NoError(t, m.SetCheckpoint(10))
	require.NoError(t, m.SetCheckpoint(7))

	seq, err := m.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, int64(10), seq)
}
