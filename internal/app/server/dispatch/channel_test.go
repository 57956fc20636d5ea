package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"storesync/internal/domain/event"
)

func testEnvelope(seq int64) Envelope {
	return Envelope{
		Seq:       seq,
		Type:      event.TypePriceUpdated,
		Payload:   json.RawMessage(`{"product_id":"P1"}`),
		Timestamp: time.Now().UTC(),
	}
}

func TestChannel_SendAndAck(t *testing.T) {
	ch := newChannel("STORE-A", 2)

	ack, err := ch.Send(testEnvelope(1))
	require.NoError(t, err)
	assert.Equal(t, 1, ch.InFlight())

	select {
	case <-ack:
		t.Fatal("ack fired before the store acknowledged")
	default:
	}

	got := <-ch.Out()
	assert.Equal(t, int64(1), got.Seq)

	ch.Ack(1)
	select {
	case <-ack:
	default:
		t.Fatal("ack channel not closed after Ack")
	}
	assert.Equal(t, 0, ch.InFlight())
}

func TestChannel_WindowLimit(t *testing.T) {
	ch := newChannel("STORE-A", 2)

	_, err := ch.Send(testEnvelope(1))
	require.NoError(t, err)
	_, err = ch.Send(testEnvelope(2))
	require.NoError(t, err)

	// Окно заполнено: третья отправка отклоняется.
	_, err = ch.Send(testEnvelope(3))
	assert.ErrorIs(t, err, ErrWindowFull)

	// Подтверждение освобождает место.
	ch.Ack(1)
	_, err = ch.Send(testEnvelope(3))
	assert.NoError(t, err)
}

func TestChannel_Close(t *testing.T) {
	ch := newChannel("STORE-A", 2)

	_, err := ch.Send(testEnvelope(1))
	require.NoError(t, err)

	ch.Close()

	select {
	case <-ch.Done():
	default:
		t.Fatal("done channel not closed")
	}

	_, err = ch.Send(testEnvelope(2))
	assert.ErrorIs(t, err, ErrChannelClosed)

	// Повторное закрытие безопасно.
	ch.Close()
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(50, slog.Default())

	a := reg.Register("STORE-A")
	reg.Register("STORE-B")
	assert.Equal(t, []string{"STORE-A", "STORE-B"}, reg.ListActive())

	// Повторная регистрация вытесняет прежний канал.
	a2 := reg.Register("STORE-A")
	select {
	case <-a.Done():
	default:
		t.Fatal("old channel not closed on re-register")
	}
	assert.Equal(t, []string{"STORE-A", "STORE-B"}, reg.ListActive())

	// Снятие устаревшего канала не задевает действующий.
	reg.Deregister("STORE-A", a)
	assert.Contains(t, reg.ListActive(), "STORE-A")

	reg.Deregister("STORE-A", a2)
	assert.Equal(t, []string{"STORE-B"}, reg.ListActive())

	assert.ErrorIs(t, reg.Ack("STORE-A", 1), ErrStoreNotConnected)
	assert.NoError(t, reg.Ack("STORE-B", 1))
}
