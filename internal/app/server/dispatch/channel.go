package dispatch

import (
	"errors"
	"sync"
)

var (
	ErrChannelClosed = errors.New("delivery channel closed")
	ErrWindowFull    = errors.New("delivery window full")
)

// Channel канал доставки одного подключенного магазина. Окно неподтвержденных
// конвертов ограничено: пока магазин не подтверждает получение, новые
// отправки отклоняются.
type Channel struct {
	storeID string
	window  int

	mu      sync.Mutex
	out     chan Envelope
	pending map[int64]chan struct{}
	closed  bool
	done    chan struct{}
}

func newChannel(storeID string, window int) *Channel {
	return &Channel{
		storeID: storeID,
		window:  window,
		out:     make(chan Envelope, window),
		pending: make(map[int64]chan struct{}),
		done:    make(chan struct{}),
	}
}

// StoreID возвращает код магазина, к которому привязан канал
func (c *Channel) StoreID() string {
	return c.storeID
}

// Out отдает очередь конвертов потоковому обработчику
func (c *Channel) Out() <-chan Envelope {
	return c.out
}

// Done закрывается при отключении магазина
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Send ставит конверт в очередь и возвращает канал подтверждения.
// Повторная отправка того же Seq переиспользует прежнее ожидание.
func (c *Channel) Send(env Envelope) (<-chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrChannelClosed
	}
	if len(c.pending) >= c.window {
		return nil, ErrWindowFull
	}

	ack, exists := c.pending[env.Seq]
	if !exists {
		ack = make(chan struct{})
	}

	select {
	case c.out <- env:
	default:
		return nil, ErrWindowFull
	}

	if !exists {
		c.pending[env.Seq] = ack
	}
	return ack, nil
}

// Ack подтверждает получение конверта магазином
func (c *Channel) Ack(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ack, ok := c.pending[seq]; ok {
		close(ack)
		delete(c.pending, seq)
	}
}

// InFlight возвращает число неподтвержденных конвертов
func (c *Channel) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close закрывает канал; все ожидающие подтверждения отправки считаются
// недоставленными
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	close(c.out)
	c.pending = make(map[int64]chan struct{})
}
