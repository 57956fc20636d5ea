package dispatch

import (
	"errors"
	"sort"
	"sync"

	"golang.org/x/exp/slog"
)

var ErrStoreNotConnected = errors.New("store not connected")

// Registry реестр подключенных магазинов — единственный источник истины
// для веерной рассылки.
type Registry struct {
	window int
	log    *slog.Logger

	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewRegistry создает реестр подключений. window — размер окна
// неподтвержденных конвертов на один канал.
func NewRegistry(window int, log *slog.Logger) *Registry {
	return &Registry{
		window:   window,
		log:      log.With("component", "dispatch_registry"),
		channels: make(map[string]*Channel),
	}
}

// Register регистрирует подключение магазина. Прежний канал того же
// магазина закрывается: активно ровно одно подключение на магазин.
func (r *Registry) Register(storeID string) *Channel {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.channels[storeID]; ok {
		old.Close()
	}

	ch := newChannel(storeID, r.window)
	r.channels[storeID] = ch

	r.log.Info("store connected", "store_id", storeID, "active", len(r.channels))
	return ch
}

// Deregister снимает подключение магазина и закрывает его канал
func (r *Registry) Deregister(storeID string, ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Канал мог быть уже вытеснен повторным подключением.
	if current, ok := r.channels[storeID]; ok && current == ch {
		delete(r.channels, storeID)
	}
	ch.Close()

	r.log.Info("store disconnected", "store_id", storeID, "active", len(r.channels))
}

// Ack подтверждает доставку конверта магазину
func (r *Registry) Ack(storeID string, seq int64) error {
	r.mu.RLock()
	ch, ok := r.channels[storeID]
	r.mu.RUnlock()

	if !ok {
		return ErrStoreNotConnected
	}
	ch.Ack(seq)
	return nil
}

// ListActive возвращает коды подключенных магазинов
func (r *Registry) ListActive() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stores := make([]string, 0, len(r.channels))
	for storeID := range r.channels {
		stores = append(stores, storeID)
	}
	sort.Strings(stores)
	return stores
}

// Snapshot возвращает каналы, зарегистрированные на момент вызова
func (r *Registry) Snapshot() []*Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	return channels
}
