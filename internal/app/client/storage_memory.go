package client

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryMirror — зеркало в памяти. Используется как запасной вариант,
// когда SQLite недоступен, и в тестах.
type MemoryMirror struct {
	mu         sync.RWMutex
	transfers  map[string]*LocalTransfer
	prices     map[string]*LocalPrice
	stock      map[string]*LocalStock
	alerts     map[int64]*LocalAlert
	checkpoint int64
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{
		transfers: make(map[string]*LocalTransfer),
		prices:    make(map[string]*LocalPrice),
		stock:     make(map[string]*LocalStock),
		alerts:    make(map[int64]*LocalAlert),
	}
}

func (m *MemoryMirror) ApplyTransfer(t *LocalTransfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.transfers[t.ID]; ok && t.Version < prev.Version {
		return nil
	}
	cp := *t
	m.transfers[t.ID] = &cp

	return nil
}

func (m *MemoryMirror) ApplyPrice(p *LocalPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.prices[p.ProductID]; ok && p.Version < prev.Version {
		return nil
	}
	cp := *p
	m.prices[p.ProductID] = &cp

	return nil
}

func (m *MemoryMirror) ApplyStock(s *LocalStock) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := s.StoreID + "/" + s.ProductID
	if prev, ok := m.stock[key]; ok && s.Version < prev.Version {
		return nil
	}
	cp := *s
	m.stock[key] = &cp

	return nil
}

func (m *MemoryMirror) SaveAlert(a *LocalAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alerts[a.Seq]; ok {
		return nil
	}
	cp := *a
	m.alerts[a.Seq] = &cp

	return nil
}

func (m *MemoryMirror) GetTransfer(id string) (*LocalTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transfers[id]
	if !ok {
		return nil, fmt.Errorf("перемещение не найдено: %s", id)
	}
	cp := *t

	return &cp, nil
}

func (m *MemoryMirror) ListTransfers(status string) ([]*LocalTransfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var transfers []*LocalTransfer
	for _, t := range m.transfers {
		if status != "" && t.Status != status {
			continue
		}
		cp := *t
		transfers = append(transfers, &cp)
	}
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].UpdatedAt.After(transfers[j].UpdatedAt)
	})

	return transfers, nil
}

func (m *MemoryMirror) GetPrice(productID string) (*LocalPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.prices[productID]
	if !ok {
		return nil, fmt.Errorf("цена не найдена: %s", productID)
	}
	cp := *p

	return &cp, nil
}

func (m *MemoryMirror) ListPrices() ([]*LocalPrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var prices []*LocalPrice
	for _, p := range m.prices {
		cp := *p
		prices = append(prices, &cp)
	}
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].ProductID < prices[j].ProductID
	})

	return prices, nil
}

func (m *MemoryMirror) ListStock(storeID string) ([]*LocalStock, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stock []*LocalStock
	for _, s := range m.stock {
		if storeID != "" && s.StoreID != storeID {
			continue
		}
		cp := *s
		stock = append(stock, &cp)
	}
	sort.Slice(stock, func(i, j int) bool {
		return stock[i].ProductID < stock[j].ProductID
	})

	return stock, nil
}

func (m *MemoryMirror) ListAlerts(limit int) ([]*LocalAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var alerts []*LocalAlert
	for _, a := range m.alerts {
		cp := *a
		alerts = append(alerts, &cp)
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].Seq > alerts[j].Seq
	})
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}

	return alerts, nil
}

func (m *MemoryMirror) Checkpoint() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.checkpoint, nil
}

func (m *MemoryMirror) SetCheckpoint(seq int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq > m.checkpoint {
		m.checkpoint = seq
	}

	return nil
}

func (m *MemoryMirror) Close() error {
	return nil
}
