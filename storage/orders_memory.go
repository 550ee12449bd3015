package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryOrders is an in-memory implementation of OrderHistory
type MemoryOrders struct {
	orders map[string][]Order
	mutex  sync.RWMutex
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{
		orders: make(map[string][]Order),
	}
}

// Add records an order and returns its id. Missing id, status and creation
// time are filled in.
func (m *MemoryOrders) Add(order Order) string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if order.Id == "" {
		order.Id = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = OrderPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	list := append(m.orders[order.UserId], order)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	m.orders[order.UserId] = list
	return order.Id
}

func (m *MemoryOrders) RecentOrders(_ context.Context, userId string, limit int) ([]Order, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	list := m.orders[userId]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]Order, len(list))
	copy(out, list)
	return out, nil
}

func (m *MemoryOrders) Close() error {
	return nil
}
