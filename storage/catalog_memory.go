package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryCatalog is an in-memory implementation of Catalog
type MemoryCatalog struct {
	products []Product
	storeId  string
	mutex    sync.RWMutex
}

// NewMemoryCatalog creates a catalog that sees only products of storeId,
// or every product when storeId is empty.
func NewMemoryCatalog(storeId string) *MemoryCatalog {
	return &MemoryCatalog{storeId: storeId}
}

// Upsert adds the product or replaces the one with the same name and store.
// It returns the stored product id.
func (m *MemoryCatalog) Upsert(product Product) string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, p := range m.products {
		if p.Name == product.Name && p.StoreId == product.StoreId {
			product.Id = p.Id
			m.products[i] = product
			return product.Id
		}
	}
	if product.Id == "" {
		product.Id = uuid.New().String()
	}
	m.products = append(m.products, product)
	sort.Slice(m.products, func(i, j int) bool {
		return productLess(m.products[i], m.products[j])
	})
	return product.Id
}

// SetStock changes the stock level of a product by id.
func (m *MemoryCatalog) SetStock(id string, stock int) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i := range m.products {
		if m.products[i].Id == id {
			m.products[i].Stock = stock
			return true
		}
	}
	return false
}

func (m *MemoryCatalog) FindByNameFragment(_ context.Context, fragment string) (*Product, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, p := range m.products {
		if m.storeId != "" && p.StoreId != m.storeId {
			continue
		}
		if nameContains(p.Name, fragment) {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryCatalog) Close() error {
	return nil
}
