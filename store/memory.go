package store

import (
	"context"
	"sort"
	"sync"

	"github.com/use-agent/enrich/models"
)

// Description is a stored description row.
type Description struct {
	ProductName string
	Text        string
	Link        string
}

// Memory is an in-process store used for dry runs and tests. It is safe
// for concurrent use.
type Memory struct {
	mu           sync.Mutex
	products     map[string]models.Product
	described    map[string]bool
	descriptions map[string]Description
	specs        map[string]models.AttributeMap
}

// NewMemory creates a Memory store seeded with backlog products.
func NewMemory(products ...models.Product) *Memory {
	m := &Memory{
		products:     make(map[string]models.Product),
		described:    make(map[string]bool),
		descriptions: make(map[string]Description),
		specs:        make(map[string]models.AttributeMap),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *Memory) EnsureSchema(context.Context) error { return nil }

func (m *Memory) PendingProducts(_ context.Context, limit int) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Product
	for id, p := range m.products {
		if !m.described[id] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) UpsertDescription(_ context.Context, id, name, description, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptions[id] = Description{ProductName: name, Text: description, Link: sourceURL}
	if description != models.NotFound {
		m.described[id] = true
	}
	return nil
}

func (m *Memory) UpsertSpecifications(_ context.Context, id string, specs models.AttributeMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.specs[id]
	if !ok {
		cur = models.AttributeMap{}
		m.specs[id] = cur
	}
	cur.Merge(specs)
	return nil
}

// SaveRecord writes the whole record under one lock.
func (m *Memory) SaveRecord(_ context.Context, id string, rec *models.ProductRecord, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptions[id] = Description{ProductName: rec.ProductName, Text: rec.Description, Link: sourceURL}
	cur, ok := m.specs[id]
	if !ok {
		cur = models.AttributeMap{}
		m.specs[id] = cur
	}
	cur.Merge(rec.Specifications)
	if rec.Description != models.NotFound {
		m.described[id] = true
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}

// Description returns the stored description for id.
func (m *Memory) Description(id string) (Description, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.descriptions[id]
	return d, ok
}

// Specifications returns a copy of the stored attributes for id.
func (m *Memory) Specifications(id string) models.AttributeMap {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := models.AttributeMap{}
	out.Merge(m.specs[id])
	return out
}
