package record

import (
	"context"
	"sync"
)

// Memory implements Store with in-process concurrency safety. Items are
// copied on the way in and out so callers never share backing maps.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]Item
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]map[string]Item)}
}

func (m *Memory) Get(ctx context.Context, table, key string) (Item, error) {
	if _, err := KeyAttribute(table); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.tables[table][key]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, table string, item Item) error {
	key, err := itemKey(table, item)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, ok := m.tables[table]
	if !ok {
		rows = make(map[string]Item)
		m.tables[table] = rows
	}
	rows[key] = item.Clone()
	return nil
}

func (m *Memory) Delete(ctx context.Context, table, key string) error {
	if _, err := KeyAttribute(table); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables[table], key)
	return nil
}

func (m *Memory) Scan(ctx context.Context, table string, filter Filter) ([]Item, error) {
	if _, err := KeyAttribute(table); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]Item, 0, len(m.tables[table]))
	for _, item := range m.tables[table] {
		if filter != nil && !filter(item) {
			continue
		}
		items = append(items, item.Clone())
	}
	return items, nil
}

func (m *Memory) Query(ctx context.Context, table, index, value string) ([]Item, error) {
	attr, err := IndexAttribute(table, index)
	if err != nil {
		return nil, err
	}
	return m.Scan(ctx, table, func(item Item) bool {
		v, _ := item[attr].(string)
		return v == value
	})
}
