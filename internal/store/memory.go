package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Memory is an in-process Gateway used by tests and local runs.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]json.RawMessage

	// Optional failure injection for tests.
	FailReads  error
	FailWrites error

	reads int
}

func NewMemory() *Memory {
	return &Memory{data: map[string]map[string]json.RawMessage{}}
}

// Reads reports how many Get calls reached the gateway.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Get(ctx context.Context, path string) (json.RawMessage, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	docs := m.data[collection]
	if docs == nil {
		return nil, nil
	}
	if id != "" {
		doc, ok := docs[id]
		if !ok {
			return nil, nil
		}
		return doc, nil
	}
	return json.Marshal(docs)
}

func (m *Memory) Set(ctx context.Context, path string, value any) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New("store: set requires a collection/id path")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	if m.data[collection] == nil {
		m.data[collection] = map[string]json.RawMessage{}
	}
	m.data[collection][id] = raw
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, partial map[string]any) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New("store: update requires a collection/id path")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	if m.data[collection] == nil {
		m.data[collection] = map[string]json.RawMessage{}
	}
	merged := map[string]any{}
	if existing, ok := m.data[collection][id]; ok {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return err
		}
	}
	for k, v := range partial {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	m.data[collection][id] = raw
	return nil
}

func (m *Memory) Remove(ctx context.Context, path string) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWrites != nil {
		return m.FailWrites
	}
	if id == "" {
		delete(m.data, collection)
		return nil
	}
	delete(m.data[collection], id)
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, value any) (string, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return "", err
	}
	if id != "" {
		return "", errors.New("store: push requires a collection path")
	}
	key := pushKey()
	if err := m.Set(ctx, collection+"/"+key, value); err != nil {
		return "", err
	}
	return key, nil
}
