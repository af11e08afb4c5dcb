package usagelog

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"sync"
	"time"
)

// Memory is an in-memory Store.
type Memory struct {
	mu   sync.RWMutex
	keys [][]byte
	vals map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{vals: make(map[string][]byte)}
}

func (m *Memory) Append(_ context.Context, r Record) error {
	data, err := encode(r)
	if err != nil {
		return err
	}
	k := recordKey(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vals[string(k)]; !ok {
		i, _ := slices.BinarySearchFunc(m.keys, k, bytes.Compare)
		m.keys = slices.Insert(m.keys, i, k)
	}
	m.vals[string(k)] = data
	return nil
}

func (m *Memory) List(_ context.Context, since time.Time) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		start := sinceKey(since)
		m.mu.RLock()
		i, _ := slices.BinarySearchFunc(m.keys, start, bytes.Compare)
		var snapshot [][]byte
		for _, k := range m.keys[i:] {
			snapshot = append(snapshot, m.vals[string(k)])
		}
		m.mu.RUnlock()

		for _, data := range snapshot {
			r, err := decode(data)
			if !yield(r, err) {
				return
			}
		}
	}
}

func (m *Memory) Close() error { return nil }
