package kv

import "sync"

type memoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an in-process Store.
func NewMemory() Store {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Get(key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memoryKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *memoryKV) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, string(key))
	return nil
}

func (m *memoryKV) NewBatch() Batch { return &memoryBatch{db: m} }

func (m *memoryKV) Close() error { return nil }

type memoryOp struct {
	key   string
	value []byte // nil deletes
}

type memoryBatch struct {
	db  *memoryKV
	ops []memoryOp
}

func (b *memoryBatch) Set(key, value []byte) {
	b.ops = append(b.ops, memoryOp{key: string(key), value: append([]byte{}, value...)})
}

func (b *memoryBatch) Delete(key []byte) {
	b.ops = append(b.ops, memoryOp{key: string(key)})
}

func (b *memoryBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()

	for _, op := range b.ops {
		if op.value == nil {
			delete(b.db.data, op.key)
		} else {
			b.db.data[op.key] = op.value
		}
	}
	b.ops = nil
	return nil
}
