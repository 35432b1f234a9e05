// Package kv is the storage capability used for contract state and the
// sequencer's block journal.
package kv

import "io"

// Reader wraps the Get method of a backing data store.
type Reader interface {
	// Get retrieves the given key if it's present in the key-value data store.
	Get(key []byte) (value []byte, exists bool, err error)
}

// Writer wraps the Set and Delete methods of a backing data store.
type Writer interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Batch buffers writes until Write is called. Writes land atomically.
type Batch interface {
	Set(key, value []byte)
	Delete(key []byte)
	Write() error
}

// Batcher wraps the NewBatch method of a backing data store.
type Batcher interface {
	NewBatch() Batch
}

type Store interface {
	Reader
	Writer
	Batcher
	io.Closer
}
