package kv

import "sort"

// Overlay stages writes on top of a Reader. Reads see staged writes first.
// Nothing reaches the underlying store until Flush.
type Overlay struct {
	base   Reader
	staged map[string][]byte // nil value marks a delete
}

func NewOverlay(base Reader) *Overlay {
	return &Overlay{base: base, staged: make(map[string][]byte)}
}

func (o *Overlay) Get(key []byte) ([]byte, bool, error) {
	if v, ok := o.staged[string(key)]; ok {
		if v == nil {
			return nil, false, nil
		}
		return append([]byte(nil), v...), true, nil
	}
	return o.base.Get(key)
}

func (o *Overlay) Set(key, value []byte) error {
	o.staged[string(key)] = append([]byte{}, value...)
	return nil
}

func (o *Overlay) Delete(key []byte) error {
	o.staged[string(key)] = nil
	return nil
}

// Dirty reports whether any write is staged.
func (o *Overlay) Dirty() bool { return len(o.staged) > 0 }

// Flush writes every staged change to dst in one batch and clears the
// overlay.
func (o *Overlay) Flush(dst Batcher) error {
	if len(o.staged) == 0 {
		return nil
	}

	keys := make([]string, 0, len(o.staged))
	for k := range o.staged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := dst.NewBatch()
	for _, k := range keys {
		if v := o.staged[k]; v == nil {
			b.Delete([]byte(k))
		} else {
			b.Set([]byte(k), v)
		}
	}
	if err := b.Write(); err != nil {
		return err
	}
	o.Discard()
	return nil
}

// Discard drops every staged change.
func (o *Overlay) Discard() {
	clear(o.staged)
}
