package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrDuplicateKey = errors.New("key already present")
	ErrReleased     = errors.New("document has been released")
)

type entry struct {
	key   string
	value string
}

// Document is an ordered JSON object of string values.
// Keys render in insertion order.
type Document struct {
	entries  []entry
	released bool
}

func New() *Document {
	return &Document{entries: make([]entry, 0, 1)}
}

// Set inserts key with value. Unlike a map assignment it refuses to overwrite
// an existing key, so a caller always learns whether the insertion happened.
func (d *Document) Set(key, value string) error {
	if d.released {
		return ErrReleased
	}
	if _, ok := d.Get(key); ok {
		return fmt.Errorf("failed to set %q: %w", key, ErrDuplicateKey)
	}

	d.entries = append(d.entries, entry{key: key, value: value})
	return nil
}

// Get returns the value stored under key
func (d *Document) Get(key string) (string, bool) {
	for _, e := range d.entries {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

func (d *Document) count() int {
	return len(d.entries)
}

// MarshalJSON renders the document as compact JSON with no whitespace between
// tokens. HTML characters are left as is.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.released {
		return nil, ErrReleased
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, e := range d.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(e.key); err != nil {
			return nil, fmt.Errorf("failed to encode key %q: %w", e.key, err)
		}
		// Encode always terminates with a newline
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(e.value); err != nil {
			return nil, fmt.Errorf("failed to encode value of %q: %w", e.key, err)
		}
		buf.Truncate(buf.Len() - 1)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Release drops all entries. A released document can no longer be modified or rendered.
func (d *Document) Release() {
	d.entries = nil
	d.released = true
}
