// Package codec provides a concrete, JSON-based implementation of
// task.Encoder (spec §6's encoder contract). It is an external
// collaborator by design — nothing under internal/dispatcher,
// internal/registry, internal/queue, internal/tasktable, or pkg/pool
// imports it; the CLI and pkg/pool's tests do, and pool.Pool.SubmitValue
// reaches it only through the task.Encoder given to pool.WithEncoder.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// JSON implements task.Encoder with encoding/json.
type JSON struct{}

// Encodable rejects values JSON cannot round-trip: funcs, channels, and
// unsafe pointers, mirroring spec §4.2's "non-serializable values are
// pre-validated by the external encoder".
func (JSON) Encodable(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	default:
		return true
	}
}

func (JSON) Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return b, nil
}

func (JSON) Decode(b []byte, out any) error {
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("codec: decode: %w", err)
	}
	return nil
}
