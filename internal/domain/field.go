package domain

import (
	"bytes"
	"encoding/json"
)

// FieldState distinguishes "not yet provided" from "explicitly cleared".
type FieldState uint8

const (
	FieldAbsent FieldState = iota
	FieldNull
	FieldSet
)

// Field is a tri-state optional value. The zero value is absent.
type Field[T any] struct {
	state FieldState
	value T
}

// Set returns a field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{state: FieldSet, value: v}
}

// Null returns an explicitly cleared field.
func Null[T any]() Field[T] {
	return Field[T]{state: FieldNull}
}

func (f Field[T]) State() FieldState { return f.state }
func (f Field[T]) IsSet() bool { return f.state == FieldSet }
func (f Field[T]) IsNull() bool { return f.state == FieldNull }

// IsZero reports absence so `omitzero` drops absent fields on output.
func (f Field[T]) IsZero() bool { return f.state == FieldAbsent }

// Get returns the value and whether one is set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == FieldSet
}

// OrZero returns the value, or T's zero value when absent or null.
func (f Field[T]) OrZero() T {
	if f.state != FieldSet {
		var zero T
		return zero
	}
	return f.value
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != FieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON is only invoked for keys present in the payload, which
// is what keeps absent and null apart.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.state = FieldNull
		f.value = zero
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.state = FieldSet
	f.value = v
	return nil
}
