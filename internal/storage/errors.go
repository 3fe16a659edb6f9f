package storage

import "errors"

var (
	// ErrNotFound is returned when a referenced key is absent from the store.
	ErrNotFound = errors.New("key not found")

	// ErrIncompatible is returned when operand vectors differ in length.
	ErrIncompatible = errors.New("vectors have different lengths")

	// ErrUndefined is returned when a result has no mathematical value, such
	// as the cosine similarity of a zero-magnitude vector.
	ErrUndefined = errors.New("result is undefined")
)
