package entity

import "errors"

// Common errors for the mapping layer.
var (
	// ErrNotStruct is returned when a value that is not a struct (or
	// pointer to one) is passed where an entity is expected.
	ErrNotStruct = errors.New("entity: value is not a struct")

	// ErrSerialization is returned when a driver record cannot be zipped
	// with its column list.
	ErrSerialization = errors.New("entity: serialization failed")
)
