package storage

import "errors"

// ErrNotFound is returned when a lookup by id or natural key matches nothing.
var ErrNotFound = errors.New("document not found")

// ErrAlreadyExists is returned when an insert hits an existing document id.
// Callers treat it as success-equivalent: the document was already synced.
var ErrAlreadyExists = errors.New("document already exists")
