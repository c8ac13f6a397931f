package session

import "errors"

var (
	// ErrPersistence indicates a storage I/O failure in the adapter. All
	// adapter errors wrap this sentinel so callers can tell "store broke"
	// apart from "no valid session", which is never an error.
	ErrPersistence = errors.New("session.persistence_failure")

	// ErrAdapterRequired indicates a Manager was constructed without an
	// adapter.
	ErrAdapterRequired = errors.New("session.adapter_required")

	// ErrIDGeneration indicates session id generation failed.
	ErrIDGeneration = errors.New("session.id_generation_failed")

	// ErrInvalidRecord indicates a record with an empty id was passed to
	// an adapter.
	ErrInvalidRecord = errors.New("session.invalid_record")
)
