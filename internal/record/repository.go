package record

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record cannot be found by ID.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when saving a record whose ID is taken.
// Records are terminal, so a duplicate save is a caller defect.
var ErrAlreadyExists = errors.New("record already exists")

// Repository defines the interface for record persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save persists a new record. Returns ErrAlreadyExists if a record
	// with the same ID was saved before.
	Save(ctx context.Context, rec *Record) error

	// FindByID retrieves a record by its identifier.
	// Returns ErrNotFound if the record does not exist.
	FindByID(ctx context.Context, id string) (*Record, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]*Record, error)

	// Delete removes a record.
	// Returns ErrNotFound if the record does not exist.
	Delete(ctx context.Context, id string) error
}
