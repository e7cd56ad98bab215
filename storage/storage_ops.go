package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/itiky/crdt-map/model"
)

type (
	// StorageOperation is an operation performed on Storage to update its state.
	StorageOperation interface {
		// Update the storage state
		Apply(s *Storage) *model.MapUpdate
		// Only used for tests
		GetId() uuid.UUID
		// Only used for tests
		GetTimestamp() time.Time
	}

	// UpdateOperation implements StorageOperation interface for map create/update operation.
	UpdateOperation struct {
		Id         uuid.UUID
		Bucket     string
		Key        string
		Operations []model.Operation
		UpdatedBy  model.ClientId
		UpdatedAt  time.Time
	}

	// DeleteOperation implements StorageOperation interface for the whole map delete operation.
	DeleteOperation struct {
		Id        uuid.UUID
		Bucket    string
		Key       string
		DeletedBy model.ClientId
		DeletedAt time.Time
	}
)

// Apply implements StorageOperation interface.
func (o UpdateOperation) Apply(s *Storage) *model.MapUpdate {
	return s.update(o.Bucket, o.Key, o.Operations, o.UpdatedBy, o.UpdatedAt)
}

// GetId implements StorageOperation interface.
func (o UpdateOperation) GetId() uuid.UUID {
	return o.Id
}

// GetTimestamp implements StorageOperation interface.
func (o UpdateOperation) GetTimestamp() time.Time {
	return o.UpdatedAt
}

// Apply implements StorageOperation interface.
func (o DeleteOperation) Apply(s *Storage) *model.MapUpdate {
	return s.delete(o.Bucket, o.Key, o.DeletedBy, o.DeletedAt)
}

// GetId implements StorageOperation interface.
func (o DeleteOperation) GetId() uuid.UUID {
	return o.Id
}

// GetTimestamp implements StorageOperation interface.
func (o DeleteOperation) GetTimestamp() time.Time {
	return o.DeletedAt
}

// NewUpdateOperation creates a valid StorageOperation object.
func NewUpdateOperation(bucket, key string, ops []model.Operation, clientId model.ClientId, timestamp time.Time) (UpdateOperation, error) {
	if err := validateAddress(bucket, key); err != nil {
		return UpdateOperation{}, err
	}
	if len(ops) == 0 {
		return UpdateOperation{}, fmt.Errorf("%s: must be GT 0", "ops")
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return UpdateOperation{}, fmt.Errorf("ops[%d]: invalid: %w", i, err)
		}
	}
	if timestamp.IsZero() {
		return UpdateOperation{}, fmt.Errorf("%s: zero", "timestamp")
	}

	return UpdateOperation{
		Id:         uuid.New(),
		Bucket:     bucket,
		Key:        key,
		Operations: ops,
		UpdatedBy:  clientId,
		UpdatedAt:  timestamp,
	}, nil
}

// NewDeleteOperation creates a valid StorageOperation object.
func NewDeleteOperation(bucket, key string, clientId model.ClientId, timestamp time.Time) (DeleteOperation, error) {
	if err := validateAddress(bucket, key); err != nil {
		return DeleteOperation{}, err
	}
	if timestamp.IsZero() {
		return DeleteOperation{}, fmt.Errorf("%s: zero", "timestamp")
	}

	return DeleteOperation{
		Id:        uuid.New(),
		Bucket:    bucket,
		Key:       key,
		DeletedBy: clientId,
		DeletedAt: timestamp,
	}, nil
}

// validateAddress checks the map bucket / key pair.
func validateAddress(bucket, key string) error {
	if bucket == "" {
		return fmt.Errorf("%s: empty", "bucket")
	}
	if key == "" {
		return fmt.Errorf("%s: empty", "key")
	}

	return nil
}
