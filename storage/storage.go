package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/itiky/crdt-map/model"
)

type (
	// Storage keeps maps by their bucket / key address.
	// Storage implements the "soft delete" methodology.
	// Operations are applied sequentially in the order given (no CRDT convergence).
	Storage struct {
		idDataMatch map[string]*Item
	}
)

// String implements stringer interface.
func (s *Storage) String() string {
	ids := make([]string, 0, len(s.idDataMatch))
	for id := range s.idDataMatch {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	str := strings.Builder{}
	i := 0
	for _, id := range ids {
		item := s.idDataMatch[id]
		if item.IsDeleted {
			continue
		}
		str.WriteString(fmt.Sprintf("- [%d] %s (c: %d, s: %d, r: %d, f: %d, m: %d)\n",
			i, id, len(item.Value.Counters), len(item.Value.Sets), len(item.Value.Registers), len(item.Value.Flags), len(item.Value.Maps)))
		i++
	}

	return str.String()
}

// Export returns a map snapshot (empty if not found).
func (s *Storage) Export(bucket, key string) model.MapValue {
	item, found := s.idDataMatch[mapId(bucket, key)]
	if !found || item.IsDeleted {
		return model.NewMapValue()
	}

	return item.Value.Clone()
}

// Len returns the number of existing maps.
func (s *Storage) Len() int {
	n := 0
	for _, item := range s.idDataMatch {
		if !item.IsDeleted {
			n++
		}
	}

	return n
}

// ApplyOperations updates storage state with StorageOperation list and returns map updates performed.
func (s *Storage) ApplyOperations(ops ...StorageOperation) []model.MapUpdate {
	mapUpds := make([]model.MapUpdate, 0, len(ops))

	for _, op := range ops {
		if op == nil {
			continue
		}

		if mapUpd := op.Apply(s); mapUpd != nil {
			mapUpds = append(mapUpds, *mapUpd)
		}
	}

	return mapUpds
}

// update creates a new / updates an existing Item applying the map member operations.
// Operations are validated on StorageOperation creation, a failed one is skipped.
func (s *Storage) update(bucket, key string, ops []model.Operation, clientId model.ClientId, timestamp time.Time) *model.MapUpdate {
	id := mapId(bucket, key)

	item, found := s.idDataMatch[id]
	if !found {
		item = NewStorageItem(bucket, key, clientId, timestamp)
		s.idDataMatch[id] = item
	}
	if item.IsDeleted {
		// Recreate
		item.IsDeleted = false
		item.Value = model.NewMapValue()
	}

	newValue, err := model.ApplyMapOperations(item.Value, ops...)
	if err != nil {
		return nil
	}
	item.Value = newValue
	item.UpdatedBy, item.UpdatedAt = clientId, timestamp

	opsCopy := make([]model.Operation, len(ops))
	copy(opsCopy, ops)

	return &model.MapUpdate{
		Type:       model.UpdateOperationType,
		Bucket:     bucket,
		Key:        key,
		Operations: opsCopy,
	}
}

// delete marks an existing Item as deleted.
func (s *Storage) delete(bucket, key string, clientId model.ClientId, timestamp time.Time) *model.MapUpdate {
	item, found := s.idDataMatch[mapId(bucket, key)]
	if !found || item.IsDeleted {
		return nil
	}

	item.IsDeleted = true
	item.Value = model.NewMapValue()
	item.UpdatedBy, item.UpdatedAt = clientId, timestamp

	return &model.MapUpdate{
		Type:   model.DeleteOperationType,
		Bucket: bucket,
		Key:    key,
	}
}

// NewStorage creates a new Storage object.
func NewStorage() *Storage {
	return &Storage{
		idDataMatch: make(map[string]*Item),
	}
}
