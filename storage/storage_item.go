package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/itiky/crdt-map/model"
)

type (
	// Item keeps Storage map data.
	Item struct {
		Bucket    string
		Key       string
		Value     model.MapValue
		IsDeleted bool
		UpdatedBy model.ClientId
		UpdatedAt time.Time
	}
)

// String implements stringer interface.
func (i Item) String() string {
	raw, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return fmt.Sprintf("marshal: %v", err)
	}

	return string(raw)
}

// NewStorageItem creates a new Item object (no validation as it is used internaly).
func NewStorageItem(bucket, key string, clientId model.ClientId, timestamp time.Time) *Item {
	return &Item{
		Bucket:    bucket,
		Key:       key,
		Value:     model.NewMapValue(),
		UpdatedBy: clientId,
		UpdatedAt: timestamp,
	}
}

// mapId builds the Storage map index key.
func mapId(bucket, key string) string {
	return bucket + "/" + key
}
