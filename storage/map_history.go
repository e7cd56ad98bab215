package storage

import (
	"sync"

	"github.com/itiky/crdt-map/model"
)

type (
	// MapHistory keeps the storage history alongside cache used to client requests.
	MapHistory struct {
		sync.RWMutex
		// List of storage versions
		versions []Version
		// Latest version storage state
		storage *Storage
		// The current storage version
		latestVersion int
	}

	Version struct {
		Version int
		// Storage operations to apply on previous storage version in order to upgrade it
		InputOperations []StorageOperation
		// Client model.MapValue updates to apply in order to upgrade it
		OutputUpdates []model.MapUpdate
	}
)

// AddVersion adds a new storage version caching input/output operations.
func (h *MapHistory) AddVersion(stOps ...StorageOperation) {
	if len(stOps) == 0 {
		return
	}

	h.Lock()
	defer h.Unlock()

	// Update the storage state
	mapUpds := h.storage.ApplyOperations(stOps...)

	// Add a new version
	stOpsCopy := make([]StorageOperation, len(stOps))
	copy(stOpsCopy, stOps)
	newVersion := Version{
		InputOperations: stOpsCopy,
		OutputUpdates:   mapUpds,
	}

	historyLen := len(h.versions)
	if historyLen > 0 {
		newVersion.Version = h.versions[historyLen-1].Version + 1
	}

	h.versions = append(h.versions, newVersion)

	// Update the version
	h.latestVersion = len(h.versions) - 1
}

// GetOutputDiffWithLatest returns snapshot version and model.MapUpdate objects for the map
// for client to apply on a local snapshot in order to upgrade it to the latest one.
func (h *MapHistory) GetOutputDiffWithLatest(version int, bucket, key string) (int, []model.MapUpdate) {
	h.RLock()
	defer h.RUnlock()

	startVersion := version + 1
	if startVersion < 0 || !h.isVersionValid(startVersion) {
		return version, nil
	}

	diffUpds := make([]model.MapUpdate, 0)
	for i := startVersion; i <= h.latestVersion; i++ {
		for _, upd := range h.versions[i].OutputUpdates {
			if upd.Bucket == bucket && upd.Key == key {
				diffUpds = append(diffUpds, upd)
			}
		}
	}

	return h.latestVersion, diffUpds
}

// GetOutputSnapshot returns latest snapshot version and map data.
// Action is performed for new client connections in order to get the local snapshot.
func (h *MapHistory) GetOutputSnapshot(bucket, key string) (int, model.MapValue) {
	h.RLock()
	defer h.RUnlock()

	return h.latestVersion, h.storage.Export(bucket, key)
}

// BuildStorage builds a Storage snapshot for the specified version.
// Makes possible to build a snapshot for all previous versions.
func (h *MapHistory) BuildStorage(version int) *Storage {
	h.RLock()
	defer h.RUnlock()

	if version < 0 || !h.isVersionValid(version) {
		return nil
	}

	storage := NewStorage()
	for i := 0; i <= version; i++ {
		storage.ApplyOperations(h.versions[i].InputOperations...)
	}

	return storage
}

// IsVersionValid checks if storage version exists.
func (h *MapHistory) IsVersionValid(version int) bool {
	h.RLock()
	defer h.RUnlock()

	return h.isVersionValid(version)
}

func (h *MapHistory) isVersionValid(version int) bool {
	return version < len(h.versions)
}

// NewMapHistory creates a new MapHistory object with an empty initial version (v0).
func NewMapHistory() *MapHistory {
	return &MapHistory{
		versions: []Version{{Version: 0}},
		storage:  NewStorage(),
	}
}
