package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/itiky/crdt-map/model"
)

// MockBucket is a bucket generated maps are put to.
const MockBucket = "mock"

// GenAndSaveInitialStorage generates random storage maps and saves them to file system.
func GenAndSaveInitialStorage(filePath string, storageSize int) error {
	if storageSize <= 0 {
		return fmt.Errorf("%s: must be GT 0", "storageSize")
	}

	log.Printf("Creating objects...")
	objs := newStorageMockObjs(storageSize, time.Now())

	log.Printf("GOB marshal...")
	objsRaw := new(bytes.Buffer)
	if err := gob.NewEncoder(objsRaw).Encode(objs); err != nil {
		return fmt.Errorf("GOB marshal: %w", err)
	}

	log.Printf("Saving file...")
	if err := os.WriteFile(filePath, objsRaw.Bytes(), 0644); err != nil {
		return fmt.Errorf("write to file (%s): %w", filePath, err)
	}

	log.Printf("Done")

	return nil
}

// NewMapHistoryFromFile builds the MapHistory object with a single version (v0) from the file.
func NewMapHistoryFromFile(filePath string) (*MapHistory, error) {
	log.Printf("Reading file...")
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading file (%s): %w", filePath, err)
	}

	log.Printf("GOB unmarshal...")
	objs := make([]Item, 0)
	buf := bytes.NewBuffer(data)
	if err := gob.NewDecoder(buf).Decode(&objs); err != nil {
		return nil, fmt.Errorf("GOB unmarshal: %w", err)
	}

	log.Printf("Storage creation...")
	history := NewMapHistory()
	history.storage = newStorageFromObjs(objs)

	log.Printf("Storage created: %d maps", history.storage.Len())

	return history, nil
}

// newStorageMockObjs builds mocks storage objects.
func newStorageMockObjs(n int, now time.Time) []Item {
	objs := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		objs = append(objs, newStorageMockObj(now))
	}

	return objs
}

// newStorageMockObj builds mocks storage object.
func newStorageMockObj(now time.Time) Item {
	value := model.NewMapValue()
	value.Counters["visits"] = rand.Int63n(1000)
	value.Sets["tags"] = model.ApplySetUpdate(nil, []string{fmt.Sprintf("tag-%d", rand.Intn(10)), fmt.Sprintf("tag-%d", rand.Intn(10))}, nil)
	value.Registers["name"] = uuid.New().String()
	value.Flags["active"] = rand.Intn(2) == 1

	profile := model.NewMapValue()
	profile.Registers["email"] = fmt.Sprintf("user-%d@example.com", rand.Int31())
	value.Maps["profile"] = profile

	return Item{
		Bucket:    MockBucket,
		Key:       uuid.New().String(),
		Value:     value,
		IsDeleted: false,
		UpdatedBy: 0,
		UpdatedAt: now,
	}
}

// newStorageFromObjs builds the Storage object from storage items.
func newStorageFromObjs(objs []Item) *Storage {
	s := NewStorage()

	for idx := 0; idx < len(objs); idx++ {
		item := &objs[idx]
		s.idDataMatch[mapId(item.Bucket, item.Key)] = item
	}

	return s
}
