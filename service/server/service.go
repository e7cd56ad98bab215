package server

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/itiky/crdt-map/model"
	"github.com/itiky/crdt-map/storage"
)

// MapService implements an RPC server service.
type MapService struct {
	// Config
	batchPeriod time.Duration
	// State
	history *storage.MapHistory
	schemas *storage.SchemaRegistry
	opsCh   chan []storage.StorageOperation
	//
	lock   sync.Mutex
	stopCh chan interface{}
}

// GetMap returns a map snapshot.
func (s *MapService) GetMap(req model.GetMapRequest, res *model.GetMapResponse) error {
	if req.ClientId <= 0 {
		return fmt.Errorf("%s: must be GT 0", "ClientId")
	}

	version, value := s.history.GetOutputSnapshot(req.Bucket, req.Key)
	res.Version = version
	res.Value = value

	return nil
}

// GetMapUpdates returns model.MapUpdate objects for client to apply on a local snapshot in order to upgrade it.
func (s *MapService) GetMapUpdates(req model.GetMapUpdatesRequest, res *model.GetMapUpdatesResponse) error {
	start := time.Now()

	version, mapUpds := s.history.GetOutputDiffWithLatest(req.Version, req.Bucket, req.Key)
	res.Version = version
	res.Updates = mapUpds

	go monitor.DiffRequestServed(time.Since(start))

	return nil
}

// UpdateMap receives the map member operations and pushes them to the queue.
func (s *MapService) UpdateMap(req model.UpdateMapRequest, res *model.UpdateMapResponse) error {
	now := time.Now().UTC()

	storageOp, err := storage.NewUpdateOperation(req.Bucket, req.Key, req.Operations, req.ClientId, now)
	if err != nil {
		return fmt.Errorf("updateOperation (%s/%s): %w", req.Bucket, req.Key, err)
	}

	s.opsCh <- []storage.StorageOperation{storageOp}

	return nil
}

// DeleteMap receives the whole map delete request and pushes it to the queue.
func (s *MapService) DeleteMap(req model.DeleteMapRequest, res *model.DeleteMapResponse) error {
	now := time.Now().UTC()

	storageOp, err := storage.NewDeleteOperation(req.Bucket, req.Key, req.ClientId, now)
	if err != nil {
		return fmt.Errorf("deleteOperation (%s/%s): %w", req.Bucket, req.Key, err)
	}

	s.opsCh <- []storage.StorageOperation{storageOp}

	return nil
}

// GetSchema returns a search schema.
func (s *MapService) GetSchema(req model.GetSchemaRequest, res *model.GetSchemaResponse) error {
	schema, err := s.schemas.Get(req.Name)
	if err != nil {
		return err
	}
	res.Schema = schema

	return nil
}

// CreateSchema registers a new search schema.
func (s *MapService) CreateSchema(req model.CreateSchemaRequest, res *model.CreateSchemaResponse) error {
	if err := s.schemas.Create(req.Schema); err != nil {
		return err
	}
	log.Printf("MapService: schema %q created", req.Schema.Name)

	return nil
}

// Start starts the service worker.
func (s *MapService) Start() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan interface{})

	monitor.Start()
	go s.worker(s.stopCh)
}

// Stop stops the service worker, it can be started again.
func (s *MapService) Stop() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.stopCh == nil {
		return
	}

	close(s.stopCh)
	s.stopCh = nil
	monitor.Stop()
}

// worker does the actual job.
func (s *MapService) worker(stopCh <-chan interface{}) {
	log.Println("MapService: start")

	stOpsQueue := make([]storage.StorageOperation, 0)

	handleTicker := time.NewTicker(s.batchPeriod)
	defer handleTicker.Stop()

	for {
		select {
		case <-stopCh:
			// Service stop
			log.Println("MapService: stop")
			return
		case stOps := <-s.opsCh:
			// Push storage operations to the queue
			stOpsQueue = append(stOpsQueue, stOps...)
		case <-handleTicker.C:
			// Start handling the queued operations
			if len(stOpsQueue) == 0 {
				continue
			}

			sort.SliceStable(stOpsQueue, func(i, j int) bool {
				return stOpsQueue[i].GetTimestamp().Before(stOpsQueue[j].GetTimestamp())
			})

			s.history.AddVersion(stOpsQueue...)
			monitor.BatchHandled(stOpsQueue)

			stOpsQueue = make([]storage.StorageOperation, 0)
		}
	}
}

// NewMapService creates a new MapService object.
// Storage is loaded from the file if filePath is not empty.
func NewMapService(chSize int, batchPeriod time.Duration, filePath string, schemas *storage.SchemaRegistry) (*MapService, error) {
	if chSize < 0 {
		return nil, fmt.Errorf("%s: must be GTE 0", "chSize")
	}
	if batchPeriod <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "batchPeriod")
	}
	if schemas == nil {
		return nil, fmt.Errorf("%s: nil", "schemas")
	}

	history := storage.NewMapHistory()
	if filePath != "" {
		h, err := storage.NewMapHistoryFromFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("storage.NewMapHistoryFromFile: %w", err)
		}
		history = h
	}

	return &MapService{
		history:     history,
		schemas:     schemas,
		opsCh:       make(chan []storage.StorageOperation, chSize),
		batchPeriod: batchPeriod,
	}, nil
}
