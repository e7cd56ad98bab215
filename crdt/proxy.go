package crdt

import (
	"fmt"
	"sync"

	"github.com/itiky/crdt-map/model"
)

type (
	// ParentContext accepts named operations of the map members.
	// Implemented by the top-level MapProxy and by nested Map members (which cascade operations up).
	ParentContext interface {
		// Nil error means the operation is accepted (not necessarily applied by the server yet)
		Operate(op model.Operation) error
	}

	// Backend transmits map operations and fetches map snapshots.
	Backend interface {
		// FetchMap returns the map version and snapshot (empty one if map doesn't exist).
		FetchMap(bucket, key string) (int, model.MapValue, error)
		// UpdateMap sends map operations.
		UpdateMap(bucket, key string, ops ...model.Operation) error
	}

	// MapProxy is a top-level map view.
	// That is the only ParentContext talking to the Backend.
	MapProxy struct {
		collections
		sync.Mutex
		backend Backend
		bucket  string
		key     string
		version int
		// Batch mode state
		batching bool
		pending  []model.Operation
	}
)

// String implements the stringer interface.
func (p *MapProxy) String() string {
	return fmt.Sprintf("Map (%s/%s v%d)", p.bucket, p.key, p.Version())
}

// Bucket returns the map bucket.
func (p *MapProxy) Bucket() string { return p.bucket }

// Key returns the map key.
func (p *MapProxy) Key() string { return p.key }

// Version returns the snapshot version the view is built from.
func (p *MapProxy) Version() int {
	p.Lock()
	defer p.Unlock()

	return p.version
}

// Value exports the locally known map state.
func (p *MapProxy) Value() model.MapValue {
	p.Lock()
	c := p.collections
	p.Unlock()

	return c.value()
}

// Operate implements the ParentContext interface.
// Operation is sent right away or queued in the batch mode.
func (p *MapProxy) Operate(op model.Operation) error {
	if err := op.Validate(); err != nil {
		return fmt.Errorf("operation (%s): %w", op, err)
	}

	p.Lock()
	if p.batching {
		p.pending = append(p.pending, op)
		p.Unlock()
		return nil
	}
	p.Unlock()

	if err := p.backend.UpdateMap(p.bucket, p.key, op); err != nil {
		return fmt.Errorf("backend.UpdateMap: %w", err)
	}

	return nil
}

// Batch queues all operations performed by fn and sends them within a single request.
// Nothing is sent if fn fails. If fn fails or the request fails, the view is rolled
// back to the state it had before the batch (collections obtained within the batch are detached).
func (p *MapProxy) Batch(fn func(m *MapProxy) error) error {
	p.Lock()
	if p.batching {
		p.Unlock()
		return fmt.Errorf("batch: already started")
	}
	p.batching = true
	startVersion, startCollections := p.version, p.collections
	p.Unlock()

	startValue := startCollections.value()

	fnErr := fn(p)

	p.Lock()
	ops := p.pending
	p.batching, p.pending = false, nil
	p.Unlock()

	if fnErr != nil {
		p.rollback(startVersion, startValue)
		return fnErr
	}
	if len(ops) == 0 {
		return nil
	}

	if err := p.backend.UpdateMap(p.bucket, p.key, ops...); err != nil {
		p.rollback(startVersion, startValue)
		return fmt.Errorf("backend.UpdateMap: %w", err)
	}

	return nil
}

// rollback drops the writes cached within a batch which was never sent.
func (p *MapProxy) rollback(version int, value model.MapValue) {
	if err := p.reset(version, value); err != nil {
		// Value is exported from the valid collections, should not happen
		panic(fmt.Sprintf("crdt: %s: batch rollback: %v", p.String(), err))
	}
}

// Reload rebuilds the view from a freshly fetched snapshot.
// Collections obtained before are detached from the new view.
func (p *MapProxy) Reload() error {
	version, value, err := p.backend.FetchMap(p.bucket, p.key)
	if err != nil {
		return fmt.Errorf("backend.FetchMap: %w", err)
	}

	return p.reset(version, value)
}

// reset replaces the collections.
func (p *MapProxy) reset(version int, value model.MapValue) error {
	c, err := newCollections(p, value)
	if err != nil {
		return fmt.Errorf("building collections: %w", err)
	}

	p.Lock()
	defer p.Unlock()

	p.collections = c
	p.version = version

	return nil
}

// NewMapProxy creates a new MapProxy object fetching the map snapshot.
func NewMapProxy(backend Backend, bucket, key string) (*MapProxy, error) {
	if backend == nil {
		return nil, fmt.Errorf("%s: nil", "backend")
	}
	if bucket == "" {
		return nil, fmt.Errorf("%s: empty", "bucket")
	}
	if key == "" {
		return nil, fmt.Errorf("%s: empty", "key")
	}

	p := newMapProxy(backend, bucket, key)
	if err := p.Reload(); err != nil {
		return nil, err
	}

	return p, nil
}

// NewMapProxyFromValue creates a new MapProxy object from an already known snapshot.
func NewMapProxyFromValue(backend Backend, bucket, key string, version int, value model.MapValue) (*MapProxy, error) {
	if backend == nil {
		return nil, fmt.Errorf("%s: nil", "backend")
	}
	if bucket == "" {
		return nil, fmt.Errorf("%s: empty", "bucket")
	}
	if key == "" {
		return nil, fmt.Errorf("%s: empty", "key")
	}

	p := newMapProxy(backend, bucket, key)
	if err := p.reset(version, value); err != nil {
		return nil, err
	}

	return p, nil
}

func newMapProxy(backend Backend, bucket, key string) *MapProxy {
	return &MapProxy{
		backend: backend,
		bucket:  bucket,
		key:     key,
	}
}
