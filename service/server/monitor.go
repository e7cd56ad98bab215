package server

import (
	"log"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"

	"github.com/itiky/crdt-map/model"
	"github.com/itiky/crdt-map/storage"
)

const monitorPeriod = 5 * time.Second

var monitor *Monitor

// Monitor keeps MapService stats: member operations applied by type, whole map deletes, batch sizes.
type Monitor struct {
	sync.Mutex
	memberOps   map[model.MemberType]int
	mapDeletes  int
	batchSize   *movingaverage.MovingAverage
	diffHandled int
	diffReqDur  *movingaverage.MovingAverage
	stopCh      chan struct{}
}

// BatchHandled updates the applied batch metrics.
func (m *Monitor) BatchHandled(stOps []storage.StorageOperation) {
	m.Lock()
	defer m.Unlock()

	for _, stOp := range stOps {
		switch op := stOp.(type) {
		case storage.UpdateOperation:
			for _, memberOp := range op.Operations {
				m.memberOps[memberOp.MemberType]++
			}
		case storage.DeleteOperation:
			m.mapDeletes++
		}
	}
	m.batchSize.Add(float64(len(stOps)))
}

// DiffRequestServed updates the service.GetMapUpdates handling duration metric.
func (m *Monitor) DiffRequestServed(dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	m.diffReqDur.Add(float64(dur/time.Microsecond) / 1000.0)
	m.diffHandled++
}

// Start starts the Monitor worker.
func (m *Monitor) Start() {
	m.Lock()
	defer m.Unlock()

	if m.stopCh != nil {
		return
	}

	m.stopCh = make(chan struct{})
	go m.worker(m.stopCh)
}

// Stop stops the Monitor worker.
func (m *Monitor) Stop() {
	m.Lock()
	defer m.Unlock()

	if m.stopCh == nil {
		return
	}

	close(m.stopCh)
	m.stopCh = nil
}

// report logs and resets the period stats.
func (m *Monitor) report() {
	m.Lock()
	defer m.Unlock()

	perSec := func(n int) float64 {
		return float64(n) / monitorPeriod.Seconds()
	}

	log.Printf("Monitor:")
	for _, memberType := range model.MemberTypes {
		log.Printf("  - %-8s ops / s:      %.2f", memberType, perSec(m.memberOps[memberType]))
	}
	log.Printf("  - Map deletes / s:       %.2f", perSec(m.mapDeletes))
	log.Printf("  - Batch size [ops]:      %.2f", m.batchSize.Avg())
	log.Printf("  - Diff requests / s:     %.2f", perSec(m.diffHandled))
	log.Printf("  - Diff request dur [ms]: %.2f", m.diffReqDur.Avg())

	m.memberOps = make(map[model.MemberType]int)
	m.mapDeletes = 0
	m.diffHandled = 0
}

// worker does the actual job.
func (m *Monitor) worker(stopCh <-chan struct{}) {
	ticker := time.NewTicker(monitorPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func newMonitor() *Monitor {
	return &Monitor{
		memberOps:  make(map[model.MemberType]int),
		batchSize:  movingaverage.New(5),
		diffReqDur: movingaverage.New(5),
	}
}

func init() {
	monitor = newMonitor()
}
