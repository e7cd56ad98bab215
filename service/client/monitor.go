package client

import (
	"log"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"

	"github.com/itiky/crdt-map/model"
)

const monitorPeriod = 5 * time.Second

var monitor *Monitor

// Monitor keeps Client stats: member operations sent and echoed back by type, request durations, consistency lag.
type Monitor struct {
	sync.Mutex
	opsSend          map[model.MemberType]int
	opsReceived      map[model.MemberType]int
	batchSize        *movingaverage.MovingAverage
	updReqDur        *movingaverage.MovingAverage
	diffReqDur       *movingaverage.MovingAverage
	consistencyDur   *movingaverage.MovingAverage
	consistencyReset time.Time
	stopCh           chan struct{}
}

// OperationsSend updates the sent map operations metrics (one UpdateMap request).
func (m *Monitor) OperationsSend(ops []model.Operation, dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	for _, op := range ops {
		m.opsSend[op.MemberType]++
	}
	m.batchSize.Add(float64(len(ops)))
	m.updReqDur.Add(float64(dur/time.Microsecond) / 1000.0)
}

// UpdatesReceived updates the received map operations metrics (one GetMapUpdates request).
func (m *Monitor) UpdatesReceived(upds []model.MapUpdate, dur time.Duration) {
	m.Lock()
	defer m.Unlock()

	for _, upd := range upds {
		for _, op := range upd.Operations {
			m.opsReceived[op.MemberType]++
		}
	}
	m.diffReqDur.Add(float64(dur/time.Microsecond) / 1000.0)
}

// ConsistencyReset marks the moment local operations became not visible in the snapshot.
func (m *Monitor) ConsistencyReset(ts time.Time) {
	m.Lock()
	defer m.Unlock()

	m.consistencyReset = ts
}

// ConsistencyAchieved marks the moment all local operations became visible in the snapshot.
func (m *Monitor) ConsistencyAchieved(ts time.Time) {
	m.Lock()
	defer m.Unlock()

	dur := ts.Sub(m.consistencyReset)
	m.consistencyDur.Add(float64(dur/time.Microsecond) / 1000.0)
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
	log.Printf("  - Operations / s (send / received):")
	for _, memberType := range model.MemberTypes {
		log.Printf("      %-8s %.2f / %.2f", memberType, perSec(m.opsSend[memberType]), perSec(m.opsReceived[memberType]))
	}
	log.Printf("  - Batch size [ops]:        %.2f", m.batchSize.Avg())
	log.Printf("  - Update request dur [ms]: %.2f", m.updReqDur.Avg())
	log.Printf("  - Diff request dur [ms]:   %.2f", m.diffReqDur.Avg())
	log.Printf("  - Consistency dur [ms]:    %.2f", m.consistencyDur.Avg())

	m.opsSend = make(map[model.MemberType]int)
	m.opsReceived = make(map[model.MemberType]int)
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
		opsSend:        make(map[model.MemberType]int),
		opsReceived:    make(map[model.MemberType]int),
		batchSize:      movingaverage.New(3),
		updReqDur:      movingaverage.New(3),
		diffReqDur:     movingaverage.New(3),
		consistencyDur: movingaverage.New(3),
	}
}

func init() {
	monitor = newMonitor()
}
