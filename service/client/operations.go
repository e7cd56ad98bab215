package client

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/itiky/crdt-map/crdt"
	"github.com/itiky/crdt-map/model"
)

// FetchMap implements crdt.Backend interface.
func (c *Client) FetchMap(bucket, key string) (int, model.MapValue, error) {
	return c.backend.FetchMap(bucket, key)
}

// UpdateMap implements crdt.Backend interface keeping track of the send operations.
func (c *Client) UpdateMap(bucket, key string, ops ...model.Operation) error {
	opStart := time.Now()
	if err := c.backend.UpdateMap(bucket, key, ops...); err != nil {
		return err
	}
	monitor.OperationsSend(ops, time.Since(opStart))

	for _, op := range ops {
		c.sendOps[c.operationToMatchStr(op)]++
	}

	return nil
}

// initSnapshot fetches the initial snapshot version.
func (c *Client) initSnapshot() error {
	opStart := time.Now()
	version, value, err := c.backend.FetchMap(c.bucket, c.key)
	if err != nil {
		return err
	}
	opDur := time.Since(opStart)

	c.snapshotVersion = version
	c.snapshotValue = value

	log.Printf("%s: initial snapshot v%d received: %d counters, %d sets, %d registers, %d flags, %d maps within %v",
		c.String(), version, len(value.Counters), len(value.Sets), len(value.Registers), len(value.Flags), len(value.Maps), opDur)

	return nil
}

// sendUpdates performs random map operations and sends them within a single batch.
func (c *Client) sendUpdates() error {
	sendOpsPrevLen := len(c.sendOps)

	proxy, err := crdt.NewMapProxyFromValue(c, c.bucket, c.key, c.snapshotVersion, c.snapshotValue)
	if err != nil {
		return fmt.Errorf("crdt.NewMapProxyFromValue: %w", err)
	}

	getName := func(prefix string) string {
		return fmt.Sprintf("%s-%d", prefix, rand.Intn(5))
	}

	sendN := rand.Intn(c.opsSendMax) + 1
	opStart := time.Now()
	err = proxy.Batch(func(m *crdt.MapProxy) error {
		for i := 0; i < sendN; i++ {
			var opErr error

			switch rand.Intn(6) {
			case 0:
				opErr = m.Counters.Increment(getName("counter"), rand.Int63n(21)-10)
			case 1:
				opErr = m.Sets.Get(getName("set")).(*crdt.Set).Add(uuid.New().String()[:8])
			case 2:
				opErr = m.Registers.Set(getName("register"), uuid.New().String())
			case 3:
				opErr = m.Flags.Set(getName("flag"), rand.Intn(2) == 1)
			case 4:
				profile := m.Maps.Get("profile").(*crdt.Map)
				opErr = profile.Counters.Increment(getName("counter"), 1)
			case 5:
				// Delete an existing member (if any)
				keys := m.Registers.Keys()
				if len(keys) == 0 {
					opErr = m.Registers.Set(getName("register"), "")
					break
				}
				opErr = m.Registers.Delete(keys[rand.Intn(len(keys))])
			}

			if opErr != nil {
				return opErr
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	opDur := time.Since(opStart)

	log.Printf("%s: [%v] updates send: %d ops", c.String(), opDur, sendN)

	// Update stats
	if sendOpsPrevLen == 0 && len(c.sendOps) > 0 {
		monitor.ConsistencyReset(opStart)
	}

	return nil
}

// pollUpdates requests a new snapshot version (if exists) and update the local state.
func (c *Client) pollUpdates() error {
	opStart := time.Now()
	version, mapUpds, err := c.backend.GetMapUpdates(c.bucket, c.key, c.snapshotVersion)
	if err != nil {
		return err
	}

	if version == c.snapshotVersion {
		return nil
	}

	newSnapshot, err := model.ApplyMapUpdates(c.snapshotValue, mapUpds...)
	if err != nil {
		log.Fatalf("model.ApplyMapUpdates: %v", err)
	}
	opStop := time.Now()
	opDur := opStop.Sub(opStart)

	c.snapshotVersion = version
	c.snapshotValue = newSnapshot

	opsReceived := 0
	for _, mapUpd := range mapUpds {
		for _, op := range mapUpd.Operations {
			opsReceived++

			opStr := c.operationToMatchStr(op)
			if c.sendOps[opStr] > 0 {
				c.sendOps[opStr]--
			}
			if c.sendOps[opStr] == 0 {
				delete(c.sendOps, opStr)
			}
		}
	}
	log.Printf("%s: [%v] snapshot updated to v%d: %d ops (%d unhandled)", c.String(), opDur, version, opsReceived, len(c.sendOps))

	// Update stats
	monitor.UpdatesReceived(mapUpds, opDur)
	if len(c.sendOps) == 0 {
		monitor.ConsistencyAchieved(opStop)
	}

	return nil
}

// operationToMatchStr builds a string representation of model.Operation (used for c.sendOps matching).
func (c *Client) operationToMatchStr(op model.Operation) string {
	return op.String()
}
