package client

import (
	"fmt"
	"log"
	"time"

	"github.com/itiky/crdt-map/model"
)

// Client mutates a single map via the crdt.MapProxy and keeps a local snapshot of it up to date.
type Client struct {
	// Config
	id         model.ClientId // unique ID
	bucket     string         // target map bucket
	key        string         // target map key
	opsSendDur time.Duration  // map updates send period
	opsSendMax int            // max number of map operations per request
	pollDur    time.Duration  // snapshot update polling duration
	// State
	sendOps         map[string]int // keeps send operations which are not yet visible to client
	snapshotVersion int            // current snapshot version
	snapshotValue   model.MapValue // current snapshot data
	//
	backend *Backend
	stopCh  chan interface{}
}

// String implements the stringer interface.
func (c *Client) String() string {
	return fmt.Sprintf("Client (%d)", c.id)
}

// Start starts the Client worker.
func (c *Client) Start() {
	if c.stopCh != nil {
		return
	}
	c.stopCh = make(chan interface{})

	monitor.Start()
	go c.worker(c.stopCh)
}

// Stop stops the Client worker.
func (c *Client) Stop() {
	if c.stopCh == nil {
		return
	}

	close(c.stopCh)
	c.stopCh = nil
	monitor.Stop()
}

// worker does the actual job.
func (c *Client) worker(stopCh <-chan interface{}) {
	log.Printf("%s: start", c.String())
	log.Printf("%s: map:        %s/%s", c.String(), c.bucket, c.key)
	log.Printf("%s: opsSendDur: %v", c.String(), c.opsSendDur)
	log.Printf("%s: opsSendMax: %v", c.String(), c.opsSendMax)
	log.Printf("%s: pollDur:    %v", c.String(), c.pollDur)

	if err := c.initSnapshot(); err != nil {
		log.Fatalf("%s: snapshot initialization: %v", c.String(), err)
	}

	sendTicker := time.NewTicker(c.opsSendDur)
	defer sendTicker.Stop()
	pollTicker := time.NewTicker(c.pollDur)
	defer pollTicker.Stop()

	for {
		select {
		case <-sendTicker.C:
			// Send map operations
			if err := c.sendUpdates(); err != nil {
				log.Fatalf("%s: sending updates: %v", c.String(), err)
			}
		case <-pollTicker.C:
			// Update the local snapshot
			if err := c.pollUpdates(); err != nil {
				log.Fatalf("%s: polling updates: %v", c.String(), err)
			}
		case <-stopCh:
			// Stop the client
			log.Printf("%s: stop", c.String())
			c.backend.Close()
			return
		}
	}
}

// NewClient creates a new Client object.
func NewClient(id model.ClientId, opsSendDur, pollDur time.Duration, opsSendMax int, serverUrl, bucket, key string) (*Client, error) {
	if opsSendDur <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "opsSendDur")
	}
	if pollDur <= 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "pollDur")
	}
	if opsSendMax < 1 {
		return nil, fmt.Errorf("%s: must be GTE 1", "opsSendMax")
	}
	if bucket == "" {
		return nil, fmt.Errorf("%s: empty", "bucket")
	}
	if key == "" {
		return nil, fmt.Errorf("%s: empty", "key")
	}

	backend, err := NewBackend(id, serverUrl)
	if err != nil {
		return nil, err
	}

	return &Client{
		id:     id,
		bucket: bucket,
		key:    key,
		//
		opsSendDur: opsSendDur,
		opsSendMax: opsSendMax,
		pollDur:    pollDur,
		//
		sendOps:       make(map[string]int),
		snapshotValue: model.NewMapValue(),
		backend:       backend,
	}, nil
}
