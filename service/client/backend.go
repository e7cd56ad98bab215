package client

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/itiky/crdt-map/model"
)

// Backend implements crdt.Backend and search.SchemaBackend over the RPC connection.
type Backend struct {
	id        model.ClientId
	rpcClient *rpc.Client
}

// remoteError is an RPC server error matched to a known model error.
type remoteError struct {
	msg  string
	kind error
}

func (e remoteError) Error() string { return e.msg }

func (e remoteError) Unwrap() error { return e.kind }

// FetchMap implements crdt.Backend interface.
func (b *Backend) FetchMap(bucket, key string) (int, model.MapValue, error) {
	req := model.GetMapRequest{
		ClientId: b.id,
		Bucket:   bucket,
		Key:      key,
	}
	res := model.GetMapResponse{}

	if err := b.call("MapService.GetMap", req, &res); err != nil {
		return 0, model.MapValue{}, err
	}

	// gob drops empty maps
	return res.Version, res.Value.Clone(), nil
}

// UpdateMap implements crdt.Backend interface.
func (b *Backend) UpdateMap(bucket, key string, ops ...model.Operation) error {
	req := model.UpdateMapRequest{
		ClientId:   b.id,
		Bucket:     bucket,
		Key:        key,
		Operations: ops,
	}

	return b.call("MapService.UpdateMap", req, &model.UpdateMapResponse{})
}

// DeleteMap deletes the whole map.
func (b *Backend) DeleteMap(bucket, key string) error {
	req := model.DeleteMapRequest{
		ClientId: b.id,
		Bucket:   bucket,
		Key:      key,
	}

	return b.call("MapService.DeleteMap", req, &model.DeleteMapResponse{})
}

// GetMapUpdates returns the map updates since the version.
func (b *Backend) GetMapUpdates(bucket, key string, version int) (int, []model.MapUpdate, error) {
	req := model.GetMapUpdatesRequest{
		Version: version,
		Bucket:  bucket,
		Key:     key,
	}
	res := model.GetMapUpdatesResponse{}

	if err := b.call("MapService.GetMapUpdates", req, &res); err != nil {
		return 0, nil, err
	}

	return res.Version, res.Updates, nil
}

// GetSchema implements search.SchemaBackend interface.
func (b *Backend) GetSchema(name string) (model.Schema, error) {
	res := model.GetSchemaResponse{}
	if err := b.call("MapService.GetSchema", model.GetSchemaRequest{Name: name}, &res); err != nil {
		return model.Schema{}, err
	}

	return res.Schema, nil
}

// CreateSchema implements search.SchemaBackend interface.
func (b *Backend) CreateSchema(name, content string) error {
	req := model.CreateSchemaRequest{
		Schema: model.Schema{Name: name, Content: content},
	}

	return b.call("MapService.CreateSchema", req, &model.CreateSchemaResponse{})
}

// Close closes the RPC connection.
func (b *Backend) Close() error {
	return b.rpcClient.Close()
}

// call performs the RPC call converting server errors to the model ones.
func (b *Backend) call(method string, req, res interface{}) error {
	err := b.rpcClient.Call(method, req, res)
	if err == nil {
		return nil
	}

	var srvErr rpc.ServerError
	if errors.As(err, &srvErr) {
		msg := string(srvErr)
		for _, known := range []error{model.ErrNotFound, model.ErrSchemaExists} {
			if strings.HasSuffix(msg, known.Error()) {
				return fmt.Errorf("%s: %w", method, remoteError{msg: msg, kind: known})
			}
		}
	}

	return fmt.Errorf("%s: rpc: %w", method, err)
}

// NewBackend creates a new Backend object connecting to the server.
// Connection is retried while the server is not up.
func NewBackend(id model.ClientId, serverUrl string) (*Backend, error) {
	const (
		numOfRetries     = 120
		retryFallbackDur = 500 * time.Millisecond
	)

	if id == 0 {
		return nil, fmt.Errorf("%s: must be GT 0", "id")
	}

	b := Backend{
		id: id,
	}

	for retry := 0; retry < numOfRetries; retry++ {
		client, err := rpc.Dial("tcp", serverUrl)
		if err == nil {
			b.rpcClient = client
			break
		}

		if netErr, ok := err.(*net.OpError); ok {
			if sysErr, ok := netErr.Err.(*os.SyscallError); ok {
				if sysErr.Err == syscall.ECONNREFUSED {
					time.Sleep(retryFallbackDur)
					continue
				}
			}
		}

		return nil, fmt.Errorf("rpc.Dial(%s): %w", serverUrl, err)
	}
	if b.rpcClient == nil {
		return nil, fmt.Errorf("RPC connection failed after %d retries with %v fallback", numOfRetries, retryFallbackDur)
	}

	return &b, nil
}
