package client

import (
	"errors"
	"net"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/itiky/crdt-map/crdt"
	"github.com/itiky/crdt-map/model"
	"github.com/itiky/crdt-map/search"
	"github.com/itiky/crdt-map/service/server"
	"github.com/itiky/crdt-map/storage"
)

// startTestServer starts an in-process RPC server and returns its address.
func startTestServer(t *testing.T) string {
	schemas, err := storage.NewSchemaRegistry(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { schemas.Close() })

	svc, err := server.NewMapService(10, 10*time.Millisecond, "", schemas)
	require.NoError(t, err)
	svc.Start()
	t.Cleanup(svc.Stop)

	rpcServer := rpc.NewServer()
	require.NoError(t, rpcServer.Register(svc))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go rpcServer.Accept(listener)

	return listener.Addr().String()
}

func newTestBackend(t *testing.T, serverUrl string, id model.ClientId) *Backend {
	backend, err := NewBackend(id, serverUrl)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return backend
}

func Test_Backend_MapProxy(t *testing.T) {
	serverUrl := startTestServer(t)
	backend := newTestBackend(t, serverUrl, 1)

	proxy, err := crdt.NewMapProxy(backend, "users", "alice")
	require.NoError(t, err)

	// optimistic writes
	require.NoError(t, proxy.Counters.Increment("visits", 1))
	require.NoError(t, proxy.Registers.Set("name", "Alice"))
	profile := proxy.Maps.Get("profile").(*crdt.Map)
	require.NoError(t, profile.Sets.Get("emails").(*crdt.Set).Add("alice@example.com"))

	require.EqualValues(t, 1, proxy.Counters.Get("visits").(*crdt.Counter).Value())
	require.Equal(t, "Alice", proxy.Registers.Get("name").(crdt.Register).Value())

	// another client sees the converged state
	other := newTestBackend(t, serverUrl, 2)
	otherProxy, err := crdt.NewMapProxy(other, "users", "alice")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		if err := otherProxy.Reload(); err != nil {
			return false
		}
		return otherProxy.Counters.Contains("visits") && otherProxy.Maps.Contains("profile")
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, "Alice", otherProxy.Registers.Get("name").(crdt.Register).Value())
	emails := otherProxy.Maps.Get("profile").(*crdt.Map).Sets.Get("emails").(*crdt.Set)
	require.Equal(t, []string{"alice@example.com"}, emails.Members())

	// concurrent increments are summed up
	require.NoError(t, otherProxy.Counters.Get("visits").(*crdt.Counter).Increment(4))
	require.Eventually(t, func() bool {
		if err := proxy.Reload(); err != nil {
			return false
		}
		return proxy.Counters.Get("visits").(*crdt.Counter).Value() == 5
	}, 2*time.Second, 10*time.Millisecond)

	// diff
	version, upds, err := backend.GetMapUpdates("users", "alice", 0)
	require.NoError(t, err)
	require.Equal(t, proxy.Version(), version)
	value, err := model.ApplyMapUpdates(model.NewMapValue(), upds...)
	require.NoError(t, err)
	require.Equal(t, proxy.Value(), value)

	// whole map delete
	require.NoError(t, backend.DeleteMap("users", "alice"))
	require.Eventually(t, func() bool {
		if err := proxy.Reload(); err != nil {
			return false
		}
		return proxy.Value().IsEmpty()
	}, 2*time.Second, 10*time.Millisecond)
}

func Test_Backend_Errors(t *testing.T) {
	serverUrl := startTestServer(t)
	backend := newTestBackend(t, serverUrl, 1)

	_, err := NewBackend(0, serverUrl)
	require.Error(t, err)

	// rejected operation
	err = backend.UpdateMap("users", "", model.Operation{Type: model.UpdateOperationType, MemberType: model.FlagType, Name: "f"})
	require.Error(t, err)

	// not found is distinguishable
	_, err = backend.GetSchema("blog")
	require.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, backend.CreateSchema("blog", "<schema/>"))
	err = backend.CreateSchema("blog", "<schema/>")
	require.True(t, errors.Is(err, model.ErrSchemaExists))
}

func Test_Backend_SearchSchema(t *testing.T) {
	serverUrl := startTestServer(t)
	backend := newTestBackend(t, serverUrl, 1)

	schema, err := search.NewSchema(backend, "blog")
	require.NoError(t, err)

	exists, err := schema.Exists()
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, schema.Create("<schema name=\"blog\"/>"))

	content, err := schema.Content()
	require.NoError(t, err)
	require.Equal(t, "<schema name=\"blog\"/>", content)

	otherSchema, err := search.NewSchema(backend, "blog")
	require.NoError(t, err)
	err = otherSchema.Create("<schema/>")
	require.True(t, errors.Is(err, model.ErrSchemaExists))
}

func Test_Client_SendAndPoll(t *testing.T) {
	serverUrl := startTestServer(t)

	_, err := NewClient(1, 0, time.Second, 1, serverUrl, "users", "alice")
	require.Error(t, err)
	_, err = NewClient(1, time.Second, time.Second, 0, serverUrl, "users", "alice")
	require.Error(t, err)
	_, err = NewClient(1, time.Second, time.Second, 1, serverUrl, "", "alice")
	require.Error(t, err)

	c, err := NewClient(1, time.Second, time.Second, 5, serverUrl, "users", "alice")
	require.NoError(t, err)
	defer c.backend.Close()

	require.NoError(t, c.initSnapshot())
	require.NoError(t, c.sendUpdates())
	require.NoError(t, c.sendUpdates())
	require.NotEmpty(t, c.sendOps)

	require.Eventually(t, func() bool {
		if err := c.pollUpdates(); err != nil {
			return false
		}
		return len(c.sendOps) == 0
	}, 2*time.Second, 10*time.Millisecond)

	_, serverValue, err := c.backend.FetchMap("users", "alice")
	require.NoError(t, err)
	require.Equal(t, serverValue, c.snapshotValue)
}
