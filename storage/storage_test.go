package storage

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/itiky/crdt-map/model"
)

const BenchStorageSize = 100000

func counterOp(name string, delta int64) model.Operation {
	return model.Operation{Type: model.UpdateOperationType, MemberType: model.CounterType, Name: name, CounterDelta: delta}
}

// Test applies and deletes maps and checks data integrity.
func Test_Storage_UpdateDelete(t *testing.T) {
	storage := NewStorage()
	now := time.Now()

	upd := storage.update("users", "alice", []model.Operation{counterOp("visits", 2)}, 1, now)
	require.NotNil(t, upd)
	require.Equal(t, model.UpdateOperationType, upd.Type)
	require.Equal(t, "alice", upd.Key)
	require.Len(t, upd.Operations, 1)

	storage.update("users", "alice", []model.Operation{counterOp("visits", 3)}, 2, now)
	storage.update("users", "bob", []model.Operation{counterOp("visits", 1)}, 2, now)
	t.Logf("Storage:\n%s", storage)

	require.EqualValues(t, 5, storage.Export("users", "alice").Counters["visits"])
	require.Equal(t, 2, storage.Len())

	// invalid operations are skipped
	require.Nil(t, storage.update("users", "alice", []model.Operation{{Type: model.UpdateOperationType}}, 2, now))
	require.EqualValues(t, 5, storage.Export("users", "alice").Counters["visits"])

	// soft delete
	upd = storage.delete("users", "alice", 3, now)
	require.NotNil(t, upd)
	require.Equal(t, model.DeleteOperationType, upd.Type)
	require.Nil(t, storage.delete("users", "alice", 3, now))
	require.Nil(t, storage.delete("users", "carol", 3, now))
	require.True(t, storage.Export("users", "alice").IsEmpty())
	require.Equal(t, 1, storage.Len())
	require.True(t, storage.idDataMatch["users/alice"].IsDeleted)

	// recreate
	storage.update("users", "alice", []model.Operation{counterOp("visits", 1)}, 4, now)
	require.EqualValues(t, 1, storage.Export("users", "alice").Counters["visits"])
	require.Equal(t, 2, storage.Len())
}

// Test applies StorageOperation and checks that returned model.MapUpdate objects can build an equal model.MapValue.
func Test_Storage_ModelMap(t *testing.T) {
	storage := NewStorage()
	now := time.Now()
	clientValue := model.NewMapValue()

	newUpdateOp := func(ops ...model.Operation) UpdateOperation {
		op, err := NewUpdateOperation("users", "alice", ops, 0, now)
		require.NoError(t, err)
		return op
	}

	newDeleteOp := func() DeleteOperation {
		op, err := NewDeleteOperation("users", "alice", 0, now)
		require.NoError(t, err)
		return op
	}

	checkValues := func(comment string, storageOps ...StorageOperation) {
		t.Log(comment)

		mapUpds := storage.ApplyOperations(storageOps...)
		value, err := model.ApplyMapUpdates(clientValue, mapUpds...)
		require.NoError(t, err)

		require.Equal(t, storage.Export("users", "alice"), value)
		clientValue = value
	}

	checkValues("create",
		newUpdateOp(counterOp("visits", 1)),
		newUpdateOp(model.Operation{Type: model.UpdateOperationType, MemberType: model.SetType, Name: "tags", SetAdds: []string{"a", "b"}}),
	)

	checkValues("update and nested",
		newUpdateOp(
			counterOp("visits", -4),
			model.Operation{
				Type: model.UpdateOperationType, MemberType: model.MapType, Name: "profile",
				MapOps: []model.Operation{{Type: model.UpdateOperationType, MemberType: model.RegisterType, Name: "email", RegisterValue: "a@b.c"}},
			},
		),
		newUpdateOp(model.Operation{Type: model.DeleteOperationType, MemberType: model.SetType, Name: "tags"}),
	)

	checkValues("delete twice", newDeleteOp(), newDeleteOp())

	checkValues("recreate", newUpdateOp(model.Operation{Type: model.UpdateOperationType, MemberType: model.FlagType, Name: "active", FlagValue: true}))
}

func Test_StorageOperations_Validation(t *testing.T) {
	now := time.Now()
	ops := []model.Operation{counterOp("visits", 1)}

	_, err := NewUpdateOperation("", "alice", ops, 0, now)
	require.Error(t, err)
	_, err = NewUpdateOperation("users", "", ops, 0, now)
	require.Error(t, err)
	_, err = NewUpdateOperation("users", "alice", nil, 0, now)
	require.Error(t, err)
	_, err = NewUpdateOperation("users", "alice", []model.Operation{{Name: "x"}}, 0, now)
	require.Error(t, err)
	_, err = NewUpdateOperation("users", "alice", ops, 0, time.Time{})
	require.Error(t, err)

	op, err := NewUpdateOperation("users", "alice", ops, 0, now)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, op.GetId())
	require.Equal(t, now, op.GetTimestamp())

	_, err = NewDeleteOperation("users", "alice", 0, time.Time{})
	require.Error(t, err)
}

func Test_MapHistory(t *testing.T) {
	history := NewMapHistory()
	now := time.Now()

	version, value := history.GetOutputSnapshot("users", "alice")
	require.Equal(t, 0, version)
	require.True(t, value.IsEmpty())

	for i := 0; i < 3; i++ {
		opAlice, err := NewUpdateOperation("users", "alice", []model.Operation{counterOp("visits", 1)}, 0, now)
		require.NoError(t, err)
		opBob, err := NewUpdateOperation("users", "bob", []model.Operation{counterOp("visits", 10)}, 0, now)
		require.NoError(t, err)
		history.AddVersion(opAlice, opBob)
	}
	history.AddVersion()

	version, value = history.GetOutputSnapshot("users", "alice")
	require.Equal(t, 3, version)
	require.EqualValues(t, 3, value.Counters["visits"])

	// diff from v1 for alice only
	version, upds := history.GetOutputDiffWithLatest(1, "users", "alice")
	require.Equal(t, 3, version)
	require.Len(t, upds, 2)
	for _, upd := range upds {
		require.Equal(t, "alice", upd.Key)
	}

	// up to date
	version, upds = history.GetOutputDiffWithLatest(3, "users", "alice")
	require.Equal(t, 3, version)
	require.Empty(t, upds)

	// previous version rebuild
	storage := history.BuildStorage(2)
	require.NotNil(t, storage)
	require.EqualValues(t, 2, storage.Export("users", "alice").Counters["visits"])
	require.EqualValues(t, 20, storage.Export("users", "bob").Counters["visits"])
	require.Nil(t, history.BuildStorage(4))
	require.True(t, history.IsVersionValid(3))
	require.False(t, history.IsVersionValid(4))
}

func Test_MockFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "maps.dat")

	require.Error(t, GenAndSaveInitialStorage(filePath, 0))
	require.NoError(t, GenAndSaveInitialStorage(filePath, 10))

	history, err := NewMapHistoryFromFile(filePath)
	require.NoError(t, err)
	require.Equal(t, 10, history.storage.Len())

	for _, item := range history.storage.idDataMatch {
		version, value := history.GetOutputSnapshot(item.Bucket, item.Key)
		require.Equal(t, 0, version)
		require.Equal(t, item.Value.Registers["name"], value.Registers["name"])
		require.NotEmpty(t, value.Maps["profile"].Registers["email"])
	}

	_, err = NewMapHistoryFromFile(filepath.Join(t.TempDir(), "missing.dat"))
	require.Error(t, err)
}

func Test_SchemaRegistry(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "schemas.db")

	registry, err := NewSchemaRegistry(dbPath)
	require.NoError(t, err)

	_, err = registry.Get("blog")
	require.True(t, errors.Is(err, model.ErrNotFound))

	schema := model.Schema{Name: "blog", Content: "<schema name=\"blog\"/>"}
	require.NoError(t, registry.Create(schema))

	err = registry.Create(schema)
	require.True(t, errors.Is(err, model.ErrSchemaExists))
	require.Error(t, registry.Create(model.Schema{Name: "empty"}))

	stored, err := registry.Get("blog")
	require.NoError(t, err)
	require.Equal(t, schema, stored)
	require.NoError(t, registry.Close())

	// reopen: schemas persist
	registry, err = NewSchemaRegistry(dbPath)
	require.NoError(t, err)
	defer registry.Close()

	stored, err = registry.Get("blog")
	require.NoError(t, err)
	require.Equal(t, schema, stored)
}

func Benchmark_Storage_Update(b *testing.B) {
	now := time.Now()
	objs := newStorageMockObjs(BenchStorageSize, now)
	s := newStorageFromObjs(objs)
	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		obj := objs[rand.Intn(BenchStorageSize)]
		s.update(obj.Bucket, obj.Key, []model.Operation{counterOp("visits", 1)}, 0, now)
	}
}

func Benchmark_Storage_Delete(b *testing.B) {
	now := time.Now()
	objs := newStorageMockObjs(BenchStorageSize, now)
	s := newStorageFromObjs(objs)
	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		obj := objs[rand.Intn(BenchStorageSize)]
		s.delete(obj.Bucket, obj.Key, obj.UpdatedBy, obj.UpdatedAt)
	}
}
