package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ApplyMapOperations(t *testing.T) {
	v := NewMapValue()
	v.Counters["visits"] = 2
	v.Sets["tags"] = []string{"a", "b"}

	ops := []Operation{
		{Type: UpdateOperationType, MemberType: CounterType, Name: "visits", CounterDelta: 3},
		{Type: UpdateOperationType, MemberType: SetType, Name: "tags", SetAdds: []string{"c"}, SetRemoves: []string{"a"}},
		{Type: UpdateOperationType, MemberType: RegisterType, Name: "title", RegisterValue: "hello"},
		{Type: UpdateOperationType, MemberType: FlagType, Name: "public", FlagValue: true},
		{
			Type: UpdateOperationType, MemberType: MapType, Name: "profile",
			MapOps: []Operation{
				{Type: UpdateOperationType, MemberType: RegisterType, Name: "email", RegisterValue: "a@b.c"},
			},
		},
	}

	newValue, err := ApplyMapOperations(v, ops...)
	require.NoError(t, err)
	t.Logf("Result:\n%s", newValue)

	require.EqualValues(t, 5, newValue.Counters["visits"])
	require.Equal(t, []string{"b", "c"}, newValue.Sets["tags"])
	require.Equal(t, "hello", newValue.Registers["title"])
	require.True(t, newValue.Flags["public"])
	require.Equal(t, "a@b.c", newValue.Maps["profile"].Registers["email"])

	// input is untouched
	require.EqualValues(t, 2, v.Counters["visits"])
	require.Equal(t, []string{"a", "b"}, v.Sets["tags"])

	// deletes
	newValue, err = ApplyMapOperations(newValue,
		Operation{Type: DeleteOperationType, MemberType: CounterType, Name: "visits"},
		Operation{Type: DeleteOperationType, MemberType: MapType, Name: "profile"},
	)
	require.NoError(t, err)
	require.NotContains(t, newValue.Counters, "visits")
	require.NotContains(t, newValue.Maps, "profile")
	require.Equal(t, "hello", newValue.Registers["title"])
}

func Test_ApplyMapOperations_Invalid(t *testing.T) {
	_, err := ApplyMapOperations(NewMapValue(), Operation{Type: UpdateOperationType, MemberType: CounterType})
	require.Error(t, err)

	_, err = ApplyMapOperations(NewMapValue(), Operation{Type: UpdateOperationType, MemberType: "hll", Name: "x"})
	require.Error(t, err)

	_, err = ApplyMapOperations(NewMapValue(), Operation{Type: UpdateOperationType, MemberType: MapType, Name: "x"})
	require.Error(t, err)

	_, err = ApplyMapOperations(NewMapValue(), Operation{
		Type: UpdateOperationType, MemberType: MapType, Name: "x",
		MapOps: []Operation{{Type: UpdateOperationType, MemberType: FlagType}},
	})
	require.Error(t, err)
}

func Test_ApplyMapUpdates(t *testing.T) {
	v := NewMapValue()

	v, err := ApplyMapUpdates(v,
		MapUpdate{
			Type: UpdateOperationType,
			Operations: []Operation{
				{Type: UpdateOperationType, MemberType: CounterType, Name: "c", CounterDelta: 1},
			},
		},
		MapUpdate{
			Type: UpdateOperationType,
			Operations: []Operation{
				{Type: UpdateOperationType, MemberType: CounterType, Name: "c", CounterDelta: -3},
			},
		},
	)
	require.NoError(t, err)
	require.EqualValues(t, -2, v.Counters["c"])

	v, err = ApplyMapUpdates(v, MapUpdate{Type: DeleteOperationType})
	require.NoError(t, err)
	require.True(t, v.IsEmpty())

	_, err = ApplyMapUpdates(v, MapUpdate{Type: "merge"})
	require.Error(t, err)
}

func Test_ApplySetUpdate(t *testing.T) {
	items := []string{"b", "a"}
	result := ApplySetUpdate(items, []string{"c", "a"}, []string{"b", "z"})

	require.Equal(t, []string{"a", "c"}, result)
	require.Equal(t, []string{"b", "a"}, items)
}
