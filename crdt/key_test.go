package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/itiky/crdt-map/model"
)

type fmtStringer string

func (s fmtStringer) String() string { return "key:" + string(s) }

func Test_NormalizeKey(t *testing.T) {
	cases := []struct {
		key      interface{}
		expected string
	}{
		{"existing", "existing"},
		{Symbol("existing"), "existing"},
		{42, "42"},
		{int64(-7), "-7"},
		{uint8(3), "3"},
		{2.5, "2.5"},
		{true, "true"},
		{[]byte("raw"), "raw"},
		{fmtStringer("x"), "key:x"},
	}

	for _, c := range cases {
		normalized := NormalizeKey(c.key)
		require.Equal(t, c.expected, normalized, "%T", c.key)
		require.Equal(t, normalized, NormalizeKey(normalized), "idempotence: %T", c.key)
	}

	require.Equal(t, NormalizeKey("existing"), NormalizeKey(Symbol("existing")))
}

func Test_NormalizeKey_Invalid(t *testing.T) {
	require.Panics(t, func() { NormalizeKey(nil) })
	require.Panics(t, func() { NormalizeKey(struct{ A int }{1}) })
	require.Panics(t, func() { NormalizeKey(map[string]int{}) })
}

func Test_MemberPolicy(t *testing.T) {
	cases := []struct {
		memberType          model.MemberType
		needsName           bool
		initializesAsAbsent bool
	}{
		{model.CounterType, true, false},
		{model.SetType, true, false},
		{model.RegisterType, false, true},
		{model.FlagType, false, false},
		{model.MapType, false, false},
	}

	for _, c := range cases {
		require.Equal(t, c.needsName, NeedsName(c.memberType), "%s", c.memberType)
		require.Equal(t, c.initializesAsAbsent, InitializesAsAbsent(c.memberType), "%s", c.memberType)
	}

	require.Panics(t, func() { NeedsName("hll") })
}

func Test_OperationBuilders(t *testing.T) {
	op, err := NewUpdateOperation(model.CounterType, "visits", -2)
	require.NoError(t, err)
	require.Equal(t, model.Operation{Type: model.UpdateOperationType, MemberType: model.CounterType, Name: "visits", CounterDelta: -2}, op)

	op, err = NewUpdateOperation(model.SetType, "tags", []string{"a"})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, op.SetAdds)

	op, err = NewUpdateOperation(model.RegisterType, "title", Register{value: "v"})
	require.NoError(t, err)
	require.Equal(t, "v", op.RegisterValue)

	op, err = NewUpdateOperation(model.FlagType, "public", Flag{value: true})
	require.NoError(t, err)
	require.True(t, op.FlagValue)

	_, err = NewUpdateOperation(model.MapType, "profile", []model.Operation{{Type: model.UpdateOperationType, MemberType: model.FlagType}})
	require.ErrorIs(t, err, ErrInvalidValue)

	op = NewDeleteOperation(model.SetType, "tags")
	require.Equal(t, model.Operation{Type: model.DeleteOperationType, MemberType: model.SetType, Name: "tags"}, op)
}
