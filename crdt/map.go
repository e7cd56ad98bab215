package crdt

import (
	"fmt"

	"github.com/itiky/crdt-map/model"
)

type (
	// collections keeps the per member type views of a map.
	collections struct {
		Counters  *TypedCollection
		Sets      *TypedCollection
		Registers *TypedCollection
		Flags     *TypedCollection
		Maps      *TypedCollection
	}

	// Map is a nested map member.
	// Map is the ParentContext of its own collections: operations are wrapped into
	// the map update operation and cascaded to the owning collection.
	Map struct {
		collections
		owner *TypedCollection
		key   string
	}
)

// MemberType implements the Member interface.
func (m *Map) MemberType() model.MemberType { return model.MapType }

// Operate implements the ParentContext interface.
func (m *Map) Operate(op model.Operation) error {
	wrapped := model.Operation{
		Type:       model.UpdateOperationType,
		MemberType: model.MapType,
		MapOps:     []model.Operation{op},
	}

	return m.owner.Operate(m.key, wrapped)
}

// Value exports the locally known map state.
func (m *Map) Value() model.MapValue {
	return m.collections.value()
}

// String implements the stringer interface.
func (m *Map) String() string {
	return m.Value().String()
}

// newMap creates a new Map member populated with the value.
func newMap(owner *TypedCollection, key string, value model.MapValue) (*Map, error) {
	m := &Map{
		owner: owner,
		key:   key,
	}

	c, err := newCollections(m, value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	m.collections = c

	return m, nil
}

// newCollections builds all the member type collections for a map value.
func newCollections(parent ParentContext, value model.MapValue) (collections, error) {
	var (
		c   collections
		err error
	)

	if c.Counters, err = NewTypedCollection(model.CounterType, parent, contentsOf(value.Counters)); err != nil {
		return collections{}, fmt.Errorf("counters: %w", err)
	}
	if c.Sets, err = NewTypedCollection(model.SetType, parent, contentsOf(value.Sets)); err != nil {
		return collections{}, fmt.Errorf("sets: %w", err)
	}
	if c.Registers, err = NewTypedCollection(model.RegisterType, parent, contentsOf(value.Registers)); err != nil {
		return collections{}, fmt.Errorf("registers: %w", err)
	}
	if c.Flags, err = NewTypedCollection(model.FlagType, parent, contentsOf(value.Flags)); err != nil {
		return collections{}, fmt.Errorf("flags: %w", err)
	}
	if c.Maps, err = NewTypedCollection(model.MapType, parent, contentsOf(value.Maps)); err != nil {
		return collections{}, fmt.Errorf("maps: %w", err)
	}

	return c, nil
}

// value exports all the collections into a MapValue.
func (c collections) value() model.MapValue {
	v := model.NewMapValue()
	c.Counters.each(func(key string, m Member) {
		v.Counters[key] = m.(*Counter).value
	})
	c.Sets.each(func(key string, m Member) {
		v.Sets[key] = m.(*Set).Members()
	})
	c.Registers.each(func(key string, m Member) {
		v.Registers[key] = m.(Register).value
	})
	c.Flags.each(func(key string, m Member) {
		v.Flags[key] = m.(Flag).value
	})
	c.Maps.each(func(key string, m Member) {
		v.Maps[key] = m.(*Map).Value()
	})

	return v
}

// contentsOf converts a MapValue member map to the collection snapshot.
func contentsOf[V any](values map[string]V) Contents {
	contents := make(Contents, len(values))
	for k, v := range values {
		contents[k] = v
	}

	return contents
}
