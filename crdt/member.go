package crdt

import (
	"fmt"
	"sort"

	"github.com/itiky/crdt-map/model"
)

type (
	// Member is a map member instance owned by a TypedCollection.
	Member interface {
		MemberType() model.MemberType
	}

	// Counter is a counter member. Mutations are routed through the owning collection by name.
	Counter struct {
		owner *TypedCollection
		name  string
		value int64
	}

	// Set is a set of strings member. Mutations are routed through the owning collection by name.
	Set struct {
		owner *TypedCollection
		name  string
		items []string
	}

	// Register is an immutable string member.
	Register struct {
		value string
	}

	// Flag is an immutable boolean member.
	Flag struct {
		value bool
	}

	// SetUpdate is a Set write request.
	SetUpdate struct {
		Add    []string
		Remove []string
	}
)

// MemberType implements the Member interface.
func (c *Counter) MemberType() model.MemberType { return model.CounterType }

// Name returns the counter key within the map.
func (c *Counter) Name() string { return c.name }

// Value returns the locally known counter value.
func (c *Counter) Value() int64 { return c.value }

// Increment sends the counter increment operation.
func (c *Counter) Increment(by int64) error {
	return c.owner.Increment(c.name, by)
}

// Decrement sends the counter decrement operation.
func (c *Counter) Decrement(by int64) error {
	return c.owner.Increment(c.name, -by)
}

// String implements the stringer interface.
func (c *Counter) String() string {
	return fmt.Sprintf("%s: %d", c.name, c.value)
}

// MemberType implements the Member interface.
func (s *Set) MemberType() model.MemberType { return model.SetType }

// Name returns the set key within the map.
func (s *Set) Name() string { return s.name }

// Members returns a sorted copy of the set elements.
func (s *Set) Members() []string {
	items := make([]string, len(s.items))
	copy(items, s.items)

	return items
}

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.items) }

// Contains checks if the element is in the set.
func (s *Set) Contains(item string) bool {
	idx := sort.SearchStrings(s.items, item)

	return idx < len(s.items) && s.items[idx] == item
}

// Add sends the set add operation.
func (s *Set) Add(items ...string) error {
	return s.owner.Set(s.name, SetUpdate{Add: items})
}

// Remove sends the set remove operation.
func (s *Set) Remove(items ...string) error {
	return s.owner.Set(s.name, SetUpdate{Remove: items})
}

// String implements the stringer interface.
func (s *Set) String() string {
	return fmt.Sprintf("%s: %v", s.name, s.items)
}

// MemberType implements the Member interface.
func (r Register) MemberType() model.MemberType { return model.RegisterType }

// Value returns the register value.
func (r Register) Value() string { return r.value }

// String implements the stringer interface.
func (r Register) String() string { return r.value }

// MemberType implements the Member interface.
func (f Flag) MemberType() model.MemberType { return model.FlagType }

// Value returns the flag state.
func (f Flag) Value() bool { return f.value }

// String implements the stringer interface.
func (f Flag) String() string {
	if f.value {
		return "enabled"
	}

	return "disabled"
}
