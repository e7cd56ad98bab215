// Package crdt implements the client side view of the CRDT map members.
//
// A TypedCollection keeps an optimistic local cache of one member type within a map
// and forwards every write as a named operation to its ParentContext. The cache is
// updated right after the parent accepts the operation, without waiting for the
// server to converge: it reflects the last write believed to be sent, not the
// authoritative state.
package crdt

import (
	"fmt"
	"sort"
	"sync"

	"github.com/itiky/crdt-map/model"
)

type (
	// Contents is a raw collection snapshot: any supported key -> raw member value.
	Contents map[interface{}]interface{}

	// TypedCollection is a keyed view over map members of a single MemberType.
	TypedCollection struct {
		sync.Mutex
		memberType model.MemberType
		kind       memberKind
		parent     ParentContext
		members    map[string]Member
	}
)

// MemberType returns the collection member type.
func (c *TypedCollection) MemberType() model.MemberType {
	return c.memberType
}

// Contains checks if the key is in the local cache.
func (c *TypedCollection) Contains(key interface{}) bool {
	keyStr := NormalizeKey(key)

	c.Lock()
	defer c.Unlock()

	_, found := c.members[keyStr]

	return found
}

// Get returns the cached member.
// For a missing key it returns nil for the absent-initialized types (Register)
// or a new zero member which is not cached.
func (c *TypedCollection) Get(key interface{}) Member {
	keyStr := NormalizeKey(key)

	c.Lock()
	member, found := c.members[keyStr]
	c.Unlock()

	if found {
		return member
	}
	if c.kind.initializesAsAbsent {
		return nil
	}

	return c.kind.zero(c, keyStr)
}

// Set sends the member create / update operation to the parent and, if accepted, replaces the cached member.
// The parent error is returned as is.
func (c *TypedCollection) Set(key interface{}, value interface{}) error {
	keyStr := NormalizeKey(key)

	op, err := NewUpdateOperation(c.memberType, keyStr, value)
	if err != nil {
		return err
	}

	c.Lock()
	defer c.Unlock()

	if err := c.parent.Operate(op); err != nil {
		return err
	}

	member, err := c.kind.reflect(c, keyStr, c.members[keyStr], op)
	if err != nil {
		// Operation is validated, should not happen
		panic(fmt.Sprintf("crdt: %s %q: local update: %v", c.memberType, keyStr, err))
	}
	c.members[keyStr] = member

	return nil
}

// Increment is a Set alias for counters (negative delta to decrement).
func (c *TypedCollection) Increment(key interface{}, delta int64) error {
	return c.Set(key, delta)
}

// Delete sends the member delete operation to the parent and drops the cached member.
// The cached member is dropped even if the parent fails, the parent error is returned as is.
func (c *TypedCollection) Delete(key interface{}) error {
	keyStr := NormalizeKey(key)
	op := NewDeleteOperation(c.memberType, keyStr)

	c.Lock()
	defer c.Unlock()

	err := c.parent.Operate(op)
	delete(c.members, keyStr)

	return err
}

// Operate names the nested member operation with the key and forwards it to the parent.
// The local cache is not modified.
func (c *TypedCollection) Operate(key interface{}, op model.Operation) error {
	op.Name = NormalizeKey(key)

	return c.parent.Operate(op)
}

// Keys returns the sorted cached keys.
func (c *TypedCollection) Keys() []string {
	c.Lock()
	defer c.Unlock()

	keys := make([]string, 0, len(c.members))
	for key := range c.members {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

// Len returns the number of cached members.
func (c *TypedCollection) Len() int {
	c.Lock()
	defer c.Unlock()

	return len(c.members)
}

// each iterates over the cached members in key order.
func (c *TypedCollection) each(fn func(key string, m Member)) {
	for _, key := range c.Keys() {
		c.Lock()
		member, found := c.members[key]
		c.Unlock()

		if found {
			fn(key, member)
		}
	}
}

// NewTypedCollection creates a new TypedCollection object populated with the snapshot contents.
func NewTypedCollection(memberType model.MemberType, parent ParentContext, contents Contents) (*TypedCollection, error) {
	if !memberType.IsValid() {
		return nil, fmt.Errorf("%s (%s): unknown", "memberType", memberType)
	}
	if parent == nil {
		return nil, fmt.Errorf("%s: nil", "parent")
	}

	c := &TypedCollection{
		memberType: memberType,
		kind:       kindOf(memberType),
		parent:     parent,
		members:    make(map[string]Member, len(contents)),
	}

	for rawKey, rawValue := range contents {
		keyStr := NormalizeKey(rawKey)
		if _, found := c.members[keyStr]; found {
			return nil, fmt.Errorf("%s %q: duplicate key (%T)", memberType, keyStr, rawKey)
		}
		member, err := c.kind.load(c, keyStr, rawValue)
		if err != nil {
			return nil, fmt.Errorf("%s %q (%v): %v: %w", memberType, keyStr, rawValue, err, ErrInvalidValue)
		}
		c.members[keyStr] = member
	}

	return c, nil
}
