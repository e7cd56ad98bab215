package model

import (
	"encoding/json"
	"fmt"
)

type (
	// MapValue is a map snapshot (the client view of a server map).
	MapValue struct {
		Counters  map[string]int64
		Sets      map[string][]string
		Registers map[string]string
		Flags     map[string]bool
		Maps      map[string]MapValue
	}
)

// String implements the stringer interface.
func (v MapValue) String() string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("marshal: %v", err)
	}

	return string(raw)
}

// IsEmpty checks if the map has no members.
func (v MapValue) IsEmpty() bool {
	return len(v.Counters) == 0 && len(v.Sets) == 0 && len(v.Registers) == 0 && len(v.Flags) == 0 && len(v.Maps) == 0
}

// Clone returns a deep copy with all member maps initialized.
func (v MapValue) Clone() MapValue {
	c := NewMapValue()
	for k, value := range v.Counters {
		c.Counters[k] = value
	}
	for k, items := range v.Sets {
		itemsCopy := make([]string, len(items))
		copy(itemsCopy, items)
		c.Sets[k] = itemsCopy
	}
	for k, value := range v.Registers {
		c.Registers[k] = value
	}
	for k, value := range v.Flags {
		c.Flags[k] = value
	}
	for k, inner := range v.Maps {
		c.Maps[k] = inner.Clone()
	}

	return c
}

// ApplyMapOperations upgrades the input MapValue using Operation objects.
// Operations are applied in order, the input value is not modified.
func ApplyMapOperations(v MapValue, ops ...Operation) (MapValue, error) {
	v = v.Clone()
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return MapValue{}, fmt.Errorf("op[%d] (%s): %w", i, op.Type, err)
		}

		if op.Type == DeleteOperationType {
			switch op.MemberType {
			case CounterType:
				delete(v.Counters, op.Name)
			case SetType:
				delete(v.Sets, op.Name)
			case RegisterType:
				delete(v.Registers, op.Name)
			case FlagType:
				delete(v.Flags, op.Name)
			case MapType:
				delete(v.Maps, op.Name)
			}
			continue
		}

		switch op.MemberType {
		case CounterType:
			v.Counters[op.Name] += op.CounterDelta
		case SetType:
			v.Sets[op.Name] = ApplySetUpdate(v.Sets[op.Name], op.SetAdds, op.SetRemoves)
		case RegisterType:
			v.Registers[op.Name] = op.RegisterValue
		case FlagType:
			v.Flags[op.Name] = op.FlagValue
		case MapType:
			inner, err := ApplyMapOperations(v.Maps[op.Name], op.MapOps...)
			if err != nil {
				return MapValue{}, fmt.Errorf("op[%d] (%s): %s: %w", i, op.Type, op.Name, err)
			}
			v.Maps[op.Name] = inner
		}
	}

	return v, nil
}

// ApplyMapUpdates upgrades the input MapValue to a new version using MapUpdate objects.
func ApplyMapUpdates(v MapValue, updates ...MapUpdate) (MapValue, error) {
	for i, upd := range updates {
		switch upd.Type {
		case UpdateOperationType:
			newValue, err := ApplyMapOperations(v, upd.Operations...)
			if err != nil {
				return MapValue{}, fmt.Errorf("update[%d] (%s): %w", i, upd.Type, err)
			}
			v = newValue
		case DeleteOperationType:
			v = NewMapValue()
		default:
			return MapValue{}, fmt.Errorf("update[%d] (%s): unknown type", i, upd.Type)
		}
	}

	return v, nil
}

// NewMapValue creates an empty MapValue object.
func NewMapValue() MapValue {
	return MapValue{
		Counters:  make(map[string]int64),
		Sets:      make(map[string][]string),
		Registers: make(map[string]string),
		Flags:     make(map[string]bool),
		Maps:      make(map[string]MapValue),
	}
}
