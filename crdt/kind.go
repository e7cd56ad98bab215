package crdt

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/itiky/crdt-map/model"
)

// ErrInvalidValue is returned when a value can't be converted to the collection member type.
var ErrInvalidValue = errors.New("invalid member value")

// memberKind keeps the member type specific rules and builders.
type memberKind struct {
	// Members must carry their key as a name
	needsName bool
	// Missing key yields an absent value instead of a zero instance
	initializesAsAbsent bool
	// Builds a zero instance
	zero func(owner *TypedCollection, key string) Member
	// Builds an instance from a raw snapshot value
	load func(owner *TypedCollection, key string, raw interface{}) (Member, error)
	// Builds an unnamed update operation for the write request
	update func(value interface{}) (model.Operation, error)
	// Builds an instance reflecting the applied operation on top of the previous one (might be nil)
	reflect func(owner *TypedCollection, key string, prev Member, op model.Operation) (Member, error)
}

// kinds is the member type dispatch table.
var kinds map[model.MemberType]memberKind

func init() {
	kinds = map[model.MemberType]memberKind{
		model.CounterType: {
			needsName: true,
			zero: func(owner *TypedCollection, key string) Member {
				return &Counter{owner: owner, name: key}
			},
			load: func(owner *TypedCollection, key string, raw interface{}) (Member, error) {
				value, err := toInt64(raw)
				if err != nil {
					return nil, err
				}
				return &Counter{owner: owner, name: key, value: value}, nil
			},
			update: func(value interface{}) (model.Operation, error) {
				delta, err := toInt64(value)
				if err != nil {
					return model.Operation{}, err
				}
				return model.Operation{CounterDelta: delta}, nil
			},
			reflect: func(owner *TypedCollection, key string, prev Member, op model.Operation) (Member, error) {
				var value int64
				if prev != nil {
					value = prev.(*Counter).value
				}
				return &Counter{owner: owner, name: key, value: value + op.CounterDelta}, nil
			},
		},
		model.SetType: {
			needsName: true,
			zero: func(owner *TypedCollection, key string) Member {
				return &Set{owner: owner, name: key, items: []string{}}
			},
			load: func(owner *TypedCollection, key string, raw interface{}) (Member, error) {
				items, err := cast.ToStringSliceE(raw)
				if err != nil {
					return nil, err
				}
				return &Set{owner: owner, name: key, items: model.ApplySetUpdate(items, nil, nil)}, nil
			},
			update: func(value interface{}) (model.Operation, error) {
				switch v := value.(type) {
				case SetUpdate:
					if len(v.Add) == 0 && len(v.Remove) == 0 {
						return model.Operation{}, fmt.Errorf("empty update")
					}
					return model.Operation{SetAdds: v.Add, SetRemoves: v.Remove}, nil
				case []string:
					if len(v) == 0 {
						return model.Operation{}, fmt.Errorf("empty update")
					}
					return model.Operation{SetAdds: v}, nil
				case string:
					return model.Operation{SetAdds: []string{v}}, nil
				}
				return model.Operation{}, fmt.Errorf("unsupported type %T", value)
			},
			reflect: func(owner *TypedCollection, key string, prev Member, op model.Operation) (Member, error) {
				var items []string
				if prev != nil {
					items = prev.(*Set).items
				}
				return &Set{owner: owner, name: key, items: model.ApplySetUpdate(items, op.SetAdds, op.SetRemoves)}, nil
			},
		},
		model.RegisterType: {
			initializesAsAbsent: true,
			zero: func(owner *TypedCollection, key string) Member {
				return Register{}
			},
			load: func(owner *TypedCollection, key string, raw interface{}) (Member, error) {
				value, err := cast.ToStringE(raw)
				if err != nil {
					return nil, err
				}
				return Register{value: value}, nil
			},
			update: func(value interface{}) (model.Operation, error) {
				if r, ok := value.(Register); ok {
					return model.Operation{RegisterValue: r.value}, nil
				}
				str, err := cast.ToStringE(value)
				if err != nil {
					return model.Operation{}, err
				}
				return model.Operation{RegisterValue: str}, nil
			},
			reflect: func(owner *TypedCollection, key string, prev Member, op model.Operation) (Member, error) {
				return Register{value: op.RegisterValue}, nil
			},
		},
		model.FlagType: {
			zero: func(owner *TypedCollection, key string) Member {
				return Flag{}
			},
			load: func(owner *TypedCollection, key string, raw interface{}) (Member, error) {
				value, err := cast.ToBoolE(raw)
				if err != nil {
					return nil, err
				}
				return Flag{value: value}, nil
			},
			update: func(value interface{}) (model.Operation, error) {
				if f, ok := value.(Flag); ok {
					return model.Operation{FlagValue: f.value}, nil
				}
				enabled, err := cast.ToBoolE(value)
				if err != nil {
					return model.Operation{}, err
				}
				return model.Operation{FlagValue: enabled}, nil
			},
			reflect: func(owner *TypedCollection, key string, prev Member, op model.Operation) (Member, error) {
				return Flag{value: op.FlagValue}, nil
			},
		},
		model.MapType: {
			zero: func(owner *TypedCollection, key string) Member {
				m, err := newMap(owner, key, model.NewMapValue())
				if err != nil {
					panic(fmt.Sprintf("crdt: empty map: %v", err))
				}
				return m
			},
			load: func(owner *TypedCollection, key string, raw interface{}) (Member, error) {
				value, ok := raw.(model.MapValue)
				if !ok {
					return nil, fmt.Errorf("unsupported type %T", raw)
				}
				return newMap(owner, key, value)
			},
			update: func(value interface{}) (model.Operation, error) {
				switch v := value.(type) {
				case model.Operation:
					return model.Operation{MapOps: []model.Operation{v}}, nil
				case []model.Operation:
					if len(v) == 0 {
						return model.Operation{}, fmt.Errorf("empty update")
					}
					return model.Operation{MapOps: v}, nil
				}
				return model.Operation{}, fmt.Errorf("unsupported type %T", value)
			},
			reflect: func(owner *TypedCollection, key string, prev Member, op model.Operation) (Member, error) {
				value := model.NewMapValue()
				if prev != nil {
					value = prev.(*Map).Value()
				}
				newValue, err := model.ApplyMapOperations(value, op.MapOps...)
				if err != nil {
					return nil, err
				}
				return newMap(owner, key, newValue)
			},
		},
	}
}

// toInt64 converts a counter value without losing precision:
// strings are parsed as base 10 integers, floats must be whole numbers.
func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	}

	return cast.ToInt64E(value)
}

func floatToInt64(v float64) (int64, error) {
	if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%v: not an integer", v)
	}

	return int64(v), nil
}

// kindOf returns the member type rules.
// Panics on unknown type (closed enumeration).
func kindOf(t model.MemberType) memberKind {
	kind, ok := kinds[t]
	if !ok {
		panic(fmt.Sprintf("crdt: unknown member type %q", t))
	}

	return kind
}

// NeedsName checks if members of the type must carry their key as a name.
func NeedsName(t model.MemberType) bool {
	return kindOf(t).needsName
}

// InitializesAsAbsent checks if a missing key of the type yields an absent value.
func InitializesAsAbsent(t model.MemberType) bool {
	return kindOf(t).initializesAsAbsent
}

// NewUpdateOperation builds an update operation of the member type for the value.
func NewUpdateOperation(t model.MemberType, name string, value interface{}) (model.Operation, error) {
	op, err := kindOf(t).update(value)
	if err != nil {
		return model.Operation{}, fmt.Errorf("%s %q (%v): %v: %w", t, name, value, err, ErrInvalidValue)
	}
	op.Type = model.UpdateOperationType
	op.MemberType = t
	op.Name = name

	if err := op.Validate(); err != nil {
		return model.Operation{}, fmt.Errorf("%s %q: %v: %w", t, name, err, ErrInvalidValue)
	}

	return op, nil
}

// NewDeleteOperation builds a delete operation of the member type.
func NewDeleteOperation(t model.MemberType, name string) model.Operation {
	kindOf(t)

	return model.Operation{
		Type:       model.DeleteOperationType,
		MemberType: t,
		Name:       name,
	}
}
