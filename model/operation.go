package model

import (
	"fmt"
	"sort"
	"strings"
)

type (
	// Operation is a named map member operation.
	// Only the payload fields matching MemberType are meaningful.
	Operation struct {
		Type       OperationType
		MemberType MemberType
		// Target member key within the map
		Name string
		// Counter: increment (negative to decrement)
		CounterDelta int64
		// Set: elements to add / remove
		SetAdds    []string
		SetRemoves []string
		// Register: the new value
		RegisterValue string
		// Flag: enable / disable
		FlagValue bool
		// Map: operations on the nested map members
		MapOps []Operation
	}

	// MapUpdate is an operation performed on a MapValue on the client side.
	MapUpdate struct {
		Type       OperationType
		Bucket     string
		Key        string
		Operations []Operation
	}
)

// String implements the stringer interface.
func (o Operation) String() string {
	str := strings.Builder{}
	str.WriteString(fmt.Sprintf("%s %s %q", o.Type, o.MemberType, o.Name))
	if o.Type == DeleteOperationType {
		return str.String()
	}

	switch o.MemberType {
	case CounterType:
		str.WriteString(fmt.Sprintf(" %+d", o.CounterDelta))
	case SetType:
		str.WriteString(fmt.Sprintf(" +%v -%v", o.SetAdds, o.SetRemoves))
	case RegisterType:
		str.WriteString(fmt.Sprintf(" = %q", o.RegisterValue))
	case FlagType:
		str.WriteString(fmt.Sprintf(" = %v", o.FlagValue))
	case MapType:
		innerStrs := make([]string, 0, len(o.MapOps))
		for _, innerOp := range o.MapOps {
			innerStrs = append(innerStrs, innerOp.String())
		}
		str.WriteString(" {" + strings.Join(innerStrs, "; ") + "}")
	}

	return str.String()
}

// Validate checks the operation and all of its nested operations.
func (o Operation) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("%s: empty", "Name")
	}
	if !o.MemberType.IsValid() {
		return fmt.Errorf("%s (%s): unknown", "MemberType", o.MemberType)
	}

	switch o.Type {
	case UpdateOperationType:
	case DeleteOperationType:
		return nil
	default:
		return fmt.Errorf("%s (%s): unknown", "Type", o.Type)
	}

	if o.MemberType == MapType {
		if len(o.MapOps) == 0 {
			return fmt.Errorf("%s: must be GT 0", "MapOps")
		}
		for i, innerOp := range o.MapOps {
			if err := innerOp.Validate(); err != nil {
				return fmt.Errorf("%s.MapOps[%d]: %w", o.Name, i, err)
			}
		}
	}

	return nil
}

// ApplySetUpdate returns sorted items with adds added and removes removed.
// The input slice is not modified.
func ApplySetUpdate(items, adds, removes []string) []string {
	set := make(map[string]struct{}, len(items)+len(adds))
	for _, item := range items {
		set[item] = struct{}{}
	}
	for _, item := range adds {
		set[item] = struct{}{}
	}
	for _, item := range removes {
		delete(set, item)
	}

	result := make([]string, 0, len(set))
	for item := range set {
		result = append(result, item)
	}
	sort.Strings(result)

	return result
}
