package crdt

import (
	"fmt"

	"github.com/spf13/cast"
)

// Symbol is a symbolic map key. It normalizes to its string form, so
// Symbol("name") and "name" address the same member.
type Symbol string

// NormalizeKey converts a key (string, Symbol, number, fmt.Stringer, ...) to the canonical string form.
// Panics if the key has no string conversion.
func NormalizeKey(key interface{}) string {
	switch k := key.(type) {
	case string:
		return k
	case Symbol:
		return string(k)
	case nil:
		panic("crdt: nil key")
	}

	keyStr, err := cast.ToStringE(key)
	if err != nil {
		panic(fmt.Sprintf("crdt: key (%T) has no string form: %v", key, err))
	}

	return keyStr
}
