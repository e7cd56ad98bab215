package model

import "errors"

type (
	ClientId uint32
)

// MemberType is a CRDT type that can live inside a map.
type MemberType string

const (
	CounterType  MemberType = "counter"
	SetType      MemberType = "set"
	RegisterType MemberType = "register"
	FlagType     MemberType = "flag"
	MapType      MemberType = "map"
)

// MemberTypes lists all the supported MemberType values.
var MemberTypes = []MemberType{CounterType, SetType, RegisterType, FlagType, MapType}

// IsValid checks if MemberType is one of the supported ones.
func (t MemberType) IsValid() bool {
	for _, known := range MemberTypes {
		if t == known {
			return true
		}
	}

	return false
}

type OperationType string

const (
	UpdateOperationType OperationType = "update"
	DeleteOperationType OperationType = "delete"
)

// Errors the backend reports to clients.
var (
	ErrNotFound     = errors.New("not found")
	ErrSchemaExists = errors.New("schema already exists")
)
