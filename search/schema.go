// Package search manages the full-text search schemas registered on the backend.
package search

import (
	"errors"
	"fmt"
	"sync"

	"github.com/itiky/crdt-map/model"
)

type (
	// SchemaBackend performs the schema requests.
	SchemaBackend interface {
		// GetSchema returns model.ErrNotFound (wrapped) if the schema doesn't exist.
		GetSchema(name string) (model.Schema, error)
		CreateSchema(name, content string) error
	}

	// Schema is a search schema that may or may not exist on the backend.
	Schema struct {
		sync.Mutex
		backend SchemaBackend
		name    string
		// Memoized fetch result
		data *model.Schema
	}
)

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// Exists checks if the schema is registered.
func (s *Schema) Exists() (bool, error) {
	data, err := s.fetch()
	if err != nil {
		return false, err
	}

	return data != nil, nil
}

// Content returns the schema content.
func (s *Schema) Content() (string, error) {
	data, err := s.fetch()
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", fmt.Errorf("schema (%s): %w", s.name, model.ErrNotFound)
	}

	return data.Content, nil
}

// Create registers the schema.
// Returns model.ErrSchemaExists if a schema with the same name is already registered.
func (s *Schema) Create(content string) error {
	exists, err := s.Exists()
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("schema (%s): %w", s.name, model.ErrSchemaExists)
	}

	if err := s.backend.CreateSchema(s.name, content); err != nil {
		return fmt.Errorf("schema (%s): create: %w", s.name, err)
	}

	s.Lock()
	s.data = nil
	s.Unlock()

	return nil
}

// fetch returns the memoized schema data (nil if the schema doesn't exist).
func (s *Schema) fetch() (*model.Schema, error) {
	s.Lock()
	defer s.Unlock()

	if s.data != nil {
		return s.data, nil
	}

	data, err := s.backend.GetSchema(s.name)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("schema (%s): fetch: %w", s.name, err)
	}
	s.data = &data

	return s.data, nil
}

// NewSchema creates a new Schema object.
func NewSchema(backend SchemaBackend, name string) (*Schema, error) {
	if backend == nil {
		return nil, fmt.Errorf("%s: nil", "backend")
	}
	if name == "" {
		return nil, fmt.Errorf("%s: empty", "name")
	}

	return &Schema{
		backend: backend,
		name:    name,
	}, nil
}
