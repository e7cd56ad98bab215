package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/itiky/crdt-map/model"
)

const createSchemas = `CREATE TABLE IF NOT EXISTS search_schemas (
    name TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
);`

// SchemaRegistry keeps search schemas in a SQLite database.
type SchemaRegistry struct {
	db *sql.DB
}

// Get returns a schema by name.
// Returns model.ErrNotFound if the schema is not registered.
func (r *SchemaRegistry) Get(name string) (model.Schema, error) {
	schema := model.Schema{Name: name}

	row := r.db.QueryRow(`SELECT content FROM search_schemas WHERE name = ?`, name)
	if err := row.Scan(&schema.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Schema{}, fmt.Errorf("schema (%s): %w", name, model.ErrNotFound)
		}
		return model.Schema{}, fmt.Errorf("schema (%s): query: %w", name, err)
	}

	return schema, nil
}

// Create registers a new schema.
// Returns model.ErrSchemaExists if the name is already taken.
func (r *SchemaRegistry) Create(schema model.Schema) error {
	if schema.Name == "" {
		return fmt.Errorf("%s: empty", "name")
	}
	if schema.Content == "" {
		return fmt.Errorf("%s: empty", "content")
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM search_schemas WHERE name = ?`, schema.Name).Scan(&count); err != nil {
		return fmt.Errorf("schema (%s): query: %w", schema.Name, err)
	}
	if count > 0 {
		return fmt.Errorf("schema (%s): %w", schema.Name, model.ErrSchemaExists)
	}

	_, err = tx.Exec(`INSERT INTO search_schemas (name, content, created_at) VALUES (?, ?, ?)`,
		schema.Name, schema.Content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("schema (%s): insert: %w", schema.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Close closes the database.
func (r *SchemaRegistry) Close() error {
	return r.db.Close()
}

// NewSchemaRegistry opens (creates if needed) the SQLite schema registry.
// ":memory:" path keeps schemas in memory.
func NewSchemaRegistry(dbPath string) (*SchemaRegistry, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%s: empty", "dbPath")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database (%s): %w", dbPath, err)
	}
	// Single connection: in-memory databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSchemas); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema table: %w", err)
	}

	return &SchemaRegistry{db: db}, nil
}
