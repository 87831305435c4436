package schema

import (
	"context"
	"fmt"

	"gridbase/internal/store"
)

// Column is the introspected metadata for one table column.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	Default    any    `json:"default"`
	PrimaryKey bool   `json:"primaryKey"`
}

// Table is a named relation with its introspected columns.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Catalog answers schema questions directly from the storage engine.
// There is no cached copy: every call introspects live, so schema changes
// are visible immediately.
type Catalog struct {
	store *store.Store
}

func NewCatalog(s *store.Store) *Catalog {
	return &Catalog{store: s}
}

// ListTables returns the names of all user-visible tables, excluding the
// engine's own catalog tables.
func (c *Catalog) ListTables(ctx context.Context) ([]string, error) {
	names, err := c.store.Dialect.ListTables(ctx, c.store.DB)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// DescribeTable returns the table's schema, or nil when the table does not
// exist or the name is malformed. A missing table is an expected negative
// case on every endpoint, so it is not an error here.
func (c *Catalog) DescribeTable(ctx context.Context, name string) (*Table, error) {
	if !ValidIdent(name) {
		return nil, nil
	}

	exists, err := c.store.Dialect.TableExists(ctx, c.store.DB, name)
	if err != nil {
		return nil, fmt.Errorf("check table %s: %w", name, err)
	}
	if !exists {
		return nil, nil
	}

	infos, err := c.store.Dialect.TableColumns(ctx, c.store.DB, name)
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", name, err)
	}

	table := &Table{Name: name, Columns: make([]Column, 0, len(infos))}
	for _, ci := range infos {
		table.Columns = append(table.Columns, Column{
			Name:       ci.Name,
			Type:       ci.Type,
			Nullable:   ci.Nullable,
			Default:    ci.Default,
			PrimaryKey: ci.PrimaryKey,
		})
	}
	return table, nil
}
