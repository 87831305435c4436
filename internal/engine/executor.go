package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"gridbase/internal/schema"
	"gridbase/internal/store"
)

const (
	DefaultLimit  = 100
	DefaultOffset = 0
)

// ColumnDef is one column of a create-table request. Name must pass the
// identifier allow-list; Type and Constraints are raw DDL text trusted
// from the authenticated admin (the create-table operation is not
// reachable otherwise).
type ColumnDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Constraints string `json:"constraints"`
}

// Executor builds and runs parameterized statements against any table the
// catalog knows about. Identifiers are validated before interpolation;
// values are always bound parameters, never interpolated.
type Executor struct {
	store   *store.Store
	catalog *schema.Catalog
	policy  *Policy
}

func NewExecutor(s *store.Store, cat *schema.Catalog) *Executor {
	return &Executor{store: s, catalog: cat, policy: NewPolicy(s)}
}

func (e *Executor) Catalog() *schema.Catalog { return e.catalog }

// List returns up to limit records starting at offset, plus the total row
// count. Ordering is storage-engine default; no ORDER BY is applied.
func (e *Executor) List(ctx context.Context, table string, limit, offset int) ([]map[string]any, int64, error) {
	if err := e.requireTable(ctx, table); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = DefaultOffset
	}

	pb := e.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT * FROM %s LIMIT %s OFFSET %s", table, pb.Add(limit), pb.Add(offset))
	rows, err := store.QueryRows(ctx, e.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, 0, e.storageFailure("list", table, err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}

	total, err := e.Count(ctx, table)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetByID fetches a single record by its id column.
func (e *Executor) GetByID(ctx context.Context, table string, id int64) (map[string]any, error) {
	if err := e.requireTable(ctx, table); err != nil {
		return nil, err
	}

	pb := e.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT * FROM %s WHERE id = %s", table, pb.Add(id))
	row, err := store.QueryRow(ctx, e.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, RecordNotFoundError(table, id)
		}
		return nil, e.storageFailure("get", table, err)
	}
	return row, nil
}

// Insert creates a record and returns it as written, including the
// engine-assigned id. Any caller-supplied id is stripped: identity is
// never client-assigned.
func (e *Executor) Insert(ctx context.Context, table string, fields map[string]any) (map[string]any, error) {
	if err := e.requireTable(ctx, table); err != nil {
		return nil, err
	}

	cols, vals, err := splitFields(fields)
	if err != nil {
		return nil, err
	}

	pb := e.store.Dialect.NewParamBuilder()
	var sqlStr string
	if len(cols) == 0 {
		sqlStr = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", table)
	} else {
		placeholders := make([]string, len(vals))
		for i, v := range vals {
			placeholders[i] = pb.Add(v)
		}
		sqlStr = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
			table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	}

	row, err := store.QueryRow(ctx, e.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return nil, e.storageFailure("insert", table, err)
	}
	return row, nil
}

// Update mutates the given columns in place and returns the updated
// record. The id column is stripped from the SET clause: identity is
// never mutated. Updating with no remaining fields returns the record
// unchanged.
func (e *Executor) Update(ctx context.Context, table string, id int64, fields map[string]any) (map[string]any, error) {
	if err := e.requireTable(ctx, table); err != nil {
		return nil, err
	}

	cols, vals, err := splitFields(fields)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return e.GetByID(ctx, table, id)
	}

	pb := e.store.Dialect.NewParamBuilder()
	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = %s", col, pb.Add(vals[i]))
	}
	sqlStr := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s RETURNING *",
		table, strings.Join(sets, ", "), pb.Add(id))

	row, err := store.QueryRow(ctx, e.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, RecordNotFoundError(table, id)
		}
		return nil, e.storageFailure("update", table, err)
	}
	return row, nil
}

// Delete removes a record by id. Deletes from the admin table go through
// the protection policy and a guarded statement that re-asserts the
// invariants, so concurrent deletes cannot remove the last admin.
func (e *Executor) Delete(ctx context.Context, table string, id int64) error {
	if err := e.requireTable(ctx, table); err != nil {
		return err
	}

	if table == store.AdminTable {
		return e.deleteAdmin(ctx, id)
	}

	pb := e.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("DELETE FROM %s WHERE id = %s", table, pb.Add(id))
	affected, err := store.Exec(ctx, e.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		return e.storageFailure("delete", table, err)
	}
	if affected == 0 {
		return RecordNotFoundError(table, id)
	}
	return nil
}

func (e *Executor) deleteAdmin(ctx context.Context, id int64) error {
	if err := e.policy.CheckAdminDelete(ctx, id); err != nil {
		return err
	}

	sqlStr, params := e.policy.GuardedAdminDelete(id)
	affected, err := store.Exec(ctx, e.store.DB, sqlStr, params...)
	if err != nil {
		return e.storageFailure("delete", store.AdminTable, err)
	}
	if affected == 0 {
		// A concurrent delete got there first; the guard held.
		return LastAdminError()
	}
	return nil
}

// Count returns the total number of rows in the table.
func (e *Executor) Count(ctx context.Context, table string) (int64, error) {
	if err := e.requireTable(ctx, table); err != nil {
		return 0, err
	}

	row, err := store.QueryRow(ctx, e.store.DB, fmt.Sprintf("SELECT COUNT(*) AS count FROM %s", table))
	if err != nil {
		return 0, e.storageFailure("count", table, err)
	}
	return toInt64(row["count"]), nil
}

// CreateTable creates a new table from the given column definitions. An
// auto-assigned integer id primary key is added when the caller does not
// define one, since every record's identity is its id column.
func (e *Executor) CreateTable(ctx context.Context, name string, defs []ColumnDef) error {
	if !schema.ValidIdent(name) {
		return InvalidIdentifierError(name)
	}

	cols := make([]string, 0, len(defs)+1)
	hasID := false
	for _, def := range defs {
		if !schema.ValidIdent(def.Name) {
			return InvalidIdentifierError(def.Name)
		}
		if def.Name == "id" {
			hasID = true
		}
		col := def.Name + " " + def.Type
		if def.Constraints != "" {
			col += " " + def.Constraints
		}
		cols = append(cols, strings.TrimSpace(col))
	}
	if !hasID {
		cols = append([]string{e.store.Dialect.IdentityColumnSQL()}, cols...)
	}

	sqlStr := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", name, strings.Join(cols, ",\n  "))
	if _, err := e.store.DB.ExecContext(ctx, sqlStr); err != nil {
		return e.storageFailure("create table", name, err)
	}
	return nil
}

// DropTable drops a table. Reserved system tables cannot be dropped.
func (e *Executor) DropTable(ctx context.Context, name string) error {
	if !schema.ValidIdent(name) {
		return InvalidIdentifierError(name)
	}
	if err := e.policy.CheckDropTable(name); err != nil {
		return err
	}
	if err := e.requireTable(ctx, name); err != nil {
		return err
	}

	if _, err := e.store.DB.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", name)); err != nil {
		return e.storageFailure("drop table", name, err)
	}
	return nil
}

// RawQuery runs administrator-supplied SQL verbatim. Read statements
// return rows; everything else returns the affected row count. This is
// the one operation that bypasses identifier validation and the
// protection policy: raw trust extended to an authenticated admin.
func (e *Executor) RawQuery(ctx context.Context, sqlStr string, params []any) (any, error) {
	if isReadStatement(sqlStr) {
		rows, err := store.QueryRows(ctx, e.store.DB, sqlStr, params...)
		if err != nil {
			return nil, e.storageFailure("raw query", "", err)
		}
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}

	affected, err := store.Exec(ctx, e.store.DB, sqlStr, params...)
	if err != nil {
		return nil, e.storageFailure("raw exec", "", err)
	}
	return map[string]any{"rowsAffected": affected}, nil
}

func (e *Executor) requireTable(ctx context.Context, table string) error {
	if !schema.ValidIdent(table) {
		return InvalidIdentifierError(table)
	}
	t, err := e.catalog.DescribeTable(ctx, table)
	if err != nil {
		return e.storageFailure("describe", table, err)
	}
	if t == nil {
		return TableNotFoundError(table)
	}
	return nil
}

// storageFailure logs the underlying error in full and returns the
// generic caller-facing failure; no SQL text or driver detail leaks out.
func (e *Executor) storageFailure(op, table string, err error) error {
	log.Printf("ERROR: %s %s: %v", op, table, e.store.Dialect.MapError(err))
	return StorageError()
}

// splitFields strips the id field and returns column names and values in
// a stable order. Column names are validated; membership against the
// declared schema is deliberately not checked, so an unknown column
// surfaces as a storage failure.
func splitFields(fields map[string]any) ([]string, []any, error) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if col == "id" {
			continue
		}
		if !schema.ValidIdent(col) {
			return nil, nil, InvalidIdentifierError(col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = fields[col]
	}
	return cols, vals, nil
}

func isReadStatement(sqlStr string) bool {
	fields := strings.Fields(sqlStr)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "PRAGMA", "EXPLAIN", "SHOW", "VALUES":
		return true
	}
	return false
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
