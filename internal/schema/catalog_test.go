package schema

import (
	"context"
	"testing"

	"gridbase/internal/config"
	"gridbase/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		Name:   "test",
		Path:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return s
}

func TestListTables(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	cat := NewCatalog(s)

	if _, err := s.DB.ExecContext(ctx,
		"CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	// Autoincrement insert materializes sqlite_sequence, which must stay hidden.
	if _, err := s.DB.ExecContext(ctx, "INSERT INTO posts (title) VALUES ('x')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	names, err := cat.ListTables(ctx)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"posts", store.AdminTable, store.UserTable} {
		if !seen[want] {
			t.Errorf("expected table %q in listing, got %v", want, names)
		}
	}
	if seen["sqlite_sequence"] {
		t.Error("engine catalog table sqlite_sequence leaked into listing")
	}
}

func TestDescribeTable(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	cat := NewCatalog(s)

	table, err := cat.DescribeTable(ctx, store.UserTable)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if table == nil {
		t.Fatal("expected users table to exist")
	}

	byName := make(map[string]Column, len(table.Columns))
	for _, col := range table.Columns {
		byName[col.Name] = col
	}
	id, ok := byName["id"]
	if !ok {
		t.Fatal("expected id column")
	}
	if !id.PrimaryKey {
		t.Error("expected id to be the primary key")
	}
	email, ok := byName["email"]
	if !ok {
		t.Fatal("expected email column")
	}
	if email.Nullable {
		t.Error("expected email to be NOT NULL")
	}
}

func TestDescribeTable_AbsentIsSoft(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	cat := NewCatalog(s)

	table, err := cat.DescribeTable(ctx, "no_such_table")
	if err != nil {
		t.Fatalf("expected soft absence, got error: %v", err)
	}
	if table != nil {
		t.Fatalf("expected nil for missing table, got %+v", table)
	}

	// Malformed names are also soft-absent, never interpolated.
	table, err = cat.DescribeTable(ctx, "users; DROP TABLE users")
	if err != nil {
		t.Fatalf("expected soft absence for malformed name, got error: %v", err)
	}
	if table != nil {
		t.Fatal("expected nil for malformed name")
	}
}

func TestDescribeTable_SeesNewColumns(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	cat := NewCatalog(s)

	if _, err := s.DB.ExecContext(ctx, "CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	before, err := cat.DescribeTable(ctx, "notes")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}

	if _, err := s.DB.ExecContext(ctx, "ALTER TABLE notes ADD COLUMN body TEXT"); err != nil {
		t.Fatalf("alter table: %v", err)
	}
	after, err := cat.DescribeTable(ctx, "notes")
	if err != nil {
		t.Fatalf("describe after alter: %v", err)
	}

	if len(after.Columns) != len(before.Columns)+1 {
		t.Fatalf("expected schema change to be visible immediately: before=%d after=%d",
			len(before.Columns), len(after.Columns))
	}
}
