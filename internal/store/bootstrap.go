package store

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"
)

// Reserved system tables, pre-provisioned at startup and protected from drop.
const (
	AdminTable = "_admins"
	UserTable  = "users"
)

// BootstrapUsername is the recovery account that can never be deleted.
const BootstrapUsername = "admin"

const sqliteSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS _admins (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    email         TEXT NOT NULL UNIQUE,
    username      TEXT,
    password_hash TEXT,
    created_at    TEXT NOT NULL DEFAULT (datetime('now'))
);
`

const pgSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS _admins (
    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS users (
    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    username      TEXT,
    password_hash TEXT,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// IsReservedTable reports whether name is one of the protected system tables.
func IsReservedTable(name string) bool {
	return name == AdminTable || name == UserTable
}

// Bootstrap creates the reserved system tables and recovers the bootstrap
// admin account if it is missing.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.SystemTablesSQL()); err != nil {
		return fmt.Errorf("bootstrap system tables: %w", err)
	}
	if err := s.recoverBootstrapAdmin(ctx); err != nil {
		return fmt.Errorf("recover bootstrap admin: %w", err)
	}
	return nil
}

func (s *Store) recoverBootstrapAdmin(ctx context.Context) error {
	pb := s.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE username = %s", AdminTable, pb.Add(BootstrapUsername))

	var count int
	if err := s.DB.QueryRowContext(ctx, sqlStr, pb.Params()...).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	pb = s.Dialect.NewParamBuilder()
	sqlStr = fmt.Sprintf("INSERT INTO %s (username, password_hash) VALUES (%s, %s)",
		AdminTable, pb.Add(BootstrapUsername), pb.Add(string(hash)))
	if _, err := s.DB.ExecContext(ctx, sqlStr, pb.Params()...); err != nil {
		return err
	}

	log.Println("WARNING: Bootstrap admin account created (admin / changeme) — change the password immediately.")
	return nil
}
