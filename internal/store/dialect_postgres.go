package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) NowExpr() string { return "NOW()" }

func (d *PostgresDialect) IdentityColumnSQL() string {
	return "id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY"
}

func (d *PostgresDialect) SystemTablesSQL() string {
	return pgSystemTablesSQL
}

func (d *PostgresDialect) ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		 ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *PostgresDialect) TableExists(ctx context.Context, db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = $1 AND table_schema = 'public')`,
		tableName,
	).Scan(&exists)
	return exists, err
}

func (d *PostgresDialect) TableColumns(ctx context.Context, db *sql.DB, tableName string) ([]ColumnInfo, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
		        EXISTS(
		            SELECT 1 FROM information_schema.key_column_usage kcu
		            JOIN information_schema.table_constraints tc
		              ON tc.constraint_name = kcu.constraint_name
		             AND tc.table_schema = kcu.table_schema
		            WHERE tc.constraint_type = 'PRIMARY KEY'
		              AND kcu.table_name = c.table_name
		              AND kcu.column_name = c.column_name
		              AND kcu.table_schema = 'public'
		        ) AS is_pk
		 FROM information_schema.columns c
		 WHERE c.table_name = $1 AND c.table_schema = 'public'
		 ORDER BY c.ordinal_position`,
		tableName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var name, dataType, isNullable string
		var dflt sql.NullString
		var isPK bool
		if err := rows.Scan(&name, &dataType, &isNullable, &dflt, &isPK); err != nil {
			return nil, err
		}
		var def any
		if dflt.Valid {
			def = dflt.String
		}
		cols = append(cols, ColumnInfo{
			Name:       name,
			Type:       dataType,
			Nullable:   isNullable == "YES",
			Default:    def,
			PrimaryKey: isPK,
		})
	}
	return cols, rows.Err()
}

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}
