package engine

import (
	"context"
	"errors"
	"fmt"

	"gridbase/internal/store"
)

// Policy holds the invariants that keep destructive operations away from
// system-critical rows and tables: the bootstrap admin account and the
// last remaining admin can never be deleted, and reserved tables can
// never be dropped.
type Policy struct {
	store *store.Store
}

func NewPolicy(s *store.Store) *Policy {
	return &Policy{store: s}
}

// CheckAdminDelete runs the pre-delete checks against current state so
// the caller gets a precise error. The checks alone are racy under
// concurrent deletes; the guarded statement from GuardedAdminDelete is
// what actually enforces the invariants.
func (p *Policy) CheckAdminDelete(ctx context.Context, id int64) error {
	pb := p.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf("SELECT username FROM %s WHERE id = %s", store.AdminTable, pb.Add(id))
	row, err := store.QueryRow(ctx, p.store.DB, sqlStr, pb.Params()...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RecordNotFoundError(store.AdminTable, id)
		}
		return err
	}

	if username, _ := row["username"].(string); username == store.BootstrapUsername {
		return ProtectedRecordError()
	}

	var count int64
	if err := p.store.DB.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", store.AdminTable)).Scan(&count); err != nil {
		return err
	}
	if count <= 1 {
		return LastAdminError()
	}
	return nil
}

// GuardedAdminDelete builds a single conditional DELETE that re-asserts
// both invariants inside the statement, so two racing deletes cannot each
// observe "more than one admin remains" and both succeed.
func (p *Policy) GuardedAdminDelete(id int64) (string, []any) {
	pb := p.store.Dialect.NewParamBuilder()
	sqlStr := fmt.Sprintf(
		"DELETE FROM %s WHERE id = %s AND username <> %s AND (SELECT COUNT(*) FROM %s) > 1",
		store.AdminTable, pb.Add(id), pb.Add(store.BootstrapUsername), store.AdminTable)
	return sqlStr, pb.Params()
}

// CheckDropTable rejects drops of the reserved system tables.
func (p *Policy) CheckDropTable(name string) error {
	if store.IsReservedTable(name) {
		return ProtectedTableError(name)
	}
	return nil
}
