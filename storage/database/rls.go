package database

import (
	"context"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/user"
)

// WithUserContext runs fn inside a transaction whose session carries the
// acting user's id and top role for the Row-Level-Security policies.
// The settings are SET LOCAL so they vanish with the transaction.
func WithUserContext(ctx context.Context, db *sqlx.DB, usr user.User, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}

	role := user.RoleStudent
	if usr.IsAdmin() {
		role = user.RoleAdmin
	} else if usr.IsTeacher() {
		role = user.RoleTeacher
	}
	if _, err = tx.ExecContext(ctx, "SELECT set_config('app.current_user_id', $1, true)", strconv.Itoa(usr.ID)); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "setting user context")
	}
	if _, err = tx.ExecContext(ctx, "SELECT set_config('app.current_user_role', $1, true)", role); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "setting user context")
	}

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
