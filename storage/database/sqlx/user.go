package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/user"
)

type userRow struct {
	ID           int            `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin.Time,
	}
}

var userOrderCols = map[string]bool{
	"id": true, "name": true, "username": true, "email": true,
	"is_active": true, "created_at": true, "updated_at": true, "last_login": true,
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]int, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		exclIDs = append(exclIDs, u.ID)
	}

	check := func(col, val string) (bool, error) {
		if val == "" {
			return false, nil
		}
		var exists bool
		q := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM users WHERE %s = $1 AND id <> ALL($2))", col)
		if err := repo.db.GetContext(ctx, &exists, q, val, pq.Array(exclIDs)); err != nil {
			return false, errors.Wrap(err, "checking user uniqueness")
		}
		return exists, nil
	}

	if exists, err := check("username", username); err != nil {
		return err
	} else if exists {
		return user.ErrUsernameExists
	}
	if exists, err := check("email", email); err != nil {
		return err
	} else if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `
		INSERT INTO users (name, username, email, is_active, roles, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q,
		usr.Name, usr.Username, usr.Email, usr.IsActive, pq.Array(usr.Roles),
		usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	).Scan(&usr.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_users_username") {
			return user.User{}, user.ErrUsernameExists
		}
		if isUniqueViolation(err, "uq_users_email") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, fmt.Sprintf(
				"(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", arg(val)))
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleConds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleConds = append(roleConds, fmt.Sprintf(
					"EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE %s)", arg(role+"%")))
			}
			where = append(where, "("+strings.Join(roleConds, " OR ")+")")
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = "+arg(*filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, "created_at >= "+arg(filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, "created_at <= "+arg(filter.CreatedTo.UTC()))
		}
	}

	q := "SELECT * FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + orderClause(ordering, userOrderCols, "created_at DESC")

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.user())
	}
	return users, nil
}

func (repo userRepository) getUser(ctx context.Context, q string, args ...interface{}) (user.User, error) {
	var r userRow
	if err := repo.db.GetContext(ctx, &r, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return r.user(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	return repo.getUser(ctx, "SELECT * FROM users WHERE id = $1", id)
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, "SELECT * FROM users WHERE username = $1", username)
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "SELECT * FROM users WHERE email = $1", email)
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	return repo.getUser(ctx, "SELECT * FROM users WHERE username = $1 OR email = $1", username)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Roles != nil {
		set("roles", pq.Array(usr.Roles))
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin.UTC())
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now()
	}
	set("updated_at", usr.UpdatedAt.UTC())

	args = append(args, usr.ID)
	q := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING *", strings.Join(sets, ", "), len(args))

	var r userRow
	if err := repo.db.GetContext(ctx, &r, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err, "uq_users_username") {
			return user.User{}, user.ErrUsernameExists
		}
		if isUniqueViolation(err, "uq_users_email") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return r.user(), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	if usr.ID == 0 {
		if isActive != nil {
			usr.IsActive = *isActive
		}
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr, isActive)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM users WHERE id = ANY($1)", pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}
