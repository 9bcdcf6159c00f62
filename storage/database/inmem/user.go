package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/user"
)

func lower(s string) string { return strings.ToLower(s) }

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// query must be called with db.mutex held.
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := func(id int) bool {
		for _, u := range excludedUsers {
			if u.ID == id {
				return true
			}
		}
		return false
	}

	for _, usr := range repo.query() {
		if excluded(usr.ID) {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr.ID = repo.db.nextPK()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter != nil && !matchesUserFilter(usr, filter) {
			continue
		}
		users = append(users, usr)
	}

	sort.Slice(users, func(i, j int) bool {
		if len(ordering) > 0 {
			ord := ordering[0]
			var less bool
			switch ord.Field {
			case "name":
				less = lower(users[i].Name) < lower(users[j].Name)
			case "username":
				less = users[i].Username < users[j].Username
			case "email":
				less = users[i].Email < users[j].Email
			case "created_at":
				less = users[i].CreatedAt.Before(users[j].CreatedAt)
			default:
				less = users[i].ID < users[j].ID
			}
			if ord.Ascending {
				return less
			}
			return !less
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func matchesUserFilter(usr user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		s := lower(filter.Search)
		if !strings.Contains(lower(usr.Name), s) &&
			!strings.Contains(lower(usr.Username), s) &&
			!strings.Contains(lower(usr.Email), s) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var match bool
		for _, role := range filter.Roles {
			if usr.RoleStartsWith(role) {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
		return false
	}
	if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func (repo *userRepository) GetUserByID(_ context.Context, id int) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Username == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, username string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if (usr.Username == username) || (usr.Email == username) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, isActive *bool) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only save set fields
	origUsr, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Name != "" {
		origUsr.Name = usr.Name
	}
	if usr.Username != "" {
		origUsr.Username = usr.Username
	}
	if usr.Email != "" {
		origUsr.Email = usr.Email
	}
	if usr.Roles != nil {
		origUsr.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		origUsr.LastLogin = usr.LastLogin
	}
	if isActive != nil {
		origUsr.IsActive = *isActive
	}
	origUsr.UpdatedAt = usr.UpdatedAt
	return *origUsr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	if usr.ID == 0 {
		if isActive != nil {
			usr.IsActive = *isActive
		}
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr, isActive)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.users, id)
	}
	return nil
}
