package main

import (
	"context"
	"time"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.getUser(ctx, uname, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      uname,
			Username:  uname,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()

	isActive := true
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr, &isActive)
	return err
}

func (cli *commandLine) getUser(ctx context.Context, uname, email string) (user.User, error) {
	if uname != "" {
		if usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname); err == nil {
			return usr, nil
		} else if err != user.ErrNotFound {
			return user.User{}, err
		}
	}
	if email != "" {
		return cli.usrRepo.GetUserByUsernameOrEmail(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}
