package main

import (
	"context"
	"time"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(uname, email, name, department, pwd string, roles []string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUserByUsernameOrEmail(ctx, email)
	}
	if err != nil && err != user.ErrNotFound {
		return err
	}
	isNew := err == user.ErrNotFound

	now := time.Now().UTC()
	usr.Username = uname
	usr.Email = email
	if name != "" {
		usr.Name = name
	}
	if department != "" {
		usr.Department = department
	}
	if roles != nil {
		usr.Roles = roles
	}
	if isAdmin {
		usr.Roles = user.AllRoles
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now

	if isNew {
		usr.IsActive = true
		usr.CreatedAt = now
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}
	isActive := true
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	return err
}
