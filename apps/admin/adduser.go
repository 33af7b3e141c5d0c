package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/devpath/core"
	"github.com/trezcool/devpath/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(ctx context.Context, uname, email, pwd string) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		if _, err = cli.usrSvc.Create(ctx, user.NewUser{Username: uname, Email: email, Password: pwd}); err != nil {
			return errors.Wrap(err, "creating user")
		}
		return nil
	}

	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}
