package main

import (
	"context"

	"github.com/trezcool/devpath/core"
)

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	return cli.usrSvc.ResetPassword(ctx, core.CleanString(uname, true /* lower */), pwd)
}
