package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/devpath/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sqlx.DB
	usrRepo user.Repository
	usrSvc  *user.Service
	out     io.Writer
}

func newCommandLine(db *sqlx.DB, usrRepo user.Repository, out io.Writer) *commandLine {
	return &commandLine{
		db:      db,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo),
		out:     out,
	}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "DevPath administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	migrateCmd := &cobra.Command{
		Use:                "migrate COMMAND [ARGS...]",
		Short:              "Run a goose migration command (up, down, status, ...)",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.migrate(cmd.Context(), args)
		},
	}

	var addUserUname, addUserEmail string
	addUserCmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the password of an existing one. The password is prompted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addUserUname == "" || addUserEmail == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.readPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.addUser(cmd.Context(), addUserUname, addUserEmail, pwd)
		},
	}
	addUserCmd.Flags().StringVar(&addUserUname, "username", "", "The user's username")
	addUserCmd.Flags().StringVar(&addUserEmail, "email", "", "The user's email")

	var resetPasswordUname string
	resetPasswordCmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if resetPasswordUname == "" {
				_ = cmd.Usage()
				return errHelp
			}
			pwd, err := cli.readPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.resetPassword(cmd.Context(), resetPasswordUname, pwd)
		},
	}
	resetPasswordCmd.Flags().StringVar(&resetPasswordUname, "username", "", "The user's username or email")

	root.AddCommand(migrateCmd, addUserCmd, resetPasswordCmd)
	return root
}

func (cli *commandLine) readPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}
