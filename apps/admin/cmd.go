package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/tathmini/core/appraisal"
	"github.com/trezcool/tathmini/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrRepo  user.Repository
	apprRepo appraisal.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-department DEPT] [-roles R1,R2] [-admin] - add or update a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  addcycle -name NAME -year YEAR -start YYYY-MM-DD -end YYYY-MM-DD - open a new appraisal cycle")
	fmt.Println("  closecycle - close the open appraisal cycle")
	fmt.Println("  migrate COMMAND [args] - run DB migrations (goose commands)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserDept := addUserCmd.String("department", "", "The user's department.")
	addUserRoles := addUserCmd.String("roles", "", "Comma-separated roles.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant all roles.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	addCycleCmd := flag.NewFlagSet("addcycle", flag.ExitOnError)
	addCycleName := addCycleCmd.String("name", "", "The cycle's name.")
	addCycleYear := addCycleCmd.String("year", "", "The academic year, eg. 2025-26.")
	addCycleStart := addCycleCmd.String("start", "", "The cycle's start date (YYYY-MM-DD).")
	addCycleEnd := addCycleCmd.String("end", "", "The cycle's end date (YYYY-MM-DD).")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		var roles []string
		if *addUserRoles != "" {
			roles = strings.Split(*addUserRoles, ",")
		}
		return cli.addUser(*addUserUname, *addUserEmail, *addUserName, *addUserDept, string(pwd), roles, *addUserAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, string(pwd))
	case "addcycle":
		if err := addCycleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCycleName == "" || *addCycleYear == "" || *addCycleStart == "" || *addCycleEnd == "" {
			addCycleCmd.Usage()
			return errHelp
		}
		return cli.addCycle(*addCycleName, *addCycleYear, *addCycleStart, *addCycleEnd)
	case "closecycle":
		return cli.closeCycle()
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() ([]byte, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	return pwd, err
}
