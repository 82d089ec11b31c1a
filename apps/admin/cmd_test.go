package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"log"
	"strconv"
	"strings"
	"testing"

	"github.com/trezcool/tathmini/core/appraisal"
	"github.com/trezcool/tathmini/core/user"
	dummydb "github.com/trezcool/tathmini/storage/database/dummy"
	testutil "github.com/trezcool/tathmini/tests"
)

var (
	usrRepo  user.Repository
	apprRepo appraisal.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	logger = log.New(io.Discard, "", 0)

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("opening DB: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	apprRepo = dummydb.NewAppraisalRepository(db)

	return &commandLine{
		usrRepo:  usrRepo,
		apprRepo: apprRepo,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "cycle", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", "", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }

	if err := cli.run([]string{"admin", "adduser", "-username", "Neo", "-email", "Neo@test.cd", "-department", "CSE", "-roles", user.RoleTeacher}); err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}

	usr, err := usrRepo.GetUserByUsername(context.Background(), "neo")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed, %v", err)
	}
	if usr.Email != "neo@test.cd" {
		t.Errorf("email = %s, want neo@test.cd", usr.Email)
	}
	if usr.Department != "CSE" {
		t.Errorf("department = %s, want CSE", usr.Department)
	}
	if !usr.IsActive {
		t.Error("new user should be active")
	}
	if !usr.HasRole(user.RoleTeacher) {
		t.Errorf("roles = %v, want teacher role", usr.Roles)
	}
	if err = usr.CheckPassword("s3cret"); err != nil {
		t.Error("password not set")
	}

	// running again updates the existing user
	if err = cli.run([]string{"admin", "adduser", "-username", "neo", "-email", "neo@test.cd", "-admin"}); err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}
	usr2, err := usrRepo.GetUserByUsername(context.Background(), "neo")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed, %v", err)
	}
	if usr2.ID != usr.ID {
		t.Errorf("ID = %d, want %d", usr2.ID, usr.ID)
	}
	if len(usr2.Roles) != len(user.AllRoles) {
		t.Errorf("roles = %v, want all roles", usr2.Roles)
	}
}

func Test_commandLine_cycles(t *testing.T) {
	cli := setup(t)

	if err := cli.closeCycle(); err != appraisal.ErrCycleNotFound {
		t.Errorf("closeCycle() error = %v, want %v", err, appraisal.ErrCycleNotFound)
	}

	if err := cli.run([]string{"admin", "addcycle", "-name", "Annual Appraisal", "-year", "2025-26", "-start", "2025-06-01", "-end", "2026-05-31"}); err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}

	cycle, err := apprRepo.GetOpenCycle(context.Background())
	if err != nil {
		t.Fatalf("GetOpenCycle() failed, %v", err)
	}
	if cycle.AcademicYear != "2025-26" {
		t.Errorf("academicYear = %s, want 2025-26", cycle.AcademicYear)
	}

	// a second open cycle is refused
	err = cli.run([]string{"admin", "addcycle", "-name", "Mid-term", "-year", "2025-26", "-start", "2025-06-01", "-end", "2026-05-31"})
	if err == nil || !strings.Contains(err.Error(), "still open") {
		t.Errorf("cli.run() error = %v, want open-cycle error", err)
	}

	// bad dates are refused
	err = cli.run([]string{"admin", "addcycle", "-name", "Bad", "-year", "2025-26", "-start", "2026-05-31", "-end", "2025-06-01"})
	if err == nil || !strings.Contains(err.Error(), "must be after") {
		t.Errorf("cli.run() error = %v, want date order error", err)
	}

	if err = cli.run([]string{"admin", "closecycle"}); err != nil {
		t.Fatalf("cli.run() failed, %v", err)
	}
	if _, err = apprRepo.GetOpenCycle(context.Background()); err != appraisal.ErrCycleNotFound {
		t.Errorf("GetOpenCycle() error = %v, want %v", err, appraisal.ErrCycleNotFound)
	}
}
