package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/tathmini/core"
	appfs "github.com/trezcool/tathmini/fs"
)

// Open connects to the application database with the app credentials.
func Open(conf *core.Config) (*sql.DB, error) {
	return open(conf, conf.Database.User, conf.Database.Password, conf.Database.Name)
}

func open(conf *core.Config, user, password, dbName string) (*sql.DB, error) {
	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     url.UserPassword(user, password),
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sql.Open(conf.Database.Engine, u.String())
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// exists runs a single-column boolean probe query.
func exists(db *sql.DB, query string) (bool, error) {
	var found bool
	rows, err := db.Query(query)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&found); err != nil {
			return false, err
		}
	}
	return found, rows.Err()
}

// CreateIfNotExist bootstraps the app role (as the admin user, when one is
// configured) and the application database. Safe to run on every start.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.User != "" {
		adminUser, adminPwd := conf.Database.User, conf.Database.Password
		if conf.Database.AdminUser != "" {
			adminUser, adminPwd = conf.Database.AdminUser, conf.Database.AdminPassword
		}
		admin, err := open(conf, adminUser, adminPwd, "postgres")
		if err != nil {
			return errors.Wrap(err, "opening database")
		}
		defer func() { _ = admin.Close() }()
		if err = ping(admin); err != nil {
			return errors.Wrap(err, "pinging database")
		}

		ok, err := exists(admin, fmt.Sprintf("SELECT true FROM pg_roles WHERE rolname='%s'", conf.Database.User))
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !ok {
			q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
			if _, err = admin.Exec(q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	// create the DB as the app user
	db, err := open(conf, conf.Database.User, conf.Database.Password, "postgres")
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	ok, err := exists(db, fmt.Sprintf("SELECT true FROM pg_database WHERE datname='%s'", conf.Database.Name))
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !ok {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// Migrate applies all pending migrations from the embedded migration files.
func Migrate(db *sql.DB) error {
	return errors.Wrap(goose.RunFS("up", db, appfs.FS, "migrations"), "migrating database")
}
