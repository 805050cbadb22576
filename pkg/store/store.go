// Package store persists per-user message counters, one table per audience
// kind, behind a single database connection.
//
// MySQL is the production target (the database is created on first use);
// SQLite is supported for single-host deployments and tests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/chewangneko/qqcallback/pkg/boterr"
	"github.com/chewangneko/qqcallback/pkg/logger"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 3306
	DefaultName = "qq_bot_database"
)

// Config describes how to reach the store. User, Password, Host and Port
// apply to MySQL; Path applies to SQLite.
type Config struct {
	Driver   string
	User     string
	Password string
	Host     string
	Port     int
	Name     string
	Path     string
}

var databaseNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = string(MySQL)
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	return c
}

func (c Config) mysqlDSN(dbName string) string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = dbName
	return mc.FormatDSN()
}

// Database holds one connection for its whole lifetime. It is safe for
// concurrent use; callers are serialized on that connection.
type Database struct {
	db      *sql.DB
	dialect Dialect
}

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Open connects to the store described by cfg, creating the MySQL database
// when it does not exist yet. Tables are not created; call InitTables.
func Open(ctx context.Context, cfg Config) (*Database, error) {
	cfg = cfg.withDefaults()
	dialect, err := ParseDialect(cfg.Driver)
	if err != nil {
		return nil, boterr.Wrap(err)
	}

	var dsn string
	switch dialect {
	case MySQL:
		if err := createMySQLDatabase(ctx, cfg); err != nil {
			return nil, boterr.Wrap(err)
		}
		dsn = cfg.mysqlDSN(cfg.Name)
	case SQLite:
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, boterr.Wrap(errors.New("sqlite store needs a path"))
		}
		dsn = cfg.Path
	}

	db, err := openDB(dialect.driverName(), dsn)
	if err != nil {
		return nil, boterr.Wrap(err)
	}
	d := NewWithDB(db, dialect)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, boterr.Wrap(err)
	}

	logger.InfoCF("store", "Connected to user store", map[string]interface{}{
		"driver":   string(dialect),
		"database": cfg.Name,
	})
	return d, nil
}

func createMySQLDatabase(ctx context.Context, cfg Config) error {
	if !databaseNamePattern.MatchString(cfg.Name) {
		return fmt.Errorf("invalid database name %q", cfg.Name)
	}

	db, err := openDB(MySQL.driverName(), cfg.mysqlDSN(""))
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS `"+cfg.Name+"`")
	return err
}

// NewWithDB wraps an already opened handle and pins it to one connection.
func NewWithDB(db *sql.DB, dialect Dialect) *Database {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Database{db: db, dialect: dialect}
}

func (d *Database) Dialect() Dialect {
	return d.dialect
}

func (d *Database) Close() error {
	return boterr.Wrap(d.db.Close())
}
