// Package db opens the CI checks database and migrates its tables.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zulandar/praktika/internal/config"
)

// DSN builds a MySQL DSN for the CI database.
func DSN(host string, port int, user, password, database string) string {
	c := mysql.NewConfig()
	c.User = user
	c.Passwd = password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", host, port)
	c.DBName = database
	c.ParseTime = true
	return c.FormatDSN()
}

// Connect opens a GORM connection to the CI database described by cfg.
// For mysql, database selects the schema; sqlite ignores it.
func Connect(cfg config.DBConfig, database string) (*gorm.DB, error) {
	gcfg := gormConfig()
	switch cfg.Driver {
	case "sqlite":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("db: create directory for %s: %w", cfg.Path, err)
			}
		}
		db, err := gorm.Open(sqlite.Open(cfg.Path), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", cfg.Path, err)
		}
		// sqlite allows one writer; :memory: databases are per connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db: sqlite pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	case "mysql":
		dsn := DSN(cfg.Host, cfg.Port, cfg.User, password(cfg), database)
		db, err := gorm.Open(gormmysql.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, database, err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
}

// ConnectAdmin connects to the MySQL server with no schema selected, for
// creating and dropping databases.
func ConnectAdmin(cfg config.DBConfig) (*gorm.DB, error) {
	if cfg.Driver != "mysql" {
		return nil, fmt.Errorf("db: admin connection needs mysql, have %q", cfg.Driver)
	}
	dsn := DSN(cfg.Host, cfg.Port, cfg.User, password(cfg), "")
	db, err := gorm.Open(gormmysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// DropDatabase drops the named database if it exists.
func DropDatabase(adminDB *gorm.DB, name string) error {
	return schemaExec(adminDB, "DROP DATABASE IF EXISTS", "drop", name)
}

// CreateDatabase creates the named database unless it exists.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	return schemaExec(adminDB, "CREATE DATABASE IF NOT EXISTS", "create", name)
}

func schemaExec(adminDB *gorm.DB, stmt, op, name string) error {
	if err := adminDB.Exec(stmt + " `" + name + "`").Error; err != nil {
		return fmt.Errorf("db: %s database %s: %w", op, name, err)
	}
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

func password(cfg config.DBConfig) string {
	if cfg.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(cfg.PasswordEnv)
}
