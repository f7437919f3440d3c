package db

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"

	"github.com/tomhasit/tomhasit-web/internal/db/migrations"
)

//go:embed migrations
var schema embed.FS

// goose keeps its dialect and base FS in package globals.
var migrateMu sync.Mutex

var gooseDialects = map[string]string{
	"sqlite3":  "sqlite3",
	"mysql":    "mysql",
	"postgres": "postgres",
}

// Migrate brings the visits and flow-session tables up to date. serve runs it
// before listening; the migrate command runs it on its own.
func Migrate(conn *sqlx.DB, driver string) error {
	dialect, ok := gooseDialects[driver]
	if !ok {
		return fmt.Errorf("migrate: unsupported driver %q", driver)
	}

	files, err := fs.Sub(schema, "migrations")
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("migrate: set dialect: %w", err)
	}
	migrations.SetDialect(dialect)
	goose.SetBaseFS(files)
	defer goose.SetBaseFS(nil)

	if err := goose.Up(conn.DB, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if v, err := goose.GetDBVersion(conn.DB); err == nil {
		log.Debug().Str("driver", driver).Int64("version", v).Msg("schema up to date")
	}
	return nil
}
