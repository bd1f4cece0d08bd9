// Package migrations embeds the goose schema migrations of both case stores.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed sqlite/*.sql postgres/*.sql
var files embed.FS

// SQLite returns the migrations for the per-language SQLite store.
func SQLite() fs.FS { return sub("sqlite") }

// Postgres returns the migrations for the shared PostgreSQL store.
func Postgres() fs.FS { return sub("postgres") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		panic(fmt.Sprintf("migrations: %v", err))
	}
	return f
}

// Up applies every pending migration for the dialect.
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect) error {
	var fsys fs.FS
	switch dialect {
	case goose.DialectSQLite3:
		fsys = SQLite()
	case goose.DialectPostgres:
		fsys = Postgres()
	default:
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
