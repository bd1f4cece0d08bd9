package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/heartmarshall/casetagger/internal/domain"
	"github.com/heartmarshall/casetagger/migrations"
)

const driverName = "sqlite"

// FilePath returns the database file of a language under dir.
func FilePath(dir, language string) string {
	return filepath.Join(dir, language+"_db.db")
}

// Open opens the file store of a language under dir, creating the
// directory, the file and the schema when missing.
func Open(ctx context.Context, dir, language string) (*Store, error) {
	if err := validateLanguage(language); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	path := FilePath(dir, language)
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)"
	s, err := open(ctx, dsn, language)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// OpenMemory opens an empty private in-memory store.
func OpenMemory(ctx context.Context, language string) (*Store, error) {
	if err := validateLanguage(language); err != nil {
		return nil, err
	}
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	s, err := open(ctx, dsn, language)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	return s, nil
}

// OpenMemoryCopy opens the file store of a language and copies it into a
// new in-memory store. The file store is closed before returning.
func OpenMemoryCopy(ctx context.Context, dir, language string) (*Store, error) {
	src, err := Open(ctx, dir, language)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := OpenMemory(ctx, language)
	if err != nil {
		return nil, err
	}
	if err := src.CopyInto(ctx, dst); err != nil {
		dst.Close()
		return nil, fmt.Errorf("copy %s into memory: %w", src.Path(), err)
	}
	return dst, nil
}

func open(ctx context.Context, dsn, language string) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory
	// database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := migrations.Up(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, tx: NewTxManager(db), language: language}, nil
}

func validateLanguage(language string) error {
	if strings.TrimSpace(language) == "" {
		return domain.InvalidInput("language is empty")
	}
	if strings.ContainsAny(language, `/\`) || language == "." || language == ".." {
		return domain.InvalidInput("language %q is not a valid store name", language)
	}
	return nil
}
