package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/heartmarshall/casetagger/internal/domain"
)

// mapError converts database/sql and SQLite errors to domain errors.
// context.DeadlineExceeded and context.Canceled are not mapped; they pass through.
func mapError(err error, entity string, key string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", entity, key, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrNotFound)
	}

	// The driver reports constraint failures only through the message text.
	if msg := err.Error(); strings.Contains(msg, "CHECK constraint failed") {
		return fmt.Errorf("%s %s: %w", entity, key, domain.ErrValidation)
	}

	return fmt.Errorf("%s %s: %w", entity, key, err)
}
