package shortener

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

func isShortCodeUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "links_short_code_unique"
}

// isSQLiteUniqueViolation detects a short_code uniqueness violation from
// the sqlite driver. modernc.org/sqlite surfaces constraint failures as
// plain errors carrying the SQLITE_CONSTRAINT_UNIQUE message.
func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") &&
		strings.Contains(msg, "links.short_code")
}
