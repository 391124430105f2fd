package storage

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expenses/internal/core"
)

// ErrMalformedKeywords is returned when a stored keyword column cannot be
// decoded into a valid keyword list.
var ErrMalformedKeywords = errors.New("malformed keywords")

func sqliteCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

// mapConstraint translates SQLite constraint failures to core store errors.
func mapConstraint(err error, what string) error {
	code := sqliteCode(err)
	switch {
	case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
		code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE"):
		return fmt.Errorf("%s: %w", what, core.ErrConflict)
	case code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
		code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "FOREIGN KEY"):
		return fmt.Errorf("%s: referenced row: %w", what, core.ErrNotFound)
	}
	return err
}
