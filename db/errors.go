package db

import (
	"strings"

	"github.com/floriandheer/ordermon/errors"
)

// ErrDatabaseClosed marks state operations that raced a shutdown: the cycle
// was still finishing an order while Close already ran.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the handle was already closed.
// The sql package surfaces this as a plain error string, so a message check
// backs up the sentinel.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDatabaseClosed) ||
		strings.Contains(err.Error(), "database is closed")
}
