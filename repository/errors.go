package repository

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateUser is returned when the email is already registered.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrDuplicateFavorite is returned on a second favorite row for the
	// same (song, profile) pair.
	ErrDuplicateFavorite = errors.New("favorite already exists")
)

// isDuplicateEntry reports whether err is a MySQL duplicate-key violation.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysqldriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
