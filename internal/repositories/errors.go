package repositories

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// wrapErr maps driver errors onto the package sentinels and adds context.
func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, op)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return errors.Wrap(ErrDuplicate, op)
		case pqForeignKeyViolation:
			return errors.Wrap(ErrNotFound, op)
		}
	}
	return errors.Wrap(err, op)
}
