package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Errors names the domain errors a repository reports for database failures.
// A nil field leaves the matching database error unchanged.
type Errors struct {
	// NotFound replaces sql.ErrNoRows.
	NotFound error
	// Duplicate replaces unique violations.
	Duplicate error
	// Missing replaces foreign key violations, where a row refers to a
	// parent that does not exist (or no longer does).
	Missing error
}

// Map translates err into the configured domain error. Unrecognized errors
// are returned unchanged.
func (e Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return or(e.NotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return or(e.Duplicate, err)
		case pgForeignKeyViolation:
			return or(e.Missing, err)
		}
	}

	return err
}

func or(domain, err error) error {
	if domain == nil {
		return err
	}
	return domain
}
