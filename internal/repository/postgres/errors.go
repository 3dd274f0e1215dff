package postgres

import (
	"database/sql"
	"errors"

	ierr "github.com/contractflow/contractflow/internal/errors"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// wrapError maps driver errors onto the service's sentinel errors
func wrapError(err error, hint string, details map[string]any) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ierr.WithError(err).
			WithHint(hint).
			WithReportableDetails(details).
			Mark(ierr.ErrAlreadyExists)
	}

	return ierr.WithError(err).
		WithHint(hint).
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}
