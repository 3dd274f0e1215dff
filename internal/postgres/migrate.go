package postgres

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"sort"

	ierr "github.com/contractflow/contractflow/internal/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every embedded migration in file name order. Migrations are
// written to be re-runnable.
func (db *DB) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	sort.Strings(files)

	for _, file := range files {
		body, err := migrations.ReadFile(file)
		if err != nil {
			return ierr.WithError(err).Mark(ierr.ErrSystem)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return ierr.WithError(err).
				WithHintf("Failed to apply migration %s", file).
				Mark(ierr.ErrDatabase)
		}
		db.logger.Infow("applied migration", "file", file)
	}
	return nil
}

// WriteMigrations prints the embedded migrations in the order Migrate applies them
func WriteMigrations(w io.Writer) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrSystem)
	}
	sort.Strings(files)

	for _, file := range files {
		body, err := migrations.ReadFile(file)
		if err != nil {
			return ierr.WithError(err).Mark(ierr.ErrSystem)
		}
		if _, err := fmt.Fprintf(w, "-- %s\n%s\n", file, body); err != nil {
			return err
		}
	}
	return nil
}
