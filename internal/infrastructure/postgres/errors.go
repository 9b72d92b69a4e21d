package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/idplane/identity-ledger/internal/domain/repository"
)

const uniqueViolation = "23505"

// mapWriteError translates commit-time constraint violations into the
// repository sentinels the services already handle for pre-checks.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}
