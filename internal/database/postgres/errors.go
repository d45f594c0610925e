package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dataquerypro/dataquery/internal/errs"
)

// PostgreSQL SQLSTATE error codes (read-relevant only)
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrInvalidPassword    = "28P01"
	pgErrInvalidAuthSpec    = "28000"
	pgErrInsufficientPrivs  = "42501"
	pgErrInvalidCatalogName = "3D000"
	pgErrClassConnection    = "08"
	pgErrQueryCanceled      = "57014"
)

// mapError translates pgx / pgconn native errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := errs.ErrKindQueryFailed
		switch {
		case pgErr.Code == pgErrInvalidPassword, pgErr.Code == pgErrInvalidAuthSpec,
			pgErr.Code == pgErrInsufficientPrivs:
			kind = errs.ErrKindPermissionDenied
		case pgErr.Code == pgErrInvalidCatalogName:
			kind = errs.ErrKindNotFound
		case pgErr.Code == pgErrQueryCanceled:
			kind = errs.ErrKindTimeout
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == pgErrClassConnection:
			kind = errs.ErrKindConnectionFailed
		}
		return errs.Wrap(kind, fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	// connection-level errors (TLS, network, DNS)
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
