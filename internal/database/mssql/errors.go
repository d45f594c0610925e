package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gomssql "github.com/microsoft/go-mssqldb"

	"github.com/dataquerypro/dataquery/internal/errs"
)

// SQL Server error numbers
// Full list: https://learn.microsoft.com/sql/relational-databases/errors-events/database-engine-events-and-errors
const (
	errInvalidObject    = 208
	errSelectDenied     = 229
	errColumnDenied     = 230
	errViewDenied       = 262
	errCannotOpenDB     = 4060
	errLoginFailed      = 18456
	errLockTimeout      = 1222
	errDatabaseNotExist = 911
)

// mapError translates go-mssqldb errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var msErr gomssql.Error
	if errors.As(err, &msErr) {
		return errs.Wrap(classifyNumber(msErr.Number), fmt.Sprintf("%s: %s", msg, msErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyNumber maps a SQL Server error number to ErrKind.
func classifyNumber(n int32) errs.ErrKind {
	switch n {
	case errSelectDenied, errColumnDenied, errViewDenied, errLoginFailed:
		return errs.ErrKindPermissionDenied
	case errCannotOpenDB, errDatabaseNotExist:
		return errs.ErrKindNotFound
	case errLockTimeout:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
