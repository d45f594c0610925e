package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"modernc.org/sqlite"

	"github.com/dataquerypro/dataquery/internal/errs"
)

// SQLite primary result codes
// Full list: https://www.sqlite.org/rescode.html
const (
	codePerm      = 3
	codeBusy      = 5
	codeLocked    = 6
	codeReadOnly  = 8
	codeInterrupt = 9
	codeCantOpen  = 14
	codeAuth      = 23
	codeNotADB    = 26
)

// mapError translates modernc.org/sqlite errors into *errs.Error.
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

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return errs.Wrap(classifyCode(sqliteErr.Code()), msg+": "+sqliteErr.Error(), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifyCode maps an extended SQLite result code to ErrKind.
func classifyCode(code int) errs.ErrKind {
	switch code & 0xff {
	case codePerm, codeAuth, codeReadOnly:
		return errs.ErrKindPermissionDenied
	case codeCantOpen, codeNotADB:
		return errs.ErrKindConnectionFailed
	case codeBusy, codeLocked, codeInterrupt:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
