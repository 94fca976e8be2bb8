package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"dular-server/apperr"
	"dular-server/models"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uint
	Role models.Role
}

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

// notFoundOr maps gorm.ErrRecordNotFound to a not_found error and anything
// else to an internal error.
func notFoundOr(err error, op, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(what + " not found").WithOp(op)
	}
	return apperr.Internal(err).WithOp(op)
}

// appendNote adds a line to a service's notes in SQL, so two writers that
// loaded the same row both keep their line.
func appendNote(line string) interface{} {
	return gorm.Expr("CASE WHEN COALESCE(notes, '') = '' THEN ? ELSE notes || ? END", line, "\n"+line)
}
