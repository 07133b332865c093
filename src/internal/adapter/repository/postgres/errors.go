package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeInvalidTextRepr     = "22P02"
	referenceConstraint     = "uq_transactions_reference_number"
	accountNumberConstraint = "uq_accounts_account_number"
)

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == codeUniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
	}
	return false
}

// isMalformedID reports a lookup with a value that is not a UUID; such an id
// can never exist.
func isMalformedID(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == codeInvalidTextRepr
	}
	return false
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func timeArg(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}
