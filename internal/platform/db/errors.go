package db

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/monsters-of-interest/moi-api/internal/shared"
)

// ConstraintError is a storage failure recognised as a client-caused
// constraint or input violation. Its message is safe to show to clients.
type ConstraintError struct {
	Kind       error
	Constraint string
	message    string
	cause      error
}

func (e *ConstraintError) Error() string { return e.message }

// Unwrap exposes both the shared sentinel and the driver error.
func (e *ConstraintError) Unwrap() []error { return []error{e.Kind, e.cause} }

// Classify maps PostgreSQL error codes onto shared sentinels. Errors it does
// not recognise are returned unchanged and surface as internal errors.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &ConstraintError{Kind: shared.ErrDuplicate, Constraint: pgErr.ConstraintName, message: "duplicate value", cause: err}
	case pgerrcode.InvalidTextRepresentation, pgerrcode.InvalidJSONText:
		return &ConstraintError{Kind: shared.ErrValidation, message: "invalid input syntax", cause: err}
	case pgerrcode.NotNullViolation, pgerrcode.CheckViolation:
		return &ConstraintError{Kind: shared.ErrValidation, Constraint: pgErr.ConstraintName, message: "value violates a column constraint", cause: err}
	case pgerrcode.StringDataRightTruncationDataException, pgerrcode.NumericValueOutOfRange:
		return &ConstraintError{Kind: shared.ErrValidation, message: "value out of range", cause: err}
	case pgerrcode.ForeignKeyViolation:
		return &ConstraintError{Kind: shared.ErrValidation, Constraint: pgErr.ConstraintName, message: "referenced record does not exist", cause: err}
	default:
		return err
	}
}

// IsInvalidInput reports whether err is a classified input syntax failure,
// such as malformed JSON sent to a json column.
func IsInvalidInput(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.InvalidTextRepresentation || pgErr.Code == pgerrcode.InvalidJSONText
}
