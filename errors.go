package groundeval

import (
	"errors"
	"fmt"
)

var (
	// ErrCannotGround matches the error Ground reports for the soft outcome.
	ErrCannotGround = errors.New("cannot ground expression")

	ErrQuantifiedVar   = errors.New("quantified variable has no binding")
	ErrUnsupported     = errors.New("unsupported by the ground evaluator")
	ErrNegativeSqrt    = errors.New("square root of a negative value")
	ErrNonLiteralIndex = errors.New("index type has no literal form")
	ErrBadWidth        = errors.New("malformed width")
	ErrTypeMismatch    = errors.New("value does not match its type")
	ErrNonFinite       = errors.New("non-finite floating-point result")
)

// GroundError is a hard failure: the whole evaluation is aborted.
type GroundError struct {
	Expr   Expr
	Err    error
	Detail string
}

func (e *GroundError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Expr)
	}
	return fmt.Sprintf("%s: %s (in %s)", e.Err, e.Detail, e.Expr)
}

func (e *GroundError) Unwrap() error {
	return e.Err
}

func hardFailure(e Expr, err error, format string, args ...interface{}) *GroundError {
	return &GroundError{Expr: e, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// CannotGroundError reports that an expression has no offline ground value.
// Callers usually answer it with a solver query.
type CannotGroundError struct {
	Expr Expr
}

func (e *CannotGroundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCannotGround, e.Expr)
}

func (e *CannotGroundError) Is(target error) bool {
	return target == ErrCannotGround
}
