package funsql

import (
	"github.com/google/uuid"
	goerrors "gopkg.in/src-d/go-errors.v1"

	"github.com/ananis25/funsql-go/xerrors"
)

// Re-exported so callers can write `funsql.IsKind(funsql.ErrUndefinedName, err)`
// against the package that actually produced the error, without reaching
// into the internal xerrors taxonomy directly.
var (
	ErrDuplicateLabel    = xerrors.DuplicateLabel
	ErrIllFormed         = xerrors.IllFormed
	ErrUndefinedTableRef = xerrors.UndefinedTableRef
	ErrInvalidTableRef   = xerrors.InvalidTableRef
	ErrUndefinedName     = xerrors.UndefinedName
	ErrAmbiguousName     = xerrors.AmbiguousName
	ErrUndefinedHandle   = xerrors.UndefinedHandle
	ErrAmbiguousHandle   = xerrors.AmbiguousHandle
	ErrUnexpectedRowType = xerrors.UnexpectedRowType
	ErrUnexpectedScalar  = xerrors.UnexpectedScalarType
	ErrUnexpectedAgg     = xerrors.UnexpectedAgg
	ErrAmbiguousAgg      = xerrors.AmbiguousAgg
)

// IsKind reports whether err (or something it wraps) was produced by kind,
// matching go-errors.v1's Is semantics across the PathError wrapper.
func IsKind(kind *goerrors.Kind, err error) bool {
	return xerrors.Is(kind, err)
}

// NewRenderID mints a correlation id a caller can attach to logging around
// a single Render call, the way engine.go tags a query execution with a
// query session id.
func NewRenderID() string {
	return uuid.NewString()
}
