// Package xerrors holds the compiler's error taxonomy: one gopkg.in/src-d/
// go-errors.v1 Kind per diagnostic condition, plus a path-carrying wrapper,
// matching the auth package's errors.NewKind(...)/.New(...) convention and
// ErrFunSQL's path field from the original implementation.
package xerrors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"gopkg.in/src-d/go-errors.v1"
)

var (
	// DuplicateLabel: two args of Select/Group/Define/Bind/With share a label.
	DuplicateLabel = errors.NewKind("duplicate label: %s")
	// IllFormed: a non-tabular, non-As, non-Bind node appears in tabular position.
	IllFormed = errors.NewKind("ill-formed query")
	// UndefinedTableRef: From(symbol) where symbol is neither a CTE nor in the catalog.
	UndefinedTableRef = errors.NewKind("table reference %s is undefined")
	// InvalidTableRef: From(cte-name) where the CTE doesn't expose a row type of that name.
	InvalidTableRef = errors.NewKind("table reference %s requires a row type")
	// UndefinedName: Get(name) whose name is not a scalar field of the current row type.
	UndefinedName = errors.NewKind("name %s is undefined")
	// AmbiguousName: name resolves to Ambiguous.
	AmbiguousName = errors.NewKind("name %s is ambiguous")
	// UndefinedHandle: HandleBound.handle not present in current handle_map.
	UndefinedHandle = errors.NewKind("node-bound reference failed to resolve")
	// AmbiguousHandle: handle maps to Ambiguous.
	AmbiguousHandle = errors.NewKind("node-bound reference is ambiguous")
	// UnexpectedRowType: terminal Get targets a nested row rather than a scalar.
	UnexpectedRowType = errors.NewKind("incomplete reference %s")
	// UnexpectedScalarType: NameBound traversal encounters Scalar mid-chain.
	UnexpectedScalarType = errors.NewKind("unexpected reference after %s")
	// UnexpectedAgg: Agg appears outside a Group/Partition.
	UnexpectedAgg = errors.NewKind("aggregate expression allowed only inside a Group or Partition")
	// AmbiguousAgg: Agg in a context with Ambiguous group.
	AmbiguousAgg = errors.NewKind("ambiguous aggregate expression")
)

// PathError attaches the chain of original-tree nodes leading to the
// offending site to an underlying Kind-produced error, for diagnostics.
// Path elements are stringers (usually the node's Label or a short
// description); the IR node type itself lives in the node/compiler
// packages and can't be imported here without a cycle.
type PathError struct {
	Err  error
	Path []string
}

func (e *PathError) Error() string {
	if len(e.Path) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s (in: %s)", e.Err.Error(), strings.Join(e.Path, " > "))
}

func (e *PathError) Unwrap() error { return e.Err }

// WithPath wraps err with a diagnostic path, building on it if err is
// already a *PathError.
func WithPath(err error, path ...string) error {
	if pe, ok := err.(*PathError); ok {
		return &PathError{Err: pe.Err, Path: append(append([]string{}, path...), pe.Path...)}
	}
	return &PathError{Err: err, Path: path}
}

// Is walks err's Unwrap chain looking for a go-errors.v1 error of the given
// Kind. Kind.Is itself does a direct type assertion against the concrete
// *errors.Error type, so it doesn't see through the PathError layer
// WithPath adds; this does the unwrapping PathError's callers need.
func Is(kind *errors.Kind, err error) bool {
	for err != nil {
		if kind.Is(err) {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
