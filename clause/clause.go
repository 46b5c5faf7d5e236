// Package clause defines the SQL clause tree: the typed, dialect-agnostic
// output of the translate pass. Unlike node.Node (the user-facing algebraic
// IR), clauses model actual SQL syntax: SELECT, FROM, WHERE, JOIN, and so
// on. serialize.go walks this tree to produce the final query string.
//
// Clause, like node.Node and compiler.Ann, is a closed union dispatched by
// type switch rather than by method registry.
package clause

import "github.com/ananis25/funsql-go/node"

// Clause is implemented by every concrete clause type.
type Clause interface {
	clause()
}

// castToClause converts a bare value into a clause, matching
// clausedefs.py's _cast_to_clause: a node.Symbol becomes an ID (or an OP
// for the literal name "*"), anything already a Clause passes through
// unchanged, everything else is wrapped as a LIT.
func castToClause(v any) Clause {
	switch x := v.(type) {
	case Clause:
		return x
	case node.Symbol:
		if string(x) == "*" {
			return NewOP(x)
		}
		return NewID(x, nil)
	default:
		return &LIT{Val: v}
	}
}

// castToClauseList applies castToClause across a slice of mixed args.
func castToClauseList(args []any) []Clause {
	out := make([]Clause, len(args))
	for i, a := range args {
		out[i] = castToClause(a)
	}
	return out
}

// castToClauseSkipNil is castToClause but leaves a nil `over`/optional
// argument as nil instead of turning it into a LIT(nil) NULL literal.
func castToClauseSkipNil(v any) Clause {
	if v == nil {
		return nil
	}
	return castToClause(v)
}
