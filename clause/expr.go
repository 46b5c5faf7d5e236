package clause

import "github.com/ananis25/funsql-go/node"

// ID is a qualified or bare identifier: ID{Name: "b", Over: ID{Name: "a"}}
// serializes as "a.b".
type ID struct {
	Name node.Symbol
	Over Clause
}

func NewID(name node.Symbol, over Clause) *ID {
	return &ID{Name: name, Over: over}
}

func (v *ID) Rebase(pre Clause) *ID {
	return &ID{Name: v.Name, Over: rebaseClause(v.Over, pre)}
}

// AS renames a clause (AS(name, over: ...)) or, with no over, stands for a
// bare alias target (used by WITH to carry a CTE's name/columns).
type AS struct {
	Name    node.Symbol
	Columns []node.Symbol
	Over    Clause
}

func NewAS(name node.Symbol, columns []node.Symbol, over any) *AS {
	return &AS{Name: name, Columns: columns, Over: castToClauseSkipNil(over)}
}

func (v *AS) Rebase(pre Clause) *AS {
	return &AS{Name: v.Name, Columns: v.Columns, Over: rebaseClause(v.Over, pre)}
}

// Qual qualifies a schema/table or table/column pair: ID(a) >> ID(b).
func Qual(parts ...node.Symbol) *ID {
	switch len(parts) {
	case 2:
		return NewID(parts[1], NewID(parts[0], nil))
	case 3:
		return NewID(parts[2], NewID(parts[1], NewID(parts[0], nil)))
	default:
		panic("clause.Qual: need 2 or 3 parts")
	}
}

// Alias renames an identifier or clause: Alias(curr, rename) = curr >> AS(rename).
func Alias(curr any, rename node.Symbol) *AS {
	var base Clause
	if s, ok := curr.(node.Symbol); ok {
		base = NewID(s, nil)
	} else {
		base = curr.(Clause)
	}
	return &AS{Name: rename, Over: base}
}

// OP is an infix/prefix SQL operator: OP("=", a, b) serializes as "(a = b)".
type OP struct {
	Name node.Symbol
	Args []Clause
}

func NewOP(name node.Symbol, args ...any) *OP {
	return &OP{Name: name, Args: castToClauseList(args)}
}

// FUN is a regular SQL function call: FUN("lower", a) -> "lower(a)".
type FUN struct {
	Name node.Symbol
	Args []Clause
}

func NewFUN(name node.Symbol, args ...any) *FUN {
	return &FUN{Name: name, Args: castToClauseList(args)}
}

// AGG is an aggregate function call, optionally DISTINCT/FILTER/OVER qualified.
type AGG struct {
	Name     node.Symbol
	Distinct bool
	Args     []Clause
	Filter   Clause
	Over     Clause
}

type AggOpt func(*AGG)

func WithDistinct() AggOpt          { return func(a *AGG) { a.Distinct = true } }
func WithFilter(f Clause) AggOpt    { return func(a *AGG) { a.Filter = f } }
func WithAggOver(o Clause) AggOpt   { return func(a *AGG) { a.Over = o } }

func NewAGG(name node.Symbol, args []any, opts ...AggOpt) *AGG {
	a := &AGG{Name: name, Args: castToClauseList(args)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (v *AGG) Rebase(pre Clause) *AGG {
	return &AGG{
		Name:     v.Name,
		Distinct: v.Distinct,
		Args:     v.Args,
		Filter:   v.Filter,
		Over:     rebaseClause(v.Over, pre),
	}
}

// CASE models a SQL CASE expression: alternating WHEN/THEN pairs with a
// trailing ELSE if len(Args) is odd.
type CASE struct {
	Args []Clause
}

func NewCASE(args ...any) *CASE {
	return &CASE{Args: castToClauseList(args)}
}

// KW is a keyword-valued argument to a function/operator, e.g. the
// `AS type` of CAST, the `FROM x` of EXTRACT or the `AND hi` of BETWEEN.
type KW struct {
	Name node.Symbol
	Over Clause
}

func NewKW(name node.Symbol, over any) *KW {
	return &KW{Name: name, Over: castToClauseSkipNil(over)}
}

func (v *KW) Rebase(pre Clause) *KW {
	return &KW{Name: v.Name, Over: rebaseClause(v.Over, pre)}
}

// LIT is a literal value embedded directly in the query text.
type LIT struct {
	Val any
}

func NewLIT(val any) *LIT { return &LIT{Val: val} }

// VAR is a bind parameter placeholder, rendered per Dialect.VarStyle.
type VAR struct {
	Name node.Symbol
}

func NewVAR(name node.Symbol) *VAR { return &VAR{Name: name} }

// NOTE attaches free text (a comment, a dialect hint) before or after the
// clause it wraps.
type NOTE struct {
	Text    string
	Postfix bool
	Over    Clause
}

func NewNOTE(text string, postfix bool, over any) *NOTE {
	return &NOTE{Text: text, Postfix: postfix, Over: castToClauseSkipNil(over)}
}

func (v *NOTE) Rebase(pre Clause) *NOTE {
	return &NOTE{Text: v.Text, Postfix: v.Postfix, Over: rebaseClause(v.Over, pre)}
}

func (*ID) clause()   {}
func (*AS) clause()   {}
func (*OP) clause()   {}
func (*FUN) clause()  {}
func (*AGG) clause()  {}
func (*CASE) clause() {}
func (*KW) clause()   {}
func (*LIT) clause()  {}
func (*VAR) clause()  {}
func (*NOTE) clause() {}

func rebaseClause(curr Clause, pre Clause) Clause {
	if curr == nil {
		return pre
	}
	switch v := curr.(type) {
	case *ID:
		return v.Rebase(pre)
	case *AS:
		return v.Rebase(pre)
	case *AGG:
		return v.Rebase(pre)
	case *KW:
		return v.Rebase(pre)
	case *NOTE:
		return v.Rebase(pre)
	case *FROM:
		return v.Rebase(pre)
	case *WHERE:
		return v.Rebase(pre)
	case *HAVING:
		return v.Rebase(pre)
	case *GROUP:
		return v.Rebase(pre)
	case *ORDER:
		return v.Rebase(pre)
	case *LIMIT:
		return v.Rebase(pre)
	case *JOIN:
		return v.Rebase(pre)
	case *PARTITION:
		return v.Rebase(pre)
	case *SELECT:
		return v.Rebase(pre)
	case *UNION:
		return v.Rebase(pre)
	case *WINDOW:
		return v.Rebase(pre)
	case *WITH:
		return v.Rebase(pre)
	case *SORT:
		return v.Rebase(pre)
	default:
		return curr
	}
}
