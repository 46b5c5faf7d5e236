package compiler

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ananis25/funsql-go/catalog"
	"github.com/ananis25/funsql-go/clause"
	"github.com/ananis25/funsql-go/node"
)

// Assemblage is one box's translated state: Clause is either a complete
// statement (SELECT/UNION/WITH) or a bare clause-sequence tail (FROM, JOIN,
// WHERE, GROUP, ORDER, LIMIT, ...) that a parent box can extend directly
// without introducing a nested subquery. ColNames/ColExprs describe the
// columns that tail already exposes (in order, deduped by name); Cols maps
// a demanded reference's identity to the column name that satisfies it.
//
// This mirrors translate.py's Assemblage(clause, cols, repl): merging two
// boxes into one SELECT is safe exactly when the child's Clause isn't
// already a complete statement, which is what completeSelect and the
// isBare* predicates below decide, one whitelist per node kind (see
// DESIGN.md, "Box merging / inlining").
type Assemblage struct {
	Clause   clause.Clause
	ColNames []string
	ColExprs map[string]clause.Clause
	Cols     map[Ann]string
}

// cteReg is what a WITH/recursive Iterate registers for a CTE name, so a
// later FromReference into it can rebuild a qualified, ordered column list.
type cteReg struct {
	name     string
	cols     map[Ann]string
	colNames []string
}

// TranslateContext carries the state translate accumulates across a single
// compilation: alias allocation, the CTE registry (keyed by the *Box a
// FromReference resolves against), a memo cache so a Box referenced from
// more than one place is only assembled once, and two ambient,
// push/pop-scoped substitution maps mirroring translate.py's
// TranslateContext.vars_/subs:
//
//   - varsStack resolves Var(name) references bound by an IntBind (spec.md
//     §4.4's "push args into a scope-local variable map").
//   - subsStack resolves references that cross a Box boundary entirely,
//     used by IntJoin's lateral-join handling to let the joinee's nested
//     IntBind reach back into the left side's columns.
type TranslateContext struct {
	Dialect   *catalog.Dialect
	aliasSeq  map[string]int
	memo      map[*Box]*Assemblage
	cteBox    map[*Box]*cteReg
	varsStack []map[node.Symbol]clause.Clause
	subsStack []map[Ann]clause.Clause
}

func NewTranslateContext(dialect *catalog.Dialect) *TranslateContext {
	if dialect == nil {
		dialect = catalog.Default()
	}
	return &TranslateContext{
		Dialect:  dialect,
		aliasSeq: map[string]int{},
		memo:     map[*Box]*Assemblage{},
		cteBox:   map[*Box]*cteReg{},
	}
}

func (c *TranslateContext) allocAlias(base string) string {
	if base == "" {
		base = "t"
	}
	base = strings.ToLower(base)
	c.aliasSeq[base]++
	return fmt.Sprintf("%s_%d", base, c.aliasSeq[base])
}

func (c *TranslateContext) pushVars(m map[node.Symbol]clause.Clause) { c.varsStack = append(c.varsStack, m) }
func (c *TranslateContext) popVars()                                 { c.varsStack = c.varsStack[:len(c.varsStack)-1] }

func (c *TranslateContext) lookupVar(name node.Symbol) (clause.Clause, bool) {
	for i := len(c.varsStack) - 1; i >= 0; i-- {
		if v, ok := c.varsStack[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (c *TranslateContext) pushSubs(m map[Ann]clause.Clause) { c.subsStack = append(c.subsStack, m) }
func (c *TranslateContext) popSubs()                          { c.subsStack = c.subsStack[:len(c.subsStack)-1] }

func (c *TranslateContext) ambientSubs(a Ann) (clause.Clause, bool) {
	for i := len(c.subsStack) - 1; i >= 0; i-- {
		if v, ok := c.subsStack[i][a]; ok {
			return v, true
		}
	}
	return nil, false
}

// TranslateToplevel turns the fully annotated/resolved/linked Box tree
// rooted at root into a renderable clause tree - a *clause.SELECT for a
// plain query, but a *clause.UNION or *clause.WITH when root is an Append
// or recursive-CTE box, since those must not be forced into an extra
// wrapping SELECT just to satisfy a narrower return type.
func TranslateToplevel(root *Box, dialect *catalog.Dialect) (clause.Clause, error) {
	ctx := NewTranslateContext(dialect)
	asm, err := assemble(root, ctx)
	if err != nil {
		return nil, err
	}
	return completeSelect(asm), nil
}

func asBox(a Ann) (*Box, error) { return checkBox(a) }

// isCompleteClause reports whether c is already a terminal statement that
// must be wrapped in a FROM(AS(alias, ...)) before anything can stack a
// further WHERE/GROUP/ORDER/... clause on top of it.
func isCompleteClause(c clause.Clause) bool {
	switch c.(type) {
	case *clause.SELECT, *clause.UNION, *clause.WITH:
		return true
	}
	return false
}

// completeSelect returns asm.Clause unchanged if it's already a complete
// statement, otherwise wraps it in a SELECT of asm's own columns -
// translate.py's get_complete_select.
func completeSelect(asm *Assemblage) clause.Clause {
	if asm.Clause == nil {
		return clause.NewSELECT(nil, false, nil, nil)
	}
	if isCompleteClause(asm.Clause) {
		return asm.Clause
	}
	return clause.NewSELECT(colsToSelectArgs(asm), false, nil, asm.Clause)
}

// colsToSelectArgs builds a SELECT's argument list from asm's ordered
// columns, skipping the AS(name, ...) wrapper when the expression is
// already a bare reference matching the name it needs to expose -
// translate.py's cols_to_select_args.
func colsToSelectArgs(asm *Assemblage) []any {
	args := make([]any, 0, len(asm.ColNames))
	for _, name := range asm.ColNames {
		expr := asm.ColExprs[name]
		if id, ok := expr.(*clause.ID); ok && string(id.Name) == name {
			args = append(args, expr)
			continue
		}
		args = append(args, &clause.AS{Name: node.Symbol(name), Over: expr})
	}
	return args
}

// fromSource wraps asm as a FROM source under the given alias, forcing it
// to a complete statement first if it's still a bare tail.
func fromSource(asm *Assemblage, alias string) clause.Clause {
	return clause.NewFROM(&clause.AS{Name: node.Symbol(alias), Over: completeSelect(asm)})
}

// childBaseAlias picks the alias seed for a box being wrapped as a FROM
// source, falling back to a generic name for boxes with no real table
// identity (EmptyBox and the like).
func childBaseAlias(b *Box) string {
	if b.Typ != nil && b.Typ.Name != "" && b.Typ.Name != "_" {
		return b.Typ.Name
	}
	return "t"
}

// makeSubs builds ref -> resolved-expression substitutions out of asm's
// columns: qualified by alias when asm has just been wrapped, or reused
// directly (asm's own column expressions) when asm is being merged bare.
func makeSubs(asm *Assemblage, alias *string) map[Ann]clause.Clause {
	subs := make(map[Ann]clause.Clause, len(asm.Cols))
	for ref, name := range asm.Cols {
		if alias != nil {
			subs[ref] = clause.NewID(node.Symbol(name), clause.NewID(node.Symbol(*alias), nil))
			continue
		}
		subs[ref] = asm.ColExprs[name]
	}
	return subs
}

func subsLookup(subs map[Ann]clause.Clause) func(Ann) (clause.Clause, bool) {
	return func(ref Ann) (clause.Clause, bool) {
		c, ok := subs[ref]
		return c, ok
	}
}

// dualSubs merges two substitution maps, used for join conditions that may
// reference either side.
func dualSubs(left, right map[Ann]clause.Clause) map[Ann]clause.Clause {
	merged := make(map[Ann]clause.Clause, len(left)+len(right))
	for k, v := range left {
		merged[k] = v
	}
	for k, v := range right {
		merged[k] = v
	}
	return merged
}

// Bareness predicates, one per node kind that may merge onto a child's
// tail instead of wrapping it - narrower than a single "not SELECT/UNION"
// rule where SQL clause order actually constrains what can follow what
// (a JOIN's left operand can only ever be a FROM or another JOIN; a WHERE
// can't legally follow a GROUP BY/ORDER BY/LIMIT).

func isBareFromJoinWhere(c clause.Clause) bool {
	switch c.(type) {
	case *clause.FROM, *clause.JOIN, *clause.WHERE:
		return true
	}
	return false
}

func isBareFromJoinWhereGroup(c clause.Clause) bool {
	switch c.(type) {
	case *clause.FROM, *clause.JOIN, *clause.WHERE, *clause.GROUP, *clause.HAVING:
		return true
	}
	return false
}

func isBareFromJoinWhereGroupOrder(c clause.Clause) bool {
	switch c.(type) {
	case *clause.FROM, *clause.JOIN, *clause.WHERE, *clause.GROUP, *clause.HAVING, *clause.ORDER:
		return true
	}
	return false
}

func isBareFromOrJoin(c clause.Clause) bool {
	switch c.(type) {
	case *clause.FROM, *clause.JOIN:
		return true
	}
	return false
}

// isEmbeddableJoinee reports whether a FROM's operand can sit directly to
// the right of a JOIN keyword: a bare table name, optionally aliased
// (without a column list).
func isEmbeddableJoinee(c clause.Clause) bool {
	switch v := c.(type) {
	case *clause.AS:
		if len(v.Columns) != 0 {
			return false
		}
		id, ok := v.Over.(*clause.ID)
		return ok && id.Over == nil
	case *clause.ID:
		return v.Over == nil
	}
	return false
}

func isLitTrue(c clause.Clause) bool {
	lit, ok := c.(*clause.LIT)
	if !ok {
		return false
	}
	b, ok := lit.Val.(bool)
	return ok && b
}

// mergeConditions AND-combines two WHERE conditions, flattening nested
// ANDs and dropping a literal-true operand - translate.py's
// merge_conditions.
func mergeConditions(a, b clause.Clause) clause.Clause {
	if a == nil || isLitTrue(a) {
		return b
	}
	if b == nil || isLitTrue(b) {
		return a
	}
	var args []any
	if op, ok := a.(*clause.OP); ok && strings.EqualFold(string(op.Name), "AND") {
		for _, arg := range op.Args {
			args = append(args, arg)
		}
	} else {
		args = append(args, a)
	}
	if op, ok := b.(*clause.OP); ok && strings.EqualFold(string(op.Name), "AND") {
		for _, arg := range op.Args {
			args = append(args, arg)
		}
	} else {
		args = append(args, b)
	}
	return clause.NewOP("AND", args...)
}

// refOutputName picks the SQL column alias for a freshly demanded
// reference: the terminal column name of a (possibly qualified) Get chain,
// or an aggregate's own function name (count, sum, ...), matching the
// label rules for bound references. Anything without a single name gets a
// synthetic one - safe because every later lookup goes through Cols by ref
// identity, never by parsing the alias text back out.
func refOutputName(ref Ann, ctx *TranslateContext) string {
	switch v := ref.(type) {
	case *AGet:
		return string(v.Name)
	case *NameBound:
		return refOutputName(v.Over, ctx)
	case *HandleBound:
		return refOutputName(v.Over, ctx)
	case *AAgg:
		return string(v.Name)
	default:
		return ctx.allocAlias("col")
	}
}

// finishAssemblage resolves every ref box demands through lookup, assigning
// each a (deduped, disambiguated) column name, and returns an Assemblage
// whose Clause is tail exactly as given - it does NOT eagerly wrap tail in
// a SELECT, which is what lets a parent box decide later whether merging
// onto tail is safe.
func finishAssemblage(box *Box, ctx *TranslateContext, tail clause.Clause, lookup func(Ann) (clause.Clause, error)) (*Assemblage, error) {
	cols := map[Ann]string{}
	colExprs := map[string]clause.Clause{}
	var colNames []string
	// Two distinct refs with the same label translating to the same
	// expression share one output column; a same-label ref with a
	// different expression gets a numbered suffix instead.
	renames := map[string]string{}
	counter := map[string]int{}
	for _, ref := range box.Refs {
		if _, dup := cols[ref]; dup {
			continue
		}
		expr, err := lookup(ref)
		if err != nil {
			return nil, err
		}
		base := refOutputName(ref, ctx)
		key := base + "\x00" + clause.Key(expr)
		if name, ok := renames[key]; ok {
			cols[ref] = name
			continue
		}
		counter[base]++
		name := base
		if counter[base] > 1 {
			name = fmt.Sprintf("%s_%d", base, counter[base])
		}
		renames[key] = name
		colNames = append(colNames, name)
		colExprs[name] = expr
		cols[ref] = name
	}
	return &Assemblage{Clause: tail, ColNames: colNames, ColExprs: colExprs, Cols: cols}, nil
}

// passLookup adapts a bool-returning ref lookup into the error-returning
// shape finishAssemblage wants, translating whatever scalar expression the
// ref resolves to.
func passLookup(lk func(Ann) (clause.Clause, bool)) func(Ann) (clause.Clause, error) {
	return func(ref Ann) (clause.Clause, error) {
		if c, ok := lk(ref); ok {
			return c, nil
		}
		return nil, fmt.Errorf("funsql: translate: unresolved reference %T", ref)
	}
}

// translateExpr walks a scalar Ann subtree, resolving leaf references
// (AGet/AAgg/NameBound/HandleBound) through lookup. Before dispatching on
// a's concrete type, it checks ctx's ambient cross-box substitution map -
// see TranslateContext.subsStack - so a reference threaded in from outside
// the current box (a lateral join's correlated Bind) resolves correctly
// regardless of how deep inside this box's own expression tree it sits.
func translateExpr(ctx *TranslateContext, a Ann, lookup func(Ann) (clause.Clause, bool)) (clause.Clause, error) {
	if c, ok := ctx.ambientSubs(a); ok {
		return c, nil
	}
	switch v := a.(type) {
	case *ALit:
		return clause.NewLIT(v.Val), nil
	case *AVar:
		if c, ok := ctx.lookupVar(v.Name); ok {
			return c, nil
		}
		return clause.NewVAR(v.Name), nil
	case *AFun:
		return translateFun(ctx, v, lookup)
	case *ASort:
		val, err := translateExpr(ctx, v.Value, lookup)
		if err != nil {
			return nil, err
		}
		return clause.NewSORT(translateValueOrder(v.Order), translateNullsOrder(v.Nulls), val), nil
	case *AAs:
		over, err := translateExpr(ctx, v.Over, lookup)
		if err != nil {
			return nil, err
		}
		return &clause.AS{Name: v.Name, Over: over}, nil
	case *AGet, *AAgg, *NameBound, *HandleBound:
		c, ok := lookup(a)
		if !ok {
			return nil, fmt.Errorf("funsql: translate: unresolved reference %T", a)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("funsql: translate: %T is not valid in scalar position", a)
	}
}

func translateValueOrder(o node.ValueOrder) clause.ValueOrder {
	if o == node.Desc {
		return clause.OrderDesc
	}
	return clause.OrderAsc
}

func translateNullsOrder(n node.NullsOrder) clause.NullsOrder {
	switch n {
	case node.NullsFirst:
		return clause.NullsFirst
	case node.NullsLast:
		return clause.NullsLast
	default:
		return clause.NullsDefault
	}
}

func translateFrame(f *node.Frame) *clause.Frame {
	if f == nil {
		return nil
	}
	edge := func(e node.FrameEdge) clause.FrameEdge {
		side := clause.EdgeCurrentRow
		switch e.Side {
		case node.FramePreceding:
			side = clause.EdgePreceding
		case node.FrameFollowing:
			side = clause.EdgeFollowing
		}
		var val clause.Clause
		if e.Val != nil {
			val = clause.NewLIT(*e.Val)
		}
		return clause.FrameEdge{Typ: side, Val: val}
	}
	mode := clause.FrameRange
	switch f.Mode {
	case node.FrameRows:
		mode = clause.FrameRows
	case node.FrameGroups:
		mode = clause.FrameGroups
	}
	var exclude *clause.FrameExclude
	if f.Exclude != node.ExcludeNoOthers {
		e := clause.FrameExclude(f.Exclude)
		exclude = &e
	}
	return &clause.Frame{Mode: mode, Start: edge(f.Start), End: edge(f.End), Exclude: exclude}
}

func isAlphabeticName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(unicode.IsLetter(r) || r == '_') {
			return false
		}
	}
	return true
}

// translateFun dispatches a function call to its SQL rendering, a port of
// translate.py's translate_node(Fun, ...) registry: a representative set
// of operators get their own OP/FUN shape (CAST/EXTRACT/BETWEEN need a
// KW-qualified argument, not a plain call list, or they produce invalid
// SQL), AND/OR get flattened and their identity operand dropped, IN/NOT IN
// degrade to a literal when under-supplied, and anything else falls back
// to an alphabetic-name-vs-operator-symbol guess.
//
// IN/NOT IN have only the literal-tuple form; there is no subquery form,
// and annotateScalar (compiler/annotate.go) has no case admitting a Box in
// scalar position, so an IN's extra arguments are never a subquery. EXISTS
// renders as a plain OP over its translated arguments.
func translateFun(ctx *TranslateContext, v *AFun, lookup func(Ann) (clause.Clause, bool)) (clause.Clause, error) {
	translateArgs := func(anns []Ann) ([]any, error) {
		out := make([]any, len(anns))
		for i, a := range anns {
			c, err := translateExpr(ctx, a, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}

	name := strings.ToUpper(string(v.Name))
	switch name {
	case "NOT":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewOP("NOT", args...), nil
	case "LIKE":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewOP("LIKE", args...), nil
	case "EXISTS":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewOP("EXISTS", args...), nil
	case "=", "==":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewOP("=", args...), nil
	case "!=", "<>":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewOP("<>", args...), nil
	case "AND", "OR":
		return translateAndOr(ctx, name, v.Args, lookup)
	case "IN", "NOT_IN":
		return translateIn(ctx, name, v.Args, lookup)
	case "IS_NULL":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewOP("IS", args[0], clause.NewLIT(nil)), nil
	case "IS_NOT_NULL":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewOP("IS NOT", args[0], clause.NewLIT(nil)), nil
	case "CASE":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewCASE(args...), nil
	case "CAST":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		if len(args) == 2 {
			if lit, ok := v.Args[1].(*ALit); ok {
				if s, ok := lit.Val.(string); ok {
					return clause.NewFUN("CAST", args[0], clause.NewKW("AS", clause.NewOP(node.Symbol(s)))), nil
				}
			}
		}
		return clause.NewFUN(v.Name, args...), nil
	case "EXTRACT":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		if len(args) == 2 {
			if lit, ok := v.Args[0].(*ALit); ok {
				if s, ok := lit.Val.(string); ok {
					return clause.NewFUN("EXTRACT", clause.NewOP(node.Symbol(s)), clause.NewKW("FROM", args[1])), nil
				}
			}
		}
		return clause.NewFUN(v.Name, args...), nil
	case "BETWEEN", "NOT_BETWEEN":
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		if len(args) == 3 {
			opName := "BETWEEN"
			if name == "NOT_BETWEEN" {
				opName = "NOT BETWEEN"
			}
			return clause.NewOP(node.Symbol(opName), args[0], args[1], clause.NewKW("AND", args[2])), nil
		}
		return clause.NewFUN(v.Name, args...), nil
	case "CURRENT_DATE", "CURRENT_TIMESTAMP":
		if len(v.Args) == 0 {
			return clause.NewOP(node.Symbol(name)), nil
		}
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		return clause.NewFUN(v.Name, args...), nil
	default:
		args, err := translateArgs(v.Args)
		if err != nil {
			return nil, err
		}
		if isAlphabeticName(name) {
			return clause.NewFUN(v.Name, args...), nil
		}
		return clause.NewOP(v.Name, args...), nil
	}
}

// translateAndOr flattens nested same-operator calls and drops operands
// equal to the operator's identity literal (true for AND, false for OR),
// degrading to that literal when every operand was dropped and to a bare
// passthrough when exactly one remains.
func translateAndOr(ctx *TranslateContext, name string, rawArgs []Ann, lookup func(Ann) (clause.Clause, bool)) (clause.Clause, error) {
	isAnd := name == "AND"
	var flat []clause.Clause
	var flatten func(c clause.Clause)
	flatten = func(c clause.Clause) {
		if op, ok := c.(*clause.OP); ok && strings.EqualFold(string(op.Name), name) {
			for _, a := range op.Args {
				flatten(a)
			}
			return
		}
		if lit, ok := c.(*clause.LIT); ok {
			if b, ok := lit.Val.(bool); ok && b == isAnd {
				return
			}
		}
		flat = append(flat, c)
	}
	for _, a := range rawArgs {
		c, err := translateExpr(ctx, a, lookup)
		if err != nil {
			return nil, err
		}
		flatten(c)
	}
	switch len(flat) {
	case 0:
		return clause.NewLIT(isAnd), nil
	case 1:
		return flat[0], nil
	default:
		args := make([]any, len(flat))
		for i, c := range flat {
			args[i] = c
		}
		return clause.NewOP(node.Symbol(name), args...), nil
	}
}

// translateIn builds IN/NOT IN, degrading to the vacuous literal (false
// for IN, true for NOT IN) when there's no haystack at all.
func translateIn(ctx *TranslateContext, name string, rawArgs []Ann, lookup func(Ann) (clause.Clause, bool)) (clause.Clause, error) {
	if len(rawArgs) <= 1 {
		return clause.NewLIT(name == "NOT_IN"), nil
	}
	args := make([]any, len(rawArgs))
	for i, a := range rawArgs {
		c, err := translateExpr(ctx, a, lookup)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	opName := "IN"
	if name == "NOT_IN" {
		opName = "NOT IN"
	}
	tuple := clause.NewFUN("_", args[1:]...)
	return clause.NewOP(node.Symbol(opName), args[0], tuple), nil
}

// assemble materializes box, memoized by box pointer so a Box referenced
// from more than one place (a CTE, the recursive side of a Knot) is only
// built once. A HandleBound ref whose handle is this box's own is
// unwrapped before assembling (the inner node provides its Over), then
// re-keyed on the way out so the consumer still finds the original ref.
func assemble(box *Box, ctx *TranslateContext) (*Assemblage, error) {
	if asm, ok := ctx.memo[box]; ok {
		return asm, nil
	}

	orig := box.Refs
	unwrapped := false
	if box.Handle >= 0 {
		eff := make([]Ann, len(orig))
		for i, ref := range orig {
			if hb, ok := ref.(*HandleBound); ok && hb.Handle == box.Handle {
				eff[i] = hb.Over
				unwrapped = true
			} else {
				eff[i] = ref
			}
		}
		if unwrapped {
			box.Refs = eff
		}
	}

	asm, err := assembleInner(box, ctx)
	if unwrapped {
		eff := box.Refs
		box.Refs = orig
		if err == nil {
			cols := make(map[Ann]string, len(orig))
			for i, ref := range orig {
				if name, ok := asm.Cols[eff[i]]; ok {
					cols[ref] = name
				}
			}
			asm = &Assemblage{Clause: asm.Clause, ColNames: asm.ColNames, ColExprs: asm.ColExprs, Cols: cols}
		}
	}
	if err != nil {
		return nil, err
	}
	ctx.memo[box] = asm
	return asm, nil
}

func assembleInner(box *Box, ctx *TranslateContext) (*Assemblage, error) {
	switch v := box.Over.(type) {

	case *FromNothing:
		return &Assemblage{ColExprs: map[string]clause.Clause{}, Cols: map[Ann]string{}}, nil

	case *FromTable:
		rawAlias := ctx.allocAlias(v.Name)
		tail := clause.NewFROM(&clause.AS{Name: node.Symbol(rawAlias), Over: clause.NewID(node.Symbol(v.Name), nil)})
		cols := map[Ann]string{}
		colExprs := map[string]clause.Clause{}
		var colNames []string
		seen := map[string]bool{}
		for _, ref := range box.Refs {
			g, ok := ref.(*AGet)
			if !ok {
				return nil, fmt.Errorf("funsql: translate: table ref must be a plain field, got %T", ref)
			}
			name := string(g.Name)
			cols[ref] = name
			if !seen[name] {
				seen[name] = true
				colNames = append(colNames, name)
				colExprs[name] = clause.NewID(node.Symbol(name), clause.NewID(node.Symbol(rawAlias), nil))
			}
		}
		return &Assemblage{Clause: tail, ColNames: colNames, ColExprs: colExprs, Cols: cols}, nil

	case *FromValues:
		rawAlias := ctx.allocAlias("values")
		cols := map[Ann]string{}
		seen := map[string]bool{}
		var colNames []string
		for _, ref := range box.Refs {
			g, ok := ref.(*AGet)
			if !ok {
				return nil, fmt.Errorf("funsql: translate: values ref must be a plain field, got %T", ref)
			}
			name := string(g.Name)
			cols[ref] = name
			if !seen[name] {
				seen[name] = true
				colNames = append(colNames, name)
			}
		}
		rows := make([]any, len(v.Rows))
		for i, r := range v.Rows {
			row := make([]any, len(r))
			copy(row, r)
			rows[i] = row
		}
		colExprs := map[string]clause.Clause{}
		parent := clause.NewID(node.Symbol(rawAlias), nil)
		var tail clause.Clause
		if ctx.Dialect.HasAsColumns {
			tail = clause.NewFROM(&clause.AS{Name: node.Symbol(rawAlias), Columns: symbolsOf(v.Cols), Over: clause.NewVALUES(rows)})
			for _, name := range colNames {
				colExprs[name] = clause.NewID(node.Symbol(name), parent)
			}
		} else {
			tail = clause.NewFROM(&clause.AS{Name: node.Symbol(rawAlias), Over: clause.NewVALUES(rows)})
			idx := ctx.Dialect.ValuesColumnIndex
			for _, c := range v.Cols {
				genName := fmt.Sprintf("%s%d", ctx.Dialect.ValuesColumnPrefix, idx)
				idx++
				if seen[c] {
					colExprs[c] = clause.NewID(node.Symbol(genName), parent)
				}
			}
		}
		return &Assemblage{Clause: tail, ColNames: colNames, ColExprs: colExprs, Cols: cols}, nil

	case *FromReference:
		target, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		if reg, ok := ctx.cteBox[target]; ok {
			alias := ctx.allocAlias(string(v.Name))
			tail := clause.NewFROM(&clause.AS{Name: node.Symbol(alias), Over: clause.NewID(node.Symbol(reg.name), nil)})
			cols := map[Ann]string{}
			colExprs := map[string]clause.Clause{}
			for ref, name := range reg.cols {
				cols[ref] = name
			}
			for _, name := range reg.colNames {
				colExprs[name] = clause.NewID(node.Symbol(name), clause.NewID(node.Symbol(alias), nil))
			}
			return &Assemblage{Clause: tail, ColNames: append([]string{}, reg.colNames...), ColExprs: colExprs, Cols: cols}, nil
		}
		return assemble(target, ctx)

	case *AAs:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}
		// the alias layer only re-keys references: a NameBound carrying
		// this alias resolves to whatever its inner ref resolved to below;
		// a HandleBound passes through untouched.
		cols := make(map[Ann]string, len(box.Refs))
		for _, ref := range box.Refs {
			switch r := ref.(type) {
			case *NameBound:
				if name, ok := child.Cols[r.Over]; ok {
					cols[ref] = name
				}
			default:
				if name, ok := child.Cols[ref]; ok {
					cols[ref] = name
				}
			}
		}
		return &Assemblage{Clause: child.Clause, ColNames: child.ColNames, ColExprs: child.ColExprs, Cols: cols}, nil

	case *AWhere:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}

		inline := child.Clause == nil
		switch bc := child.Clause.(type) {
		case *clause.FROM, *clause.JOIN, *clause.WHERE, *clause.HAVING:
			inline = true
		case *clause.GROUP:
			// a condition after an aggregation with keys promotes to
			// HAVING; a keyless (global) aggregate has no rows left to
			// filter in place and must wrap.
			inline = len(bc.By) > 0
		}

		var lk func(Ann) (clause.Clause, bool)
		var chain clause.Clause
		if inline {
			lk = subsLookup(makeSubs(child, nil))
			cond, err := translateExpr(ctx, v.Condition, lk)
			if err != nil {
				return nil, err
			}
			if isLitTrue(cond) {
				return child, nil
			}
			switch bc := child.Clause.(type) {
			case *clause.WHERE:
				chain = clause.NewWHERE(mergeConditions(bc.Condition, cond), bc.Over)
			case *clause.GROUP:
				chain = clause.NewHAVING(cond, bc)
			case *clause.HAVING:
				chain = clause.NewHAVING(mergeConditions(bc.Condition, cond), bc.Over)
			default:
				chain = clause.NewWHERE(cond, child.Clause)
			}
		} else {
			alias := ctx.allocAlias(childBaseAlias(under))
			tail := fromSource(child, alias)
			lk = subsLookup(makeSubs(child, &alias))
			cond, err := translateExpr(ctx, v.Condition, lk)
			if err != nil {
				return nil, err
			}
			if isLitTrue(cond) {
				return child, nil
			}
			chain = clause.NewWHERE(cond, tail)
		}
		return finishAssemblage(box, ctx, chain, passLookup(lk))

	case *AOrder:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}
		if len(v.By) == 0 {
			return child, nil
		}
		var tail clause.Clause
		var lk func(Ann) (clause.Clause, bool)
		if child.Clause == nil || isBareFromJoinWhereGroup(child.Clause) {
			tail = child.Clause
			lk = subsLookup(makeSubs(child, nil))
		} else {
			alias := ctx.allocAlias(childBaseAlias(under))
			tail = fromSource(child, alias)
			lk = subsLookup(makeSubs(child, &alias))
		}
		var byC []any
		for _, b := range v.By {
			c, err := translateExpr(ctx, b, lk)
			if err != nil {
				return nil, err
			}
			byC = append(byC, c)
		}
		chain := clause.NewORDER(byC, tail)
		return finishAssemblage(box, ctx, chain, passLookup(lk))

	case *ALimit:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}
		if v.Limit == nil && v.Offset == nil {
			return child, nil
		}
		var tail clause.Clause
		var lk func(Ann) (clause.Clause, bool)
		if child.Clause == nil || isBareFromJoinWhereGroupOrder(child.Clause) {
			tail = child.Clause
			lk = subsLookup(makeSubs(child, nil))
		} else {
			alias := ctx.allocAlias(childBaseAlias(under))
			tail = fromSource(child, alias)
			lk = subsLookup(makeSubs(child, &alias))
		}
		chain := clause.NewLIMIT(v.Limit, v.Offset, false, tail)
		return finishAssemblage(box, ctx, chain, passLookup(lk))

	case *IntBind:
		// Resolve each bound arg against whatever substitution is
		// currently ambient (an enclosing lateral IntJoin pushes the
		// left side's columns before assembling a joinee that contains
		// this Bind), then push them as scope-local vars before
		// assembling the bound body so its Var(name) references resolve.
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		varsMap := map[node.Symbol]clause.Clause{}
		for name, idx := range v.LabelMap {
			argAs, ok := v.Args[idx].(*AAs)
			if !ok {
				return nil, fmt.Errorf("funsql: translate: bind arg must be named")
			}
			c, err := translateExpr(ctx, argAs.Over, subsLookup(nil))
			if err != nil {
				return nil, err
			}
			varsMap[name] = c
		}
		ctx.pushVars(varsMap)
		child, err := assemble(under, ctx)
		ctx.popVars()
		if err != nil {
			return nil, err
		}
		// the bind layer adds no clause; refs pass through to the bound
		// body untouched, so its assemblage serves directly.
		return child, nil

	case *ASelect:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}
		var tail clause.Clause
		var lk func(Ann) (clause.Clause, bool)
		if isCompleteClause(child.Clause) {
			alias := ctx.allocAlias(childBaseAlias(under))
			tail = fromSource(child, alias)
			lk = subsLookup(makeSubs(child, &alias))
		} else {
			tail = child.Clause
			lk = subsLookup(makeSubs(child, nil))
		}
		lookup := func(ref Ann) (clause.Clause, error) {
			g, ok := ref.(*AGet)
			if !ok {
				return nil, fmt.Errorf("funsql: translate: select ref must be a plain field, got %T", ref)
			}
			idx, ok := v.LabelMap[g.Name]
			if !ok {
				return nil, fmt.Errorf("funsql: translate: select has no field %q", g.Name)
			}
			return translateExpr(ctx, v.Args[idx], lk)
		}
		return finishAssemblage(box, ctx, tail, lookup)

	case *ADefine:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}
		anyDefined := false
		for _, ref := range box.Refs {
			if g, ok := ref.(*AGet); ok {
				if _, isDefined := v.LabelMap[g.Name]; isDefined {
					anyDefined = true
					break
				}
			}
		}
		if !anyDefined {
			return child, nil
		}
		var tail clause.Clause
		var lk func(Ann) (clause.Clause, bool)
		if child.Clause == nil || !isCompleteClause(child.Clause) {
			tail = child.Clause
			lk = subsLookup(makeSubs(child, nil))
		} else {
			alias := ctx.allocAlias(childBaseAlias(under))
			tail = fromSource(child, alias)
			lk = subsLookup(makeSubs(child, &alias))
		}
		lookup := func(ref Ann) (clause.Clause, error) {
			if g, ok := ref.(*AGet); ok {
				if idx, isDefined := v.LabelMap[g.Name]; isDefined {
					return translateExpr(ctx, v.Args[idx], lk)
				}
			}
			return translateExpr(ctx, ref, lk)
		}
		return finishAssemblage(box, ctx, tail, lookup)

	case *AGroup:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}

		hasAgg := false
		for _, ref := range box.Refs {
			if _, ok := ref.(*AAgg); ok {
				hasAgg = true
				break
			}
		}
		if !hasAgg && len(v.By) == 0 {
			// nothing grouped, nothing aggregated: this box contributes
			// nothing, same as an identity Where.
			return child, nil
		}

		var tail clause.Clause
		var lk func(Ann) (clause.Clause, bool)
		if child.Clause == nil || isBareFromJoinWhere(child.Clause) {
			tail = child.Clause
			lk = subsLookup(makeSubs(child, nil))
		} else {
			alias := ctx.allocAlias(childBaseAlias(under))
			tail = fromSource(child, alias)
			lk = subsLookup(makeSubs(child, &alias))
		}
		var byC []any
		for _, b := range v.By {
			c, err := translateExpr(ctx, b, lk)
			if err != nil {
				return nil, err
			}
			byC = append(byC, c)
		}

		if !hasAgg {
			// a Group with keys but no aggregate over them degrades to
			// SELECT DISTINCT on the keys, per spec: the grouping must
			// still deduplicate rows even with nothing aggregated.
			lookup := func(ref Ann) (clause.Clause, error) {
				r, ok := ref.(*AGet)
				if !ok {
					return nil, fmt.Errorf("funsql: translate: unexpected group reference %T", ref)
				}
				idx, ok := v.LabelMap[r.Name]
				if !ok {
					return nil, fmt.Errorf("funsql: translate: group has no key %q", r.Name)
				}
				return translateExpr(ctx, v.By[idx], lk)
			}
			asm, err := finishAssemblage(box, ctx, tail, lookup)
			if err != nil {
				return nil, err
			}
			sel := clause.NewSELECT(colsToSelectArgs(asm), true, nil, asm.Clause)
			selfCols := map[string]clause.Clause{}
			for _, name := range asm.ColNames {
				selfCols[name] = clause.NewID(node.Symbol(name), nil)
			}
			return &Assemblage{Clause: sel, ColNames: asm.ColNames, ColExprs: selfCols, Cols: asm.Cols}, nil
		}

		chain := clause.NewGROUP(byC, tail)
		lookup := func(ref Ann) (clause.Clause, error) {
			switch r := ref.(type) {
			case *AGet:
				idx, ok := v.LabelMap[r.Name]
				if !ok {
					return nil, fmt.Errorf("funsql: translate: group has no key %q", r.Name)
				}
				return translateExpr(ctx, v.By[idx], lk)
			case *AAgg:
				return translateAgg(ctx, r, lk, nil)
			default:
				return nil, fmt.Errorf("funsql: translate: unexpected group reference %T", ref)
			}
		}
		return finishAssemblage(box, ctx, chain, lookup)

	case *APartition:
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}
		hasAgg := false
		for _, ref := range box.Refs {
			if _, ok := ref.(*AAgg); ok {
				hasAgg = true
				break
			}
		}
		if !hasAgg {
			return child, nil
		}
		var tail clause.Clause
		var lk func(Ann) (clause.Clause, bool)
		if child.Clause == nil || isBareFromJoinWhereGroup(child.Clause) {
			tail = child.Clause
			lk = subsLookup(makeSubs(child, nil))
		} else {
			alias := ctx.allocAlias(childBaseAlias(under))
			tail = fromSource(child, alias)
			lk = subsLookup(makeSubs(child, &alias))
		}
		var byC, orderC []any
		for _, b := range v.By {
			c, err := translateExpr(ctx, b, lk)
			if err != nil {
				return nil, err
			}
			byC = append(byC, c)
		}
		for _, o := range v.OrderBy {
			c, err := translateExpr(ctx, o, lk)
			if err != nil {
				return nil, err
			}
			orderC = append(orderC, c)
		}
		partClause := clause.NewPARTITION(byC, orderC, translateFrame(v.Frame), nil)
		lookup := func(ref Ann) (clause.Clause, error) {
			if agg, ok := ref.(*AAgg); ok {
				return translateAgg(ctx, agg, lk, partClause)
			}
			return translateExpr(ctx, ref, lk)
		}
		// the window spec contributes no clause of its own to the FROM /
		// WHERE / GROUP BY chain - it only qualifies the AAgg refs built
		// above with an OVER(...).
		return finishAssemblage(box, ctx, tail, lookup)

	case *AAppend:
		firstBox, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		firstAsm, err := assemble(firstBox, ctx)
		if err != nil {
			return nil, err
		}
		argBoxes := []*Box{firstBox}
		argAsms := []*Assemblage{firstAsm}
		for _, a := range v.Args {
			argBox, err := asBox(a)
			if err != nil {
				return nil, err
			}
			argAsm, err := assemble(argBox, ctx)
			if err != nil {
				return nil, err
			}
			argBoxes = append(argBoxes, argBox)
			argAsms = append(argAsms, argAsm)
		}

		// assign output names, collapsing two demanded refs into one
		// column when every branch resolves them to the same column.
		cols := map[Ann]string{}
		colExprs := map[string]clause.Clause{}
		var colNames []string
		var orderedRefs []Ann
		counter := map[string]int{}
		firstByName := map[string]Ann{}
		for _, ref := range box.Refs {
			if _, dup := cols[ref]; dup {
				continue
			}
			base := refOutputName(ref, ctx)
			if other, ok := firstByName[base]; ok {
				same := true
				for _, asm := range argAsms {
					if asm.Cols[ref] != asm.Cols[other] {
						same = false
						break
					}
				}
				if same {
					cols[ref] = cols[other]
					continue
				}
			} else {
				firstByName[base] = ref
			}
			counter[base]++
			name := base
			if counter[base] > 1 {
				name = fmt.Sprintf("%s_%d", base, counter[base])
			}
			colNames = append(colNames, name)
			colExprs[name] = clause.NewID(node.Symbol(name), nil)
			cols[ref] = name
			orderedRefs = append(orderedRefs, ref)
		}

		alignedSelectArgs := func(args []clause.Clause) bool {
			if len(args) != len(orderedRefs) {
				return false
			}
			for i, ref := range orderedRefs {
				name := cols[ref]
				switch a := args[i].(type) {
				case *clause.ID:
					if string(a.Name) != name {
						return false
					}
				case *clause.AS:
					if string(a.Name) != name {
						return false
					}
				default:
					return false
				}
			}
			return true
		}

		branchSelects := make([]any, len(argAsms))
		for i, asm := range argAsms {
			// a branch whose SELECT already exposes the required columns
			// in order is reused untouched.
			if sel, ok := asm.Clause.(*clause.SELECT); ok && alignedSelectArgs(sel.Args) {
				branchSelects[i] = sel
				continue
			}
			var tail clause.Clause
			var lk func(Ann) (clause.Clause, bool)
			if asm.Clause == nil || !isCompleteClause(asm.Clause) {
				tail = asm.Clause
				lk = subsLookup(makeSubs(asm, nil))
			} else {
				alias := ctx.allocAlias(childBaseAlias(argBoxes[i]))
				tail = fromSource(asm, alias)
				lk = subsLookup(makeSubs(asm, &alias))
			}
			var args []any
			for _, ref := range orderedRefs {
				c, ok := lk(ref)
				if !ok {
					return nil, fmt.Errorf("funsql: translate: append arm missing a column")
				}
				name := cols[ref]
				if id, ok := c.(*clause.ID); ok && string(id.Name) == name {
					args = append(args, c)
				} else {
					args = append(args, &clause.AS{Name: node.Symbol(name), Over: c})
				}
			}
			branchSelects[i] = clause.NewSELECT(args, false, nil, tail)
		}
		unionClause := clause.NewUNION(branchSelects[1:], true, branchSelects[0])
		return &Assemblage{Clause: unionClause, ColNames: colNames, ColExprs: colExprs, Cols: cols}, nil

	case *IntJoin:
		lbox, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		rbox, err := asBox(v.Joinee)
		if err != nil {
			return nil, err
		}
		leftAsm, err := assemble(lbox, ctx)
		if err != nil {
			return nil, err
		}
		if v.Skip {
			// link already established that nothing references the right
			// side; the join contributes nothing.
			return leftAsm, nil
		}

		var leftAliasPtr *string
		leftTail := leftAsm.Clause
		if !isBareFromOrJoin(leftTail) {
			a := ctx.allocAlias(childBaseAlias(lbox))
			leftTail = fromSource(leftAsm, a)
			leftAliasPtr = &a
		}
		leftSubs := makeSubs(leftAsm, leftAliasPtr)

		correlated := len(v.Lateral) > 0
		if correlated {
			ctx.pushSubs(leftSubs)
		}
		rightAsm, err := assemble(rbox, ctx)
		if correlated {
			ctx.popSubs()
		}
		if err != nil {
			return nil, err
		}

		// a joinee that is already a bare aliased table reference embeds
		// directly; anything else wraps as an aliased subquery.
		var joinee clause.Clause
		var rightSubs map[Ann]clause.Clause
		if f, ok := rightAsm.Clause.(*clause.FROM); ok && isEmbeddableJoinee(f.Over) {
			joinee = f.Over
			rightSubs = makeSubs(rightAsm, nil)
		} else {
			rightAlias := ctx.allocAlias(childBaseAlias(rbox))
			joinee = &clause.AS{Name: node.Symbol(rightAlias), Over: completeSelect(rightAsm)}
			rightSubs = makeSubs(rightAsm, &rightAlias)
		}
		merged := dualSubs(leftSubs, rightSubs)

		onClause, err := translateExpr(ctx, v.On, subsLookup(merged))
		if err != nil {
			return nil, err
		}
		var joinOpts []clause.JoinOpt
		if v.Left {
			joinOpts = append(joinOpts, clause.WithJoinLeft())
		}
		if v.Right {
			joinOpts = append(joinOpts, clause.WithJoinRight())
		}
		if correlated || v.Requested {
			joinOpts = append(joinOpts, clause.WithJoinLateral())
		}
		joinClause := clause.NewJOIN(joinee, onClause, leftTail, joinOpts...)
		return finishAssemblage(box, ctx, joinClause, passLookup(subsLookup(merged)))

	case *AWith:
		var cteArgs []clause.Clause
		for _, argAnn := range v.Args {
			argBox, err := asBox(argAnn)
			if err != nil {
				return nil, err
			}
			asAnn, ok := argBox.Over.(*AAs)
			if !ok {
				return nil, fmt.Errorf("funsql: translate: with arg must be a named tabular")
			}
			innerBox, err := asBox(asAnn.Over)
			if err != nil {
				return nil, err
			}
			innerAsm, err := assemble(innerBox, ctx)
			if err != nil {
				return nil, err
			}
			cteName := ctx.allocAlias(string(asAnn.Name))
			ctx.cteBox[argBox] = &cteReg{name: cteName, cols: innerAsm.Cols, colNames: append([]string{}, innerAsm.ColNames...)}
			var over clause.Clause = completeSelect(innerAsm)
			if m, ok := v.Materialized[asAnn.Name]; ok && m != nil {
				text := "NOT MATERIALIZED"
				if *m {
					text = "MATERIALIZED"
				}
				over = clause.NewNOTE(text, false, over)
			}
			cteArgs = append(cteArgs, &clause.AS{Name: node.Symbol(cteName), Over: over})
		}
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		child, err := assemble(under, ctx)
		if err != nil {
			return nil, err
		}
		chain := clause.NewWITH(cteArgs, false, completeSelect(child))
		lookup := func(ref Ann) (clause.Clause, error) {
			name, ok := child.Cols[ref]
			if !ok {
				return nil, fmt.Errorf("funsql: translate: with: unresolved reference")
			}
			return clause.NewID(node.Symbol(name), nil), nil
		}
		return finishAssemblage(box, ctx, chain, lookup)

	case *AWithExternal:
		for _, argAnn := range v.Args {
			argBox, err := asBox(argAnn)
			if err != nil {
				return nil, err
			}
			asAnn, ok := argBox.Over.(*AAs)
			if !ok {
				return nil, fmt.Errorf("funsql: translate: with_external arg must be a named tabular")
			}
			innerBox, err := asBox(asAnn.Over)
			if err != nil {
				return nil, err
			}
			innerAsm, err := assemble(innerBox, ctx)
			if err != nil {
				return nil, err
			}
			tableName := string(asAnn.Name)
			tbl := &catalog.Table{Name: tableName, Columns: append([]string{}, innerAsm.ColNames...), Schema: string(v.Schema)}
			if v.Handler != nil {
				if err := v.Handler(tbl, completeSelect(innerAsm)); err != nil {
					return nil, err
				}
			}
			ctx.cteBox[argBox] = &cteReg{name: tableName, cols: innerAsm.Cols, colNames: append([]string{}, innerAsm.ColNames...)}
		}
		under, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		// the external CTEs never reach the emitted WITH; the body behaves
		// as if they were plain tables, so the child assemblage passes
		// through untouched.
		return assemble(under, ctx)

	case *IntIterate:
		knotBox, err := asBox(v.Over)
		if err != nil {
			return nil, err
		}
		knot, ok := knotBox.Over.(*Knot)
		if !ok {
			return nil, fmt.Errorf("funsql: translate: iterate must wrap a knot")
		}
		seedUnder, err := asBox(knot.Over)
		if err != nil {
			return nil, err
		}
		seedAsm, err := assemble(seedUnder, ctx)
		if err != nil {
			return nil, err
		}

		// the CTE's column set: one column per distinct name demanded of
		// the knot, named and ordered by the seed side.
		cteName := ctx.allocAlias(string(v.Name))
		regCols := map[Ann]string{}
		var urefs []Ann
		var colNames []string
		seenName := map[string]bool{}
		for _, ref := range knotBox.Refs {
			nb, ok := ref.(*NameBound)
			if !ok {
				return nil, fmt.Errorf("funsql: translate: knot ref must be name-bound, got %T", ref)
			}
			name, ok := seedAsm.Cols[nb.Over]
			if !ok {
				return nil, fmt.Errorf("funsql: translate: recursive query does not provide a column for %q", refOutputName(nb.Over, ctx))
			}
			regCols[nb.Over] = name
			if !seenName[name] {
				seenName[name] = true
				urefs = append(urefs, nb.Over)
				colNames = append(colNames, name)
			}
		}
		// register before assembling the iterator: its own FromReference
		// cycles back to knotBox.
		ctx.cteBox[knotBox] = &cteReg{name: cteName, cols: regCols, colNames: append([]string{}, colNames...)}

		iterUnder, err := asBox(knot.Iterator)
		if err != nil {
			return nil, err
		}
		iterAsm, err := assemble(iterUnder, ctx)
		if err != nil {
			return nil, err
		}
		// the iterator box's refs carry the NameBound wrappers; expose its
		// columns by the underlying refs so both branches key alike.
		iterCols := map[Ann]string{}
		for ref, name := range iterAsm.Cols {
			if nb, ok := ref.(*NameBound); ok {
				iterCols[nb.Over] = name
			} else {
				iterCols[ref] = name
			}
		}
		iterUnwrapped := &Assemblage{Clause: iterAsm.Clause, ColNames: iterAsm.ColNames, ColExprs: iterAsm.ColExprs, Cols: iterCols}

		buildBranch := func(asm *Assemblage, base *Box) (clause.Clause, error) {
			if sel, ok := asm.Clause.(*clause.SELECT); ok && len(sel.Args) == len(urefs) {
				aligned := true
				for i := range urefs {
					switch a := sel.Args[i].(type) {
					case *clause.ID:
						aligned = string(a.Name) == colNames[i]
					case *clause.AS:
						aligned = string(a.Name) == colNames[i]
					default:
						aligned = false
					}
					if !aligned {
						break
					}
				}
				if aligned {
					return sel, nil
				}
			}
			var tail clause.Clause
			var lk func(Ann) (clause.Clause, bool)
			if asm.Clause == nil || !isCompleteClause(asm.Clause) {
				tail = asm.Clause
				lk = subsLookup(makeSubs(asm, nil))
			} else {
				alias := ctx.allocAlias(childBaseAlias(base))
				tail = fromSource(asm, alias)
				lk = subsLookup(makeSubs(asm, &alias))
			}
			var args []any
			for i, ref := range urefs {
				c, ok := lk(ref)
				if !ok {
					return nil, fmt.Errorf("funsql: translate: recursive branch missing column %q", colNames[i])
				}
				if id, ok := c.(*clause.ID); ok && string(id.Name) == colNames[i] {
					args = append(args, c)
				} else {
					args = append(args, &clause.AS{Name: node.Symbol(colNames[i]), Over: c})
				}
			}
			return clause.NewSELECT(args, false, nil, tail), nil
		}

		seedSel, err := buildBranch(seedAsm, seedUnder)
		if err != nil {
			return nil, err
		}
		iterSel, err := buildBranch(iterUnwrapped, iterUnder)
		if err != nil {
			return nil, err
		}
		unionClause := clause.NewUNION([]any{iterSel}, true, seedSel)
		cteArg := &clause.AS{Name: node.Symbol(cteName), Columns: symbolsOf(colNames), Over: unionClause}

		// the outer query reads the whole CTE back out.
		var selArgs []any
		colExprs := map[string]clause.Clause{}
		for _, name := range colNames {
			selArgs = append(selArgs, clause.NewID(node.Symbol(name), clause.NewID(node.Symbol(cteName), nil)))
			colExprs[name] = clause.NewID(node.Symbol(name), nil)
		}
		final := clause.NewSELECT(selArgs, false, nil, clause.NewFROM(clause.NewID(node.Symbol(cteName), nil)))
		chain := clause.NewWITH([]clause.Clause{cteArg}, true, final)

		cols := map[Ann]string{}
		for _, ref := range box.Refs {
			if name, ok := regCols[ref]; ok {
				cols[ref] = name
			}
		}
		return &Assemblage{Clause: chain, ColNames: append([]string{}, colNames...), ColExprs: colExprs, Cols: cols}, nil

	case *Knot:
		return nil, fmt.Errorf("funsql: translate: a knot box must be reached through its iterate, not directly")

	default:
		return nil, fmt.Errorf("funsql: translate: %T is not a valid tabular annotation", v)
	}
}

func symbolsOf(names []string) []node.Symbol {
	out := make([]node.Symbol, len(names))
	for i, n := range names {
		out[i] = node.Symbol(n)
	}
	return out
}

// translateAgg builds a clause.AGG for an annotated aggregate, resolving
// its arguments/filter through lk and attaching over (non-nil for a window
// aggregate under a Partition, nil for a plain GROUP aggregate).
func translateAgg(ctx *TranslateContext, agg *AAgg, lk func(Ann) (clause.Clause, bool), over clause.Clause) (clause.Clause, error) {
	args := make([]any, len(agg.Args))
	for i, a := range agg.Args {
		c, err := translateExpr(ctx, a, lk)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	var opts []clause.AggOpt
	if agg.Distinct {
		opts = append(opts, clause.WithDistinct())
	}
	if agg.Filter != nil {
		f, err := translateExpr(ctx, agg.Filter, lk)
		if err != nil {
			return nil, err
		}
		opts = append(opts, clause.WithFilter(f))
	}
	if over != nil {
		opts = append(opts, clause.WithAggOver(over))
	}
	return clause.NewAGG(agg.Name, args, opts...), nil
}
