package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ananis25/funsql-go/catalog"
	"github.com/ananis25/funsql-go/clause"
	"github.com/ananis25/funsql-go/node"
)

// SQLString is the final product of a compilation: the query text plus the
// ordered list of bind-variable names that fill its placeholders.
type SQLString struct {
	Query     string
	Variables []node.Symbol
}

func (s *SQLString) String() string {
	if len(s.Variables) == 0 {
		return fmt.Sprintf("query: \n%s", s.Query)
	}
	return fmt.Sprintf("query: \n%s\n\nvars: %v", s.Query, s.Variables)
}

// DateVal, TimeVal and DateTimeVal distinguish the three typed date/time
// literal shapes clausedefs.py's serializer renders differently
// (`DATE '...'` / `TIME '...'` / `TIMESTAMP '...'`). A plain time.Time isn't
// enough on its own since Go has no separate date-only or time-only types;
// callers building a node.Lit for one of these picks the wrapper matching
// the SQL type they want.
type DateVal struct{ time.Time }

type TimeVal struct{ time.Time }

type DateTimeVal struct{ time.Time }

// SerializationContext carries the single buffer, dialect, indentation
// level, and accumulated bind-variable list a compilation's serialize pass
// writes into.
type SerializationContext struct {
	Dialect   *catalog.Dialect
	buf       strings.Builder
	level     int
	nested    bool
	variables []node.Symbol
}

func NewSerializationContext(dialect *catalog.Dialect) *SerializationContext {
	if dialect == nil {
		dialect = catalog.Default()
	}
	return &SerializationContext{Dialect: dialect}
}

func (c *SerializationContext) write(s string) { c.buf.WriteString(s) }

func (c *SerializationContext) newline() {
	c.buf.WriteByte('\n')
	for i := 0; i < c.level; i++ {
		c.buf.WriteString("  ")
	}
}

// parens wraps fn's writes in ( ... ), with a leading/trailing space when
// space is true (matching SerializationContext.parens(space=True) in
// serialize.py); here space=true is used for the column lists of an AS and
// of a WITH entry.
func (c *SerializationContext) parens(space bool, fn func()) {
	if space {
		c.write(" (")
	} else {
		c.write("(")
	}
	fn()
	if space {
		c.write(") ")
	} else {
		c.write(")")
	}
}

func (c *SerializationContext) result() *SQLString {
	return &SQLString{Query: c.buf.String(), Variables: append([]node.Symbol{}, c.variables...)}
}

// Serialize walks clause c (the top-level clause of a render, usually a
// *clause.SELECT) and produces the final SQL text plus its bind variables.
func Serialize(c clause.Clause, dialect *catalog.Dialect) (*SQLString, error) {
	ctx := NewSerializationContext(dialect)
	if err := serializeClause(c, ctx); err != nil {
		return nil, err
	}
	return ctx.result(), nil
}

func serializeID(name node.Symbol, ctx *SerializationContext) {
	s := string(name)
	lq, rq := ctx.Dialect.IDQuotes[0], ctx.Dialect.IDQuotes[1]
	if strings.Contains(s, rq) {
		s = strings.ReplaceAll(s, rq, rq+rq)
	}
	ctx.write(lq + s + rq)
}

// serializeLit renders a literal Go value per its runtime type, matching
// serialize.py's singledispatch over int/float/bool/datetime/str/None.
func serializeLit(val any, ctx *SerializationContext) error {
	switch v := val.(type) {
	case nil:
		ctx.write("NULL")
	case bool:
		if ctx.Dialect.HasBoolLiterals {
			if v {
				ctx.write("TRUE")
			} else {
				ctx.write("FALSE")
			}
		} else if v {
			ctx.write("(1 = 1)")
		} else {
			ctx.write("(1 = 0)")
		}
	case int:
		ctx.write(strconv.Itoa(v))
	case int64:
		ctx.write(strconv.FormatInt(v, 10))
	case float64:
		ctx.write(strconv.FormatFloat(v, 'g', -1, 64))
	case string:
		ctx.write("'" + strings.ReplaceAll(v, "'", "''") + "'")
	case node.Symbol:
		serializeID(v, ctx)
	case DateTimeVal:
		ctx.write("TIMESTAMP '" + v.Format("2006-01-02T15:04:05") + "'")
	case DateVal:
		ctx.write("DATE '" + v.Format("2006-01-02") + "'")
	case TimeVal:
		layout := "15:04:05"
		if v.Nanosecond() != 0 {
			layout = "15:04:05.000000"
		}
		ctx.write("TIME '" + v.Format(layout) + "'")
	case time.Duration:
		serializeInterval(v, ctx)
	default:
		return fmt.Errorf("funsql: serialize: don't know how to serialize literal of type %T", val)
	}
	return nil
}

// serializeInterval mirrors serialize.py's timedelta handling: whole days
// render as `INTERVAL 'n' DAY`, whole seconds as `INTERVAL 'n' SECOND`,
// anything with sub-second resolution as a fractional-seconds INTERVAL.
func serializeInterval(d time.Duration, ctx *SerializationContext) {
	ctx.write("INTERVAL ")
	totalSeconds := d.Seconds()
	nanos := d.Nanoseconds() % int64(time.Second)
	if nanos == 0 {
		days := int64(d / (24 * time.Hour))
		rem := d % (24 * time.Hour)
		if rem == 0 {
			ctx.write(fmt.Sprintf("'%d' DAY", days))
		} else {
			ctx.write(fmt.Sprintf("'%d' SECOND", int64(d.Seconds())))
		}
	} else {
		ctx.write(fmt.Sprintf("'%.6f' SECOND", totalSeconds))
	}
}

// serializeClauseList writes a comma- (or sep-) joined list of clauses with
// no leading space, matching clausedefs.py's list-serialize registration.
func serializeClauseList(items []clause.Clause, ctx *SerializationContext, sep string) error {
	if sep == "" {
		sep = ", "
	} else {
		sep = " " + sep + " "
	}
	for i, arg := range items {
		if i > 0 {
			if _, ok := arg.(*clause.KW); ok {
				ctx.write(" ")
			} else {
				ctx.write(sep)
			}
		}
		if err := serializeClause(arg, ctx); err != nil {
			return err
		}
	}
	return nil
}

// serializeLines renders a clause list one per line when there's more than
// one, inline when there's exactly one, matching serialize_lines.
func serializeLines(items []clause.Clause, ctx *SerializationContext, sep string) error {
	if len(items) == 0 {
		return nil
	}
	if len(items) == 1 {
		ctx.write(" ")
		return serializeClause(items[0], ctx)
	}
	joiner := ", "
	if sep != "" {
		joiner = " " + sep + " "
	}
	ctx.level++
	for i, c := range items {
		if i > 0 {
			ctx.write(joiner)
		}
		ctx.newline()
		if err := serializeClause(c, ctx); err != nil {
			return err
		}
	}
	ctx.level--
	return nil
}

func isAndOp(c clause.Clause) (*clause.OP, bool) {
	op, ok := c.(*clause.OP)
	if !ok {
		return nil, false
	}
	if strings.EqualFold(string(op.Name), "AND") && len(op.Args) >= 2 {
		return op, true
	}
	return nil, false
}

func serializeClause(c clause.Clause, ctx *SerializationContext) error {
	switch v := c.(type) {
	case nil:
		return nil
	case *clause.LIT:
		return serializeLit(v.Val, ctx)
	case *clause.ID:
		if v.Over != nil {
			if err := serializeClause(v.Over, ctx); err != nil {
				return err
			}
			ctx.write(".")
		}
		serializeID(v.Name, ctx)
		return nil
	case *clause.AS:
		return serializeAS(v, ctx)
	case *clause.OP:
		return serializeOP(v, ctx)
	case *clause.FUN:
		ctx.write(string(v.Name))
		ctx.parens(false, func() { serializeClauseList(v.Args, ctx, "") })
		return nil
	case *clause.AGG:
		return serializeAGG(v, ctx)
	case *clause.CASE:
		return serializeCASE(v, ctx)
	case *clause.KW:
		ctx.write(string(v.Name))
		if v.Over != nil {
			ctx.write(" ")
			return serializeClause(v.Over, ctx)
		}
		return nil
	case *clause.VAR:
		return serializeVAR(v, ctx)
	case *clause.NOTE:
		if v.Over == nil {
			ctx.write(v.Text)
			return nil
		}
		if v.Postfix {
			if err := serializeClause(v.Over, ctx); err != nil {
				return err
			}
			ctx.write(" " + v.Text)
			return nil
		}
		ctx.write(v.Text + " ")
		return serializeClause(v.Over, ctx)
	case *clause.FROM:
		ctx.newline()
		ctx.write("FROM")
		if v.Over != nil {
			ctx.write(" ")
			return serializeClause(v.Over, ctx)
		}
		return nil
	case *clause.WHERE:
		return serializeWHERE(v, ctx)
	case *clause.HAVING:
		return serializeHAVING(v, ctx)
	case *clause.GROUP:
		return serializeGROUP(v, ctx)
	case *clause.ORDER:
		return serializeORDER(v, ctx)
	case *clause.LIMIT:
		return serializeLIMIT(v, ctx)
	case *clause.JOIN:
		return serializeJOIN(v, ctx)
	case *clause.PARTITION:
		return serializePARTITION(v, ctx)
	case *clause.SELECT:
		return serializeSELECT(v, ctx)
	case *clause.SORT:
		return serializeSORT(v, ctx)
	case *clause.UNION:
		return serializeUNION(v, ctx)
	case *clause.VALUES:
		return serializeVALUES(v, ctx)
	case *clause.WINDOW:
		return serializeWINDOW(v, ctx)
	case *clause.WITH:
		return serializeWITH(v, ctx)
	default:
		return fmt.Errorf("funsql: serialize: don't know how to serialize clause of type %T", c)
	}
}

func serializeAS(v *clause.AS, ctx *SerializationContext) error {
	if part, ok := v.Over.(*clause.PARTITION); ok {
		if v.Columns != nil {
			return fmt.Errorf("funsql: serialize: a PARTITION clause can't be aliased as a table with columns")
		}
		serializeID(v.Name, ctx)
		ctx.write(" AS ")
		ctx.parens(false, func() { serializeClause(part, ctx) })
		return nil
	}
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
		ctx.write(" AS ")
		serializeID(v.Name, ctx)
		if v.Columns != nil {
			cols := make([]clause.Clause, len(v.Columns))
			for i, c := range v.Columns {
				cols[i] = clause.NewID(c, nil)
			}
			ctx.parens(true, func() { serializeClauseList(cols, ctx, "") })
		}
	}
	return nil
}

func serializeOP(v *clause.OP, ctx *SerializationContext) error {
	name := string(v.Name)
	switch len(v.Args) {
	case 0:
		ctx.write(name)
		return nil
	case 1:
		var err error
		ctx.parens(false, func() {
			ctx.write(name + " ")
			err = serializeClause(v.Args[0], ctx)
		})
		return err
	default:
		var err error
		ctx.parens(false, func() { err = serializeClauseList(v.Args, ctx, name) })
		return err
	}
}

func serializeAGG(v *clause.AGG, ctx *SerializationContext) error {
	hasFilter := v.Filter != nil
	hasOver := v.Over != nil
	if hasFilter || hasOver {
		ctx.write("(")
	}
	ctx.write(string(v.Name))
	args := v.Args
	if strings.ToUpper(string(v.Name)) == "COUNT" && len(args) == 0 {
		args = []clause.Clause{clause.NewOP("*")}
	}
	var err error
	ctx.parens(false, func() {
		if v.Distinct {
			ctx.write("DISTINCT ")
		}
		err = serializeClauseList(args, ctx, "")
	})
	if err != nil {
		return err
	}
	if hasFilter {
		ctx.write(" FILTER ")
		ctx.parens(false, func() {
			ctx.write("WHERE ")
			err = serializeClause(v.Filter, ctx)
		})
		if err != nil {
			return err
		}
	}
	if hasOver {
		ctx.write(" OVER ")
		ctx.parens(false, func() { err = serializeClause(v.Over, ctx) })
		if err != nil {
			return err
		}
	}
	if hasFilter || hasOver {
		ctx.write(")")
	}
	return nil
}

func serializeCASE(v *clause.CASE, ctx *SerializationContext) error {
	var err error
	ctx.parens(false, func() {
		ctx.write("CASE")
		n := len(v.Args)
		for i, arg := range v.Args {
			if i%2 == 0 {
				if i < n-1 {
					ctx.write(" WHEN ")
				} else {
					ctx.write(" ELSE ")
				}
			} else {
				ctx.write(" THEN ")
			}
			if e := serializeClause(arg, ctx); e != nil {
				err = e
				return
			}
		}
		ctx.write(" END")
	})
	return err
}

func serializeVAR(v *clause.VAR, ctx *SerializationContext) error {
	ctx.write(ctx.Dialect.VarPrefix)
	switch ctx.Dialect.VarStyle {
	case catalog.VarPositional:
		ctx.variables = append(ctx.variables, v.Name)
	case catalog.VarNamed:
		ctx.recordVar(v.Name)
		ctx.write(string(v.Name))
	case catalog.VarNumbered:
		pos := ctx.recordVar(v.Name)
		ctx.write(strconv.Itoa(pos + 1))
	}
	return nil
}

// recordVar dedups named/numbered bind variables by name, returning the
// (possibly pre-existing) index, matching VAR._serialize's ctx.variables
// lookup-or-append.
func (c *SerializationContext) recordVar(name node.Symbol) int {
	for i, v := range c.variables {
		if v == name {
			return i
		}
	}
	c.variables = append(c.variables, name)
	return len(c.variables) - 1
}

func serializeWHERE(v *clause.WHERE, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	ctx.newline()
	ctx.write("WHERE")
	if and, ok := isAndOp(v.Condition); ok {
		return serializeLines(and.Args, ctx, "AND")
	}
	ctx.write(" ")
	return serializeClause(v.Condition, ctx)
}

func serializeHAVING(v *clause.HAVING, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	ctx.newline()
	ctx.write("HAVING")
	if and, ok := isAndOp(v.Condition); ok {
		return serializeLines(and.Args, ctx, "AND")
	}
	ctx.write(" ")
	return serializeClause(v.Condition, ctx)
}

func serializeGROUP(v *clause.GROUP, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	if len(v.By) > 0 {
		ctx.newline()
		ctx.write("GROUP BY")
		return serializeLines(v.By, ctx, "")
	}
	return nil
}

func serializeORDER(v *clause.ORDER, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	if len(v.By) > 0 {
		ctx.newline()
		ctx.write("ORDER BY")
		return serializeLines(v.By, ctx, "")
	}
	return nil
}

func serializeLIMIT(v *clause.LIMIT, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	if v.Offset == nil && v.Limit == nil {
		return nil
	}
	switch ctx.Dialect.LimitStyle {
	case catalog.LimitMySQL:
		ctx.newline()
		ctx.write("LIMIT ")
		if v.Offset != nil {
			ctx.write(fmt.Sprintf("%d, ", *v.Offset))
		}
		if v.Limit != nil {
			ctx.write(strconv.FormatInt(*v.Limit, 10))
		} else {
			ctx.write("18446744073709551615")
		}
	case catalog.LimitSQLite:
		ctx.newline()
		ctx.write("LIMIT ")
		if v.Limit != nil {
			ctx.write(strconv.FormatInt(*v.Limit, 10))
		} else {
			ctx.write("-1")
		}
		if v.Offset != nil {
			ctx.newline()
			ctx.write("OFFSET ")
			ctx.write(strconv.FormatInt(*v.Offset, 10))
		}
	default:
		if v.Offset != nil {
			ctx.newline()
			ctx.write("OFFSET ")
			ctx.write(strconv.FormatInt(*v.Offset, 10))
			if *v.Offset == 1 {
				ctx.write(" ROW")
			} else {
				ctx.write(" ROWS")
			}
		}
		if v.Limit != nil {
			ctx.newline()
			if v.Offset == nil {
				ctx.write("FETCH FIRST ")
			} else {
				ctx.write("FETCH NEXT ")
			}
			ctx.write(strconv.FormatInt(*v.Limit, 10))
			if *v.Limit == 1 {
				ctx.write(" ROW")
			} else {
				ctx.write(" ROWS")
			}
			if v.WithTies {
				ctx.write(" WITH TIES")
			} else {
				ctx.write(" ONLY")
			}
		}
	}
	return nil
}

func serializeJOIN(v *clause.JOIN, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	ctx.newline()

	isCross := !v.Left && !v.Right && isLitTrue(v.On)
	switch {
	case isCross:
		ctx.write("CROSS JOIN ")
	case v.Left && v.Right:
		ctx.write("FULL JOIN ")
	case v.Left:
		ctx.write("LEFT JOIN ")
	case v.Right:
		ctx.write("RIGHT JOIN ")
	default:
		ctx.write("INNER JOIN ")
	}
	if v.Lateral {
		ctx.write("LATERAL ")
	}
	if err := serializeClause(v.Joinee, ctx); err != nil {
		return err
	}
	if !isCross {
		ctx.write(" ON ")
		return serializeClause(v.On, ctx)
	}
	return nil
}

func serializePARTITION(v *clause.PARTITION, ctx *SerializationContext) error {
	addSpace := false
	if v.Over != nil {
		addSpace = true
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	if len(v.By) > 0 {
		if addSpace {
			ctx.write(" ")
		}
		addSpace = true
		ctx.write("PARTITION BY ")
		if err := serializeClauseList(v.By, ctx, ""); err != nil {
			return err
		}
	}
	if len(v.OrderBy) > 0 {
		if addSpace {
			ctx.write(" ")
		}
		addSpace = true
		ctx.write("ORDER BY ")
		if err := serializeClauseList(v.OrderBy, ctx, ""); err != nil {
			return err
		}
	}
	if v.Frame != nil {
		if addSpace {
			ctx.write(" ")
		}
		return serializeFrame(v.Frame, ctx)
	}
	return nil
}

func serializeFrameBoundary(e clause.FrameEdge, ctx *SerializationContext) error {
	switch {
	case e.Typ == clause.EdgeCurrentRow:
		ctx.write("CURRENT ROW")
	case e.Val == nil:
		ctx.write("UNBOUNDED " + e.Typ.String())
	default:
		if err := serializeClause(e.Val, ctx); err != nil {
			return err
		}
		ctx.write(" " + e.Typ.String())
	}
	return nil
}

func serializeFrame(f *clause.Frame, ctx *SerializationContext) error {
	ctx.write(f.Mode.String() + " BETWEEN ")
	if err := serializeFrameBoundary(f.Start, ctx); err != nil {
		return err
	}
	ctx.write(" AND ")
	if err := serializeFrameBoundary(f.End, ctx); err != nil {
		return err
	}
	if f.Exclude != nil {
		ctx.write(" EXCLUDE " + f.Exclude.String())
	}
	return nil
}

func serializeSELECT(v *clause.SELECT, ctx *SerializationContext) error {
	nestedOrig := ctx.nested
	if nestedOrig {
		ctx.level++
		ctx.write("(")
		ctx.newline()
	}
	ctx.nested = true
	ctx.write("SELECT")
	if v.Top != nil {
		ctx.write(fmt.Sprintf(" TOP %d", v.Top.Limit))
		if v.Top.WithTies {
			ctx.write(" WITH TIES")
		}
	}
	if v.Distinct {
		ctx.write(" DISTINCT")
	}
	if err := serializeLines(v.Args, ctx, ""); err != nil {
		return err
	}
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	ctx.nested = nestedOrig
	if nestedOrig {
		ctx.level--
		ctx.newline()
		ctx.write(")")
	}
	return nil
}

func serializeSORT(v *clause.SORT, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
		ctx.write(" ")
	}
	ctx.write(v.Value.String())
	switch v.Nulls {
	case clause.NullsFirst:
		ctx.write(" NULLS FIRST")
	case clause.NullsLast:
		ctx.write(" NULLS LAST")
	}
	return nil
}

func serializeUNION(v *clause.UNION, ctx *SerializationContext) error {
	nestedOrig := ctx.nested
	if nestedOrig {
		ctx.level++
		ctx.write("(")
		ctx.newline()
	}
	ctx.nested = false
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	for _, arg := range v.Args {
		ctx.newline()
		if v.All {
			ctx.write("UNION ALL")
		} else {
			ctx.write("UNION")
		}
		ctx.newline()
		if err := serializeClause(arg, ctx); err != nil {
			return err
		}
	}
	ctx.nested = nestedOrig
	if nestedOrig {
		ctx.level--
		ctx.newline()
		ctx.write(")")
	}
	return nil
}

func serializeVALUES(v *clause.VALUES, ctx *SerializationContext) error {
	nestedOrig := ctx.nested
	if nestedOrig {
		ctx.level++
		ctx.write("(")
		ctx.newline()
	}
	ctx.nested = true
	ctx.write("VALUES")
	n := len(v.Rows)
	if n == 1 {
		ctx.write(" ")
	} else if n > 1 {
		ctx.level++
		ctx.newline()
	}
	rowPrefix := ctx.Dialect.ValuesRowConstructor
	for i, row := range v.Rows {
		if i > 0 {
			ctx.write(",")
			ctx.newline()
		}
		if tup, ok := row.([]any); ok {
			if rowPrefix != "" {
				ctx.write(rowPrefix)
			}
			var err error
			ctx.parens(false, func() {
				for j, val := range tup {
					if j > 0 {
						ctx.write(", ")
					}
					if e := serializeLit(val, ctx); e != nil {
						err = e
						return
					}
				}
			})
			if err != nil {
				return err
			}
		} else if err := serializeLit(row, ctx); err != nil {
			return err
		}
	}
	if n > 1 {
		ctx.level--
	}
	ctx.nested = nestedOrig
	if nestedOrig {
		ctx.level--
		ctx.newline()
		ctx.write(")")
	}
	return nil
}

func serializeWINDOW(v *clause.WINDOW, ctx *SerializationContext) error {
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	if len(v.Args) > 0 {
		ctx.newline()
		ctx.write("WINDOW")
		return serializeLines(v.Args, ctx, "")
	}
	return nil
}

func serializeWITH(v *clause.WITH, ctx *SerializationContext) error {
	// a WITH nested as a subquery source wraps in parens like a SELECT
	// would; at the top level it prints bare.
	nestedOrig := ctx.nested
	if nestedOrig {
		ctx.level++
		ctx.write("(")
		ctx.newline()
	}
	ctx.nested = false
	if len(v.Args) > 0 {
		ctx.write("WITH ")
		if v.Recursive && ctx.Dialect.HasRecursiveAnnot {
			ctx.write("RECURSIVE ")
		}
		for i, arg := range v.Args {
			if i > 0 {
				ctx.write(", ")
				ctx.newline()
			}
			// WITH inverts the alias/body order an AS normally serializes in.
			asClause, isAS := arg.(*clause.AS)
			if isAS {
				serializeID(asClause.Name, ctx)
				if asClause.Columns != nil {
					cols := make([]clause.Clause, len(asClause.Columns))
					for j, c := range asClause.Columns {
						cols[j] = clause.NewID(c, nil)
					}
					ctx.parens(true, func() { serializeClauseList(cols, ctx, "") })
				}
				ctx.write(" AS ")
				arg = asClause.Over
			}
			ctx.nested = true
			if err := serializeClause(arg, ctx); err != nil {
				return err
			}
			ctx.nested = false
		}
		ctx.newline()
	}
	if v.Over != nil {
		if err := serializeClause(v.Over, ctx); err != nil {
			return err
		}
	}
	ctx.nested = nestedOrig
	if nestedOrig {
		ctx.level--
		ctx.newline()
		ctx.write(")")
	}
	return nil
}
