package clause

import (
	"fmt"
	"strconv"
	"strings"
)

// Key returns a structural fingerprint of a clause, stable across separately
// built but identical trees. The translate pass dedups projected columns by
// (label, clause) equality; clauses hold interface-typed children and can't
// be map keys directly, so this string stands in for structural equality.
func Key(c Clause) string {
	var b strings.Builder
	writeKey(c, &b)
	return b.String()
}

func writeKey(c Clause, b *strings.Builder) {
	switch v := c.(type) {
	case nil:
		b.WriteString("~")
	case *ID:
		b.WriteString("id:")
		b.WriteString(string(v.Name))
		if v.Over != nil {
			b.WriteString("<")
			writeKey(v.Over, b)
		}
	case *AS:
		b.WriteString("as:")
		b.WriteString(string(v.Name))
		for _, col := range v.Columns {
			b.WriteString("," + string(col))
		}
		b.WriteString("<")
		writeKey(v.Over, b)
	case *LIT:
		b.WriteString("lit:")
		b.WriteString(fmt.Sprintf("%T=%v", v.Val, v.Val))
	case *VAR:
		b.WriteString("var:")
		b.WriteString(string(v.Name))
	case *OP:
		b.WriteString("op:")
		b.WriteString(string(v.Name))
		writeKeyList(v.Args, b)
	case *FUN:
		b.WriteString("fun:")
		b.WriteString(string(v.Name))
		writeKeyList(v.Args, b)
	case *AGG:
		b.WriteString("agg:")
		b.WriteString(string(v.Name))
		if v.Distinct {
			b.WriteString("!d")
		}
		writeKeyList(v.Args, b)
		if v.Filter != nil {
			b.WriteString("/f")
			writeKey(v.Filter, b)
		}
		if v.Over != nil {
			b.WriteString("/o")
			writeKey(v.Over, b)
		}
	case *CASE:
		b.WriteString("case")
		writeKeyList(v.Args, b)
	case *KW:
		b.WriteString("kw:")
		b.WriteString(string(v.Name))
		b.WriteString("<")
		writeKey(v.Over, b)
	case *NOTE:
		b.WriteString("note:")
		b.WriteString(v.Text)
		b.WriteString(strconv.FormatBool(v.Postfix))
		b.WriteString("<")
		writeKey(v.Over, b)
	case *SORT:
		b.WriteString("sort:")
		b.WriteString(v.Value.String())
		b.WriteString(strconv.Itoa(int(v.Nulls)))
		b.WriteString("<")
		writeKey(v.Over, b)
	case *FROM:
		b.WriteString("from<")
		writeKey(v.Over, b)
	case *JOIN:
		b.WriteString("join:")
		b.WriteString(strconv.FormatBool(v.Left) + strconv.FormatBool(v.Right) + strconv.FormatBool(v.Lateral))
		writeKey(v.Joinee, b)
		b.WriteString("/on")
		writeKey(v.On, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *WHERE:
		b.WriteString("where")
		writeKey(v.Condition, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *HAVING:
		b.WriteString("having")
		writeKey(v.Condition, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *GROUP:
		b.WriteString("group")
		writeKeyList(v.By, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *ORDER:
		b.WriteString("order")
		writeKeyList(v.By, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *LIMIT:
		b.WriteString("limit:")
		if v.Limit != nil {
			b.WriteString(strconv.FormatInt(*v.Limit, 10))
		}
		b.WriteString(",")
		if v.Offset != nil {
			b.WriteString(strconv.FormatInt(*v.Offset, 10))
		}
		b.WriteString(strconv.FormatBool(v.WithTies))
		b.WriteString("<")
		writeKey(v.Over, b)
	case *PARTITION:
		b.WriteString("partition")
		writeKeyList(v.By, b)
		b.WriteString("/ord")
		writeKeyList(v.OrderBy, b)
		if v.Frame != nil {
			b.WriteString(fmt.Sprintf("/fr%d", v.Frame.Mode))
			writeFrameEdgeKey(v.Frame.Start, b)
			writeFrameEdgeKey(v.Frame.End, b)
			if v.Frame.Exclude != nil {
				b.WriteString("/x" + strconv.Itoa(int(*v.Frame.Exclude)))
			}
		}
		b.WriteString("<")
		writeKey(v.Over, b)
	case *SELECT:
		b.WriteString("select:")
		b.WriteString(strconv.FormatBool(v.Distinct))
		if v.Top != nil {
			b.WriteString(fmt.Sprintf("top%d,%t", v.Top.Limit, v.Top.WithTies))
		}
		writeKeyList(v.Args, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *UNION:
		b.WriteString("union:")
		b.WriteString(strconv.FormatBool(v.All))
		writeKeyList(v.Args, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *VALUES:
		b.WriteString("values")
		for _, row := range v.Rows {
			b.WriteString(fmt.Sprintf("|%v", row))
		}
	case *WINDOW:
		b.WriteString("window")
		writeKeyList(v.Args, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	case *WITH:
		b.WriteString("with:")
		b.WriteString(strconv.FormatBool(v.Recursive))
		writeKeyList(v.Args, b)
		b.WriteString("<")
		writeKey(v.Over, b)
	default:
		b.WriteString(fmt.Sprintf("%T", c))
	}
}

func writeKeyList(items []Clause, b *strings.Builder) {
	b.WriteString("(")
	for i, c := range items {
		if i > 0 {
			b.WriteString(";")
		}
		writeKey(c, b)
	}
	b.WriteString(")")
}

func writeFrameEdgeKey(e FrameEdge, b *strings.Builder) {
	b.WriteString("/e" + strconv.Itoa(int(e.Typ)))
	if e.Val != nil {
		writeKey(e.Val, b)
	}
}
