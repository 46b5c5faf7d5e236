package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ananis25/funsql-go/catalog"
	"github.com/ananis25/funsql-go/clause"
)

func mustSerialize(t *testing.T, c clause.Clause, dialect *catalog.Dialect) *SQLString {
	t.Helper()
	s, err := Serialize(c, dialect)
	require.NoError(t, err)
	return s
}

func TestSerializeLiterals(t *testing.T) {
	cases := []struct {
		val  any
		want string
	}{
		{nil, "NULL"},
		{true, "TRUE"},
		{false, "FALSE"},
		{int64(42), "42"},
		{"it's", "'it''s'"},
	}
	for _, tc := range cases {
		s := mustSerialize(t, clause.NewLIT(tc.val), catalog.Postgres())
		assert.Equal(t, tc.want, s.Query, "serialize(%#v)", tc.val)
	}
}

func TestSerializeBoolWithoutBoolLiterals(t *testing.T) {
	d := catalog.Postgres()
	d.HasBoolLiterals = false
	s := mustSerialize(t, clause.NewLIT(true), d)
	assert.Equal(t, "(1 = 1)", s.Query)
}

func TestSerializeDateTimeWrappers(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	s := mustSerialize(t, clause.NewLIT(DateVal{day}), catalog.Postgres())
	assert.Equal(t, "DATE '2024-03-15'", s.Query)
}

func TestSerializeID(t *testing.T) {
	id := clause.NewID("col", clause.NewID("tbl", nil))
	s := mustSerialize(t, id, catalog.Postgres())
	assert.Equal(t, `"tbl"."col"`, s.Query)
}

func TestSerializeIDMySQLBackticks(t *testing.T) {
	s := mustSerialize(t, clause.NewID("col", nil), catalog.MySQL())
	assert.Equal(t, "`col`", s.Query)
}

func TestSerializeOPInfix(t *testing.T) {
	op := clause.NewOP("=", clause.NewID("a", nil), clause.NewLIT(int64(1)))
	s := mustSerialize(t, op, catalog.Postgres())
	assert.Equal(t, `("a" = 1)`, s.Query)
}

func TestSerializeFUN(t *testing.T) {
	fun := clause.NewFUN("lower", clause.NewID("name", nil))
	s := mustSerialize(t, fun, catalog.Postgres())
	assert.Equal(t, `lower("name")`, s.Query)
}

func TestSerializeCountStarShorthand(t *testing.T) {
	agg := clause.NewAGG("count", nil)
	s := mustSerialize(t, agg, catalog.Postgres())
	assert.Equal(t, "count(*)", s.Query)
}

func TestSerializeAggFilterAndOver(t *testing.T) {
	part := clause.NewPARTITION([]any{clause.NewID("g", nil)}, nil, nil, nil)
	agg := clause.NewAGG("sum", []any{clause.NewID("x", nil)},
		clause.WithFilter(clause.NewOP(">", clause.NewID("x", nil), clause.NewLIT(int64(0)))),
		clause.WithAggOver(part),
	)
	s := mustSerialize(t, agg, catalog.Postgres())
	assert.Contains(t, s.Query, "FILTER (WHERE ")
	assert.Contains(t, s.Query, "OVER (PARTITION BY ")
}

func TestSerializeWhereFlattensAnd(t *testing.T) {
	cond := clause.NewOP("and",
		clause.NewOP(">", clause.NewID("a", nil), clause.NewLIT(int64(0))),
		clause.NewOP("<", clause.NewID("a", nil), clause.NewLIT(int64(10))),
	)
	where := clause.NewWHERE(cond, clause.NewFROM(clause.NewID("t", nil)))
	s := mustSerialize(t, where, catalog.Postgres())
	assert.Contains(t, s.Query, "WHERE")
}

func TestSerializeVarPositionalAlwaysAppends(t *testing.T) {
	sel := clause.NewSELECT(
		[]any{clause.NewVAR("x"), clause.NewVAR("x")},
		false, nil, nil,
	)
	s := mustSerialize(t, sel, catalog.MySQL())
	assert.Len(t, s.Variables, 2, "positional dialect appends every occurrence")
}

func TestSerializeVarNumberedDedupesByName(t *testing.T) {
	sel := clause.NewSELECT(
		[]any{clause.NewVAR("x"), clause.NewVAR("x")},
		false, nil, nil,
	)
	s := mustSerialize(t, sel, catalog.Postgres())
	assert.Len(t, s.Variables, 1, "numbered dialect dedupes repeated var names")
	assert.Contains(t, s.Query, "$1")
	assert.NotContains(t, s.Query, "$2")
}

func TestSerializeLimitDialectShapes(t *testing.T) {
	limit := int64(10)
	offset := int64(5)

	s := mustSerialize(t, clause.NewLIMIT(&limit, &offset, false, nil), catalog.Postgres())
	assert.Contains(t, s.Query, "OFFSET 5 ROWS")
	assert.Contains(t, s.Query, "FETCH NEXT 10 ROWS ONLY")

	s = mustSerialize(t, clause.NewLIMIT(&limit, &offset, false, nil), catalog.MySQL())
	assert.Contains(t, s.Query, "LIMIT 5, 10")

	s = mustSerialize(t, clause.NewLIMIT(&limit, &offset, false, nil), catalog.SQLite())
	assert.Contains(t, s.Query, "LIMIT 10")
	assert.Contains(t, s.Query, "OFFSET 5")
}

func TestSerializeMySQLLimitDefaultsCountWhenOffsetOnly(t *testing.T) {
	offset := int64(5)
	s := mustSerialize(t, clause.NewLIMIT(nil, &offset, false, nil), catalog.MySQL())
	assert.Contains(t, s.Query, "18446744073709551615")
}

func TestSerializeJoinCrossWhenUnconditional(t *testing.T) {
	join := clause.NewJOIN(clause.NewID("b", nil), clause.NewLIT(true), clause.NewFROM(clause.NewID("a", nil)))
	s := mustSerialize(t, join, catalog.Postgres())
	assert.Contains(t, s.Query, "CROSS JOIN")
}

func TestSerializeWithRecursiveGating(t *testing.T) {
	as := clause.NewAS("cte", nil, clause.NewSELECT([]any{clause.NewLIT(int64(1))}, false, nil, nil))
	with := clause.NewWITH([]clause.Clause{as}, true, clause.NewFROM(clause.NewID("cte", nil)))
	s := mustSerialize(t, with, catalog.Postgres())
	assert.Contains(t, s.Query, "WITH RECURSIVE")
}

func TestSerializeNestedWithParenthesizes(t *testing.T) {
	as := clause.NewAS("cte", nil, clause.NewSELECT([]any{clause.NewLIT(int64(1))}, false, nil, nil))
	inner := clause.NewWITH([]clause.Clause{as},
		false,
		clause.NewSELECT([]any{clause.NewID("x", nil)}, false, nil, clause.NewFROM(clause.NewID("cte", nil))),
	)
	outer := clause.NewSELECT([]any{clause.NewOP("*")},
		false, nil,
		clause.NewFROM(clause.NewAS("t", nil, inner)),
	)
	s := mustSerialize(t, outer, catalog.Postgres())
	assert.Contains(t, s.Query, `(`)
	assert.Contains(t, s.Query, `) AS "t"`)
}

func TestSerializeValuesRowConstructorPerDialect(t *testing.T) {
	vals := clause.NewVALUES([]any{
		[]any{int64(1), "a"},
		[]any{int64(2), "b"},
	})
	s := mustSerialize(t, vals, catalog.MySQL())
	assert.Contains(t, s.Query, "ROW(1, 'a')")

	s = mustSerialize(t, vals, catalog.Postgres())
	assert.Contains(t, s.Query, "(1, 'a')")
	assert.NotContains(t, s.Query, "ROW(")
}

func TestSerializeFrame(t *testing.T) {
	one := clause.NewLIT(int64(1))
	ex := clause.ExcludeCurrentRow
	part := clause.NewPARTITION(nil, []any{clause.NewID("d", nil)}, &clause.Frame{
		Mode:    clause.FrameRows,
		Start:   clause.FrameEdge{Typ: clause.EdgePreceding, Val: one},
		End:     clause.FrameEdge{Typ: clause.EdgeCurrentRow},
		Exclude: &ex,
	}, nil)
	s := mustSerialize(t, part, catalog.Postgres())
	assert.Contains(t, s.Query, "ROWS BETWEEN 1 PRECEDING AND CURRENT ROW EXCLUDE CURRENT ROW")
}
