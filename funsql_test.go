package funsql_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ananis25/funsql-go"
	"github.com/ananis25/funsql-go/catalog"
	"github.com/ananis25/funsql-go/clause"
	"github.com/ananis25/funsql-go/node"
)

func personTable() *catalog.Table {
	return &catalog.Table{Name: "person", Columns: []string{"person_id", "name", "year_of_birth"}}
}

func visitTable() *catalog.Table {
	return &catalog.Table{Name: "visit", Columns: []string{"visit_id", "person_id", "visit_start_date"}}
}

// flat collapses the serializer's newline/indent layout into single spaces
// so tests can assert whole queries on one line.
func flat(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func renderSQL(t *testing.T, root node.Tabular, d *catalog.Dialect) *funsql.Result {
	t.Helper()
	result, err := funsql.Render(root, 0, catalog.New(d))
	require.NoError(t, err)
	require.NotNil(t, result.SQL)
	return result
}

func TestRenderTrivialSelect(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	sel, err := node.NewSelect(from, node.NewGet("name", nil))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	assert.Equal(t,
		`SELECT "person_1"."name" FROM "person" AS "person_1"`,
		flat(result.SQL.Query))
}

func TestRenderFilter(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	where := node.NewWhere(from, node.NewFun(">", node.NewGet("year_of_birth", nil), node.NewLit(int64(2000))))
	sel, err := node.NewSelect(where, node.NewGet("name", nil))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	assert.Equal(t,
		`SELECT "person_1"."name" FROM "person" AS "person_1" WHERE ("person_1"."year_of_birth" > 2000)`,
		flat(result.SQL.Query))
}

func TestRenderGroupAndCount(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	group, err := node.NewGroup(from, node.NewGet("year_of_birth", nil))
	require.NoError(t, err)
	sel, err := node.NewSelect(group, node.NewGet("year_of_birth", nil), node.NewAgg("count"))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, `GROUP BY "person_1"."year_of_birth"`)
	assert.Contains(t, q, "count(*)")
	assert.Contains(t, q, `FROM "person" AS "person_1"`)
}

func TestRenderGroupWithoutAggregateDegradesToDistinct(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	group, err := node.NewGroup(from, node.NewGet("year_of_birth", nil))
	require.NoError(t, err)
	sel, err := node.NewSelect(group, node.NewGet("year_of_birth", nil))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, "SELECT DISTINCT")
	assert.NotContains(t, q, "GROUP BY")
}

func TestRenderHavingPromotion(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	group, err := node.NewGroup(from, node.NewGet("year_of_birth", nil))
	require.NoError(t, err)
	having := node.NewWhere(group, node.NewFun(">", node.NewAgg("count"), node.NewLit(int64(10))))
	sel, err := node.NewSelect(having, node.NewGet("year_of_birth", nil), node.NewAgg("count"))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, "GROUP BY")
	assert.Contains(t, q, "HAVING (count(*) > 10)")
	assert.NotContains(t, q, "WHERE (count")
}

func TestRenderInnerJoin(t *testing.T) {
	people := node.NewFrom(node.FromTableSource(personTable()))
	visits := node.NewAs("visit", node.NewFrom(node.FromTableSource(visitTable())))

	on := node.NewFun("=",
		node.NewGet("person_id", nil),
		node.NewGet("person_id", node.NewGet("visit", nil)),
	)
	join := node.NewJoin(people, visits, on, false, false)
	sel, err := node.NewSelect(join,
		node.NewGet("name", nil),
		node.NewGet("visit_start_date", node.NewGet("visit", nil)),
	)
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, `FROM "person" AS "person_1"`)
	assert.Contains(t, q, `INNER JOIN "visit" AS "visit_1" ON ("person_1"."person_id" = "visit_1"."person_id")`)
	assert.Contains(t, q, `"visit_1"."visit_start_date"`)
}

func TestRenderLateralJoin(t *testing.T) {
	people := node.NewFrom(node.FromTableSource(personTable()))

	visitFrom := node.NewFrom(node.FromTableSource(visitTable()))
	visitWhere := node.NewWhere(visitFrom, node.NewFun("=", node.NewGet("person_id", nil), node.NewVar("PID")))
	visitOrder := node.NewOrder(visitWhere, node.SortDesc(node.NewGet("visit_start_date", nil)))
	one := int64(1)
	visitLimit := node.NewLimit(visitOrder, &one, nil)
	pidArg := node.NewAs("PID", node.NewGet("person_id", nil))
	bound, err := node.NewBind(visitLimit, pidArg)
	require.NoError(t, err)
	last := node.NewAs("last", bound)

	join := node.NewJoin(people, last, node.NewLit(true), true, false)
	join.Lateral = true

	sel, err := node.NewSelect(join,
		node.NewGet("name", nil),
		node.NewGet("visit_start_date", node.NewGet("last", nil)),
	)
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, "LEFT JOIN LATERAL (")
	assert.Contains(t, q, `WHERE ("visit_1"."person_id" = "person_1"."person_id")`)
	assert.Contains(t, q, `ORDER BY "visit_1"."visit_start_date" DESC`)
	assert.Contains(t, q, "FETCH FIRST 1 ROW ONLY")
	assert.Contains(t, q, `AS "last_1" ON TRUE`)
}

func TestRenderRecursiveCTE(t *testing.T) {
	base, err := node.NewDefine(node.NewFrom(node.FromSource{}),
		node.NewAs("n", node.NewLit(int64(1))),
		node.NewAs("fact", node.NewLit(int64(1))),
	)
	require.NoError(t, err)

	iterFrom := node.NewFrom(node.FromName("factorial"))
	iterDefine, err := node.NewDefine(iterFrom,
		node.NewAs("n", node.NewFun("+", node.NewGet("n", nil), node.NewLit(int64(1)))),
		node.NewAs("fact", node.NewFun("*", node.NewGet("n", nil), node.NewGet("fact", nil))),
	)
	require.NoError(t, err)
	iterWhere := node.NewWhere(iterDefine, node.NewFun("<", node.NewGet("n", nil), node.NewLit(int64(10))))
	iterator := node.NewAs("factorial", iterWhere)

	iterate := node.NewIterate(base, iterator)
	sel, err := node.NewSelect(iterate, node.NewGet("n", nil), node.NewGet("fact", nil))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, `WITH RECURSIVE "factorial_1" ("n", "fact") AS (`)
	assert.Contains(t, q, "UNION ALL")
	assert.Contains(t, q, `FROM "factorial_1" AS "factorial_2"`)
	assert.Contains(t, q, `SELECT "factorial_1"."n", "factorial_1"."fact" FROM "factorial_1"`)
}

func TestRenderBoundHandleReference(t *testing.T) {
	people := node.NewFrom(node.FromTableSource(personTable()))
	// Get(over=people) references the upstream stage by node identity,
	// resolved through the handle table rather than by name.
	where := node.NewWhere(people, node.NewFun(">", node.NewGet("year_of_birth", people), node.NewLit(int64(2000))))
	sel, err := node.NewSelect(where, node.NewGet("name", nil))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	assert.Equal(t,
		`SELECT "person_1"."name" FROM "person" AS "person_1" WHERE ("person_1"."year_of_birth" > 2000)`,
		flat(result.SQL.Query))
}

func TestRenderWithCTE(t *testing.T) {
	cteBody := node.NewWhere(
		node.NewFrom(node.FromTableSource(personTable())),
		node.NewFun(">", node.NewGet("year_of_birth", nil), node.NewLit(int64(1950))),
	)
	cte := node.NewAs("boomers", cteBody)
	over, err := node.NewSelect(node.NewFrom(node.FromName("boomers")), node.NewGet("name", nil))
	require.NoError(t, err)
	with, err := node.NewWith(over, cte)
	require.NoError(t, err)

	result := renderSQL(t, with, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, `WITH "boomers_1" AS (`)
	assert.Contains(t, q, `FROM "boomers_1" AS "boomers_2"`)
}

func TestRenderWithMaterializedHint(t *testing.T) {
	cteBody := node.NewFrom(node.FromTableSource(personTable()))
	cte := node.NewAs("p", cteBody)
	over, err := node.NewSelect(node.NewFrom(node.FromName("p")), node.NewGet("name", nil))
	require.NoError(t, err)
	with, err := node.NewWith(over, cte)
	require.NoError(t, err)
	yes := true
	with.Materialized = map[node.Symbol]*bool{"p": &yes}

	result := renderSQL(t, with, catalog.Postgres())
	assert.Contains(t, flat(result.SQL.Query), "MATERIALIZED (")
}

func TestRenderWithExternalInvokesHandler(t *testing.T) {
	var gotTable *catalog.Table
	handler := func(tbl *catalog.Table, body any) error {
		gotTable = tbl
		return nil
	}
	cteBody, err := node.NewSelect(
		node.NewFrom(node.FromTableSource(personTable())),
		node.NewGet("person_id", nil), node.NewGet("name", nil),
	)
	require.NoError(t, err)
	cte := node.NewAs("ext", cteBody)
	over, err := node.NewSelect(node.NewFrom(node.FromName("ext")), node.NewGet("name", nil))
	require.NoError(t, err)
	withExt, err := node.NewWithExternal(over, "staging", handler, cte)
	require.NoError(t, err)

	result := renderSQL(t, withExt, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.NotContains(t, q, "WITH ", "external CTEs must not reach the emitted WITH")
	assert.Contains(t, q, `FROM "ext"`)
	require.NotNil(t, gotTable, "handler should have been invoked")
	assert.Equal(t, "ext", gotTable.Name)
	assert.Equal(t, "staging", gotTable.Schema)
	assert.Contains(t, gotTable.Columns, "name")
}

func TestRenderAppend(t *testing.T) {
	a, err := node.NewSelect(node.NewFrom(node.FromTableSource(personTable())), node.NewGet("person_id", nil))
	require.NoError(t, err)
	b, err := node.NewSelect(node.NewFrom(node.FromTableSource(visitTable())), node.NewGet("person_id", nil))
	require.NoError(t, err)
	app := node.NewAppend(a, b)

	result := renderSQL(t, app, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, "UNION ALL")
	assert.Contains(t, q, `SELECT "person_1"."person_id" FROM "person" AS "person_1"`)
	assert.Contains(t, q, `SELECT "visit_1"."person_id" FROM "visit" AS "visit_1"`)
}

func TestRenderPartitionWindow(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	part := node.NewPartition(from,
		[]node.Node{node.NewGet("year_of_birth", nil)},
		[]node.Node{node.SortDesc(node.NewGet("person_id", nil))},
		node.RowsFrame(node.UnboundedPreceding(), node.CurrentRow()),
	)
	sel, err := node.NewSelect(part, node.NewGet("person_id", nil), node.NewAgg("row_number"))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, "OVER (PARTITION BY")
	assert.Contains(t, q, "ROWS BETWEEN UNBOUNDED PRECEDING AND CURRENT ROW")
}

func TestRenderValues(t *testing.T) {
	vt := &catalog.ValuesTable{
		Columns: []string{"x", "y"},
		Rows:    [][]any{{int64(1), "a"}, {int64(2), "b"}},
	}
	sel, err := node.NewSelect(node.NewFrom(node.FromValuesSource(vt)), node.NewGet("x", nil))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, "VALUES")
	assert.Contains(t, q, `AS "values_1" ("x", "y")`)
}

func TestRenderIdentityWhereElided(t *testing.T) {
	base := node.NewFrom(node.FromTableSource(personTable()))
	plain, err := node.NewSelect(base, node.NewGet("name", nil))
	require.NoError(t, err)
	plainResult := renderSQL(t, plain, catalog.Postgres())

	base2 := node.NewFrom(node.FromTableSource(personTable()))
	trivial := node.NewWhere(base2, node.NewLit(true))
	filtered, err := node.NewSelect(trivial, node.NewGet("name", nil))
	require.NoError(t, err)
	filteredResult := renderSQL(t, filtered, catalog.Postgres())

	assert.Equal(t, plainResult.SQL.Query, filteredResult.SQL.Query,
		"a literally-true filter must not change the emitted SQL")
}

func TestRenderAndIdentityOperandDropped(t *testing.T) {
	base := node.NewFrom(node.FromTableSource(personTable()))
	where := node.NewWhere(base, node.NewFun("and",
		node.NewLit(true),
		node.NewFun(">", node.NewGet("year_of_birth", nil), node.NewLit(int64(2000))),
	))
	sel, err := node.NewSelect(where, node.NewGet("name", nil))
	require.NoError(t, err)

	result := renderSQL(t, sel, catalog.Postgres())
	q := flat(result.SQL.Query)
	assert.Contains(t, q, `WHERE ("person_1"."year_of_birth" > 2000)`)
	assert.NotContains(t, q, "TRUE AND")
}

func TestRenderVariablePreservation(t *testing.T) {
	build := func() node.Tabular {
		from := node.NewFrom(node.FromTableSource(personTable()))
		where := node.NewWhere(from, node.NewFun("and",
			node.NewFun(">", node.NewGet("year_of_birth", nil), node.NewVar("cutoff")),
			node.NewFun("!=", node.NewGet("name", nil), node.NewVar("excluded")),
			node.NewFun("<", node.NewGet("year_of_birth", nil), node.NewFun("+", node.NewVar("cutoff"), node.NewLit(int64(10)))),
		))
		sel, err := node.NewSelect(where, node.NewGet("name", nil))
		require.NoError(t, err)
		return sel
	}

	pg := renderSQL(t, build(), catalog.Postgres())
	assert.Equal(t, []node.Symbol{"cutoff", "excluded"}, pg.SQL.Variables,
		"numbered dialects dedupe repeated names")
	assert.Contains(t, pg.SQL.Query, "$1")
	assert.Contains(t, pg.SQL.Query, "$2")
	assert.NotContains(t, pg.SQL.Query, "$3")

	my := renderSQL(t, build(), catalog.MySQL())
	assert.Equal(t, []node.Symbol{"cutoff", "excluded", "cutoff"}, my.SQL.Variables,
		"positional dialects record every occurrence in order")
}

func TestRenderDialectRoundTrip(t *testing.T) {
	build := func() node.Tabular {
		from := node.NewFrom(node.FromTableSource(personTable()))
		sel, err := node.NewSelect(from, node.NewGet("name", nil))
		require.NoError(t, err)
		limit := int64(10)
		offset := int64(5)
		return node.NewLimit(sel, &limit, &offset)
	}

	pg := renderSQL(t, build(), catalog.Postgres())
	assert.Contains(t, flat(pg.SQL.Query), `"person_1"."name"`)
	assert.Contains(t, flat(pg.SQL.Query), "OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY")

	my := renderSQL(t, build(), catalog.MySQL())
	assert.Contains(t, flat(my.SQL.Query), "`person_1`.`name`")
	assert.Contains(t, flat(my.SQL.Query), "LIMIT 5, 10")

	lite := renderSQL(t, build(), catalog.SQLite())
	assert.Contains(t, flat(lite.SQL.Query), `"person_1"."name"`)
	assert.Contains(t, flat(lite.SQL.Query), "LIMIT 10 OFFSET 5")
}

func TestRenderUndefinedTableRef(t *testing.T) {
	from := node.NewFrom(node.FromName("nonexistent_table"))
	sel, err := node.NewSelect(from, node.NewGet("name", nil))
	require.NoError(t, err)

	_, err = funsql.Render(sel, 0, catalog.New(catalog.Postgres()))
	require.Error(t, err)
	assert.True(t, funsql.IsKind(funsql.ErrUndefinedTableRef, err), "got %v", err)
}

func TestRenderUndefinedName(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	sel, err := node.NewSelect(from, node.NewGet("missing", nil))
	require.NoError(t, err)

	_, err = funsql.Render(sel, 0, catalog.New(catalog.Postgres()))
	require.Error(t, err)
	assert.True(t, funsql.IsKind(funsql.ErrUndefinedName, err), "got %v", err)
}

func TestRenderUnexpectedAgg(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	sel, err := node.NewSelect(from, node.NewAgg("count"))
	require.NoError(t, err)

	_, err = funsql.Render(sel, 0, catalog.New(catalog.Postgres()))
	require.Error(t, err)
	assert.True(t, funsql.IsKind(funsql.ErrUnexpectedAgg, err), "got %v", err)
}

func TestRenderAmbiguousName(t *testing.T) {
	people := node.NewFrom(node.FromTableSource(personTable()))
	visits := node.NewFrom(node.FromTableSource(visitTable()))
	join := node.NewJoin(people, visits, node.NewLit(true), false, false)
	// person_id exists on both sides and was not qualified.
	sel, err := node.NewSelect(join, node.NewGet("person_id", nil))
	require.NoError(t, err)

	_, err = funsql.Render(sel, 0, catalog.New(catalog.Postgres()))
	require.Error(t, err)
	assert.True(t, funsql.IsKind(funsql.ErrAmbiguousName, err), "got %v", err)
}

func TestNewSelectDuplicateLabel(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	_, err := node.NewSelect(from, node.NewGet("name", nil), node.NewGet("name", nil))
	require.Error(t, err)
	assert.True(t, funsql.IsKind(funsql.ErrDuplicateLabel, err), "got %v", err)
}

func TestRenderCacheReturnsSameResult(t *testing.T) {
	cache := funsql.NewRenderCache()
	cat := catalog.New(catalog.Postgres())

	build := func() node.Tabular {
		from := node.NewFrom(node.FromTableSource(personTable()))
		sel, err := node.NewSelect(from, node.NewGet("name", nil))
		require.NoError(t, err)
		return sel
	}

	first, err := cache.RenderCached(build(), 0, cat)
	require.NoError(t, err)
	second, err := cache.RenderCached(build(), 0, cat)
	require.NoError(t, err)
	assert.Equal(t, first.SQL.Query, second.SQL.Query)
}

func TestRenderDepthStopsEarly(t *testing.T) {
	from := node.NewFrom(node.FromTableSource(personTable()))
	sel, err := node.NewSelect(from, node.NewGet("name", nil))
	require.NoError(t, err)

	result, err := funsql.Render(sel, funsql.DepthAnnotate, catalog.New(catalog.Postgres()))
	require.NoError(t, err)
	require.NotNil(t, result.Box)
	assert.Nil(t, result.SQL)
}

func TestRenderClauseDirect(t *testing.T) {
	sel := clause.NewSELECT(
		[]any{clause.NewID("x", nil)},
		false, nil,
		clause.NewFROM(clause.NewID("t", nil)),
	)
	s, err := funsql.RenderClause(sel, catalog.Postgres())
	require.NoError(t, err)
	assert.Equal(t, `SELECT "x" FROM "t"`, flat(s.Query))
}
