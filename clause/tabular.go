package clause

// FROM introduces the source of a query: FROM(over) where over is usually
// an ID (table name) or AS (aliased subquery/table).
type FROM struct {
	Over Clause
}

func NewFROM(over any) *FROM { return &FROM{Over: castToClauseSkipNil(over)} }

func (v *FROM) Rebase(pre Clause) *FROM { return &FROM{Over: rebaseClause(v.Over, pre)} }

// JOIN attaches a joinee under an ON condition to whatever came before it.
type JOIN struct {
	Joinee  Clause
	On      Clause
	Left    bool
	Right   bool
	Lateral bool
	Over    Clause
}

type JoinOpt func(*JOIN)

func WithJoinLeft() JoinOpt    { return func(j *JOIN) { j.Left = true } }
func WithJoinRight() JoinOpt   { return func(j *JOIN) { j.Right = true } }
func WithJoinLateral() JoinOpt { return func(j *JOIN) { j.Lateral = true } }

func NewJOIN(joinee any, on any, over any, opts ...JoinOpt) *JOIN {
	j := &JOIN{
		Joinee: castToClause(joinee),
		On:     castToClause(on),
		Over:   castToClauseSkipNil(over),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (v *JOIN) Rebase(pre Clause) *JOIN {
	return &JOIN{
		Joinee:  v.Joinee,
		On:      v.On,
		Left:    v.Left,
		Right:   v.Right,
		Lateral: v.Lateral,
		Over:    rebaseClause(v.Over, pre),
	}
}

// WHERE filters rows by Condition.
type WHERE struct {
	Condition Clause
	Over      Clause
}

func NewWHERE(condition any, over any) *WHERE {
	return &WHERE{Condition: castToClause(condition), Over: castToClauseSkipNil(over)}
}

func (v *WHERE) Rebase(pre Clause) *WHERE {
	return &WHERE{Condition: v.Condition, Over: rebaseClause(v.Over, pre)}
}

// GROUP adds a GROUP BY to whatever came before it.
type GROUP struct {
	By   []Clause
	Over Clause
}

func NewGROUP(by []any, over any) *GROUP {
	return &GROUP{By: castToClauseList(by), Over: castToClauseSkipNil(over)}
}

func (v *GROUP) Rebase(pre Clause) *GROUP { return &GROUP{By: v.By, Over: rebaseClause(v.Over, pre)} }

// HAVING filters grouped rows by Condition.
type HAVING struct {
	Condition Clause
	Over      Clause
}

func NewHAVING(condition any, over any) *HAVING {
	return &HAVING{Condition: castToClause(condition), Over: castToClauseSkipNil(over)}
}

func (v *HAVING) Rebase(pre Clause) *HAVING {
	return &HAVING{Condition: v.Condition, Over: rebaseClause(v.Over, pre)}
}

// ORDER adds an ORDER BY to whatever came before it.
type ORDER struct {
	By   []Clause
	Over Clause
}

func NewORDER(by []any, over any) *ORDER {
	return &ORDER{By: castToClauseList(by), Over: castToClauseSkipNil(over)}
}

func (v *ORDER) Rebase(pre Clause) *ORDER { return &ORDER{By: v.By, Over: rebaseClause(v.Over, pre)} }

// LIMIT restricts the number of rows returned, serialized per dialect as
// MySQL-style LIMIT n,m, SQLite-style LIMIT/OFFSET, or the standard
// OFFSET/FETCH form.
type LIMIT struct {
	Limit    *int64
	Offset   *int64
	WithTies bool
	Over     Clause
}

func NewLIMIT(limit, offset *int64, withTies bool, over any) *LIMIT {
	return &LIMIT{Limit: limit, Offset: offset, WithTies: withTies, Over: castToClauseSkipNil(over)}
}

func (v *LIMIT) Rebase(pre Clause) *LIMIT {
	return &LIMIT{Limit: v.Limit, Offset: v.Offset, WithTies: v.WithTies, Over: rebaseClause(v.Over, pre)}
}

// FrameMode is the window-frame unit.
type FrameMode int

const (
	FrameRange FrameMode = iota
	FrameRows
	FrameGroups
)

func (m FrameMode) String() string {
	switch m {
	case FrameRange:
		return "RANGE"
	case FrameRows:
		return "ROWS"
	case FrameGroups:
		return "GROUPS"
	}
	return ""
}

// FrameExclude is a window-frame row exclusion.
type FrameExclude int

const (
	ExcludeNoOthers FrameExclude = iota
	ExcludeCurrentRow
	ExcludeGroup
	ExcludeTies
)

func (e FrameExclude) String() string {
	switch e {
	case ExcludeNoOthers:
		return "NO OTHERS"
	case ExcludeCurrentRow:
		return "CURRENT ROW"
	case ExcludeGroup:
		return "GROUP"
	case ExcludeTies:
		return "TIES"
	}
	return ""
}

// FrameEdgeSide selects which boundary of a window frame this FrameEdge is.
type FrameEdgeSide int

const (
	EdgePreceding FrameEdgeSide = iota
	EdgeCurrentRow
	EdgeFollowing
)

func (s FrameEdgeSide) String() string {
	switch s {
	case EdgePreceding:
		return "PRECEDING"
	case EdgeCurrentRow:
		return "CURRENT ROW"
	case EdgeFollowing:
		return "FOLLOWING"
	}
	return ""
}

// FrameEdge is one boundary (start or end) of a window Frame. Val is nil
// for UNBOUNDED or for the CURRENT ROW side.
type FrameEdge struct {
	Typ FrameEdgeSide
	Val Clause
}

// Frame is a window frame specification: `{mode} BETWEEN {start} AND {end}
// [EXCLUDE ...]`.
type Frame struct {
	Mode    FrameMode
	Start   FrameEdge
	End     FrameEdge
	Exclude *FrameExclude
}

// PARTITION is a window specification: PARTITION BY ... ORDER BY ... frame.
type PARTITION struct {
	By      []Clause
	OrderBy []Clause
	Frame   *Frame
	Over    Clause
}

func NewPARTITION(by []any, orderBy []any, frame *Frame, over any) *PARTITION {
	return &PARTITION{
		By:      castToClauseList(by),
		OrderBy: castToClauseList(orderBy),
		Frame:   frame,
		Over:    castToClauseSkipNil(over),
	}
}

func (v *PARTITION) Rebase(pre Clause) *PARTITION {
	return &PARTITION{By: v.By, OrderBy: v.OrderBy, Frame: v.Frame, Over: rebaseClause(v.Over, pre)}
}

// SelectTop models the MSSQL-style `SELECT TOP n` prefix.
type SelectTop struct {
	Limit    int64
	WithTies bool
}

// SELECT is the core projection clause.
type SELECT struct {
	Args     []Clause
	Distinct bool
	Top      *SelectTop
	Over     Clause
}

func NewSELECT(args []any, distinct bool, top *SelectTop, over any) *SELECT {
	return &SELECT{
		Args:     castToClauseList(args),
		Distinct: distinct,
		Top:      top,
		Over:     castToClauseSkipNil(over),
	}
}

func (v *SELECT) Rebase(pre Clause) *SELECT {
	return &SELECT{Args: v.Args, Distinct: v.Distinct, Top: v.Top, Over: rebaseClause(v.Over, pre)}
}

// ValueOrder is the sort direction for a SORT clause.
type ValueOrder int

const (
	OrderAsc ValueOrder = iota
	OrderDesc
)

func (o ValueOrder) String() string {
	if o == OrderDesc {
		return "DESC"
	}
	return "ASC"
}

// NullsOrder controls NULL placement for a SORT clause.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// SORT wraps a projected/order-by expression with ASC/DESC and NULLS
// FIRST/LAST.
type SORT struct {
	Value ValueOrder
	Nulls NullsOrder
	Over  Clause
}

func NewSORT(value ValueOrder, nulls NullsOrder, over any) *SORT {
	return &SORT{Value: value, Nulls: nulls, Over: castToClauseSkipNil(over)}
}

func (v *SORT) Rebase(pre Clause) *SORT {
	return &SORT{Value: v.Value, Nulls: v.Nulls, Over: rebaseClause(v.Over, pre)}
}

// UNION combines SELECTs, optionally UNION ALL.
type UNION struct {
	Args []Clause
	All  bool
	Over Clause
}

func NewUNION(args []any, all bool, over any) *UNION {
	return &UNION{Args: castToClauseList(args), All: all, Over: castToClauseSkipNil(over)}
}

func (v *UNION) Rebase(pre Clause) *UNION {
	return &UNION{Args: v.Args, All: v.All, Over: rebaseClause(v.Over, pre)}
}

// VALUES is an inline row constructor; each row is either a single scalar
// or a slice representing a tuple.
type VALUES struct {
	Rows []any
}

func NewVALUES(rows []any) *VALUES { return &VALUES{Rows: rows} }

// WINDOW declares named window specs referenced by OVER(name) elsewhere in
// the query.
type WINDOW struct {
	Args []Clause
	Over Clause
}

func NewWINDOW(args []any, over any) *WINDOW {
	return &WINDOW{Args: castToClauseList(args), Over: castToClauseSkipNil(over)}
}

func (v *WINDOW) Rebase(pre Clause) *WINDOW {
	return &WINDOW{Args: v.Args, Over: rebaseClause(v.Over, pre)}
}

// WITH introduces one or more common table expressions ahead of Over.
type WITH struct {
	Args      []Clause
	Recursive bool
	Over      Clause
}

func NewWITH(args []Clause, recursive bool, over any) *WITH {
	return &WITH{Args: args, Recursive: recursive, Over: castToClauseSkipNil(over)}
}

func (v *WITH) Rebase(pre Clause) *WITH {
	return &WITH{Args: v.Args, Recursive: v.Recursive, Over: rebaseClause(v.Over, pre)}
}

func (*FROM) clause()      {}
func (*JOIN) clause()      {}
func (*WHERE) clause()     {}
func (*GROUP) clause()     {}
func (*HAVING) clause()    {}
func (*ORDER) clause()     {}
func (*LIMIT) clause()     {}
func (*PARTITION) clause() {}
func (*SELECT) clause()    {}
func (*SORT) clause()      {}
func (*UNION) clause()     {}
func (*VALUES) clause()    {}
func (*WINDOW) clause()    {}
func (*WITH) clause()      {}
