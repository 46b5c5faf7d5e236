package node

import "github.com/ananis25/funsql-go/catalog"

// FromSource is the closed union of what a From node may draw rows from:
// a bare symbol resolved against the CTE stack or catalog at annotate time,
// a concrete catalog table, an inline ValuesTable, or nothing at all.
type FromSource struct {
	Name   Symbol
	Table  *catalog.Table
	Values *catalog.ValuesTable
}

// FromName builds a From source that annotate resolves against the CTE
// stack, then the catalog, at render time.
func FromName(name Symbol) FromSource { return FromSource{Name: name} }

// FromTableSource builds a From source bound directly to a catalog table.
func FromTableSource(t *catalog.Table) FromSource { return FromSource{Table: t} }

// FromValuesSource builds an inline VALUES source.
func FromValuesSource(v *catalog.ValuesTable) FromSource { return FromSource{Values: v} }

// IsEmpty reports a "from nothing" source: a zero-column, one-row source.
func (f FromSource) IsEmpty() bool { return f.Name == "" && f.Table == nil && f.Values == nil }

// From is the root of every tabular pipeline.
type From struct {
	Source FromSource
}

func NewFrom(source FromSource) *From { return &From{Source: source} }

// Select produces the final column list of a pipeline stage.
type Select struct {
	Args     []Node
	LabelMap map[Symbol]int
	Over     Tabular
}

func NewSelect(over Tabular, args ...Node) (*Select, error) {
	lm, err := PopulateLabelMap(args)
	if err != nil {
		return nil, err
	}
	return &Select{Args: args, LabelMap: lm, Over: over}, nil
}

// Where filters rows flowing through Over by Condition.
type Where struct {
	Condition Node
	Over      Tabular
}

func NewWhere(over Tabular, cond Node) *Where { return &Where{Condition: cond, Over: over} }

// Join combines Over (left) with Joinee (right) under On, optionally
// outer on either side, optionally lateral. Skip (set by NewJoin) is a
// hint: link clears it as soon as a requested ref routes right; while it
// stays set, translate drops the right side.
type Join struct {
	Joinee  Tabular
	On      Node
	Left    bool
	Right   bool
	Skip    bool
	Lateral bool
	Over    Tabular
}

func NewJoin(over, joinee Tabular, on Node, left, right bool) *Join {
	return &Join{Joinee: joinee, On: on, Left: left, Right: right, Skip: true, Over: over}
}

// Group partitions rows by By and exposes them for Agg expressions
// downstream.
type Group struct {
	By       []Node
	LabelMap map[Symbol]int
	Over     Tabular
}

func NewGroup(over Tabular, by ...Node) (*Group, error) {
	lm, err := PopulateLabelMap(by)
	if err != nil {
		return nil, err
	}
	return &Group{By: by, LabelMap: lm, Over: over}, nil
}

// Partition computes window functions over By/OrderBy/Frame without
// collapsing rows, unlike Group.
type Partition struct {
	By      []Node
	OrderBy []Node
	Frame   *Frame
	Over    Tabular
}

func NewPartition(over Tabular, by, orderBy []Node, frame *Frame) *Partition {
	return &Partition{By: by, OrderBy: orderBy, Frame: frame, Over: over}
}

// Order sorts rows by By (a list of Sort nodes).
type Order struct {
	By   []Node
	Over Tabular
}

func NewOrder(over Tabular, by ...Node) *Order { return &Order{By: by, Over: over} }

// Limit restricts the row count/offset.
type Limit struct {
	Limit  *int64
	Offset *int64
	Over   Tabular
}

func NewLimit(over Tabular, limit, offset *int64) *Limit {
	return &Limit{Limit: limit, Offset: offset, Over: over}
}

// Append unions Over with each of Args (UNION ALL semantics).
type Append struct {
	Args []Tabular
	Over Tabular
}

func NewAppend(over Tabular, args ...Tabular) *Append { return &Append{Args: args, Over: over} }

// Define adds or replaces columns of Over.
type Define struct {
	Args     []Node
	LabelMap map[Symbol]int
	Over     Tabular
}

func NewDefine(over Tabular, args ...Node) (*Define, error) {
	lm, err := PopulateLabelMap(args)
	if err != nil {
		return nil, err
	}
	return &Define{Args: args, LabelMap: lm, Over: over}, nil
}

// Iterate builds a recursive CTE: Iterator is re-evaluated against the
// growing result of Over until it contributes no new rows.
type Iterate struct {
	Iterator Tabular
	Over     Tabular
}

func NewIterate(over, iterator Tabular) *Iterate { return &Iterate{Iterator: iterator, Over: over} }

// With attaches named CTEs (Args, each normally wrapped in As) visible to
// Over.
type With struct {
	Args         []Tabular
	Materialized map[Symbol]*bool
	LabelMap     map[Symbol]int
	Over         Tabular
}

func NewWith(over Tabular, args ...Tabular) (*With, error) {
	nodes := make([]Node, len(args))
	for i, a := range args {
		nodes[i] = a
	}
	lm, err := PopulateLabelMap(nodes)
	if err != nil {
		return nil, err
	}
	return &With{Args: args, LabelMap: lm, Over: over}, nil
}

// ExternalHandler is invoked, during translate, with a synthesized table
// descriptor for an external CTE and the fully assembled clause body.
type ExternalHandler func(table *catalog.Table, body any) error

// WithExternal is like With, but the CTE body is handed to Handler instead
// of being emitted inline in the final WITH clause.
type WithExternal struct {
	Args     []Tabular
	Schema   Symbol
	Handler  ExternalHandler
	LabelMap map[Symbol]int
	Over     Tabular
}

func NewWithExternal(over Tabular, schema Symbol, handler ExternalHandler, args ...Tabular) (*WithExternal, error) {
	nodes := make([]Node, len(args))
	for i, a := range args {
		nodes[i] = a
	}
	lm, err := PopulateLabelMap(nodes)
	if err != nil {
		return nil, err
	}
	return &WithExternal{Args: args, Schema: schema, Handler: handler, LabelMap: lm, Over: over}, nil
}

// As renames a node: in tabular position it introduces a namespace; in
// scalar position it labels a column.
type As struct {
	Name Symbol
	Over Node
}

func NewAs(name Symbol, over Node) *As { return &As{Name: name, Over: over} }

// Bind substitutes free Var references inside Over with Args, keyed by
// label. It is not a TabularNode subclass in the original (hence it needs
// the same ill-formed-check carve-out As does), but it always carries an
// Over and is annotated through the tabular path, producing an IntBind box.
type Bind struct {
	Args     []Node
	LabelMap map[Symbol]int
	Over     Tabular
}

func NewBind(over Tabular, args ...Node) (*Bind, error) {
	lm, err := PopulateLabelMap(args)
	if err != nil {
		return nil, err
	}
	return &Bind{Args: args, LabelMap: lm, Over: over}, nil
}

func (*Bind) node()    {}
func (*Bind) tabular() {}
func (*Bind) scalar()  {}

func (*From) node()         {}
func (*From) tabular()      {}
func (*Select) node()       {}
func (*Select) tabular()    {}
func (*Where) node()        {}
func (*Where) tabular()     {}
func (*Join) node()         {}
func (*Join) tabular()      {}
func (*Group) node()        {}
func (*Group) tabular()     {}
func (*Partition) node()    {}
func (*Partition) tabular() {}
func (*Order) node()        {}
func (*Order) tabular()     {}
func (*Limit) node()        {}
func (*Limit) tabular()     {}
func (*Append) node()       {}
func (*Append) tabular()    {}
func (*Define) node()       {}
func (*Define) tabular()    {}
func (*Iterate) node()      {}
func (*Iterate) tabular()   {}
func (*With) node()         {}
func (*With) tabular()      {}
func (*WithExternal) node()    {}
func (*WithExternal) tabular() {}

// As implements both Tabular and Scalar since it appears in either
// position; callers are expected to only place it where the surrounding
// node expects, and annotate.go enforces this with the same ill-formed
// check the original performs.
func (*As) node()    {}
func (*As) tabular() {}
func (*As) scalar()  {}
