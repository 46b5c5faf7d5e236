package compiler

import "github.com/ananis25/funsql-go/node"

// Ann is the closed union of annotated IR nodes produced by the annotate
// pass: normalized tabular nodes (always Box-wrapped) and rebound scalar
// references (NameBound/HandleBound chains terminating in a Get or Agg).
// Like node.Node, dispatch over this union is by type switch, not by a
// method registry.
type Ann interface {
	ann()
}

// Box wraps every tabular node after annotate. Typ is filled in by resolve,
// Refs by link.
type Box struct {
	Typ    *BoxType
	Handle int
	Refs   []Ann
	Over   Ann
}

// NameBound inverts a Get chain: `Get.visit.person_id` becomes
// NameBound{Name: "visit", Over: &AGet{Name: "person_id"}}, i.e. Name is
// the outermost qualifier and Over is the rest of the reference, resolved
// inside the namespace Name selects.
type NameBound struct {
	Name node.Symbol
	Over Ann
}

// HandleBound terminates a Get/Agg chain whose topmost ancestor is a
// tabular node, referencing it by its assigned dense handle instead of by
// name.
type HandleBound struct {
	Handle int
	Over   Ann
}

// FromNothing is a zero-column, one-row source.
type FromNothing struct{}

// FromTable is a From resolved directly against the catalog.
type FromTable struct {
	Name string
	Cols []string
}

// FromReference is a From resolved against the CTE stack.
type FromReference struct {
	Name node.Symbol
	Over Ann
}

// FromValues is a From resolved to an inline VALUES source.
type FromValues struct {
	Cols []string
	Rows [][]any
}

// IntBind is the annotated form of node.Bind: Owned flips to true once link
// gathers through it, signaling its Args no longer need independent
// validation against the empty box type.
type IntBind struct {
	Args     []Ann
	LabelMap map[node.Symbol]int
	Owned    bool
	Over     Ann
}

// Knot is one half of a recursive CTE: Box is the placeholder the
// iterator's FromReference resolves against, deliberately forming a cycle
// with the enclosing Box (Box.Over eventually reaches this Knot, and this
// Knot's Box field is that same Box). The cycle is expressed with a plain
// pointer field rather than an arena index since Go's GC handles reference
// cycles natively; SPEC_FULL.md's design note about arenas/generational
// indices applies to languages without tracing GC, which Go has.
type Knot struct {
	Iterator      Ann
	Box           *Box
	Name          node.Symbol
	IteratorName  node.Symbol
	IteratorBoxes []*Box
	Over          Ann
}

// IntIterate is the other half: the user-visible result of Iterate, read
// from the knot's iterator row under IteratorName.
type IntIterate struct {
	Name         node.Symbol
	IteratorName node.Symbol
	Over         Ann
}

// IntJoin is the annotated form of node.Join. Requested records the user's
// original Lateral flag; Lateral is filled in by link with the references
// gathered from the joinee (through its Bind arguments) that the left side
// must provide; a non-empty Lateral makes the join render as LATERAL
// regardless of what was requested.
type IntJoin struct {
	Joinee    Ann
	On        Ann
	Left      bool
	Right     bool
	Skip      bool
	Requested bool
	Lateral   []Ann
	Typ       *BoxType
	Over      Ann
}

// AGet is the terminal leaf of a rebound Get chain (see rebind in
// annotate.go): a bare column name with no further namespace qualifier.
type AGet struct {
	Name node.Symbol
}

func (*AGet) ann() {}

func (*Box) ann()           {}
func (*NameBound) ann()     {}
func (*HandleBound) ann()   {}
func (*FromNothing) ann()   {}
func (*FromTable) ann()     {}
func (*FromReference) ann() {}
func (*FromValues) ann()    {}
func (*IntBind) ann()       {}
func (*Knot) ann()          {}
func (*IntIterate) ann()    {}
func (*IntJoin) ann()       {}

// passthrough annotated forms that reuse the same shape as their node
// counterpart but over Ann children instead of node.Node children.
type AAs struct {
	Name node.Symbol
	Over Ann
}
type ASelect struct {
	Args     []Ann
	LabelMap map[node.Symbol]int
	Over     Ann
}
type AWhere struct {
	Condition Ann
	Over      Ann
}
type AGroup struct {
	By       []Ann
	LabelMap map[node.Symbol]int
	Over     Ann
}
type APartition struct {
	By      []Ann
	OrderBy []Ann
	Frame   *node.Frame
	Over    Ann
}
type AOrder struct {
	By   []Ann
	Over Ann
}
type ALimit struct {
	Limit  *int64
	Offset *int64
	Over   Ann
}
type AAppend struct {
	Args []Ann
	Over Ann
}
type ADefine struct {
	Args     []Ann
	LabelMap map[node.Symbol]int
	Over     Ann
}
type AWith struct {
	Args         []Ann
	Materialized map[node.Symbol]*bool
	LabelMap     map[node.Symbol]int
	Over         Ann
}
type AWithExternal struct {
	Args     []Ann
	Schema   node.Symbol
	Handler  node.ExternalHandler
	LabelMap map[node.Symbol]int
	Over     Ann
}
type AFun struct {
	Name node.Symbol
	Args []Ann
}
type AAgg struct {
	Name     node.Symbol
	Args     []Ann
	Distinct bool
	Filter   Ann
}
type ASort struct {
	Value Ann
	Order node.ValueOrder
	Nulls node.NullsOrder
}
type ALit struct {
	Val any
}
type AVar struct {
	Name node.Symbol
}

func (*AAs) ann()           {}
func (*ASelect) ann()       {}
func (*AWhere) ann()        {}
func (*AGroup) ann()        {}
func (*APartition) ann()    {}
func (*AOrder) ann()        {}
func (*ALimit) ann()        {}
func (*AAppend) ann()       {}
func (*ADefine) ann()       {}
func (*AWith) ann()         {}
func (*AWithExternal) ann() {}
func (*AFun) ann()          {}
func (*AAgg) ann()          {}
func (*ASort) ann()         {}
func (*ALit) ann()          {}
func (*AVar) ann()          {}
