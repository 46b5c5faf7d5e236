package node

// Lit is a literal value. Allowed Go types mirror the Python LITERAL_TYPES
// tuple: int64, float64, string, bool, nil, time.Time (date/time/datetime
// distinguished by a wrapper in the compiler package), time.Duration.
type Lit struct {
	Val any
}

func NewLit(val any) *Lit { return &Lit{Val: val} }

// Var is a named bind-variable placeholder, substituted by an enclosing
// Bind or else left as a free variable for the caller to supply.
type Var struct {
	Name Symbol
}

func NewVar(name Symbol) *Var { return &Var{Name: name} }

// Get is a column reference. Over, when non-nil, is the namespace the
// column is qualified through (another Get, building a dotted chain).
type Get struct {
	Name Symbol
	Over Node
}

func NewGet(name Symbol, over Node) *Get { return &Get{Name: name, Over: over} }

// Fun is a scalar function or operator application.
type Fun struct {
	Name Symbol
	Args []Node
}

func NewFun(name Symbol, args ...Node) *Fun { return &Fun{Name: name, Args: args} }

// Agg is an aggregate function application, valid only inside a Group or
// Partition's reach. Over, like Get's, lets an aggregate be qualified
// through a namespace chain (rare, but symmetric with Get) and is what
// rebind walks during annotate.
type Agg struct {
	Name     Symbol
	Args     []Node
	Distinct bool
	Filter   Node
	Over     Node
}

func NewAgg(name Symbol, args ...Node) *Agg { return &Agg{Name: name, Args: args} }

// NullsOrder controls NULL placement within a Sort.
type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// ValueOrder is the sort direction for a Sort node.
type ValueOrder int

const (
	Asc ValueOrder = iota
	Desc
)

// Sort wraps a value with an ordering direction and null placement, used
// inside Order.By and Partition.OrderBy.
type Sort struct {
	Value Node
	Order ValueOrder
	Nulls NullsOrder
}

func NewSort(value Node, order ValueOrder, nulls NullsOrder) *Sort {
	return &Sort{Value: value, Order: order, Nulls: nulls}
}

func SortAsc(value Node) *Sort  { return NewSort(value, Asc, NullsDefault) }
func SortDesc(value Node) *Sort { return NewSort(value, Desc, NullsDefault) }

func (*Lit) node()   {}
func (*Lit) scalar() {}
func (*Var) node()   {}
func (*Var) scalar() {}
func (*Get) node()   {}
func (*Get) scalar() {}
func (*Fun) node()   {}
func (*Fun) scalar() {}
func (*Agg) node()   {}
func (*Agg) scalar() {}
func (*Sort) node()   {}
func (*Sort) scalar() {}
