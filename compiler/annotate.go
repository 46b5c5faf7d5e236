package compiler

import (
	"fmt"

	"github.com/ananis25/funsql-go/catalog"
	"github.com/ananis25/funsql-go/node"
	"github.com/ananis25/funsql-go/xerrors"
)

// AnnotateContext carries the state threaded through a single annotate
// pass: the catalog a From resolves against, the CTE stack built up by
// With/WithExternal/Iterate, the dense handle table assigned to boxes
// referenced by HandleBound, and the diagnostic path stack.
type AnnotateContext struct {
	Catalog *catalog.Catalog
	Boxes   []*Box

	handles  map[node.Node]int
	origin   map[Ann]node.Node
	cteNodes map[node.Symbol]Ann
	path     []string
}

// NewAnnotateContext starts a fresh annotate pass against cat.
func NewAnnotateContext(cat *catalog.Catalog) *AnnotateContext {
	return &AnnotateContext{
		Catalog:  cat,
		handles:  map[node.Node]int{},
		origin:   map[Ann]node.Node{},
		cteNodes: map[node.Symbol]Ann{},
	}
}

// makeHandle returns the dense handle assigned to an original node used as
// the anchor of a bound reference, allocating one on first use. Keyed by
// the original node's identity so a rebound Get/Agg and the box wrapping
// the same upstream stage agree on the handle.
func (c *AnnotateContext) makeHandle(n node.Node) int {
	if h, ok := c.handles[n]; ok {
		return h
	}
	h := len(c.handles)
	c.handles[n] = h
	return h
}

// handleFor maps a box's rewritten inner node back to the original it was
// annotated from, and returns that original's handle, or -1 when the node
// was never the anchor of a bound reference.
func (c *AnnotateContext) handleFor(inner Ann) int {
	if n, ok := c.origin[inner]; ok {
		if h, ok := c.handles[n]; ok {
			return h
		}
	}
	return -1
}

// pushCTE makes name resolve to box for the duration of the returned
// restore call, shadowing (and restoring) any previous binding.
func (c *AnnotateContext) pushCTE(name node.Symbol, box Ann) func() {
	prev, had := c.cteNodes[name]
	c.cteNodes[name] = box
	return func() {
		if had {
			c.cteNodes[name] = prev
		} else {
			delete(c.cteNodes, name)
		}
	}
}

func (c *AnnotateContext) pushPath(label node.Symbol) func() {
	c.path = append(c.path, string(label))
	return func() { c.path = c.path[:len(c.path)-1] }
}

func (c *AnnotateContext) wrap(err error) error {
	if err == nil {
		return nil
	}
	return xerrors.WithPath(err, c.path...)
}

// Annotate runs the annotate pass over the root of a query tree, returning
// its Box. This is the sole public entry point; resolve/link/translate
// each walk the returned Box tree via ctx.Boxes for their own bookkeeping.
func Annotate(root node.Tabular, ctx *AnnotateContext) (*Box, error) {
	return annotateTabular(root, ctx)
}

// annotateTabular wraps the per-type rewrite of n in a fresh Box, appending
// it to ctx.Boxes. Every tabular node, including the As/Bind carve-outs, is
// boxed exactly once here.
func annotateTabular(n node.Tabular, ctx *AnnotateContext) (*Box, error) {
	pop := ctx.pushPath(node.Label(n))
	defer pop()

	inner, err := annotateTabularInner(n, ctx)
	if err != nil {
		return nil, ctx.wrap(err)
	}
	ctx.origin[inner] = n
	box := &Box{Handle: -1, Over: inner}
	ctx.Boxes = append(ctx.Boxes, box)
	return box, nil
}

func annotateTabularInner(n node.Tabular, ctx *AnnotateContext) (Ann, error) {
	switch v := n.(type) {
	case *node.From:
		return annotateFrom(v, ctx)

	case *node.Select:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		args, err := annotateScalarList(v.Args, ctx)
		if err != nil {
			return nil, err
		}
		return &ASelect{Args: args, LabelMap: v.LabelMap, Over: over}, nil

	case *node.Where:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		cond, err := annotateScalar(v.Condition, ctx)
		if err != nil {
			return nil, err
		}
		return &AWhere{Condition: cond, Over: over}, nil

	case *node.Join:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		joinee, err := annotateTabular(v.Joinee, ctx)
		if err != nil {
			return nil, err
		}
		on, err := annotateScalar(v.On, ctx)
		if err != nil {
			return nil, err
		}
		return &IntJoin{
			Joinee:    joinee,
			On:        on,
			Left:      v.Left,
			Right:     v.Right,
			Skip:      v.Skip,
			Requested: v.Lateral,
			Over:      over,
		}, nil

	case *node.Group:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		by, err := annotateScalarList(v.By, ctx)
		if err != nil {
			return nil, err
		}
		return &AGroup{By: by, LabelMap: v.LabelMap, Over: over}, nil

	case *node.Partition:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		by, err := annotateScalarList(v.By, ctx)
		if err != nil {
			return nil, err
		}
		orderBy, err := annotateScalarList(v.OrderBy, ctx)
		if err != nil {
			return nil, err
		}
		return &APartition{By: by, OrderBy: orderBy, Frame: v.Frame, Over: over}, nil

	case *node.Order:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		by, err := annotateScalarList(v.By, ctx)
		if err != nil {
			return nil, err
		}
		return &AOrder{By: by, Over: over}, nil

	case *node.Limit:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		return &ALimit{Limit: v.Limit, Offset: v.Offset, Over: over}, nil

	case *node.Append:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		args := make([]Ann, len(v.Args))
		for i, a := range v.Args {
			ab, err := annotateTabular(a, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = ab
		}
		return &AAppend{Args: args, Over: over}, nil

	case *node.Define:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		args, err := annotateScalarList(v.Args, ctx)
		if err != nil {
			return nil, err
		}
		return &ADefine{Args: args, LabelMap: v.LabelMap, Over: over}, nil

	case *node.Iterate:
		return annotateIterate(v, ctx)

	case *node.With:
		return annotateWith(v, ctx)

	case *node.WithExternal:
		return annotateWithExternal(v, ctx)

	case *node.Bind:
		over, err := annotateTabular(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		args, err := annotateScalarList(v.Args, ctx)
		if err != nil {
			return nil, err
		}
		return &IntBind{Args: args, LabelMap: v.LabelMap, Owned: false, Over: over}, nil

	case *node.As:
		over, err := annotateTabular(asTabularOver(v), ctx)
		if err != nil {
			return nil, err
		}
		return &AAs{Name: v.Name, Over: over}, nil

	default:
		return nil, xerrors.IllFormed.New()
	}
}

// asTabularOver recovers the Tabular child of an As used in tabular
// position. node.As.Over is typed node.Node since As serves both positions;
// a tabular-position As is only ever constructed over a Tabular, matching
// the same carve-out Bind gets.
func asTabularOver(a *node.As) node.Tabular {
	t, ok := a.Over.(node.Tabular)
	if !ok {
		return nil
	}
	return t
}

func annotateFrom(v *node.From, ctx *AnnotateContext) (Ann, error) {
	src := v.Source
	switch {
	case src.IsEmpty():
		return &FromNothing{}, nil
	case src.Table != nil:
		return &FromTable{Name: src.Table.Name, Cols: append([]string{}, src.Table.Columns...)}, nil
	case src.Values != nil:
		for _, row := range src.Values.Rows {
			if len(row) != len(src.Values.Columns) {
				return nil, fmt.Errorf("values row has %d entries, want %d", len(row), len(src.Values.Columns))
			}
		}
		return &FromValues{Cols: append([]string{}, src.Values.Columns...), Rows: src.Values.Rows}, nil
	default:
		name := src.Name
		if box, ok := ctx.cteNodes[name]; ok {
			return &FromReference{Name: name, Over: box}, nil
		}
		if t, ok := ctx.Catalog.Get(string(name)); ok {
			return &FromTable{Name: t.Name, Cols: append([]string{}, t.Columns...)}, nil
		}
		return nil, xerrors.UndefinedTableRef.New(name)
	}
}

// annotateIterate splits Iterate into an IntIterate reading from a Knot,
// registering the knot under the iterator's own label so a From inside the
// iterator resolves back to it — the seed half of the recursive CTE.
func annotateIterate(v *node.Iterate, ctx *AnnotateContext) (Ann, error) {
	name := node.Label(v.Iterator)

	base, err := annotateTabular(v.Over, ctx)
	if err != nil {
		return nil, err
	}

	knot := &Knot{Name: name, IteratorName: name, Over: base}
	knotBox := &Box{Handle: -1, Over: knot}
	knot.Box = knotBox
	ctx.Boxes = append(ctx.Boxes, knotBox)

	restore := ctx.pushCTE(name, knotBox)
	startIdx := len(ctx.Boxes)
	iterBox, err := annotateTabular(v.Iterator, ctx)
	restore()
	if err != nil {
		return nil, err
	}
	knot.Iterator = iterBox
	knot.IteratorBoxes = append([]*Box{}, ctx.Boxes[startIdx:]...)

	return &IntIterate{Name: name, IteratorName: name, Over: knotBox}, nil
}

func annotateWith(v *node.With, ctx *AnnotateContext) (Ann, error) {
	args := make([]Ann, len(v.Args))
	var restores []func()
	defer func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}()
	for i, a := range v.Args {
		box, err := annotateTabular(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = box
		restores = append(restores, ctx.pushCTE(node.Label(a), box))
	}
	over, err := annotateTabular(v.Over, ctx)
	if err != nil {
		return nil, err
	}
	return &AWith{Args: args, Materialized: v.Materialized, LabelMap: v.LabelMap, Over: over}, nil
}

func annotateWithExternal(v *node.WithExternal, ctx *AnnotateContext) (Ann, error) {
	args := make([]Ann, len(v.Args))
	var restores []func()
	defer func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}()
	for i, a := range v.Args {
		box, err := annotateTabular(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = box
		restores = append(restores, ctx.pushCTE(node.Label(a), box))
	}
	over, err := annotateTabular(v.Over, ctx)
	if err != nil {
		return nil, err
	}
	return &AWithExternal{Args: args, Schema: v.Schema, Handler: v.Handler, LabelMap: v.LabelMap, Over: over}, nil
}

// annotateScalarList annotates each element of args in scalar position.
func annotateScalarList(args []node.Node, ctx *AnnotateContext) ([]Ann, error) {
	out := make([]Ann, len(args))
	for i, a := range args {
		ann, err := annotateScalar(a, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = ann
	}
	return out, nil
}

func annotateScalar(n node.Node, ctx *AnnotateContext) (Ann, error) {
	if n == nil {
		return nil, nil
	}
	switch v := n.(type) {
	case *node.Lit:
		return &ALit{Val: v.Val}, nil
	case *node.Var:
		return &AVar{Name: v.Name}, nil
	case *node.Get:
		return rebindOverChain(v.Over, &AGet{Name: v.Name}, ctx)
	case *node.Agg:
		args, err := annotateScalarList(v.Args, ctx)
		if err != nil {
			return nil, err
		}
		var filter Ann
		if v.Filter != nil {
			filter, err = annotateScalar(v.Filter, ctx)
			if err != nil {
				return nil, err
			}
		}
		leaf := &AAgg{Name: v.Name, Args: args, Distinct: v.Distinct, Filter: filter}
		return rebindOverChain(v.Over, leaf, ctx)
	case *node.Fun:
		args, err := annotateScalarList(v.Args, ctx)
		if err != nil {
			return nil, err
		}
		return &AFun{Name: v.Name, Args: args}, nil
	case *node.Sort:
		val, err := annotateScalar(v.Value, ctx)
		if err != nil {
			return nil, err
		}
		return &ASort{Value: val, Order: v.Order, Nulls: v.Nulls}, nil
	case *node.As:
		over, err := annotateScalar(v.Over, ctx)
		if err != nil {
			return nil, err
		}
		return &AAs{Name: v.Name, Over: over}, nil
	default:
		return nil, fmt.Errorf("node type %T is not valid in scalar position", n)
	}
}

// rebindOverChain inverts the over-chain of an isolated Get/Agg leaf: each
// Get ancestor, walked outward from leaf, becomes a NameBound layer (so the
// outermost qualifier — the one closest to the tabular anchor — ends up
// wrapping everything else); a non-Get, non-nil ancestor is the tabular
// node the whole chain is ultimately bound against, terminating in a
// HandleBound. The anchor is not annotated here: it is the same original
// node some upstream stage annotates (or already annotated) in the main
// walk, and the handle table keyed by node identity is what ties the two
// sides together. An anchor that never appears in the main walk leaves a
// dangling handle, reported as undefined-handle during link.
func rebindOverChain(over node.Node, leaf Ann, ctx *AnnotateContext) (Ann, error) {
	acc := leaf
	cur := over
	for {
		switch v := cur.(type) {
		case nil:
			return acc, nil
		case *node.Get:
			acc = &NameBound{Name: v.Name, Over: acc}
			cur = v.Over
		default:
			if _, ok := v.(node.Tabular); !ok {
				return nil, xerrors.IllFormed.New()
			}
			return &HandleBound{Handle: ctx.makeHandle(v), Over: acc}, nil
		}
	}
}
