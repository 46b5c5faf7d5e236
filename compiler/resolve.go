package compiler

import (
	"github.com/ananis25/funsql-go/node"
	"github.com/ananis25/funsql-go/xerrors"
)

// ResolveToplevel runs the resolve pass over every box an annotate pass
// recorded, deriving each box's BoxType bottom-up. Boxes are appended to
// ctx.Boxes in child-before-parent order by annotate, so a single linear
// pass suffices except for the Knot/IntIterate pair, which needs its own
// fixed-point loop.
func ResolveToplevel(ctx *AnnotateContext) error {
	return resolveBoxes(ctx.Boxes, ctx)
}

func resolveBoxes(boxes []*Box, ctx *AnnotateContext) error {
	for _, box := range boxes {
		if box.Over == nil {
			continue
		}
		handle := ctx.handleFor(box.Over)
		typ, err := resolve(box.Over, ctx)
		if err != nil {
			return err
		}
		box.Handle = handle
		box.Typ = typ.AddHandle(handle)
	}
	return nil
}

// labelsInOrder flattens a label map back into arg order. Label maps are
// dense (one entry per arg), so indexing by value reconstructs the
// original sequence.
func labelsInOrder(m map[node.Symbol]int) []node.Symbol {
	out := make([]node.Symbol, len(m))
	for s, i := range m {
		out[i] = s
	}
	return out
}

func boxType(a Ann) *BoxType {
	if b, ok := a.(*Box); ok {
		return b.Typ
	}
	return nil
}

// resolve derives the BoxType a single annotated node contributes, given
// the already-resolved types of the boxes it wraps. Each case below
// mirrors one @resolve.register (or @register_union_type(resolve))
// definition in resolve.py.
func resolve(a Ann, ctx *AnnotateContext) (*BoxType, error) {
	switch v := a.(type) {
	case *AAppend:
		t := boxType(v.Over)
		for _, arg := range v.Args {
			t = IntersectBox(t, boxType(arg))
		}
		return t, nil

	case *AAs:
		t := boxType(v.Over)
		row := NewRowType()
		row.Set(string(v.Name), RowField(t.Row))
		return &BoxType{Name: string(v.Name), Row: row, HandleMap: t.HandleMap}, nil

	case *Knot:
		t := boxType(v.Over)
		row := NewRowType()
		row.Set(string(v.Name), RowField(t.Row))
		return &BoxType{Name: string(v.Name), Row: row, HandleMap: t.HandleMap}, nil

	case *ADefine:
		t := boxType(v.Over)
		row := NewRowType()
		for _, f := range t.Row.Order {
			if _, overridden := v.LabelMap[node.Symbol(f)]; !overridden {
				row.Set(f, t.Row.Fields[f])
			}
		}
		for _, f := range labelsInOrder(v.LabelMap) {
			row.Set(string(f), Scalar)
		}
		row.Group = t.Row.Group
		return &BoxType{Name: t.Name, Row: row, HandleMap: t.HandleMap}, nil

	case *FromNothing:
		return EmptyBox(), nil

	case *FromReference:
		t := boxType(v.Over)
		ft, ok := t.Row.Fields[string(v.Name)]
		if !ok || ft.Kind != FieldRow {
			return nil, ctx.wrap(xerrors.InvalidTableRef.New(v.Name))
		}
		return &BoxType{Name: string(v.Name), Row: ft.Row, HandleMap: map[int]FieldType{}}, nil

	case *FromTable:
		row := NewRowType()
		for _, f := range v.Cols {
			row.Set(f, Scalar)
		}
		return &BoxType{Name: v.Name, Row: row, HandleMap: map[int]FieldType{}}, nil

	case *FromValues:
		row := NewRowType()
		for _, f := range v.Cols {
			row.Set(f, Scalar)
		}
		return &BoxType{Name: "values", Row: row, HandleMap: map[int]FieldType{}}, nil

	case *AGroup:
		t := boxType(v.Over)
		row := NewRowType()
		for _, f := range labelsInOrder(v.LabelMap) {
			row.Set(string(f), Scalar)
		}
		row.Group = RowField(t.Row)
		return &BoxType{Name: t.Name, Row: row, HandleMap: map[int]FieldType{}}, nil

	case *IntBind:
		return boxType(v.Over), nil
	case *ALimit:
		return boxType(v.Over), nil
	case *AOrder:
		return boxType(v.Over), nil
	case *AWhere:
		return boxType(v.Over), nil
	case *AWith:
		return boxType(v.Over), nil
	case *AWithExternal:
		return boxType(v.Over), nil

	case *IntIterate:
		box, ok := v.Over.(*Box)
		if !ok {
			return nil, ctx.wrap(xerrors.IllFormed.New())
		}
		if err := resolveKnot(box, ctx); err != nil {
			return nil, err
		}
		t := boxType(box)
		ft, ok := t.Row.Fields[string(v.IteratorName)]
		if !ok || ft.Kind != FieldRow {
			return nil, ctx.wrap(xerrors.InvalidTableRef.New(v.IteratorName))
		}
		return &BoxType{Name: string(v.Name), Row: ft.Row, HandleMap: map[int]FieldType{}}, nil

	case *IntJoin:
		lt := boxType(v.Over)
		rt := boxType(v.Joinee)
		t := UnionBox(lt, rt)
		v.Typ = t
		return t, nil

	case *APartition:
		t := boxType(v.Over)
		row := &RowType{Fields: t.Row.Fields, Order: t.Row.Order, Group: RowField(t.Row)}
		return &BoxType{Name: t.Name, Row: row, HandleMap: t.HandleMap}, nil

	case *ASelect:
		t := boxType(v.Over)
		row := NewRowType()
		for _, f := range labelsInOrder(v.LabelMap) {
			row.Set(string(f), Scalar)
		}
		return &BoxType{Name: t.Name, Row: row, HandleMap: map[int]FieldType{}}, nil

	default:
		return nil, ctx.wrap(xerrors.IllFormed.New())
	}
}

// resolveKnot narrows a recursive CTE's box type, intersecting it with the
// iterator's type and re-resolving the iterator's boxes, until the knot's
// row is a subset of the iterator's row, mirroring the fixed-point loop in
// resolve.py's resolve_knot.
func resolveKnot(box *Box, ctx *AnnotateContext) error {
	knot, ok := box.Over.(*Knot)
	if !ok {
		return ctx.wrap(xerrors.IllFormed.New())
	}
	iteratorTyp := boxType(knot.Iterator)
	for !IsSubsetRow(box.Typ.Row, iteratorTyp.Row) {
		box.Typ = IntersectBox(box.Typ, iteratorTyp)
		if err := resolveBoxes(knot.IteratorBoxes, ctx); err != nil {
			return err
		}
		iteratorTyp = boxType(knot.Iterator)
	}
	box.Typ = box.Typ.AddHandle(box.Handle)
	return nil
}
