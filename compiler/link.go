package compiler

import (
	"fmt"

	"github.com/ananis25/funsql-go/node"
	"github.com/ananis25/funsql-go/xerrors"
)

// LinkToplevel derives, box by box, which columns each box must actually
// provide to satisfy its consumers: every scalar field of the outermost
// box is assumed wanted, then link walks the box list in reverse
// (root-first) order pushing that demand down through each node's
// children.
func LinkToplevel(ctx *AnnotateContext) error {
	if len(ctx.Boxes) == 0 {
		return nil
	}
	root := ctx.Boxes[len(ctx.Boxes)-1]
	for _, f := range root.Typ.Row.Order {
		if root.Typ.Row.Fields[f].Kind == FieldScalar {
			root.Refs = append(root.Refs, &AGet{Name: node.Symbol(f)})
		}
	}
	return linkBoxes(reverseBoxes(ctx.Boxes), ctx)
}

func reverseBoxes(boxes []*Box) []*Box {
	out := make([]*Box, len(boxes))
	for i, b := range boxes {
		out[len(boxes)-1-i] = b
	}
	return out
}

func linkBoxes(boxes []*Box, ctx *AnnotateContext) error {
	for _, box := range boxes {
		if box.Over == nil {
			continue
		}
		refsP := make([]Ann, 0, len(box.Refs))
		for _, ref := range box.Refs {
			if hb, ok := ref.(*HandleBound); ok && hb.Handle == box.Handle {
				refsP = append(refsP, hb.Over)
			} else {
				refsP = append(refsP, ref)
			}
		}
		if err := link(box.Over, refsP, ctx); err != nil {
			return err
		}
	}
	return nil
}

func checkBox(a Ann) (*Box, error) {
	b, ok := a.(*Box)
	if !ok {
		return nil, fmt.Errorf("expected a Box, got %T", a)
	}
	return b, nil
}

// link pushes refs (the set of references the consumer of n needs) down
// into n's child box(es), resolving any reference n itself defines (Get
// against a Define's label map, Agg against a Group/Partition) along the
// way. Mirrors link.py's per-node-type @link.register definitions.
func link(a Ann, refs []Ann, ctx *AnnotateContext) error {
	switch v := a.(type) {
	case *AAppend:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		box.Refs = append(box.Refs, refs...)
		for _, argAnn := range v.Args {
			argBox, err := checkBox(argAnn)
			if err != nil {
				return err
			}
			argBox.Refs = append(argBox.Refs, refs...)
		}
		return nil

	case *AAs:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			switch r := ref.(type) {
			case *NameBound:
				box.Refs = append(box.Refs, r.Over)
			case *HandleBound:
				box.Refs = append(box.Refs, r)
			default:
				return ctx.wrap(xerrors.IllFormed.New())
			}
		}
		return nil

	case *ADefine:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		seen := map[node.Symbol]bool{}
		for _, ref := range refs {
			if g, ok := ref.(*AGet); ok {
				if idx, isDefined := v.LabelMap[g.Name]; isDefined {
					if !seen[g.Name] {
						seen[g.Name] = true
						if err := gatherNValidate(v.Args[idx], &box.Refs, box.Typ, ctx); err != nil {
							return err
						}
					}
					continue
				}
			}
			box.Refs = append(box.Refs, ref)
		}
		return nil

	case *FromNothing:
		return nil
	case *FromTable:
		return nil
	case *FromValues:
		return nil

	case *FromReference:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			box.Refs = append(box.Refs, &NameBound{Name: v.Name, Over: ref})
		}
		return nil

	case *AGroup:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		if err := gatherNValidateList(v.By, &box.Refs, box.Typ, ctx); err != nil {
			return err
		}
		for _, ref := range refs {
			agg, ok := ref.(*AAgg)
			if !ok {
				continue
			}
			if err := gatherNValidateList(agg.Args, &box.Refs, box.Typ, ctx); err != nil {
				return err
			}
			if agg.Filter != nil {
				if err := gatherNValidate(agg.Filter, &box.Refs, box.Typ, ctx); err != nil {
					return err
				}
			}
		}
		return nil

	case *ALimit:
		return linkPassthrough(v.Over, refs, ctx)
	case *AWith:
		return linkPassthrough(v.Over, refs, ctx)
	case *AWithExternal:
		return linkPassthrough(v.Over, refs, ctx)

	case *IntBind:
		if !v.Owned {
			discard := []Ann{}
			if err := gatherNValidateList(v.Args, &discard, EmptyBox(), ctx); err != nil {
				return err
			}
		}
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		box.Refs = append(box.Refs, refs...)
		return nil

	case *IntIterate:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			box.Refs = append(box.Refs, &NameBound{Name: v.IteratorName, Over: ref})
		}
		return nil

	case *IntJoin:
		return linkIntJoin(v, refs, ctx)

	case *Knot:
		return linkKnot(v, ctx)

	case *AOrder:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		box.Refs = append(box.Refs, refs...)
		return gatherNValidateList(v.By, &box.Refs, box.Typ, ctx)

	case *APartition:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			if agg, ok := ref.(*AAgg); ok {
				if err := gatherNValidateList(agg.Args, &box.Refs, box.Typ, ctx); err != nil {
					return err
				}
				if agg.Filter != nil {
					if err := gatherNValidate(agg.Filter, &box.Refs, box.Typ, ctx); err != nil {
						return err
					}
				}
			} else {
				box.Refs = append(box.Refs, ref)
			}
		}
		if err := gatherNValidateList(v.By, &box.Refs, box.Typ, ctx); err != nil {
			return err
		}
		return gatherNValidateList(v.OrderBy, &box.Refs, box.Typ, ctx)

	case *ASelect:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		return gatherNValidateList(v.Args, &box.Refs, box.Typ, ctx)

	case *AWhere:
		box, err := checkBox(v.Over)
		if err != nil {
			return err
		}
		box.Refs = append(box.Refs, refs...)
		return gatherNValidate(v.Condition, &box.Refs, box.Typ, ctx)

	default:
		return ctx.wrap(xerrors.IllFormed.New())
	}
}

func linkPassthrough(over Ann, refs []Ann, ctx *AnnotateContext) error {
	box, err := checkBox(over)
	if err != nil {
		return err
	}
	box.Refs = append(box.Refs, refs...)
	return nil
}

func linkIntJoin(v *IntJoin, refs []Ann, ctx *AnnotateContext) error {
	lbox, err := checkBox(v.Over)
	if err != nil {
		return err
	}
	rbox, err := checkBox(v.Joinee)
	if err != nil {
		return err
	}

	var lrefs, rrefs []Ann
	for _, ref := range refs {
		if routeBox(lbox.Typ, rbox.Typ, ref) < 0 {
			lrefs = append(lrefs, ref)
		} else {
			rrefs = append(rrefs, ref)
		}
	}
	if len(rrefs) != 0 {
		v.Skip = false
	}
	if v.Skip {
		lbox.Refs = append(lbox.Refs, lrefs...)
		return nil
	}

	if err := gatherNValidate(v.Joinee, &v.Lateral, lbox.Typ, ctx); err != nil {
		return err
	}
	lbox.Refs = append(lbox.Refs, v.Lateral...)

	var refsP []Ann
	if err := gatherNValidate(v.On, &refsP, v.Typ, ctx); err != nil {
		return err
	}
	for _, ref := range refsP {
		if routeBox(lbox.Typ, rbox.Typ, ref) < 0 {
			lbox.Refs = append(lbox.Refs, ref)
		} else {
			rbox.Refs = append(rbox.Refs, ref)
		}
	}
	lbox.Refs = append(lbox.Refs, lrefs...)
	rbox.Refs = append(rbox.Refs, rrefs...)
	return nil
}

// linkKnot propagates references to the recursive CTE's column set down
// into the iterator subtree, re-linking it each time a new reference
// surfaces, until a fixed point is reached, then pushes the accumulated
// set into the seed side.
func linkKnot(v *Knot, ctx *AnnotateContext) error {
	seedBox, err := checkBox(v.Over)
	if err != nil {
		return err
	}
	iteratorBox, err := checkBox(v.Iterator)
	if err != nil {
		return err
	}

	var refs []Ann
	seen := map[Ann]bool{}
	for {
		repeat := false
		for _, ref := range v.Box.Refs {
			nb, ok := ref.(*NameBound)
			if !ok {
				return ctx.wrap(xerrors.IllFormed.New())
			}
			if !seen[nb.Over] {
				refs = append(refs, ref)
				seen[nb.Over] = true
				repeat = true
			}
		}
		v.Box.Refs = append([]Ann{}, refs...)
		if !repeat {
			break
		}
		for _, ibox := range v.IteratorBoxes {
			ibox.Refs = nil
		}
		iteratorBox.Refs = append(iteratorBox.Refs, refs...)
		if err := linkBoxes(reverseBoxes(v.IteratorBoxes), ctx); err != nil {
			return err
		}
	}

	for _, ref := range refs {
		nb := ref.(*NameBound)
		seedBox.Refs = append(seedBox.Refs, nb.Over)
	}
	return nil
}

// gather collects the Get/Agg/HandleBound/NameBound leaves reachable from
// n, appending them to refs. It descends through As/Box/Sort/IntBind/Fun
// layers only; tabular nodes other than those stop the walk, which is what
// keeps a subquery's internal references out of its consumer's ref set
// while still surfacing the correlated args of a nested Bind.
func gather(n Ann, refs *[]Ann) {
	switch v := n.(type) {
	case nil:
		return
	case *AAs:
		gather(v.Over, refs)
	case *Box:
		gather(v.Over, refs)
	case *ASort:
		gather(v.Value, refs)
	case *IntBind:
		gather(v.Over, refs)
		gatherList(v.Args, refs)
		v.Owned = true
	case *AFun:
		gatherList(v.Args, refs)
	case *AAgg, *AGet, *HandleBound, *NameBound:
		*refs = append(*refs, n)
	default:
		// ALit, AVar, and every other leaf scalar carry no references.
	}
}

func gatherList(ns []Ann, refs *[]Ann) {
	for _, n := range ns {
		gather(n, refs)
	}
}

func gatherNValidate(n Ann, refs *[]Ann, t *BoxType, ctx *AnnotateContext) error {
	startAt := len(*refs)
	gather(n, refs)
	for _, ref := range (*refs)[startAt:] {
		if err := validateBox(t, ref, ctx); err != nil {
			return err
		}
	}
	return nil
}

func gatherNValidateList(ns []Ann, refs *[]Ann, t *BoxType, ctx *AnnotateContext) error {
	startAt := len(*refs)
	gatherList(ns, refs)
	for _, ref := range (*refs)[startAt:] {
		if err := validateBox(t, ref, ctx); err != nil {
			return err
		}
	}
	return nil
}

// validateBox checks ref against a box's type: a HandleBound routes
// through the handle map to a nested row, anything else validates
// directly against the box's own row.
func validateBox(t *BoxType, ref Ann, ctx *AnnotateContext) error {
	if hb, ok := ref.(*HandleBound); ok {
		ft, ok := t.HandleMap[hb.Handle]
		if !ok {
			return ctx.wrap(xerrors.UndefinedHandle.New())
		}
		if ft.Kind == FieldAmbiguous {
			return ctx.wrap(xerrors.AmbiguousHandle.New())
		}
		if ft.Kind != FieldRow {
			return ctx.wrap(xerrors.IllFormed.New())
		}
		return validateRow(ft.Row, hb.Over, ctx)
	}
	return validateRow(t.Row, ref, ctx)
}

func validateRow(t *RowType, ref Ann, ctx *AnnotateContext) error {
	for {
		nb, ok := ref.(*NameBound)
		if !ok {
			break
		}
		ft := t.Fields[string(nb.Name)]
		switch ft.Kind {
		case FieldRow:
			t = ft.Row
			ref = nb.Over
			continue
		case FieldEmpty:
			return ctx.wrap(xerrors.UndefinedName.New(nb.Name))
		case FieldScalar:
			return ctx.wrap(xerrors.UnexpectedScalarType.New(nb.Name))
		case FieldAmbiguous:
			return ctx.wrap(xerrors.AmbiguousName.New(nb.Name))
		}
	}

	switch v := ref.(type) {
	case *AGet:
		ft := t.Fields[string(v.Name)]
		switch ft.Kind {
		case FieldScalar:
			return nil
		case FieldEmpty:
			return ctx.wrap(xerrors.UndefinedName.New(v.Name))
		case FieldAmbiguous:
			return ctx.wrap(xerrors.AmbiguousName.New(v.Name))
		default:
			return ctx.wrap(xerrors.UnexpectedRowType.New(v.Name))
		}
	case *AAgg:
		switch t.Group.Kind {
		case FieldRow:
			return nil
		case FieldEmpty:
			return ctx.wrap(xerrors.UnexpectedAgg.New(v.Name))
		default:
			return ctx.wrap(xerrors.AmbiguousAgg.New(v.Name))
		}
	default:
		return ctx.wrap(xerrors.IllFormed.New())
	}
}

// routeBox decides whether ref (one of an IntJoin's references) was
// sourced from the left (-1) or right (1) side of the join.
func routeBox(lt, rt *BoxType, ref Ann) int {
	if hb, ok := ref.(*HandleBound); ok {
		ft, ok := lt.HandleMap[hb.Handle]
		if !ok || ft.Kind == FieldEmpty {
			return 1
		}
		return -1
	}
	return routeRow(lt.Row, rt.Row, ref)
}

func routeRow(lt, rt *RowType, ref Ann) int {
	for {
		nb, ok := ref.(*NameBound)
		if !ok {
			break
		}
		ltp := lt.Fields[string(nb.Name)]
		if ltp.Kind == FieldEmpty {
			return 1
		}
		rtp := rt.Fields[string(nb.Name)]
		if rtp.Kind == FieldEmpty {
			return -1
		}
		lt = ltp.Row
		rt = rtp.Row
		ref = nb.Over
	}
	switch v := ref.(type) {
	case *AGet:
		if _, ok := lt.Fields[string(v.Name)]; ok {
			return -1
		}
		return 1
	case *AAgg:
		if lt.Group.Kind == FieldRow {
			return -1
		}
		return 1
	default:
		return 1
	}
}
