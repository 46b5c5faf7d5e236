package compiler

// FieldKind discriminates the closed FieldType union: a field is either
// absent (Empty), a plain column (Scalar), a nested namespace (handled by
// RowType instead — see FieldType.Row), or Ambiguous (collided during a
// union/intersect and can no longer be referenced unqualified). This
// resolves SPEC_FULL.md §5's open question in favor of an enum rather than
// three singleton classes, since Go has no singleton-class idiom.
type FieldKind int

const (
	FieldEmpty FieldKind = iota
	FieldScalar
	FieldAmbiguous
	FieldRow
)

// FieldType is one entry of a RowType.Fields map: either Scalar, Ambiguous,
// or a nested RowType (FieldKind == FieldRow, Row populated).
type FieldType struct {
	Kind FieldKind
	Row  *RowType
}

var Scalar = FieldType{Kind: FieldScalar}
var Ambiguous = FieldType{Kind: FieldAmbiguous}
var Empty = FieldType{Kind: FieldEmpty}

func RowField(r *RowType) FieldType { return FieldType{Kind: FieldRow, Row: r} }

// RowType describes the columns and nested namespaces visible at a box,
// plus the group row type available to aggregates (Empty if ungrouped,
// Ambiguous if grouping state collided). Order preserves field insertion
// order; SQL output column order depends on it, so every write goes
// through Set.
type RowType struct {
	Fields map[string]FieldType
	Order  []string
	Group  FieldType
}

func NewRowType() *RowType { return &RowType{Fields: map[string]FieldType{}} }

// Set inserts or replaces a field, keeping Order stable: a replaced field
// retains its original position, a new one appends.
func (r *RowType) Set(name string, ft FieldType) {
	if _, ok := r.Fields[name]; !ok {
		r.Order = append(r.Order, name)
	}
	r.Fields[name] = ft
}

// BoxType is the type attached to every Box after resolve: a name (for
// diagnostics/labeling), the visible row, and the handle_map back-reference
// table for Bind-style cross-scope references.
type BoxType struct {
	Name      string
	Row       *RowType
	HandleMap map[int]FieldType
}

// EmptyBox is the BoxType of a FromNothing source.
func EmptyBox() *BoxType {
	return &BoxType{Name: "_", Row: NewRowType(), HandleMap: map[int]FieldType{}}
}

// AddHandle returns a BoxType identical to b but with handle added to the
// handle map pointing at b's own row, or b unchanged if handle < 0.
func (b *BoxType) AddHandle(handle int) *BoxType {
	if handle < 0 {
		return b
	}
	hm := make(map[int]FieldType, len(b.HandleMap)+1)
	for k, v := range b.HandleMap {
		hm[k] = v
	}
	hm[handle] = RowField(b.Row)
	return &BoxType{Name: b.Name, Row: b.Row, HandleMap: hm}
}

// Intersect combines two FieldTypes the way Append (UNION ALL) requires:
// conservative, dropping anything not present on both sides.
func IntersectField(a, b FieldType) FieldType {
	if a.Kind == FieldAmbiguous || b.Kind == FieldAmbiguous {
		return Ambiguous
	}
	if a.Kind == FieldScalar && b.Kind == FieldScalar {
		return Scalar
	}
	if a.Kind == FieldRow && b.Kind == FieldRow {
		r := IntersectRow(a.Row, b.Row)
		if len(r.Fields) == 0 {
			return Empty
		}
		return RowField(r)
	}
	return Empty
}

func IntersectRow(a, b *RowType) *RowType {
	out := NewRowType()
	for _, name := range a.Order {
		fb, ok := b.Fields[name]
		if !ok {
			continue
		}
		ft := IntersectField(a.Fields[name], fb)
		if ft.Kind == FieldEmpty {
			continue
		}
		out.Set(name, ft)
	}
	out.Group = IntersectField(a.Group, b.Group)
	return out
}

func IntersectBox(a, b *BoxType) *BoxType {
	row := IntersectRow(a.Row, b.Row)
	hm := map[int]FieldType{}
	for h, ta := range a.HandleMap {
		if tb, ok := b.HandleMap[h]; ok {
			hm[h] = IntersectField(ta, tb)
		}
	}
	name := a.Name
	if a.Name != b.Name {
		name = "union"
	}
	return &BoxType{Name: name, Row: row, HandleMap: hm}
}

// Union combines two FieldTypes the way Join requires: keep fields unique
// to either side, mark collisions Ambiguous unless both are RowType (in
// which case recurse).
func UnionField(a, b FieldType) FieldType {
	if a.Kind == FieldEmpty {
		return b
	}
	if b.Kind == FieldEmpty {
		return a
	}
	if a.Kind == FieldRow && b.Kind == FieldRow {
		return RowField(UnionRow(a.Row, b.Row))
	}
	return Ambiguous
}

func UnionRow(a, b *RowType) *RowType {
	out := NewRowType()
	for _, name := range a.Order {
		out.Set(name, a.Fields[name])
	}
	for _, name := range b.Order {
		fb := b.Fields[name]
		if fa, ok := out.Fields[name]; ok {
			out.Set(name, UnionField(fa, fb))
		} else {
			out.Set(name, fb)
		}
	}
	switch {
	case a.Group.Kind != FieldEmpty && b.Group.Kind == FieldEmpty:
		out.Group = a.Group
	case b.Group.Kind != FieldEmpty && a.Group.Kind == FieldEmpty:
		out.Group = b.Group
	case a.Group.Kind == FieldEmpty && b.Group.Kind == FieldEmpty:
		out.Group = Empty
	default:
		out.Group = Ambiguous
	}
	return out
}

func UnionBox(a, b *BoxType) *BoxType {
	row := UnionRow(a.Row, b.Row)
	hm := map[int]FieldType{}
	for h, t := range a.HandleMap {
		hm[h] = t
	}
	for h, t := range b.HandleMap {
		if _, ok := hm[h]; ok {
			hm[h] = Ambiguous
		} else {
			hm[h] = t
		}
	}
	return &BoxType{Name: a.Name, Row: row, HandleMap: hm}
}

// IsSubset reports whether every field (and nested field, recursively) of a
// is present and compatible in b; used as the Knot fixed-point termination
// check.
func IsSubsetRow(a, b *RowType) bool {
	for _, name := range a.Order {
		fb, ok := b.Fields[name]
		if !ok {
			return false
		}
		if !IsSubsetField(a.Fields[name], fb) {
			return false
		}
	}
	return true
}

func IsSubsetField(a, b FieldType) bool {
	if a.Kind == FieldRow && b.Kind == FieldRow {
		return IsSubsetRow(a.Row, b.Row)
	}
	return a.Kind == b.Kind
}

func IsSubsetBox(a, b *BoxType) bool {
	if a.Name != b.Name {
		return false
	}
	if !IsSubsetRow(a.Row, b.Row) {
		return false
	}
	for h, ta := range a.HandleMap {
		tb, ok := b.HandleMap[h]
		if !ok || !IsSubsetField(ta, tb) {
			return false
		}
	}
	return true
}
