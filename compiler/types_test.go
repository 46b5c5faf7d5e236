package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersectField(t *testing.T) {
	assert.Equal(t, FieldScalar, IntersectField(Scalar, Scalar).Kind)
	assert.Equal(t, FieldEmpty, IntersectField(Scalar, Empty).Kind)
	assert.Equal(t, FieldAmbiguous, IntersectField(Ambiguous, Scalar).Kind)
}

func TestIntersectRowKeepsOnlySharedFields(t *testing.T) {
	a := NewRowType()
	a.Set("x", Scalar)
	a.Set("y", Scalar)
	b := NewRowType()
	b.Set("x", Scalar)
	b.Set("z", Scalar)

	out := IntersectRow(a, b)
	require.Contains(t, out.Fields, "x")
	assert.NotContains(t, out.Fields, "y")
	assert.NotContains(t, out.Fields, "z")
	assert.Equal(t, []string{"x"}, out.Order)
}

func TestUnionFieldMarksCollisionAmbiguous(t *testing.T) {
	assert.Equal(t, FieldAmbiguous, UnionField(Scalar, Scalar).Kind)
	assert.Equal(t, FieldScalar, UnionField(Empty, Scalar).Kind)
}

func TestUnionRowKeepsBothSidesFields(t *testing.T) {
	a := NewRowType()
	a.Set("x", Scalar)
	b := NewRowType()
	b.Set("y", Scalar)

	out := UnionRow(a, b)
	assert.Equal(t, FieldScalar, out.Fields["x"].Kind)
	assert.Equal(t, FieldScalar, out.Fields["y"].Kind)
	assert.Equal(t, []string{"x", "y"}, out.Order)
}

func TestRowTypeSetPreservesInsertionOrder(t *testing.T) {
	r := NewRowType()
	r.Set("b", Scalar)
	r.Set("a", Scalar)
	r.Set("b", Ambiguous)
	assert.Equal(t, []string{"b", "a"}, r.Order, "a replaced field keeps its slot")
	assert.Equal(t, FieldAmbiguous, r.Fields["b"].Kind)
}

func TestIsSubsetRow(t *testing.T) {
	small := NewRowType()
	small.Set("x", Scalar)
	big := NewRowType()
	big.Set("x", Scalar)
	big.Set("y", Scalar)

	assert.True(t, IsSubsetRow(small, big))
	assert.False(t, IsSubsetRow(big, small))
}

func TestIsSubsetRowNestedRow(t *testing.T) {
	innerSmall := NewRowType()
	innerSmall.Set("a", Scalar)
	innerBig := NewRowType()
	innerBig.Set("a", Scalar)
	innerBig.Set("b", Scalar)

	small := NewRowType()
	small.Set("nested", RowField(innerSmall))
	big := NewRowType()
	big.Set("nested", RowField(innerBig))

	assert.True(t, IsSubsetRow(small, big), "nested row subset check should recurse into RowField")
}

func TestIsSubsetBoxRequiresMatchingName(t *testing.T) {
	a := &BoxType{Name: "t1", Row: NewRowType(), HandleMap: map[int]FieldType{}}
	b := &BoxType{Name: "t2", Row: NewRowType(), HandleMap: map[int]FieldType{}}
	assert.False(t, IsSubsetBox(a, b))
}

func TestAddHandle(t *testing.T) {
	b := EmptyBox()
	b2 := b.AddHandle(3)
	require.Contains(t, b2.HandleMap, 3)
	assert.NotContains(t, b.HandleMap, 3, "AddHandle must not mutate the receiver")
	assert.Same(t, b, b.AddHandle(-1), "AddHandle(-1) returns the receiver unchanged")
}
