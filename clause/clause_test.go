package clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ananis25/funsql-go/node"
)

func TestQual(t *testing.T) {
	id := Qual("a", "b")
	assert.Equal(t, node.Symbol("b"), id.Name)
	assert.Equal(t, node.Symbol("a"), id.Over.(*ID).Name)

	id3 := Qual("a", "b", "c")
	assert.Equal(t, node.Symbol("c"), id3.Name)
}

func TestQualPanicsOnBadArity(t *testing.T) {
	assert.Panics(t, func() { Qual("a") })
}

func TestAliasWrapsSymbolOrClause(t *testing.T) {
	a := Alias(node.Symbol("t"), "alias")
	assert.Equal(t, node.Symbol("alias"), a.Name)
	id, ok := a.Over.(*ID)
	require.True(t, ok, "Alias over a bare symbol should build an ID, got %+v", a.Over)
	assert.Equal(t, node.Symbol("t"), id.Name)
}

func TestIDRebase(t *testing.T) {
	id := NewID("col", nil)
	pre := NewID("t", nil)
	assert.Equal(t, Clause(pre), id.Rebase(pre).Over, "Rebase splices pre in as Over when Over was nil")
}

func TestAGGBuiltWithOptions(t *testing.T) {
	filter := NewOP(">", NewLIT(int64(1)), NewLIT(int64(0)))
	agg := NewAGG("sum", []any{NewID("x", nil)}, WithDistinct(), WithFilter(filter))
	assert.True(t, agg.Distinct)
	assert.Equal(t, Clause(filter), agg.Filter)
	assert.Nil(t, agg.Over)
}

func TestRebaseClauseDispatchesPerType(t *testing.T) {
	pre := NewID("base", nil)
	where := NewWHERE(NewLIT(true), nil)
	rebased := rebaseClause(where, pre)
	w, ok := rebased.(*WHERE)
	require.True(t, ok, "expected *WHERE, got %T", rebased)
	assert.Equal(t, Clause(pre), w.Over)
}

func TestRebaseClauseNilReturnsPre(t *testing.T) {
	pre := NewID("base", nil)
	assert.Equal(t, Clause(pre), rebaseClause(nil, pre))
}

func TestKeyStructuralEquality(t *testing.T) {
	a := NewOP("=", NewID("x", NewID("t", nil)), NewLIT(int64(1)))
	b := NewOP("=", NewID("x", NewID("t", nil)), NewLIT(int64(1)))
	c := NewOP("=", NewID("x", NewID("t", nil)), NewLIT(int64(2)))
	assert.Equal(t, Key(a), Key(b), "separately built identical trees share a key")
	assert.NotEqual(t, Key(a), Key(c))
}

func TestKeyDistinguishesLiteralTypes(t *testing.T) {
	assert.NotEqual(t, Key(NewLIT(int64(1))), Key(NewLIT("1")))
}
