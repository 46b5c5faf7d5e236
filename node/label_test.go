package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ananis25/funsql-go/xerrors"
)

func TestLabelDefaults(t *testing.T) {
	assert.Equal(t, Symbol("name"), Label(NewGet("name", nil)))
	assert.Equal(t, Symbol("alias"), Label(NewAs("alias", NewLit(1))))
	assert.Equal(t, Symbol("person"), Label(NewFrom(FromName("person"))))
	assert.Equal(t, Symbol("_"), Label(NewFrom(FromSource{})))
}

func TestPopulateLabelMapRejectsDuplicates(t *testing.T) {
	_, err := PopulateLabelMap([]Node{NewGet("x", nil), NewGet("x", nil)})
	require.Error(t, err)
	assert.True(t, xerrors.Is(xerrors.DuplicateLabel, err), "got %v", err)
}

func TestPopulateLabelMapAcceptsDistinctLabels(t *testing.T) {
	lm, err := PopulateLabelMap([]Node{NewGet("x", nil), NewGet("y", nil)})
	require.NoError(t, err)
	assert.Equal(t, 0, lm["x"])
	assert.Equal(t, 1, lm["y"])
}

func TestNewSelectPropagatesDuplicateLabel(t *testing.T) {
	from := NewFrom(FromName("person"))
	_, err := NewSelect(from, NewGet("name", nil), NewGet("name", nil))
	require.Error(t, err, "Select with duplicate labels should fail at construction")
}
