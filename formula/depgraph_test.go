package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculationOrder(t *testing.T) {
	g := NewGraph()
	// C1 = B1 + 1, B1 = A1 + 1
	g.AddFormula("B1", []string{"A1"})
	g.AddFormula("C1", []string{"B1"})

	order, err := g.RecalculationOrder([]string{"A1"})
	require.NoError(t, err)
	require.Equal(t, []string{"A1", "B1", "C1"}, order)
}

func TestRecalculationOrderOnlyReachableNodes(t *testing.T) {
	g := NewGraph()
	g.AddFormula("B1", []string{"A1"})
	g.AddFormula("Z9", []string{"Y9"}) // unrelated chain

	order, err := g.RecalculationOrder([]string{"A1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B1"}, order)
	assert.NotContains(t, order, "Z9")
	assert.NotContains(t, order, "Y9")
}

func TestCircularReference(t *testing.T) {
	g := NewGraph()
	g.AddFormula("A1", []string{"B1"})
	g.AddFormula("B1", []string{"A1"})

	_, err := g.RecalculationOrder([]string{"A1"})
	require.Error(t, err)
	var circErr *CircularReferenceError
	assert.ErrorAs(t, err, &circErr)
}

func TestHasCircularReference(t *testing.T) {
	g := NewGraph()
	g.AddFormula("A1", []string{"A1"}) // self-loop is stripped by AddFormula
	assert.False(t, g.HasCircularReference([]string{"A1"}))

	g.AddFormula("A1", []string{"B1"})
	g.AddFormula("B1", []string{"A1"})
	assert.True(t, g.HasCircularReference([]string{"A1"}))
}

func TestRemoveFormulaClearsReverseEdges(t *testing.T) {
	g := NewGraph()
	g.AddFormula("B1", []string{"A1"})
	assert.Equal(t, []string{"B1"}, g.DirectDependents("A1"))

	g.RemoveFormula("B1")
	assert.Empty(t, g.DirectDependents("A1"))
}
