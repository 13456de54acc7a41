package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapResolver map[string]Value

func (m mapResolver) Cell(ref CellRef) (Value, bool) {
	v, ok := m[ref.String()]
	if !ok {
		return Value{}, true
	}
	return v, false
}

func evalString(t *testing.T, formula string, r Resolver) Value {
	t.Helper()
	node, err := Parse(formula)
	require.NoError(t, err)
	return Eval(node, r)
}

func TestLiteralScenarios(t *testing.T) {
	t.Run("arithmetic precedence", func(t *testing.T) {
		v := evalString(t, "=1+2*3", mapResolver{})
		f, ok := v.AsDouble()
		require.True(t, ok)
		assert.Equal(t, 7.0, f)
	})

	t.Run("SUM skips nothing missing", func(t *testing.T) {
		r := mapResolver{"A1": NewNumber(1), "A2": NewNumber(2), "A3": NewNumber(3)}
		v := evalString(t, "=SUM(A1:A3)", r)
		f, _ := v.AsDouble()
		assert.Equal(t, 6.0, f)
	})

	t.Run("SUM skips blank", func(t *testing.T) {
		r := mapResolver{"A1": NewNumber(1), "A3": NewNumber(3)}
		v := evalString(t, "=SUM(A1:A3)", r)
		f, _ := v.AsDouble()
		assert.Equal(t, 4.0, f)
	})

	t.Run("AVERAGE skips blank", func(t *testing.T) {
		r := mapResolver{"A1": NewNumber(2), "A3": NewNumber(4)}
		v := evalString(t, "=AVERAGE(A1:A3)", r)
		f, _ := v.AsDouble()
		assert.Equal(t, 3.0, f)
	})

	t.Run("IF branches on comparison", func(t *testing.T) {
		r := mapResolver{"A1": NewNumber(-1)}
		v := evalString(t, `=IF(A1>0, "p", "n")`, r)
		assert.Equal(t, "n", v.AsString())
	})

	t.Run("DATE and YEAR round trip", func(t *testing.T) {
		v := evalString(t, "=DATE(2024,1,1)", mapResolver{})
		f, _ := v.AsDouble()
		assert.Equal(t, 45292.0, f)

		v2 := evalString(t, "=YEAR(45292)", mapResolver{})
		f2, _ := v2.AsDouble()
		assert.Equal(t, 2024.0, f2)
	})

	t.Run("VLOOKUP exact match", func(t *testing.T) {
		r := mapResolver{
			"A1": NewNumber(1), "B1": NewString("a"),
			"A2": NewNumber(2), "B2": NewString("b"),
			"A3": NewNumber(3), "B3": NewString("c"),
		}
		v := evalString(t, "=VLOOKUP(2, A1:B3, 2, FALSE)", r)
		assert.Equal(t, "b", v.AsString())
	})

	t.Run("IFERROR catches division by zero", func(t *testing.T) {
		v := evalString(t, "=IFERROR(1/0, 42)", mapResolver{})
		f, _ := v.AsDouble()
		assert.Equal(t, 42.0, f)
	})

	t.Run("COUNTIF counts matches", func(t *testing.T) {
		r := mapResolver{"A1": NewNumber(1), "A2": NewNumber(2), "A3": NewNumber(3)}
		v := evalString(t, `=COUNTIF(A1:A3, ">=2")`, r)
		f, _ := v.AsDouble()
		assert.Equal(t, 2.0, f)
	})
}

func TestErrorPropagation(t *testing.T) {
	v := evalString(t, "=1+#DIV/0!", mapResolver{})
	assert.Equal(t, KindError, v.Kind)

	v2 := evalString(t, "=ISERROR(1/0)", mapResolver{})
	b, ok := v2.AsBoolean()
	require.True(t, ok)
	assert.True(t, b)
}

func TestBlankCellCoercesToZeroInArithmetic(t *testing.T) {
	v := evalString(t, "=A1+1", mapResolver{})
	f, _ := v.AsDouble()
	assert.Equal(t, 1.0, f)
}

func TestConcatOperator(t *testing.T) {
	r := mapResolver{"A1": NewString("foo")}
	v := evalString(t, `=A1&"bar"`, r)
	assert.Equal(t, "foobar", v.AsString())
}
