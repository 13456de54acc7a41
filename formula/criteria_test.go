package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriterionGlobMatching(t *testing.T) {
	c := parseCriterion("*e*")
	assert.True(t, c.matches(stringValue("apple")))
	assert.True(t, c.matches(stringValue("ELBOW"))) // case-insensitive
	assert.False(t, c.matches(stringValue("plum")))
}

func TestCriterionQuestionMarkWildcard(t *testing.T) {
	c := parseCriterion("a?c")
	assert.True(t, c.matches(stringValue("abc")))
	assert.False(t, c.matches(stringValue("ac")))
	assert.False(t, c.matches(stringValue("abbc")))
}

func TestCriterionOperatorPrefix(t *testing.T) {
	cases := []struct {
		raw    string
		value  float64
		expect bool
	}{
		{">10", 11, true},
		{">10", 10, false},
		{">=10", 10, true},
		{"<5", 4, true},
		{"<=5", 5, true},
		{"<>3", 4, true},
		{"<>3", 3, false},
	}
	for _, tc := range cases {
		c := parseCriterion(tc.raw)
		assert.Equal(t, tc.expect, c.matches(numberValue(tc.value)), tc.raw)
	}
}

func TestCriterionExactEquality(t *testing.T) {
	c := parseCriterion("Widget")
	assert.True(t, c.matches(stringValue("widget"))) // case-insensitive equality
	assert.False(t, c.matches(stringValue("gadget")))

	numeric := parseCriterion("42")
	assert.True(t, numeric.matches(numberValue(42)))
	assert.False(t, numeric.matches(numberValue(43)))
}

func TestSearchFunctionWildcard(t *testing.T) {
	v := evalString(t, `=SEARCH("a*c", "abbc")`, mapResolver{})
	n, ok := v.AsDouble()
	assert.True(t, ok)
	assert.Equal(t, float64(1), n)
}

func TestSearchFunctionWildcardMatchNotAtEndOfString(t *testing.T) {
	// The match ("bcd" at index 2) must be found even though trailing
	// characters ("yz") follow it in the haystack.
	v := evalString(t, `=SEARCH("b*d", "xbcdyz")`, mapResolver{})
	n, ok := v.AsDouble()
	assert.True(t, ok)
	assert.Equal(t, float64(2), n)
}

func TestCountifWildcardCaseInsensitive(t *testing.T) {
	r := mapResolver{
		"A1": NewString("Apple"),
		"A2": NewString("berry"),
		"A3": NewString("ELDERBERRY"),
	}
	v := evalString(t, `=COUNTIF(A1:A3,"*e*")`, r)
	n, ok := v.AsDouble()
	assert.True(t, ok)
	assert.Equal(t, float64(3), n)
}
