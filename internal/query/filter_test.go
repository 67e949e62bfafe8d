package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIsOrderInsensitive(t *testing.T) {
	a := Normalize([]Filter{
		Equals("branch", "CS"),
		Min("cgpa", 7.5),
		AnyOf("skills", []string{"go", "sql"}),
	})
	b := Normalize([]Filter{
		AnyOf("skills", []string{"sql", "go"}),
		Min("cgpa", 7.5),
		Equals("branch", "CS"),
	})

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestNormalizeDistinguishesDifferentQueries(t *testing.T) {
	a := Normalize([]Filter{Min("cgpa", 7.5)})
	b := Normalize([]Filter{Min("cgpa", 8.0)})
	c := Normalize([]Filter{Max("cgpa", 7.5)})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestNormalizeTextIsCaseInsensitive(t *testing.T) {
	assert.Equal(t,
		Normalize([]Filter{Text("Asha")}),
		Normalize([]Filter{Text("asha")}),
	)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}
