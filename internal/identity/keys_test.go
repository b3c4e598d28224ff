package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobKeyStable(t *testing.T) {
	a := JobKey("greenhouse", "acme", "42")
	b := JobKey("greenhouse", "acme", "42")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestJobKeyCaseHandling(t *testing.T) {
	base := JobKey("greenhouse", "acme", "42")

	// source type and identifier are case/whitespace insensitive
	assert.Equal(t, base, JobKey("GREENHOUSE", " Acme ", "42"))

	// external id is case-sensitive
	assert.NotEqual(t, JobKey("greenhouse", "acme", "ABC"), JobKey("greenhouse", "acme", "abc"))

	// different external ids give different keys
	assert.NotEqual(t, base, JobKey("greenhouse", "acme", "43"))
}

func TestContentHashNormalization(t *testing.T) {
	a := ContentHash("Backend Engineer", "We need Python", "Remote")
	b := ContentHash("  backend   engineer ", "we need python", "remote")
	assert.Equal(t, a, b)

	c := ContentHash("Backend Engineer", "We need Python and Go", "Remote")
	assert.NotEqual(t, a, c)
}

func TestContentHashMissingLocation(t *testing.T) {
	a := ContentHash("Title", "Desc", "")
	b := ContentHash("Title", "Desc", "   ")
	assert.Equal(t, a, b)

	c := ContentHash("Title", "Desc", "Remote")
	assert.NotEqual(t, a, c)
}

func TestHashString(t *testing.T) {
	assert.Equal(t, HashString("x"), HashString("x"))
	assert.NotEqual(t, HashString("x"), HashString("y"))
}
