package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudget(t *testing.T) {
	b := newBudget(Options{MaxResults: 3, CharBudget: 20})

	assert.True(t, b.fits(20))
	assert.False(t, b.fits(21))
	assert.False(t, b.exhausted())

	b.spend(15)
	assert.False(t, b.fits(6), "oversized match")
	assert.False(t, b.exhausted(), "room is left for smaller matches")
	assert.True(t, b.fits(5))

	b.spend(5)
	assert.True(t, b.exhausted())
	assert.Equal(t, "chars", b.exhaustedReason)

	b.reset()
	assert.Empty(t, b.exhaustedReason)
	b.spend(1)
	b.spend(1)
	b.spend(1)
	assert.False(t, b.fits(0))
	assert.True(t, b.exhausted())
	assert.Equal(t, "results", b.exhaustedReason)
}
