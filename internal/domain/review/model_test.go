package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]*Review{{Rating: 5}, {Rating: 4}, {Rating: 5}})

	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 4.666, s.AverageRating, 0.001)
	assert.Equal(t, 2, s.Distribution[5])
	assert.Equal(t, 0, s.Distribution[1])
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.AverageRating)
	assert.Len(t, s.Distribution, 5)
}
