package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Test 1: Trade ids are unique and sort by execution time
func TestNewTradeID(t *testing.T) {
	earlier := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Minute)

	a := NewTradeID(earlier)
	b := NewTradeID(earlier)
	c := NewTradeID(later)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 26)
	assert.Less(t, a, c)
	assert.Less(t, b, c)
}
