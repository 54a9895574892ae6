package v1

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Test 1: Timestamps floor to their minute bucket in epoch milliseconds
func TestMinuteBucket(t *testing.T) {
	at := time.Date(2026, time.March, 14, 9, 26, 53, 589_000_000, time.UTC)

	bucket := MinuteBucket(at)

	wantMinute := time.Date(2026, time.March, 14, 9, 26, 0, 0, time.UTC)
	assert.Equal(t, wantMinute.UnixMilli(), bucket)
}

// Test 2: Every timestamp inside a minute maps to the same bucket
func TestMinuteBucket_StableWithinMinute(t *testing.T) {
	base := time.Date(2026, time.March, 14, 9, 26, 0, 0, time.UTC)

	first := MinuteBucket(base)
	assert.Equal(t, first, MinuteBucket(base.Add(59*time.Second)))
	assert.NotEqual(t, first, MinuteBucket(base.Add(60*time.Second)))
}
