package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		d    float64
		want string
	}{
		{0, "< 10 sec"},
		{9.99, "< 10 sec"},
		{10, "10 - 30 sec"},
		{30, "30 - 60 sec"},
		{59.9, "30 - 60 sec"},
		{60, "1 - 3 min"},
		{180, "3 - 5 min"},
		{300, "5 - 10 min"},
		{600, "10 - 20 min"},
		{1200, "20 - 30 min"},
		{1800, "> 30 min"},
		{86400, "> 30 min"},
	}

	buckets := emptyHistogram()
	for _, tt := range tests {
		idx := BucketIndex(tt.d)
		if assert.GreaterOrEqual(t, idx, 0, "duration %v", tt.d) {
			assert.Equal(t, tt.want, buckets[idx].Label, "duration %v", tt.d)
		}
	}

	assert.Equal(t, -1, BucketIndex(-1))
	assert.Equal(t, -1, BucketIndex(math.NaN()))
}

func TestBucketsPartitionDurations(t *testing.T) {
	buckets := emptyHistogram()
	assert.Len(t, buckets, 9)
	assert.Equal(t, 0.0, buckets[0].Min)
	assert.Nil(t, buckets[len(buckets)-1].Max)

	for i := 0; i+1 < len(buckets); i++ {
		if assert.NotNil(t, buckets[i].Max) {
			assert.Equal(t, buckets[i+1].Min, *buckets[i].Max, "gap after %q", buckets[i].Label)
		}
	}

	// every duration lands in exactly one bucket
	for d := 0.0; d < 4000; d += 0.5 {
		matches := 0
		for _, b := range buckets {
			if d >= b.Min && (b.Max == nil || d < *b.Max) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "duration %v", d)
	}
}

func TestBoundaries(t *testing.T) {
	b := boundaries()
	assert.Len(t, b, 10)
	assert.True(t, math.IsInf(b[len(b)-1], 1))
	for i := 1; i < len(b); i++ {
		assert.Less(t, b[i-1], b[i])
	}
}
