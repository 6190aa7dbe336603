package analytics

import "math"

// Bucket is one duration interval [Min, Max) of the histogram. A nil Max is
// open to infinity.
type Bucket struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max,omitempty"`
	Count int64    `json:"count"`
}

type bucketDef struct {
	label string
	min   float64
}

// durationBuckets partition [0, ∞) in seconds. Each bucket ends where the
// next one starts.
var durationBuckets = []bucketDef{
	{"< 10 sec", 0},
	{"10 - 30 sec", 10},
	{"30 - 60 sec", 30},
	{"1 - 3 min", 60},
	{"3 - 5 min", 180},
	{"5 - 10 min", 300},
	{"10 - 20 min", 600},
	{"20 - 30 min", 1200},
	{"> 30 min", 1800},
}

// boundaries returns the $bucket boundaries, closed by +Inf
func boundaries() []float64 {
	out := make([]float64, 0, len(durationBuckets)+1)
	for _, b := range durationBuckets {
		out = append(out, b.min)
	}
	return append(out, math.Inf(1))
}

// emptyHistogram returns every bucket in order with a zero count
func emptyHistogram() []Bucket {
	out := make([]Bucket, len(durationBuckets))
	for i, b := range durationBuckets {
		out[i] = Bucket{Label: b.label, Min: b.min}
		if i+1 < len(durationBuckets) {
			max := durationBuckets[i+1].min
			out[i].Max = &max
		}
	}
	return out
}

// BucketIndex returns the histogram bucket holding d seconds, or -1 for
// negative or NaN durations
func BucketIndex(d float64) int {
	if math.IsNaN(d) || d < 0 {
		return -1
	}
	idx := 0
	for i, b := range durationBuckets {
		if d >= b.min {
			idx = i
		}
	}
	return idx
}

// bucketByMin maps a $bucket lower boundary back to its index
func bucketByMin(min float64) int {
	for i, b := range durationBuckets {
		if b.min == min {
			return i
		}
	}
	return -1
}
