package eventlog

import (
	"sync"
	"time"
)

// BucketCounter is a time-bucketed counter over a trailing window.
//
// Values are added at explicit timestamps so historical log records can be
// replayed into it. Buckets older than the window relative to the newest
// observation or query time are discarded.
//
// The buffer holds window/bucketSize buckets. A one-hour window with
// one-minute buckets uses 60 buckets regardless of record volume.
type BucketCounter struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []bucket
	mu         sync.Mutex
}

type bucket struct {
	start time.Time
	value int64
}

// NewBucketCounter creates a counter for the given window and granularity.
func NewBucketCounter(window, bucketSize time.Duration) *BucketCounter {
	if bucketSize <= 0 {
		bucketSize = time.Minute
	}
	n := int(window / bucketSize)
	if n == 0 {
		n = 1
	}
	return &BucketCounter{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]bucket, n),
	}
}

// AddAt adds value to the bucket containing ts.
func (c *BucketCounter) AddAt(ts time.Time, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := ts.Truncate(c.bucketSize)

	target := -1
	for i := range c.buckets {
		if c.buckets[i].start.Equal(start) {
			target = i
			break
		}
	}

	if target == -1 {
		// Reuse an empty slot, otherwise evict the oldest bucket.
		oldest := 0
		for i := range c.buckets {
			if c.buckets[i].start.IsZero() {
				oldest = i
				break
			}
			if c.buckets[i].start.Before(c.buckets[oldest].start) {
				oldest = i
			}
		}
		if !c.buckets[oldest].start.IsZero() && start.Before(c.buckets[oldest].start) {
			// Older than everything retained; outside any window we track.
			return
		}
		c.buckets[oldest] = bucket{start: start}
		target = oldest
	}

	c.buckets[target].value += value
}

// SumAt returns the total over (now-window, now].
func (c *BucketCounter) SumAt(now time.Time) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-c.window)
	var sum int64
	for _, b := range c.buckets {
		if b.start.IsZero() {
			continue
		}
		// A bucket counts if any part of it lies inside the window.
		if b.start.Add(c.bucketSize).After(cutoff) && !b.start.After(now) {
			sum += b.value
		}
	}
	return sum
}

// Reset clears all buckets.
func (c *BucketCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.buckets {
		c.buckets[i] = bucket{}
	}
}
