package distribution

import (
	"math/rand"
	"testing"
)

func TestNextKeyUniformStaysInRange(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		k := NextKey(src, 37, false, 0)
		if k >= 37 {
			t.Fatalf("uniform draw %d out of range [0,37)", k)
		}
	}
}

func TestNextKeyLongTailStaysInRange(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		k := NextKey(src, 1000, true, 2)
		if k >= 1000 {
			t.Fatalf("long-tail draw %d out of range [0,1000)", k)
		}
	}
}

func TestLongTailMonotonicDecreasing(t *testing.T) {
	// Under longtail, P(key=i) should be non-increasing in i. We approximate
	// this by sampling many draws and checking the low half of the keyspace
	// receives materially more hits than the high half.
	src := rand.New(rand.NewSource(42))
	const keyspace = 1000
	counts := make([]int, keyspace)
	const draws = 200000
	for i := 0; i < draws; i++ {
		counts[NextKey(src, keyspace, true, 3)]++
	}

	lowHalf, highHalf := 0, 0
	for i := 0; i < keyspace/2; i++ {
		lowHalf += counts[i]
	}
	for i := keyspace / 2; i < keyspace; i++ {
		highHalf += counts[i]
	}
	if lowHalf <= highHalf {
		t.Fatalf("expected low half of keyspace to be far hotter than high half, got low=%d high=%d", lowHalf, highHalf)
	}
}

func TestLongTailSteeperOrderIsMoreSkewed(t *testing.T) {
	hitsAtZero := func(order int) int {
		src := rand.New(rand.NewSource(7))
		hits := 0
		const draws = 50000
		for i := 0; i < draws; i++ {
			if NextKey(src, 1000, true, order) == 0 {
				hits++
			}
		}
		return hits
	}

	low := hitsAtZero(2)
	high := hitsAtZero(50)
	if high < low {
		t.Fatalf("higher longtail order should concentrate at least as many draws on key 0: order2=%d order50=%d", low, high)
	}
}

func TestNextKeyZeroKeyspace(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	if k := NextKey(src, 0, false, 0); k != 0 {
		t.Fatalf("NextKey with keyspace 0 = %d, want 0", k)
	}
}
