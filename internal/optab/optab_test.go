package optab

import "testing"

func countOp(t Table, op Op) int {
	n := 0
	for _, got := range t {
		if got == op {
			n++
		}
	}
	return n
}

func TestBuildPlacesExactCounts(t *testing.T) {
	table := Build(Percentages{Set: 50, Del: 10})
	if n := countOp(table, OpSet); n != 50 {
		t.Fatalf("SET count = %d, want 50", n)
	}
	if n := countOp(table, OpDel); n != 10 {
		t.Fatalf("DEL count = %d, want 10", n)
	}
	if n := countOp(table, OpGet); n != 40 {
		t.Fatalf("GET count = %d, want 40 (remainder)", n)
	}
}

func TestBuildAllGetByDefault(t *testing.T) {
	table := Build(Percentages{})
	if n := countOp(table, OpGet); n != 100 {
		t.Fatalf("GET count = %d, want 100", n)
	}
}

func TestBuildOverflowTruncatesLaterOps(t *testing.T) {
	// SET 80 + DEL 80 sums to 160: DEL should be cut off at slot 100,
	// leaving only 20 DEL slots, and no slots for ops placed after DEL.
	table := Build(Percentages{Set: 80, Del: 80, LPush: 5})
	if n := countOp(table, OpSet); n != 80 {
		t.Fatalf("SET count = %d, want 80", n)
	}
	if n := countOp(table, OpDel); n != 20 {
		t.Fatalf("DEL count = %d, want 20 (truncated)", n)
	}
	if n := countOp(table, OpLPush); n != 0 {
		t.Fatalf("LPUSH count = %d, want 0 (no room left)", n)
	}
	if n := countOp(table, OpGet); n != 0 {
		t.Fatalf("GET count = %d, want 0", n)
	}
}

func TestBuildIdleFillsEntireTable(t *testing.T) {
	table := BuildIdle()
	if n := countOp(table, OpIdle); n != 100 {
		t.Fatalf("IDLE count = %d, want 100", n)
	}
}

func TestPickWrapsRoll(t *testing.T) {
	table := Build(Percentages{Set: 100})
	if got := table.Pick(250); got != OpSet {
		t.Fatalf("Pick(250) = %v, want SET (roll should wrap mod 100)", got)
	}
}
