// Package optab builds the fixed 100-slot operation bucket table used to
// turn "roll 0..99" into an operation kind at the configured mix ratios.
package optab

// Op identifies the kind of request a client issues next.
type Op int

const (
	OpGet Op = iota
	OpIdle
	OpSet
	OpDel
	OpLPush
	OpLPop
	OpHSet
	OpHGet
	OpHGetAll
	OpSwapIn
)

func (o Op) String() string {
	switch o {
	case OpGet:
		return "GET"
	case OpIdle:
		return "IDLE"
	case OpSet:
		return "SET"
	case OpDel:
		return "DEL"
	case OpLPush:
		return "LPUSH"
	case OpLPop:
		return "LPOP"
	case OpHSet:
		return "HSET"
	case OpHGet:
		return "HGET"
	case OpHGetAll:
		return "HGETALL"
	case OpSwapIn:
		return "SWAPIN"
	default:
		return "UNKNOWN"
	}
}

// Percentages carries the requested share (0-100) of each operation kind.
// GET always receives whatever is left over after the others are placed.
type Percentages struct {
	Set     int
	Del     int
	LPush   int
	LPop    int
	HSet    int
	HGet    int
	HGetAll int
	SwapIn  int
}

// Table is the 100-slot lookup array: Table[roll] gives the op for that
// 0-99 roll.
type Table [100]Op

// Build fills every slot with GET, then overwrites consecutive runs of
// slots with each configured op in declaration order (SET, DEL, LPUSH,
// LPOP, HSET, HGET, HGETALL, SWAPIN). If the percentages sum to more than
// 100, the later ops in that order are silently truncated at slot 100. This
// is a preserved quirk of the reference generator, not a bug to fix.
func Build(p Percentages) Table {
	var t Table
	for i := range t {
		t[i] = OpGet
	}

	slot := 0
	place := func(op Op, pct int) {
		for n := 0; n < pct && slot < len(t); n++ {
			t[slot] = op
			slot++
		}
	}
	place(OpSet, p.Set)
	place(OpDel, p.Del)
	place(OpLPush, p.LPush)
	place(OpLPop, p.LPop)
	place(OpHSet, p.HSet)
	place(OpHGet, p.HGet)
	place(OpHGetAll, p.HGetAll)
	place(OpSwapIn, p.SwapIn)
	return t
}

// BuildIdle returns a table filled entirely with OpIdle, used when the
// benchmark is run in idle mode (connections held open, nothing sent).
func BuildIdle() Table {
	var t Table
	for i := range t {
		t[i] = OpIdle
	}
	return t
}

// Pick returns the op for a 0-99 roll. Callers are expected to compute roll
// as rng.Uint64() % 100.
func (t Table) Pick(roll uint64) Op {
	return t[roll%100]
}
