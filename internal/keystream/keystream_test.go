package keystream

import "testing"

func TestSeedIsDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)

	bufA := make([]byte, 64)
	bufB := make([]byte, 64)
	a.Fill(bufA)
	b.Fill(bufB)

	if string(bufA) != string(bufB) {
		t.Fatalf("two streams seeded with 42 diverged: %x vs %x", bufA, bufB)
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)

	bufA := make([]byte, 32)
	bufB := make([]byte, 32)
	a.Fill(bufA)
	b.Fill(bufB)

	if string(bufA) == string(bufB) {
		t.Fatalf("seeds 1 and 2 produced identical streams")
	}
}

func TestReseedRestartsStream(t *testing.T) {
	s := New(7)
	first := make([]byte, 16)
	s.Fill(first)

	s.Seed(7)
	second := make([]byte, 16)
	s.Fill(second)

	if string(first) != string(second) {
		t.Fatalf("reseeding with the same value did not reproduce the stream: %x vs %x", first, second)
	}
}

func TestBetweenStaysInRange(t *testing.T) {
	s := New(99)
	for i := 0; i < 1000; i++ {
		v := s.Between(10, 20)
		if v < 10 || v > 20 {
			t.Fatalf("Between(10, 20) returned out-of-range value %d", v)
		}
	}
}

func TestBetweenSingleton(t *testing.T) {
	s := New(5)
	for i := 0; i < 10; i++ {
		if v := s.Between(3, 3); v != 3 {
			t.Fatalf("Between(3, 3) = %d, want 3", v)
		}
	}
}

func TestBetweenPanicsOnInvertedRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for hi < lo")
		}
	}()
	New(1).Between(5, 1)
}

func TestOnlyLow8BytesOfSeedMatter(t *testing.T) {
	// Documented quirk: Seed only XORs 8 bytes of seed material
	// across the sbox, so seeds equal mod 2^64 are indistinguishable. Since
	// seed is already a uint64 this just confirms Seed is a pure function
	// of its single uint64 argument.
	a := New(123456789)
	b := New(123456789)
	out1 := make([]byte, 8)
	out2 := make([]byte, 8)
	a.Fill(out1)
	b.Fill(out2)
	if string(out1) != string(out2) {
		t.Fatalf("identical seeds diverged")
	}
}
