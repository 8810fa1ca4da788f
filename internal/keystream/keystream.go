// Package keystream implements the RC4-derived deterministic byte generator
// used to make SET payloads reproducible and content-addressable from a key
// identity alone. It makes no claim to being cryptographically sound: the
// only contract is that the same seed produces the same byte sequence on
// every run and every platform.
package keystream

import "fmt"

// sboxLiteral is the fixed 256-byte permutation literal the generator starts from
// on every Seed call, taken verbatim from the reference generator so that
// byte sequences line up across implementations for a given seed.
const sboxLiteral = "<j$;~1+K`rp_oeTCAGJQbej7`5O>sl/Y/SEg:{6wj1~l,Q/6Eah,Ymh%D?'%DOS+EdW)O](lc9$Wwh*m#AgsjWxX*`HXt?o-Xt^#+&Eb<.cLGe`|.}:cODM0Pt*2|LT$yn6v?>-3:Fpt](_yuo'=g<j]4t*dtq_Z07UaC.1pplWtxrvtLDo437jt-zqvBb{_/,,)ly>*R]r0aizJ)yBbP=b5;w3@8tGkK3LGf0>;0cl?k/JYtbmVNHFM]RlR3=MR"

// Stream is a seedable RC4-like keystream generator. The zero value is not
// usable; call Seed before Fill or Between.
type Stream struct {
	sbox [256]byte
	i, j uint8
}

// New returns a Stream seeded with seed.
func New(seed uint64) *Stream {
	s := &Stream{}
	s.Seed(seed)
	return s
}

// Seed resets the permutation to the fixed literal, XORs in the 8 bytes of
// seed (little-endian) every 8 slots, and resets the running indices.
//
// This only mixes 8 bytes of seed material across 256 slots, so two seeds
// that differ only in how they got to the same low 64 bits are
// indistinguishable. That's intentional: the generator exists for
// reproducibility, not unpredictability, and this rewrite preserves the
// reference generator's mixing step verbatim.
func (s *Stream) Seed(seed uint64) {
	if len(sboxLiteral) != 256 {
		panic(fmt.Sprintf("keystream: sbox literal has %d bytes, want 256", len(sboxLiteral)))
	}
	copy(s.sbox[:], sboxLiteral)

	var seedBytes [8]byte
	for k := 0; k < 8; k++ {
		seedBytes[k] = byte(seed >> (8 * k))
	}
	for k := 0; k < 256; k++ {
		s.sbox[k] ^= seedBytes[k%8]
	}
	s.i, s.j = 0, 0
}

// Fill emits len(out) deterministic bytes into out via the standard RC4 PRGA
// step, advancing the stream's internal state.
func (s *Stream) Fill(out []byte) {
	i, j := s.i, s.j
	for k := range out {
		i++
		j += s.sbox[i]
		s.sbox[i], s.sbox[j] = s.sbox[j], s.sbox[i]
		out[k] = s.sbox[byte(s.sbox[i]+s.sbox[j])]
	}
	s.i, s.j = i, j
}

// Between returns an integer uniformly drawn from the stream in [lo, hi]
// inclusive. It panics if hi < lo, matching the reference generator's
// undefined behavior for an inverted range.
func (s *Stream) Between(lo, hi uint64) uint64 {
	if hi < lo {
		panic("keystream: Between called with hi < lo")
	}
	var buf [8]byte
	s.Fill(buf[:])
	var v uint64
	for k := 0; k < 8; k++ {
		v |= uint64(buf[k]) << (8 * k)
	}
	span := hi - lo + 1
	return lo + v%span
}
