package engine

import "github.com/antirez/redis-tools/internal/keystream"

// generatePayload builds the bytes for a SET/LPUSH/HSET value at key id k.
// The three modes are mutually exclusive and checked in the order check,
// rand, plain so that check always wins: integrity mode needs payloads to
// be a pure function of k alone.
func (e *Engine) generatePayload(k uint64) []byte {
	opts := e.opts
	var buf []byte
	switch {
	case opts.Check:
		e.payloadStream.Seed(k)
		length := e.payloadStream.Between(uint64(opts.MinDataSize), uint64(opts.MaxDataSize))
		buf = make([]byte, length)
		e.payloadStream.Fill(buf)

	case opts.Rand:
		length := e.rng.Uint64()%uint64(opts.MaxDataSize-opts.MinDataSize+1) + uint64(opts.MinDataSize)
		e.payloadStream.Seed(k)
		buf = make([]byte, length)
		e.payloadStream.Fill(buf)

	default:
		length := e.rng.Uint64()%uint64(opts.MaxDataSize-opts.MinDataSize+1) + uint64(opts.MinDataSize)
		buf = make([]byte, length)
		for i := range buf {
			buf[i] = 'x'
		}
	}
	e.recordPayload(len(buf))
	return buf
}

// expectedPayload regenerates exactly what generatePayload would have
// produced in check mode for key k, used by the integrity check on GET
// completion. It draws from its own local Stream and never touches
// e.payloadStream, so interleaving GET verification with SET payload
// generation on other clients is safe: both paths always seed from k
// before drawing.
func (e *Engine) expectedPayload(k uint64) []byte {
	var s keystream.Stream
	s.Seed(k)
	length := s.Between(uint64(e.opts.MinDataSize), uint64(e.opts.MaxDataSize))
	buf := make([]byte, length)
	s.Fill(buf)
	return buf
}
