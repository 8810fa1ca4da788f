package engine

import (
	"bytes"
	"fmt"

	"github.com/antirez/redis-tools/internal/protocol"
)

// IntegrityError reports a GET that didn't round-trip the bytes the
// integrity-mode SET for the same key would have produced.
type IntegrityError struct {
	Key      uint64
	WantLen  int
	GotLen   int
	Mismatch bool
}

func (e *IntegrityError) Error() string {
	if e.Mismatch {
		return fmt.Sprintf("integrity check failed for key %d: length matched (%d) but payload bytes differ", e.Key, e.WantLen)
	}
	return fmt.Sprintf("integrity check failed for key %d: expected %d bytes, got %d", e.Key, e.WantLen, e.GotLen)
}

// verifyIntegrity regenerates the payload a SET with check=true would have
// written for c.keyID and compares it byte-for-byte against reply. A nil
// bulk reply (key never set, or evicted) is not an integrity failure: the
// check only applies when the server actually returned data.
func (e *Engine) verifyIntegrity(c *client, reply protocol.Reply) error {
	if reply.Kind != protocol.KindBulk || reply.BulkNil {
		return nil
	}
	want := e.expectedPayload(c.keyID)
	if len(reply.Bulk) != len(want) {
		return &IntegrityError{Key: c.keyID, WantLen: len(want), GotLen: len(reply.Bulk)}
	}
	if !bytes.Equal(reply.Bulk, want) {
		return &IntegrityError{Key: c.keyID, WantLen: len(want), Mismatch: true}
	}
	return nil
}
