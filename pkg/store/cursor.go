package store

import (
	"encoding/base64"
	"encoding/binary"
)

// Cursors are opaque to clients: base64url (no padding) over
//
//	version(1B) pairlen(1B) pair seq(be u64)
//
// Decoding validates the version and the embedded pair, so a cursor minted
// for one pair is rejected on another.

const cursorVersion = 1

func encodeCursor(pairCode string, seq uint64) string {
	buf := make([]byte, 0, 2+len(pairCode)+8)
	buf = append(buf, cursorVersion, byte(len(pairCode)))
	buf = append(buf, pairCode...)
	buf = binary.BigEndian.AppendUint64(buf, seq)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// decodeCursor returns the sequence the cursor points at, or ErrInvalidCursor
// if the bytes are malformed or belong to a different pair.
func decodeCursor(pairCode, cursor string) (uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	if len(raw) < 2 || raw[0] != cursorVersion {
		return 0, ErrInvalidCursor
	}
	pairLen := int(raw[1])
	if len(raw) != 2+pairLen+8 {
		return 0, ErrInvalidCursor
	}
	if string(raw[2:2+pairLen]) != pairCode {
		return 0, ErrInvalidCursor
	}
	return binary.BigEndian.Uint64(raw[2+pairLen:]), nil
}
