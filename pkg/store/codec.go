package store

import (
	"encoding/binary"
	"fmt"

	"github.com/aodr3w/order-book-engine/pkg/core"
)

// Trade values are stored as a deterministic big-endian encoding:
//
//	price(u64) qty(u64) maker(16B) taker(16B) ts(i64) symlen(u16) symbol
//
// Big-endian fixed-width fields keep the encoding byte-stable across
// processes, unlike gob or JSON.

func encodeTrade(t core.Trade) []byte {
	buf := make([]byte, 0, 8+8+16+16+8+2+len(t.Symbol))
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.Price))
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.Quantity))
	buf = append(buf, t.MakerID[:]...)
	buf = append(buf, t.TakerID[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(t.Timestamp))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(t.Symbol)))
	buf = append(buf, t.Symbol...)
	return buf
}

func decodeTrade(data []byte) (core.Trade, error) {
	const fixed = 8 + 8 + 16 + 16 + 8 + 2
	if len(data) < fixed {
		return core.Trade{}, fmt.Errorf("trade record too short: %d bytes", len(data))
	}
	var t core.Trade
	t.Price = core.Price(binary.BigEndian.Uint64(data[0:8]))
	t.Quantity = core.Quantity(binary.BigEndian.Uint64(data[8:16]))
	copy(t.MakerID[:], data[16:32])
	copy(t.TakerID[:], data[32:48])
	t.Timestamp = int64(binary.BigEndian.Uint64(data[48:56]))
	symLen := int(binary.BigEndian.Uint16(data[56:58]))
	if len(data) != fixed+symLen {
		return core.Trade{}, fmt.Errorf("trade record length mismatch: %d bytes", len(data))
	}
	t.Symbol = string(data[fixed:])
	return t, nil
}
