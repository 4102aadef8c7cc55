package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/aodr3w/order-book-engine/pkg/core"
)

// PebbleStore keeps the trade log in a Pebble collection.
//
// Key layout: "t:{pair}:" + be_u64 sequence. Big-endian sequences make
// lexicographic key order equal append order under each pair prefix, so a
// bounded forward iterator is a pagination scan.
type PebbleStore struct {
	db *pebble.DB

	mu   sync.Mutex
	seqs map[string]uint64 // pair code -> last assigned sequence
}

const tradePrefix = "t:"

func tradeKeyPrefix(pairCode string) []byte {
	return []byte(tradePrefix + pairCode + ":")
}

func tradeKey(pairCode string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(tradeKeyPrefix(pairCode), seq)
}

// seqFromKey reads the sequence back out of a full trade key.
func seqFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// OpenPebble opens (or creates) the trade log at path.
func OpenPebble(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open trade store: %w", err)
	}
	return &PebbleStore{db: db, seqs: make(map[string]uint64)}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// nextSeq hands out the next per-pair sequence. The first call for a pair
// after opening recovers the high-water mark from the last persisted key.
// Caller holds s.mu.
func (s *PebbleStore) nextSeq(pairCode string) (uint64, error) {
	if last, ok := s.seqs[pairCode]; ok {
		s.seqs[pairCode] = last + 1
		return last + 1, nil
	}

	prefix := tradeKeyPrefix(pairCode)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var last uint64
	if iter.Last() && iter.Valid() {
		last = seqFromKey(iter.Key())
	}
	s.seqs[pairCode] = last + 1
	return last + 1, nil
}

// Append commits the trade under the next sequence for its pair. The write
// is synced: a successful return means the trade survives a crash. The lock
// also serializes commits per pair so sequences hit the log in order.
func (s *PebbleStore) Append(t core.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.nextSeq(t.Symbol)
	if err != nil {
		return fmt.Errorf("assign trade sequence: %w", err)
	}
	if err := s.db.Set(tradeKey(t.Symbol, seq), encodeTrade(t), pebble.Sync); err != nil {
		// Roll the counter back so a retry does not leave a gap.
		s.seqs[t.Symbol] = seq - 1
		return fmt.Errorf("append trade: %w", err)
	}
	return nil
}

// List pages forward through one pair's trades, oldest first, strictly after
// the cursor. It reads limit+1 rows so Next is set only when another page
// exists.
func (s *PebbleStore) List(pairCode, after string, limit int) (Page, error) {
	if limit < 1 {
		return Page{}, ErrBadLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	prefix := tradeKeyPrefix(pairCode)
	lower := prefix
	if after != "" {
		seq, err := decodeCursor(pairCode, after)
		if err != nil {
			return Page{}, err
		}
		lower = tradeKey(pairCode, seq+1)
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return Page{}, fmt.Errorf("list trades: %w", err)
	}
	defer iter.Close()

	var (
		page    Page
		lastSeq uint64
		more    bool
	)
	page.Items = make([]core.Trade, 0, min(limit, 256))
	for ok := iter.First(); ok; ok = iter.Next() {
		if len(page.Items) == limit {
			more = true
			break
		}
		t, err := decodeTrade(iter.Value())
		if err != nil {
			return Page{}, fmt.Errorf("decode trade %q: %w", iter.Key(), err)
		}
		lastSeq = seqFromKey(iter.Key())
		page.Items = append(page.Items, t)
	}
	if err := iter.Error(); err != nil {
		return Page{}, fmt.Errorf("list trades: %w", err)
	}
	if more && len(page.Items) > 0 {
		page.Next = encodeCursor(pairCode, lastSeq)
	}
	return page, nil
}

var _ TradeStore = (*PebbleStore)(nil)
