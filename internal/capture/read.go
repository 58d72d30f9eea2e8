package capture

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
)

// Token marks a position in the log as an 8-byte big-endian sequence.
type Token [8]byte

// TokenFromSeq builds the token addressing seq.
func TokenFromSeq(seq uint64) Token {
	var t Token
	binary.BigEndian.PutUint64(t[:], seq)
	return t
}

// Seq returns the sequence the token addresses.
func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

// ReadOptions selects a page of records.
type ReadOptions struct {
	// Start is the first sequence to include; the zero token starts at the
	// beginning (or the end when Reverse).
	Start Token
	// Limit caps the page size; 0 means unlimited.
	Limit int
	// Reverse scans newest to oldest.
	Reverse bool
}

// Item is one stored record with its sequence.
type Item struct {
	Seq uint64
	Record
}

// Read returns up to Limit items from Start, plus the token of the next
// unread record (zero when the scan is exhausted).
func (l *Log) Read(opts ReadOptions) ([]Item, Token) {
	startSeq := opts.Start.Seq()
	low := keyEntry(l.session, 0)
	hi := keyEntry(l.session, ^uint64(0))

	items := make([]Item, 0, pageCap(opts.Limit))
	var next Token
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return items, next
	}
	defer iter.Close()

	seqAt := func() uint64 { return binary.BigEndian.Uint64(iter.Key()[len(low)-8:]) }

	if opts.Reverse {
		if startSeq == 0 {
			if !iter.Last() {
				return items, next
			}
		} else if !iter.SeekLT(keyEntry(l.session, startSeq+1)) {
			return items, next
		}
		for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
			if rec, ok := decodeRecord(iter.Value()); ok {
				items = append(items, Item{Seq: seqAt(), Record: rec})
			}
			if !iter.Prev() {
				return items, next
			}
		}
		if iter.Valid() {
			next = TokenFromSeq(seqAt())
		}
		return items, next
	}

	if startSeq == 0 {
		if !iter.First() {
			return items, next
		}
	} else if !iter.SeekGE(keyEntry(l.session, startSeq)) {
		return items, next
	}
	for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
		if rec, ok := decodeRecord(iter.Value()); ok {
			items = append(items, Item{Seq: seqAt(), Record: rec})
		}
		if !iter.Next() {
			return items, next
		}
	}
	if iter.Valid() {
		next = TokenFromSeq(seqAt())
	}
	return items, next
}

func pageCap(limit int) int {
	if limit > 0 {
		return limit
	}
	return 1
}
