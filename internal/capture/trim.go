package capture

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
)

// TrimToMaxBytes enforces size retention: when the session's stored bytes
// exceed maxBytes, the oldest records are deleted until the total fits.
// Deletes are committed in batches of batchLimit keys with an optional
// throttle between commits. Returns the number of deleted records.
func (l *Log) TrimToMaxBytes(ctx context.Context, maxBytes int64, batchLimit int, throttle time.Duration) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	if maxBytes < 0 {
		return 0, nil
	}

	low := keyEntry(l.session, 0)
	hi := keyEntry(l.session, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var total int64
	for ok := iter.First(); ok; ok = iter.Next() {
		total += int64(len(iter.Value()))
	}
	if total <= maxBytes {
		return 0, nil
	}

	deleted := 0
	for ok := iter.First(); ok && total > maxBytes; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit && total > maxBytes {
			total -= int64(len(iter.Value()))
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			deleted++
			n++
			ok = iter.Next()
		}
		if n == 0 {
			b.Close()
			break
		}
		if err := l.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted, err
		}
		b.Close()
		if throttle > 0 {
			time.Sleep(throttle)
		}
	}
	return deleted, nil
}

// TrimOlderThan deletes records whose timestamp is before cutoff. The scan
// stops at the first record at or past the cutoff, relying on append order
// being time order. Returns the deleted count and the last deleted
// sequence.
func (l *Log) TrimOlderThan(ctx context.Context, cutoff time.Time, batchLimit int, throttle time.Duration) (int, uint64, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	cutoffMs := cutoff.UnixMilli()

	low := keyEntry(l.session, 0)
	hi := keyEntry(l.session, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, 0, err
	}
	defer iter.Close()

	deleted := 0
	var lastSeq uint64
	for ok := iter.First(); ok; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			ms, okTs := recordTimestampMs(iter.Value())
			if !okTs || ms >= cutoffMs {
				ok = false
				break
			}
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, lastSeq, err
			}
			lastSeq = binary.BigEndian.Uint64(iter.Key()[len(low)-8:])
			deleted++
			n++
			ok = iter.Next()
		}
		if n == 0 {
			b.Close()
			break
		}
		if err := l.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted, lastSeq, err
		}
		b.Close()
		if throttle > 0 {
			time.Sleep(throttle)
		}
	}
	return deleted, lastSeq, nil
}
