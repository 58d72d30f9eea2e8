package capture

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/mqtap/internal/storage/pebble"
)

// Log is the append-only capture log for one session.
type Log struct {
	db      *pebblestore.DB
	session string

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// OpenLog opens the log for session, restoring the last sequence from the
// session metadata when present.
func OpenLog(db *pebblestore.DB, session string) (*Log, error) {
	l := &Log{db: db, session: session, notifyCh: make(chan struct{})}
	meta, err := db.Get(keyMeta(session))
	if err == nil && len(meta) >= 8 {
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	}
	return l, nil
}

// Session returns the session this log belongs to.
func (l *Log) Session() string { return l.session }

// LastSeq returns the highest assigned sequence.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Append persists recs as one atomic batch and returns the assigned
// sequences. Waiters blocked in WaitForAppend are woken on success.
func (l *Log) Append(ctx context.Context, recs []Record) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	seqs := make([]uint64, len(recs))
	for i, r := range recs {
		l.lastSeq++
		if err := b.Set(keyEntry(l.session, l.lastSeq), encodeRecord(r), nil); err != nil {
			return nil, err
		}
		seqs[i] = l.lastSeq
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], l.lastSeq)
	if err := b.Set(keyMeta(l.session), meta[:], nil); err != nil {
		return nil, err
	}
	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}

	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seqs, nil
}

// WaitForAppend blocks until a new append lands or timeout elapses. It
// returns true when woken by an append.
func (l *Log) WaitForAppend(timeout time.Duration) bool {
	l.mu.Lock()
	ch := l.notifyCh
	l.mu.Unlock()
	if timeout <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Purge deletes every key belonging to session.
func Purge(db *pebblestore.DB, session string) error {
	prefix := keySessionPrefix(session)
	return db.DeleteRange(prefix, prefixUpperBound(prefix))
}

// Sessions lists the sessions with capture data, oldest first. Session ids
// are time-prefixed, so key order is chronological.
func Sessions(db *pebblestore.DB) ([]string, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: capPrefix,
		UpperBound: prefixUpperBound(capPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []string
	for ok := iter.First(); ok; ok = iter.Next() {
		key := string(iter.Key())
		rest := strings.TrimPrefix(key, string(capPrefix))
		if !strings.HasSuffix(rest, string(metaSuffix)) {
			continue
		}
		session := strings.TrimSuffix(rest, string(metaSuffix))
		if !strings.Contains(session, "/") {
			out = append(out, session)
		}
	}
	return out, iter.Error()
}
