package capture

import (
	"context"
	"testing"
	"time"

	pebblestore "github.com/rzbill/mqtap/internal/storage/pebble"
)

func openTestDB(t *testing.T, dir string) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	return db
}

func newTestLog(t *testing.T) *Log {
	t.Helper()
	db := openTestDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })
	l, err := OpenLog(db, "s1")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func rec(topic, payload string, at time.Time) Record {
	return Record{Topic: topic, Payload: []byte(payload), QoS: 1, At: at}
}

func TestAppendAssignsSequential(t *testing.T) {
	l := newTestLog(t)
	now := time.Now()
	seqs, err := l.Append(context.Background(), []Record{rec("a/b", "p1", now), rec("a/c", "p2", now)})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(seqs) != 2 || seqs[0] != 1 || seqs[1] != 2 {
		t.Fatalf("seqs = %v, want [1 2]", seqs)
	}
	if l.LastSeq() != 2 {
		t.Fatalf("last seq = %d, want 2", l.LastSeq())
	}
}

func TestRoundTripPreservesRecord(t *testing.T) {
	l := newTestLog(t)
	at := time.Now().Truncate(time.Millisecond)
	in := Record{Topic: "home/kitchen/temp", Payload: []byte(`{"v":21.5}`), QoS: 2, Retained: true, At: at}
	if _, err := l.Append(context.Background(), []Record{in}); err != nil {
		t.Fatalf("append: %v", err)
	}

	items, _ := l.Read(ReadOptions{})
	if len(items) != 1 {
		t.Fatalf("read %d items, want 1", len(items))
	}
	got := items[0]
	if got.Topic != in.Topic || string(got.Payload) != string(in.Payload) ||
		got.QoS != in.QoS || !got.Retained || !got.At.Equal(at) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLastSeqDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db := openTestDB(t, dir)
	l, err := OpenLog(db, "s1")
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	seqs, err := l.Append(context.Background(), []Record{rec("t", "x", time.Now())})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db2 := openTestDB(t, dir)
	t.Cleanup(func() { _ = db2.Close() })
	l2, err := OpenLog(db2, "s1")
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	seqs2, err := l2.Append(context.Background(), []Record{rec("t", "y", time.Now())})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if seqs2[0] <= seqs[0] {
		t.Fatalf("sequence regressed across reopen: %d then %d", seqs[0], seqs2[0])
	}
}

func TestReadPagination(t *testing.T) {
	l := newTestLog(t)
	now := time.Now()
	var recs []Record
	for i := 0; i < 10; i++ {
		recs = append(recs, rec("t", "p", now))
	}
	if _, err := l.Append(context.Background(), recs); err != nil {
		t.Fatalf("append: %v", err)
	}

	page1, next := l.Read(ReadOptions{Limit: 4})
	if len(page1) != 4 || page1[0].Seq != 1 || page1[3].Seq != 4 {
		t.Fatalf("page1 = %+v", page1)
	}
	if next.Seq() != 5 {
		t.Fatalf("next token = %d, want 5", next.Seq())
	}

	page2, _ := l.Read(ReadOptions{Start: next, Limit: 100})
	if len(page2) != 6 || page2[0].Seq != 5 || page2[5].Seq != 10 {
		t.Fatalf("page2 = %+v", page2)
	}

	rev, _ := l.Read(ReadOptions{Limit: 3, Reverse: true})
	if len(rev) != 3 || rev[0].Seq != 10 || rev[2].Seq != 8 {
		t.Fatalf("reverse page = %+v", rev)
	}
}

func TestWaitForAppendWakesOnWrite(t *testing.T) {
	l := newTestLog(t)
	woke := make(chan bool, 1)
	go func() { woke <- l.WaitForAppend(2 * time.Second) }()

	time.Sleep(10 * time.Millisecond)
	if _, err := l.Append(context.Background(), []Record{rec("t", "x", time.Now())}); err != nil {
		t.Fatalf("append: %v", err)
	}
	select {
	case ok := <-woke:
		if !ok {
			t.Fatal("waiter timed out instead of waking")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never returned")
	}

	if l.WaitForAppend(20 * time.Millisecond) {
		t.Fatal("expected timeout with no append")
	}
}

func TestTrimToMaxBytesDropsOldest(t *testing.T) {
	l := newTestLog(t)
	now := time.Now()
	payload := make([]byte, 100)
	var recs []Record
	for i := 0; i < 20; i++ {
		recs = append(recs, Record{Topic: "t", Payload: payload, At: now})
	}
	if _, err := l.Append(context.Background(), recs); err != nil {
		t.Fatalf("append: %v", err)
	}

	deleted, err := l.TrimToMaxBytes(context.Background(), 600, 4, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted == 0 {
		t.Fatal("expected deletions over the byte limit")
	}
	items, _ := l.Read(ReadOptions{})
	if len(items) != 20-deleted {
		t.Fatalf("remaining = %d, want %d", len(items), 20-deleted)
	}
	// survivors are the newest
	if items[len(items)-1].Seq != 20 {
		t.Fatalf("newest seq = %d, want 20", items[len(items)-1].Seq)
	}
	if items[0].Seq != uint64(deleted+1) {
		t.Fatalf("oldest survivor = %d, want %d", items[0].Seq, deleted+1)
	}
}

func TestTrimOlderThan(t *testing.T) {
	l := newTestLog(t)
	old := time.Now().Add(-time.Hour)
	fresh := time.Now()
	if _, err := l.Append(context.Background(), []Record{
		rec("t", "1", old), rec("t", "2", old), rec("t", "3", fresh),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	deleted, lastSeq, err := l.TrimOlderThan(context.Background(), fresh.Add(-time.Minute), 10, 0)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if deleted != 2 || lastSeq != 2 {
		t.Fatalf("deleted = %d lastSeq = %d, want 2 and 2", deleted, lastSeq)
	}
	items, _ := l.Read(ReadOptions{})
	if len(items) != 1 || items[0].Seq != 3 {
		t.Fatalf("remaining = %+v, want only seq 3", items)
	}
}

func TestSessionsAndPurge(t *testing.T) {
	db := openTestDB(t, t.TempDir())
	t.Cleanup(func() { _ = db.Close() })

	for _, name := range []string{"s1", "s2"} {
		l, err := OpenLog(db, name)
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		if _, err := l.Append(context.Background(), []Record{rec("t", "x", time.Now())}); err != nil {
			t.Fatalf("append %s: %v", name, err)
		}
	}

	sessions, err := Sessions(db)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "s1" || sessions[1] != "s2" {
		t.Fatalf("sessions = %v", sessions)
	}

	if err := Purge(db, "s1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	sessions, err = Sessions(db)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0] != "s2" {
		t.Fatalf("sessions after purge = %v", sessions)
	}
}

func TestCorruptRecordSkipped(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.Append(context.Background(), []Record{rec("t", "good", time.Now())}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// overwrite seq 1 with garbage directly
	if err := l.db.Set(keyEntry("s1", 1), []byte("not a record")); err != nil {
		t.Fatalf("set: %v", err)
	}
	items, _ := l.Read(ReadOptions{})
	if len(items) != 0 {
		t.Fatalf("corrupt record surfaced: %+v", items)
	}
}
