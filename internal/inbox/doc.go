// Package inbox implements the bounded ingestion buffer that decouples the
// broker callback from the per-session pump.
//
// An Inbox is a FIFO queue with a fixed capacity and an overflow policy.
// Writers use TryPut from latency-sensitive callbacks (never suspends) or
// Put when the Wait policy should propagate backpressure. Exactly one
// reader drains the queue with TryGet/WaitReadable.
//
//	in := inbox.NewBounded[int](4096, inbox.DropNewest)
//	in.OnDrop(func(int) { counters.IncDropped() })
//	ok := in.TryPut(42)
//	_ = ok
//
// CompleteWriting seals the writer side: the reader drains what remains and
// then observes completion through WaitReadable returning false.
package inbox
