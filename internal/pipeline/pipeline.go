// Package pipeline wires the staged concurrency pipeline together: an
// Event Source feeding a bounded queue, a Dispatcher routing by instrument
// into one worker goroutine per book, and a Result Sink draining a shared
// result queue. The staging mirrors the original engine's single-book
// request-channel worker (engine.OrderBook.run), generalized here to one
// such worker per instrument running in parallel.
package pipeline

import (
	"errors"
	"io"
	"sync"
	"time"

	"matchbook/internal/book"
	"matchbook/internal/event"
	"matchbook/internal/logging"
	"matchbook/internal/result"
)

// Config sizes the bounded queues between pipeline stages. Each is a
// buffered channel: once full, the upstream stage blocks, which is the
// pipeline's only backpressure mechanism.
type Config struct {
	EventQueueSize  int
	InboxSize       int
	ResultQueueSize int
}

// DefaultConfig matches the sizes documented on the CLI flags.
func DefaultConfig() Config {
	return Config{
		EventQueueSize:  100000,
		InboxSize:       10000,
		ResultQueueSize: 10000,
	}
}

// Sink receives finished, already-formatted output lines for writing.
// Implemented by result.Writer; the live feed is fed through Observer, not
// through the Sink.
type Sink interface {
	WriteLine(line string) error
}

// Stats summarizes one run, logged at Info level once the pipeline stops.
type Stats struct {
	EventsProcessed uint64
	RecordsEmitted  uint64
	Instruments     int
	ReadDuration    time.Duration // time from start until the source was fully drained
	TotalDuration   time.Duration // time from start until every worker and the sink exited
}

// Observer receives each result record as it leaves an instrument worker,
// before it reaches the sink. The live broadcast feed hangs off this.
type Observer interface {
	Observe(result.Record)
}

// SnapshotStore holds the latest best-bid/best-ask view of every instrument
// seen so far, updated by each book worker after every event it processes.
// Reads and writes are synchronized independently of any book: the live
// feed's polling endpoint reads this store, never a Book directly, since a
// Book has no locking of its own and is only safe to touch from its own
// worker goroutine.
type SnapshotStore struct {
	mu    sync.RWMutex
	books map[string]book.Snapshot
}

// NewSnapshotStore builds an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{books: make(map[string]book.Snapshot)}
}

func (s *SnapshotStore) update(snap book.Snapshot) {
	s.mu.Lock()
	s.books[snap.Instrument] = snap
	s.mu.Unlock()
}

// Get returns the latest snapshot for instrument, if any event for it has
// been processed yet.
func (s *SnapshotStore) Get(instrument string) (book.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.books[instrument]
	return snap, ok
}

// All returns the latest snapshot for every instrument seen so far.
func (s *SnapshotStore) All() []book.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]book.Snapshot, 0, len(s.books))
	for _, snap := range s.books {
		out = append(out, snap)
	}
	return out
}

// Run drives events from src through per-instrument books until src is
// exhausted, writing every output record to sink in the order each book
// worker produced it. There is no ordering guarantee across instruments:
// two books run concurrently and their records interleave however the
// scheduler happens to run them. snapshots may be nil, in which case no
// best-bid/best-ask view is published.
func Run(src *event.Reader, sink Sink, obs Observer, snapshots *SnapshotStore, log *logging.Logger, cfg Config) (Stats, error) {
	start := time.Now()
	eventQueue := make(chan event.Order, cfg.EventQueueSize)
	resultQueue := make(chan result.Record, cfg.ResultQueueSize)

	var stats Stats
	var statsMu sync.Mutex

	var sinkWG sync.WaitGroup
	sinkWG.Add(1)
	go func() {
		defer sinkWG.Done()
		for rec := range resultQueue {
			if obs != nil {
				obs.Observe(rec)
			}
			if err := sink.WriteLine(rec.CSV()); err != nil {
				log.Error("writing result record for order %d: %v", rec.OrderID, err)
			}
			statsMu.Lock()
			stats.RecordsEmitted++
			statsMu.Unlock()
		}
	}()

	inboxes := make(map[string]chan event.Order)
	var workersWG sync.WaitGroup

	spawnWorker := func(instrument string) chan event.Order {
		inbox := make(chan event.Order, cfg.InboxSize)
		inboxes[instrument] = inbox
		stats.Instruments++
		workersWG.Add(1)
		go func() {
			defer workersWG.Done()
			runBook(instrument, inbox, resultQueue, snapshots, log)
		}()
		return inbox
	}

	log.Info("pipeline running: event_queue=%d inbox=%d result_queue=%d", cfg.EventQueueSize, cfg.InboxSize, cfg.ResultQueueSize)

	// Event Source: read every row from src into the bounded event queue.
	// Malformed rows never reach here; event.Reader already dropped them.
	sourceDone := make(chan struct{})
	go func() {
		defer close(eventQueue)
		defer close(sourceDone)
		for {
			ev, err := src.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				log.Error("reading input: %v", err)
				return
			}
			eventQueue <- ev
		}
	}()

	// Dispatcher: route each event to its instrument's worker, spawning
	// the worker lazily on first sight of a new instrument.
	for ev := range eventQueue {
		inbox, ok := inboxes[ev.Instrument]
		if !ok {
			inbox = spawnWorker(ev.Instrument)
		}
		inbox <- ev
		statsMu.Lock()
		stats.EventsProcessed++
		statsMu.Unlock()
	}
	<-sourceDone
	stats.ReadDuration = time.Since(start)

	for _, inbox := range inboxes {
		close(inbox)
	}
	workersWG.Wait()
	close(resultQueue)
	sinkWG.Wait()

	stats.TotalDuration = time.Since(start)
	log.Info("pipeline stopped: events=%d records=%d instruments=%d read=%s total=%s",
		stats.EventsProcessed, stats.RecordsEmitted, stats.Instruments, stats.ReadDuration, stats.TotalDuration)
	return stats, nil
}

// runBook is the per-instrument worker loop: single-threaded against its
// own book, forwarding every record the book produces to the shared result
// queue in the order it was generated and publishing a fresh snapshot after
// each event.
func runBook(instrument string, inbox <-chan event.Order, out chan<- result.Record, snapshots *SnapshotStore, log *logging.Logger) {
	b := book.New(instrument)
	for ev := range inbox {
		records := b.Handle(ev)
		if len(records) == 0 {
			log.Warn("instrument %s: order %d produced no output record", instrument, ev.OrderID)
		}
		for _, rec := range records {
			out <- rec
		}
		if snapshots != nil {
			snapshots.update(b.Snapshot())
		}
	}
}
