package live

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"matchbook/internal/book"
	"matchbook/internal/logging"
	"matchbook/internal/pipeline"
	"matchbook/internal/result"
)

// record is the JSON shape pushed to subscribers, decoupled from
// result.Record's CSV-oriented field layout.
type record struct {
	Timestamp      uint64  `json:"timestamp"`
	OrderID        int64   `json:"orderId"`
	Instrument     string  `json:"instrument"`
	Side           string  `json:"side"`
	Type           string  `json:"type"`
	Quantity       uint64  `json:"quantity"`
	Price          float64 `json:"price"`
	Action         string  `json:"action"`
	Status         string  `json:"status"`
	ExecutedQty    uint64  `json:"executedQuantity"`
	ExecutionPrice float64 `json:"executionPrice"`
	CounterpartyID int64   `json:"counterpartyId"`
}

func toRecord(r result.Record) record {
	return record{
		Timestamp:      r.Timestamp,
		OrderID:        r.OrderID,
		Instrument:     r.Instrument,
		Side:           r.Side.String(),
		Type:           r.Type.String(),
		Quantity:       r.Quantity,
		Price:          r.Price,
		Action:         r.Action.String(),
		Status:         r.Status.String(),
		ExecutedQty:    r.ExecutedQty,
		ExecutionPrice: r.ExecutionPrice,
		CounterpartyID: r.CounterpartyID,
	}
}

// bookSnapshot is the JSON shape returned by the /book polling endpoint.
type bookSnapshot struct {
	Instrument string             `json:"instrument"`
	BestBid    *bookLevelSnapshot `json:"bestBid,omitempty"`
	BestAsk    *bookLevelSnapshot `json:"bestAsk,omitempty"`
}

type bookLevelSnapshot struct {
	Price    float64 `json:"price"`
	Quantity uint64  `json:"quantity"`
}

func toBookSnapshot(s book.Snapshot) bookSnapshot {
	out := bookSnapshot{Instrument: s.Instrument}
	if s.BestBid != nil {
		out.BestBid = &bookLevelSnapshot{Price: s.BestBid.Price, Quantity: s.BestBid.Quantity}
	}
	if s.BestAsk != nil {
		out.BestAsk = &bookLevelSnapshot{Price: s.BestAsk.Price, Quantity: s.BestAsk.Quantity}
	}
	return out
}

// Server serves the read-only /ws/results feed and the /book polling
// endpoint, and implements pipeline.Observer so it can be handed directly to
// pipeline.Run.
type Server struct {
	hub       *hub
	snapshots *pipeline.SnapshotStore
	upgrader  websocket.Upgrader
	log       *logging.Logger
}

// NewServer builds a Server; nothing is listening until Start is called.
// snapshots may be nil, in which case /book always reports 404.
func NewServer(snapshots *pipeline.SnapshotStore, log *logging.Logger) *Server {
	return &Server{
		hub:       newHub(),
		snapshots: snapshots,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:       log,
	}
}

// Observe implements pipeline.Observer: every record the pipeline emits is
// offered to current subscribers without blocking; a subscriber whose buffer
// is full misses that record.
func (s *Server) Observe(r result.Record) {
	s.hub.broadcast(toRecord(r))
}

// Start begins serving on addr in a background goroutine. It returns once
// the listener is bound, or with an error if it could not bind.
func (s *Server) Start(addr string) (*http.Server, error) {
	mux := http.NewServeMux()
	mux.Handle("/ws/results", http.HandlerFunc(s.handleResultStream))
	mux.Handle("/book", http.HandlerFunc(s.handleBookSnapshot))

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		s.log.Info("live result feed listening on %s", addr)
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("live feed stopped: %v", err)
		}
	}()
	return httpSrv, nil
}

// handleBookSnapshot serves the best-bid/best-ask polling endpoint: GET
// /book?instrument=X returns the latest snapshot published by that
// instrument's worker, or every known instrument if instrument is omitted.
func (s *Server) handleBookSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		http.NotFound(w, r)
		return
	}

	instrument := strings.TrimSpace(r.URL.Query().Get("instrument"))
	w.Header().Set("Content-Type", "application/json")

	if instrument == "" {
		all := s.snapshots.All()
		out := make([]bookSnapshot, 0, len(all))
		for _, snap := range all {
			out = append(out, toBookSnapshot(snap))
		}
		json.NewEncoder(w).Encode(out)
		return
	}

	snap, ok := s.snapshots.Get(instrument)
	if !ok {
		http.NotFound(w, r)
		return
	}
	json.NewEncoder(w).Encode(toBookSnapshot(snap))
}

func (s *Server) handleResultStream(w http.ResponseWriter, r *http.Request) {
	instrument := strings.TrimSpace(r.URL.Query().Get("instrument"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.hub.subscribe(64)
	defer s.hub.unsubscribe(sub)

	for rec := range sub.ch {
		if instrument != "" && rec.Instrument != instrument {
			continue
		}
		if err := conn.WriteJSON(rec); err != nil {
			return
		}
	}
}
