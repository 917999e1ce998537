package book

import (
	"matchbook/internal/event"
	"matchbook/internal/result"
)

// Book is the matching engine for one instrument. It is not safe for
// concurrent use; the pipeline gives each Book its own worker goroutine so
// that instruments trade in parallel while each one is strictly
// single-threaded, mirroring the per-symbol OrderBook instances in the
// original engine.
type Book struct {
	instrument string
	bids       *ladder
	asks       *ladder
	side       map[int64]event.Side // where a live order_id currently rests, for CANCEL/MODIFY lookup
}

// New creates an empty book for instrument.
func New(instrument string) *Book {
	return &Book{
		instrument: instrument,
		bids:       newLadder(true),
		asks:       newLadder(false),
		side:       make(map[int64]event.Side),
	}
}

// LevelView is the top-of-book price and aggregate resting quantity for one
// side, as reported by Snapshot.
type LevelView struct {
	Price    float64
	Quantity uint64
}

// Snapshot is a point-in-time best-bid/best-ask view of one instrument's
// book, mirroring the teacher's BookView.
type Snapshot struct {
	Instrument string
	BestBid    *LevelView
	BestAsk    *LevelView
}

// Snapshot reports the current best bid and ask. It must only be called
// from the goroutine that owns this Book — there is no internal locking,
// the same exclusive-ownership rule every other method on Book relies on.
func (b *Book) Snapshot() Snapshot {
	s := Snapshot{Instrument: b.instrument}
	if lvl := b.bids.best(); lvl != nil {
		s.BestBid = &LevelView{Price: lvl.price, Quantity: lvl.totalQuantity()}
	}
	if lvl := b.asks.best(); lvl != nil {
		s.BestAsk = &LevelView{Price: lvl.price, Quantity: lvl.totalQuantity()}
	}
	return s
}

// Handle applies one event to the book and returns the output records it
// produces, in emission order. Every code path returns at least one record
// except a NEW MARKET order with zero quantity, which trades nothing, is not
// rejected, and returns no record.
func (b *Book) Handle(ev event.Order) []result.Record {
	if ev.Instrument != b.instrument {
		// A dispatcher bug delivering an event to the wrong book is a
		// per-event failure, not an invariant violation: reject it
		// defensively rather than mutating state it has no business
		// touching. The output row is stamped with this book's own
		// instrument, matching the rejection record for every other
		// per-event failure below.
		return []result.Record{rejectRecord(b.instrument, ev)}
	}

	switch ev.Action {
	case event.New:
		return b.handleNew(ev)
	case event.Modify:
		return b.handleModify(ev)
	case event.Cancel:
		return b.handleCancel(ev)
	default:
		return []result.Record{rejectRecord(b.instrument, ev)}
	}
}

func (b *Book) ladderFor(side event.Side) *ladder {
	if side == event.Buy {
		return b.bids
	}
	return b.asks
}

func (b *Book) oppositeLadderFor(side event.Side) *ladder {
	if side == event.Buy {
		return b.asks
	}
	return b.bids
}

func (b *Book) handleNew(ev event.Order) []result.Record {
	if _, exists := b.side[ev.OrderID]; exists {
		// A NEW event reusing a live order_id is a protocol invariant
		// violation, not a domain outcome a trader can trigger through
		// legitimate input — treat it as fatal to the process rather than
		// emitting a REJECTED row.
		panic("book: duplicate order_id on NEW: " + ev.Instrument)
	}

	if ev.Type == event.Limit {
		return b.handleNewLimit(ev)
	}
	return b.handleNewMarket(ev)
}

func (b *Book) handleNewLimit(ev event.Order) []result.Record {
	o := newRestingOrder(ev)
	b.ladderFor(ev.Side).insert(o)
	b.side[o.OrderID] = ev.Side
	records := []result.Record{ackRecord(b.instrument, o, event.Pending, ev.Timestamp)}
	return append(records, b.matchLoop(ev.Timestamp)...)
}

func (b *Book) handleNewMarket(ev event.Order) []result.Record {
	o := newRestingOrder(ev)
	records := b.sweep(o, ev.Timestamp)
	if o.Executed == 0 && ev.Quantity > 0 {
		return append(records, ackRecord(b.instrument, o, event.Rejected, ev.Timestamp))
	}
	return records
}

func (b *Book) handleModify(ev event.Order) []result.Record {
	side, ok := b.side[ev.OrderID]
	if !ok {
		return []result.Record{rejectRecord(b.instrument, ev)}
	}
	existing := b.ladderFor(side).remove(ev.OrderID)
	delete(b.side, ev.OrderID)
	if existing == nil {
		return []result.Record{rejectRecord(b.instrument, ev)}
	}

	// Side is immutable across a MODIFY: the event's side field is ignored
	// and the order re-rests on its original ladder. Price, quantity, and
	// type are the mutable fields.
	existing.Timestamp = ev.Timestamp
	existing.Price = ev.Price
	existing.PriceTicks = priceToTicks(ev.Price)
	existing.Quantity = ev.Quantity
	existing.Type = ev.Type
	existing.Action = event.Modify

	if existing.Quantity <= existing.Executed {
		existing.Remaining = 0
		existing.Status = event.Executed
		if existing.Executed == 0 && existing.Quantity == 0 {
			existing.Status = event.Canceled
		}
		return []result.Record{ackRecord(b.instrument, existing, existing.Status, ev.Timestamp)}
	}

	existing.Remaining = existing.Quantity - existing.Executed
	existing.Status = event.Pending

	if existing.Type == event.Limit {
		return b.reinsertModifiedLimit(existing, ev.Timestamp)
	}
	return b.reinsertModifiedMarket(existing, ev.Timestamp)
}

func (b *Book) reinsertModifiedLimit(o *restingOrder, eventTimestamp uint64) []result.Record {
	b.ladderFor(o.Side).insert(o)
	b.side[o.OrderID] = o.Side

	executedBefore := o.Executed
	records := b.matchLoop(eventTimestamp)

	if o.Executed == executedBefore && o.Remaining > 0 {
		// Rests unchanged by the match pass: emit its own PENDING state.
		// If it traded, matchLoop already emitted its match records and a
		// second acknowledgement here would duplicate them.
		records = append(records, ackRecord(b.instrument, o, o.Status, eventTimestamp))
	}
	return records
}

func (b *Book) reinsertModifiedMarket(o *restingOrder, eventTimestamp uint64) []result.Record {
	executedBefore := o.Executed
	records := b.sweep(o, eventTimestamp)
	if o.Executed == executedBefore {
		records = append(records, ackRecord(b.instrument, o, event.Rejected, eventTimestamp))
	}
	return records
}

func (b *Book) handleCancel(ev event.Order) []result.Record {
	side, ok := b.side[ev.OrderID]
	if !ok {
		return []result.Record{rejectRecord(b.instrument, ev)}
	}
	existing := b.ladderFor(side).remove(ev.OrderID)
	delete(b.side, ev.OrderID)
	if existing == nil {
		return []result.Record{rejectRecord(b.instrument, ev)}
	}
	existing.Timestamp = ev.Timestamp
	existing.Action = event.Cancel
	existing.Status = event.Canceled
	return []result.Record{ackRecord(b.instrument, existing, event.Canceled, ev.Timestamp)}
}

// matchLoop drains crossed price levels between the two ladders until the
// book is no longer crossed. Grounded on matchOrders: the tie-break for
// which resting order's price becomes the trade price compares
// entry_timestamp between the best bid and best ask — the order that has
// been resting longer sets the price; an exact tie falls back to the bid
// price.
func (b *Book) matchLoop(eventTimestamp uint64) []result.Record {
	var records []result.Record
	for {
		bidLevel := b.bids.best()
		askLevel := b.asks.best()
		if bidLevel == nil || askLevel == nil {
			return records
		}
		if bidLevel.price < askLevel.price {
			return records
		}

		buyOrder := bidLevel.front()
		sellOrder := askLevel.front()

		matchPrice := bidLevel.price
		if buyOrder.Timestamp < sellOrder.Timestamp {
			matchPrice = buyOrder.Price
		} else if sellOrder.Timestamp < buyOrder.Timestamp {
			matchPrice = sellOrder.Price
		}

		matchQty := buyOrder.Remaining
		if sellOrder.Remaining < matchQty {
			matchQty = sellOrder.Remaining
		}

		applyMatch(buyOrder, sellOrder, matchQty)
		r1, r2 := matchRecordPair(b.instrument, buyOrder, sellOrder, matchQty, matchPrice, eventTimestamp)
		records = append(records, r1, r2)

		if buyOrder.Remaining == 0 {
			bidLevel.popFront()
			delete(b.side, buyOrder.OrderID)
		}
		if sellOrder.Remaining == 0 {
			askLevel.popFront()
			delete(b.side, sellOrder.OrderID)
		}
		b.bids.dropIfEmpty(bidLevel)
		b.asks.dropIfEmpty(askLevel)
	}
}

// sweep walks the opposite ladder consuming liquidity for a MARKET order
// (or a MODIFY that turned an order into one) until it is filled or the
// opposite side runs dry. Each resting order's own price sets the trade
// price for that fill, per the original's market-order handling.
func (b *Book) sweep(aggressive *restingOrder, eventTimestamp uint64) []result.Record {
	var records []result.Record
	opposite := b.oppositeLadderFor(aggressive.Side)
	for aggressive.Remaining > 0 {
		lvl := opposite.best()
		if lvl == nil {
			break
		}
		resting := lvl.front()

		matchPrice := resting.Price
		matchQty := aggressive.Remaining
		if resting.Remaining < matchQty {
			matchQty = resting.Remaining
		}

		applyMatch(aggressive, resting, matchQty)
		r1, r2 := matchRecordPair(b.instrument, aggressive, resting, matchQty, matchPrice, eventTimestamp)
		records = append(records, r1, r2)

		if resting.Remaining == 0 {
			lvl.popFront()
			delete(b.side, resting.OrderID)
		}
		opposite.dropIfEmpty(lvl)
	}
	return records
}
