// Package book implements the price-time priority matching engine: one Book
// per instrument, safe to drive from a single goroutine at a time.
package book

import (
	"matchbook/internal/event"
	"matchbook/internal/result"
)

// tickScale converts a decimal price into an integer number of ticks for use
// as a map/heap key. Comparing floats directly as map keys risks two prices
// that print identically failing an equality check due to binary rounding;
// scaling to an integer sidesteps that without giving up the float64 the
// output columns are formatted from.
const tickScale = 1e6

func priceToTicks(price float64) int64 {
	return int64(price*tickScale + 0.5)
}

// restingOrder is the book's internal record of a live order. It carries
// more state than event.Order: quantity accounting and the order's own last
// action, which output records echo even when a match is triggered by a
// completely different incoming event on the other side of the book.
type restingOrder struct {
	Timestamp  uint64
	OrderID    int64
	Side       event.Side
	Type       event.Type
	Price      float64
	PriceTicks int64
	Quantity   uint64 // original requested quantity as of the last NEW/MODIFY
	Remaining  uint64
	Executed   uint64 // cumulative executed quantity across the order's life
	Status     event.Status
	Action     event.Action
}

func newRestingOrder(o event.Order) *restingOrder {
	return &restingOrder{
		Timestamp:  o.Timestamp,
		OrderID:    o.OrderID,
		Side:       o.Side,
		Type:       o.Type,
		Price:      o.Price,
		PriceTicks: priceToTicks(o.Price),
		Quantity:   o.Quantity,
		Remaining:  o.Quantity,
		Status:     event.Pending,
		Action:     o.Action,
	}
}

// ackRecord builds a single-order output record: acknowledgement, rejection,
// cancellation, or a resting state left unchanged by a match pass. Grounded
// on addInitialOutputRecord's quantity/price column rules — PENDING and
// REJECTED report the order's original quantity, PARTIALLY_EXECUTED reports
// what remains, EXECUTED and CANCELED report zero, and a CANCELED price
// column is always zero.
func ackRecord(instrument string, o *restingOrder, status event.Status, eventTimestamp uint64) result.Record {
	var qty uint64
	switch status {
	case event.Pending, event.Rejected:
		qty = o.Quantity
	case event.PartiallyExecuted:
		qty = o.Remaining
	default: // Executed, Canceled
		qty = 0
	}
	price := o.Price
	if status == event.Canceled {
		price = 0
	}
	return result.Record{
		Timestamp:  eventTimestamp,
		OrderID:    o.OrderID,
		Instrument: instrument,
		Side:       o.Side,
		Type:       o.Type,
		Quantity:   qty,
		Price:      price,
		Action:     o.Action,
		Status:     status,
	}
}

// rejectRecord builds a REJECTED record directly from an incoming event, for
// cases where no resting order was ever created (unknown order_id on
// MODIFY/CANCEL, unknown action, an event for another instrument).
func rejectRecord(instrument string, ev event.Order) result.Record {
	return result.Record{
		Timestamp:  ev.Timestamp,
		OrderID:    ev.OrderID,
		Instrument: instrument,
		Side:       ev.Side,
		Type:       ev.Type,
		Quantity:   ev.Quantity,
		Price:      ev.Price,
		Action:     ev.Action,
		Status:     event.Rejected,
	}
}

// matchRecordPair builds the two output records a single match produces,
// one per side. Grounded on recordMatchAndCreateOutput: each record is
// stamped from its own order's side/type/price/action, reports matchQty as
// the quantity executed by this specific match (not the order's lifetime
// total), and names the other order as counterparty.
func matchRecordPair(instrument string, a, b *restingOrder, matchQty uint64, matchPrice float64, eventTimestamp uint64) (result.Record, result.Record) {
	return matchRecord(instrument, a, b.OrderID, matchQty, matchPrice, eventTimestamp),
		matchRecord(instrument, b, a.OrderID, matchQty, matchPrice, eventTimestamp)
}

func matchRecord(instrument string, o *restingOrder, counterparty int64, matchQty uint64, matchPrice float64, eventTimestamp uint64) result.Record {
	qty := o.Remaining
	if o.Status == event.Executed {
		qty = 0
	}
	return result.Record{
		Timestamp:      eventTimestamp,
		OrderID:        o.OrderID,
		Instrument:     instrument,
		Side:           o.Side,
		Type:           o.Type,
		Quantity:       qty,
		Price:          o.Price,
		Action:         o.Action,
		Status:         o.Status,
		ExecutedQty:    matchQty,
		ExecutionPrice: matchPrice,
		CounterpartyID: counterparty,
	}
}

// applyMatch updates both sides of a trade in place: remaining/executed
// quantity and status. Callers are responsible for removing an order from
// its price level once Remaining reaches zero.
func applyMatch(a, b *restingOrder, matchQty uint64) {
	applyFill(a, matchQty)
	applyFill(b, matchQty)
}

func applyFill(o *restingOrder, matchQty uint64) {
	o.Remaining -= matchQty
	o.Executed += matchQty
	if o.Remaining == 0 {
		o.Status = event.Executed
	} else {
		o.Status = event.PartiallyExecuted
	}
}
