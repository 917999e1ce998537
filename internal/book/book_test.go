package book

import (
	"testing"

	"matchbook/internal/event"
)

func newOrder(ts uint64, id int64, side event.Side, typ event.Type, qty uint64, price float64, action event.Action) event.Order {
	return event.Order{
		Timestamp:  ts,
		OrderID:    id,
		Instrument: "TEST",
		Side:       side,
		Type:       typ,
		Quantity:   qty,
		Price:      price,
		Action:     action,
	}
}

func TestNewLimitRestsWhenNoCross(t *testing.T) {
	b := New("TEST")
	recs := b.Handle(newOrder(1, 1, event.Buy, event.Limit, 100, 10.0, event.New))
	if len(recs) != 1 {
		t.Fatalf("expected one ack record, got %d", len(recs))
	}
	if recs[0].Status != event.Pending {
		t.Fatalf("expected PENDING, got %s", recs[0].Status)
	}
	if recs[0].Quantity != 100 {
		t.Fatalf("expected full quantity on PENDING row, got %d", recs[0].Quantity)
	}
}

func TestCrossingLimitOrdersFullyFill(t *testing.T) {
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Sell, event.Limit, 100, 10.0, event.New))
	recs := b.Handle(newOrder(2, 2, event.Buy, event.Limit, 100, 10.0, event.New))

	// ack + two match records
	if len(recs) != 3 {
		t.Fatalf("expected ack + 2 match records, got %d: %+v", len(recs), recs)
	}
	if recs[0].Status != event.Pending {
		t.Fatalf("expected initial ack PENDING, got %s", recs[0].Status)
	}
	buyRec, sellRec := recs[1], recs[2]
	if buyRec.OrderID != 2 || sellRec.OrderID != 1 {
		t.Fatalf("unexpected match record order: %+v", recs)
	}
	if buyRec.Status != event.Executed || sellRec.Status != event.Executed {
		t.Fatalf("expected both EXECUTED, got %s %s", buyRec.Status, sellRec.Status)
	}
	if buyRec.ExecutedQty != 100 || sellRec.ExecutedQty != 100 {
		t.Fatalf("expected matched qty 100, got %d %d", buyRec.ExecutedQty, sellRec.ExecutedQty)
	}
	if buyRec.ExecutionPrice != 10.0 || sellRec.ExecutionPrice != 10.0 {
		t.Fatalf("expected execution price 10.0, got %v %v", buyRec.ExecutionPrice, sellRec.ExecutionPrice)
	}
}

func TestMatchPriceFollowsEarlierRestingOrder(t *testing.T) {
	// The sell order rests first (timestamp 1); when a crossing buy arrives
	// later, the earlier resting order's own price sets the trade price.
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Sell, event.Limit, 50, 9.0, event.New))
	recs := b.Handle(newOrder(5, 2, event.Buy, event.Limit, 50, 11.0, event.New))

	if len(recs) != 3 {
		t.Fatalf("expected ack + 2 match records, got %+v", recs)
	}
	for _, r := range recs[1:] {
		if r.ExecutionPrice != 9.0 {
			t.Fatalf("expected trade price to follow the earlier resting order (9.0), got %v", r.ExecutionPrice)
		}
	}
}

func TestMarketOrderSweepsBestPrices(t *testing.T) {
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Sell, event.Limit, 50, 10.0, event.New))
	b.Handle(newOrder(2, 2, event.Sell, event.Limit, 50, 11.0, event.New))

	recs := b.Handle(newOrder(3, 3, event.Buy, event.Market, 100, 0, event.New))
	if len(recs) != 4 {
		t.Fatalf("expected 2 match pairs, got %d: %+v", len(recs), recs)
	}
	if recs[0].ExecutionPrice != 10.0 {
		t.Fatalf("expected first fill at best price 10.0, got %v", recs[0].ExecutionPrice)
	}
	if recs[2].ExecutionPrice != 11.0 {
		t.Fatalf("expected second fill at 11.0, got %v", recs[2].ExecutionPrice)
	}
}

func TestMarketOrderRejectedWhenBookEmpty(t *testing.T) {
	b := New("TEST")
	recs := b.Handle(newOrder(1, 1, event.Buy, event.Market, 10, 0, event.New))
	if len(recs) != 1 || recs[0].Status != event.Rejected {
		t.Fatalf("expected single REJECTED record, got %+v", recs)
	}
}

func TestCancelUnknownOrderIsRejected(t *testing.T) {
	b := New("TEST")
	recs := b.Handle(newOrder(1, 99, event.Buy, event.Limit, 1, 1, event.Cancel))
	if len(recs) != 1 || recs[0].Status != event.Rejected {
		t.Fatalf("expected REJECTED for unknown cancel target, got %+v", recs)
	}
}

func TestCancelRestingOrder(t *testing.T) {
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Buy, event.Limit, 10, 5.0, event.New))
	recs := b.Handle(newOrder(2, 1, event.Buy, event.Limit, 10, 5.0, event.Cancel))
	if len(recs) != 1 {
		t.Fatalf("expected one CANCELED record, got %+v", recs)
	}
	if recs[0].Status != event.Canceled {
		t.Fatalf("expected CANCELED, got %s", recs[0].Status)
	}
	if recs[0].Price != 0 {
		t.Fatalf("expected zero price column on CANCELED, got %v", recs[0].Price)
	}
}

func TestModifyPriceRepricesAndCanTrade(t *testing.T) {
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Sell, event.Limit, 10, 10.0, event.New))
	b.Handle(newOrder(2, 2, event.Buy, event.Limit, 10, 9.0, event.New)) // no cross yet

	recs := b.Handle(newOrder(3, 2, event.Buy, event.Limit, 10, 10.0, event.Modify))
	if len(recs) != 2 {
		t.Fatalf("expected 2 match records after repriced cross, got %+v", recs)
	}
	for _, r := range recs {
		if r.Status != event.Executed {
			t.Fatalf("expected both sides EXECUTED, got %+v", recs)
		}
	}
}

func TestModifyUnknownOrderIsRejected(t *testing.T) {
	b := New("TEST")
	recs := b.Handle(newOrder(1, 42, event.Buy, event.Limit, 10, 1.0, event.Modify))
	if len(recs) != 1 || recs[0].Status != event.Rejected {
		t.Fatalf("expected REJECTED for unknown modify target, got %+v", recs)
	}
}

func TestModifyToZeroRemainingCancelsWhenNothingExecuted(t *testing.T) {
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Buy, event.Limit, 10, 5.0, event.New))
	recs := b.Handle(newOrder(2, 1, event.Buy, event.Limit, 0, 5.0, event.Modify))
	if len(recs) != 1 || recs[0].Status != event.Canceled {
		t.Fatalf("expected CANCELED for zero-quantity modify, got %+v", recs)
	}
}

func TestUnknownActionIsRejected(t *testing.T) {
	b := New("TEST")
	recs := b.Handle(newOrder(1, 1, event.Buy, event.Limit, 1, 1, event.UnknownAction))
	if len(recs) != 1 || recs[0].Status != event.Rejected {
		t.Fatalf("expected REJECTED for unknown action, got %+v", recs)
	}
}

func TestModifyLosesTimePriorityToSibling(t *testing.T) {
	// Two resting buys at the same price; order 1 arrives first. Modifying
	// order 1 re-timestamps it, so it loses time priority to order 2 even
	// though its price and quantity end up unchanged. A later crossing sell
	// must fill order 2 first.
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Buy, event.Limit, 10, 5.0, event.New))
	b.Handle(newOrder(2, 2, event.Buy, event.Limit, 5, 5.0, event.New))
	recs := b.Handle(newOrder(3, 1, event.Buy, event.Limit, 10, 5.0, event.Modify))
	if len(recs) != 1 || recs[0].Status != event.Pending {
		t.Fatalf("expected modify to leave order 1 resting PENDING, got %+v", recs)
	}

	recs = b.Handle(newOrder(4, 3, event.Sell, event.Limit, 5, 5.0, event.New))
	if len(recs) != 3 {
		t.Fatalf("expected ack + 2 match records, got %+v", recs)
	}
	var matched bool
	for _, r := range recs[1:] {
		if r.OrderID == 2 && r.Status == event.Executed {
			matched = true
		}
		if r.OrderID == 1 {
			t.Fatalf("order 1 should not have traded yet, got %+v", r)
		}
	}
	if !matched {
		t.Fatalf("expected order 2 to fill first, got %+v", recs)
	}
}

func TestHandleRejectsWrongInstrument(t *testing.T) {
	b := New("TEST")
	ev := newOrder(1, 1, event.Buy, event.Limit, 10, 5.0, event.New)
	ev.Instrument = "OTHER"
	recs := b.Handle(ev)
	if len(recs) != 1 || recs[0].Status != event.Rejected {
		t.Fatalf("expected REJECTED for mismatched instrument, got %+v", recs)
	}
	if recs[0].Instrument != "TEST" {
		t.Fatalf("expected rejection stamped with the book's own instrument, got %q", recs[0].Instrument)
	}
}

func TestSnapshotReportsBestBidAndAsk(t *testing.T) {
	b := New("TEST")
	if s := b.Snapshot(); s.BestBid != nil || s.BestAsk != nil {
		t.Fatalf("expected empty snapshot on empty book, got %+v", s)
	}

	b.Handle(newOrder(1, 1, event.Buy, event.Limit, 10, 5.0, event.New))
	b.Handle(newOrder(2, 2, event.Buy, event.Limit, 5, 5.0, event.New))
	b.Handle(newOrder(3, 3, event.Sell, event.Limit, 20, 6.0, event.New))

	s := b.Snapshot()
	if s.BestBid == nil || s.BestBid.Price != 5.0 || s.BestBid.Quantity != 15 {
		t.Fatalf("expected best bid 5.0 x 15, got %+v", s.BestBid)
	}
	if s.BestAsk == nil || s.BestAsk.Price != 6.0 || s.BestAsk.Quantity != 20 {
		t.Fatalf("expected best ask 6.0 x 20, got %+v", s.BestAsk)
	}
}

func TestDuplicateOrderIDOnNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate order_id NEW")
		}
	}()
	b := New("TEST")
	b.Handle(newOrder(1, 1, event.Buy, event.Limit, 1, 1.0, event.New))
	b.Handle(newOrder(2, 1, event.Buy, event.Limit, 1, 1.0, event.New))
}
