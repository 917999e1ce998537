package book

import "container/list"

// priceLevel holds every resting order at one price, in strict time
// priority: earliest arrival at the front. Mirrors the original engine's
// use of a std::list per price so the head can be popped in O(1).
type priceLevel struct {
	ticks   int64
	price   float64
	orders  *list.List // of *restingOrder
	byOrder map[int64]*list.Element
}

func newPriceLevel(ticks int64, price float64) *priceLevel {
	return &priceLevel{
		ticks:   ticks,
		price:   price,
		orders:  list.New(),
		byOrder: make(map[int64]*list.Element),
	}
}

func (l *priceLevel) push(o *restingOrder) {
	el := l.orders.PushBack(o)
	l.byOrder[o.OrderID] = el
}

func (l *priceLevel) front() *restingOrder {
	if l.orders.Len() == 0 {
		return nil
	}
	return l.orders.Front().Value.(*restingOrder)
}

func (l *priceLevel) popFront() {
	el := l.orders.Front()
	if el == nil {
		return
	}
	o := el.Value.(*restingOrder)
	l.orders.Remove(el)
	delete(l.byOrder, o.OrderID)
}

func (l *priceLevel) remove(orderID int64) *restingOrder {
	el, ok := l.byOrder[orderID]
	if !ok {
		return nil
	}
	o := el.Value.(*restingOrder)
	l.orders.Remove(el)
	delete(l.byOrder, orderID)
	return o
}

func (l *priceLevel) empty() bool {
	return l.orders.Len() == 0
}

// totalQuantity sums the remaining quantity of every order resting at this
// level, for top-of-book snapshot reporting.
func (l *priceLevel) totalQuantity() uint64 {
	var total uint64
	for el := l.orders.Front(); el != nil; el = el.Next() {
		total += el.Value.(*restingOrder).Remaining
	}
	return total
}
