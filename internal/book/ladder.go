package book

import "container/heap"

// ladder is a price-indexed heap of priceLevels for one side of the book:
// bids ordered so the highest price is best, asks so the lowest is best.
// Adapted from the original engine's priceTimeQueue, which heaps individual
// orders; a ladder heaps price levels instead and lets each level's FIFO
// list carry time priority within that price, matching the level-first
// model the book operates on.
type ladder struct {
	levels levelHeap
	byTick map[int64]*priceLevel
}

func newLadder(isBid bool) *ladder {
	return &ladder{
		levels: levelHeap{isBid: isBid},
		byTick: make(map[int64]*priceLevel),
	}
}

// best returns the top-of-book price level, or nil if the ladder is empty.
func (l *ladder) best() *priceLevel {
	for len(l.levels.levels) > 0 {
		lvl := l.levels.levels[0]
		if !lvl.empty() {
			return lvl
		}
		heap.Pop(&l.levels)
		delete(l.byTick, lvl.ticks)
	}
	return nil
}

// dropIfEmpty removes lvl from the heap once its order list is empty. It is
// safe to call eagerly after every fill or cancel.
func (l *ladder) dropIfEmpty(lvl *priceLevel) {
	if !lvl.empty() {
		return
	}
	for i, other := range l.levels.levels {
		if other == lvl {
			heap.Remove(&l.levels, i)
			break
		}
	}
	delete(l.byTick, lvl.ticks)
}

// insert places o on its price level, creating the level if needed.
func (l *ladder) insert(o *restingOrder) {
	lvl, ok := l.byTick[o.PriceTicks]
	if !ok {
		lvl = newPriceLevel(o.PriceTicks, o.Price)
		l.byTick[o.PriceTicks] = lvl
		heap.Push(&l.levels, lvl)
	}
	lvl.push(o)
}

// remove finds and detaches order orderID wherever it rests in this ladder.
func (l *ladder) remove(orderID int64) *restingOrder {
	for _, lvl := range l.levels.levels {
		if o := lvl.remove(orderID); o != nil {
			l.dropIfEmpty(lvl)
			return o
		}
	}
	return nil
}

// levelHeap is a container/heap over price levels. isBid picks the
// direction: bids want the highest price on top, asks the lowest.
type levelHeap struct {
	levels []*priceLevel
	isBid  bool
}

func (h levelHeap) Len() int { return len(h.levels) }

func (h levelHeap) Less(i, j int) bool {
	if h.isBid {
		return h.levels[i].ticks > h.levels[j].ticks
	}
	return h.levels[i].ticks < h.levels[j].ticks
}

func (h levelHeap) Swap(i, j int) { h.levels[i], h.levels[j] = h.levels[j], h.levels[i] }

func (h *levelHeap) Push(x any) {
	h.levels = append(h.levels, x.(*priceLevel))
}

func (h *levelHeap) Pop() any {
	old := h.levels
	n := len(old)
	lvl := old[n-1]
	h.levels = old[:n-1]
	return lvl
}
