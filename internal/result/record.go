// Package result defines the output record shape (§4.3, §6.2) and the CSV
// sink that drains the shared result queue.
package result

import (
	"fmt"
	"strconv"
	"strings"

	"matchbook/internal/event"
)

// Header is the exact output column order from §6.2.
const Header = "timestamp,order_id,instrument,side,type,quantity,price,action,status,executed_quantity,execution_price,counterparty_id"

// Record is one line of the output stream.
type Record struct {
	Timestamp      uint64
	OrderID        int64
	Instrument     string
	Side           event.Side
	Type           event.Type
	Quantity       uint64
	Price          float64
	Action         event.Action
	Status         event.Status
	ExecutedQty    uint64
	ExecutionPrice float64
	CounterpartyID int64
}

// CSV renders the record as one output line, per the column table in §4.3.
func (r Record) CSV() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(r.Timestamp, 10))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(r.OrderID, 10))
	b.WriteByte(',')
	b.WriteString(r.Instrument)
	b.WriteByte(',')
	b.WriteString(r.Side.String())
	b.WriteByte(',')
	b.WriteString(r.Type.String())
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(r.Quantity, 10))
	b.WriteByte(',')
	b.WriteString(formatPrice(r.Price))
	b.WriteByte(',')
	b.WriteString(r.Action.String())
	b.WriteByte(',')
	b.WriteString(r.Status.String())
	b.WriteByte(',')
	b.WriteString(strconv.FormatUint(r.ExecutedQty, 10))
	b.WriteByte(',')
	b.WriteString(formatPrice(r.ExecutionPrice))
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(r.CounterpartyID, 10))
	return b.String()
}

func formatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func (r Record) String() string {
	return fmt.Sprintf("Record{id=%d instr=%s status=%s}", r.OrderID, r.Instrument, r.Status)
}
