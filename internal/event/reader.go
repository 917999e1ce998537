package event

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"matchbook/internal/logging"
)

// requiredColumns are the header names the reader maps by, per §6.1.
// Column order in the file is not fixed.
var requiredColumns = []string{
	"timestamp", "order_id", "instrument", "side", "type", "quantity", "price", "action",
}

// Reader is the Event Source: it turns a CSV byte stream into a sequence of
// validated Orders. Tokenising the line into fields is delegated to
// encoding/csv (out of scope per §1); everything downstream of that —
// header-to-column mapping, field validation, enum parsing — is this
// package's job.
type Reader struct {
	csv     *csv.Reader
	log     *logging.Logger
	header  map[string]int
	lineNum int
}

// NewReader builds a Reader over r. It consumes the header line immediately
// so that a missing/empty header can be reported as a fatal error, per §7
// tier 1.
func NewReader(r io.Reader, log *logging.Logger) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows may vary; length is checked per-row below
	cr.TrimLeadingSpace = true

	rd := &Reader{csv: cr, log: log}

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("input file has no header line")
		}
		if err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		rd.lineNum++
		if isBlankRow(fields) {
			continue
		}
		rd.header = make(map[string]int, len(fields))
		for i, name := range fields {
			rd.header[name] = i
		}
		break
	}

	for _, col := range requiredColumns {
		if _, ok := rd.header[col]; !ok {
			return nil, fmt.Errorf("header missing required column %q", col)
		}
	}

	return rd, nil
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Next returns the next validated Order, or io.EOF once the stream is
// exhausted. Rows that fail schema parsing are dropped with a logged
// warning and are transparently skipped — they never surface to the
// caller as an error.
func (r *Reader) Next() (Order, error) {
	for {
		fields, err := r.csv.Read()
		if err == io.EOF {
			return Order{}, io.EOF
		}
		if err != nil {
			r.lineNum++
			r.log.Warn("row %d: malformed CSV, dropping: %v", r.lineNum, err)
			continue
		}
		r.lineNum++
		if isBlankRow(fields) {
			continue
		}

		o, err := r.parseRow(fields)
		if err != nil {
			r.log.Warn("row %d: %v", r.lineNum, err)
			continue
		}
		return o, nil
	}
}

func (r *Reader) field(fields []string, name string) (string, bool) {
	idx, ok := r.header[name]
	if !ok || idx >= len(fields) {
		return "", false
	}
	return fields[idx], true
}

func (r *Reader) parseRow(fields []string) (Order, error) {
	ts, ok := r.field(fields, "timestamp")
	if !ok {
		return Order{}, fmt.Errorf("missing timestamp field")
	}
	timestamp, err := strconv.ParseUint(strings.TrimSpace(ts), 10, 64)
	if err != nil {
		return Order{}, fmt.Errorf("bad timestamp %q: %w", ts, err)
	}

	idStr, ok := r.field(fields, "order_id")
	if !ok {
		return Order{}, fmt.Errorf("missing order_id field")
	}
	orderID, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil {
		return Order{}, fmt.Errorf("bad order_id %q: %w", idStr, err)
	}

	instrument, ok := r.field(fields, "instrument")
	if !ok || strings.TrimSpace(instrument) == "" {
		return Order{}, fmt.Errorf("missing instrument field")
	}
	instrument = strings.TrimSpace(instrument)

	sideStr, ok := r.field(fields, "side")
	if !ok {
		return Order{}, fmt.Errorf("missing side field")
	}
	side, err := ParseSide(sideStr)
	if err != nil {
		return Order{}, fmt.Errorf("field side: %v (raw=%q)", err, sideStr)
	}

	typeStr, ok := r.field(fields, "type")
	if !ok {
		return Order{}, fmt.Errorf("missing type field")
	}
	otype, err := ParseType(typeStr)
	if err != nil {
		return Order{}, fmt.Errorf("field type: %v (raw=%q)", err, typeStr)
	}

	qtyStr, ok := r.field(fields, "quantity")
	if !ok {
		return Order{}, fmt.Errorf("missing quantity field")
	}
	quantity, err := strconv.ParseUint(strings.TrimSpace(qtyStr), 10, 64)
	if err != nil {
		return Order{}, fmt.Errorf("bad quantity %q: %w", qtyStr, err)
	}

	actionStr, ok := r.field(fields, "action")
	if !ok {
		return Order{}, fmt.Errorf("missing action field")
	}
	action := ParseAction(actionStr)

	priceStr, _ := r.field(fields, "price")
	priceStr = strings.TrimSpace(priceStr)
	var price float64
	if priceStr != "" {
		price, err = strconv.ParseFloat(priceStr, 64)
		if err != nil {
			return Order{}, fmt.Errorf("bad price %q: %w", priceStr, err)
		}
	}
	if otype == Limit && action == New && price <= 0 {
		return Order{}, fmt.Errorf("price %q: required and must be positive for a NEW LIMIT order", priceStr)
	}

	return Order{
		Timestamp:  timestamp,
		OrderID:    orderID,
		Instrument: instrument,
		Side:       side,
		Type:       otype,
		Quantity:   quantity,
		Price:      price,
		Action:     action,
	}, nil
}
