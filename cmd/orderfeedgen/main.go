// Command orderfeedgen writes a synthetic CSV order event stream to stdout
// or a file, suitable as input to matchengine. It generates a random walk
// of resting limit orders per instrument plus a mix of market orders,
// modifies, and cancels, the same way the reference engine's load
// generator and bots synthesize traffic against a live book.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"
)

type instrumentState struct {
	name       string
	mid        float64
	tick       float64
	liveOrders []int64 // order_ids currently believed resting
}

func main() {
	os.Exit(run())
}

func run() int {
	totalEvents := flag.Int("events", 10000, "number of events to generate")
	instrumentCount := flag.Int("instruments", 3, "number of distinct instruments")
	basePrice := flag.Float64("base-price", 100.0, "starting mid price for each instrument")
	tick := flag.Float64("tick", 0.25, "price increment used for random walk and level spread")
	priceRange := flag.Int("price-range", 20, "number of ticks around mid that new orders can land on")
	marketRatio := flag.Int("market-ratio", 8, "1 in N new orders is a MARKET order")
	modifyRatio := flag.Int("modify-ratio", 12, "1 in N events targets an existing order with MODIFY")
	cancelRatio := flag.Int("cancel-ratio", 10, "1 in N events targets an existing order with CANCEL")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for deterministic output")
	outPath := flag.String("out", "", "output file path; empty means stdout")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	var out *os.File
	if *outPath == "" {
		out = os.Stdout
	} else {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	instruments := make([]*instrumentState, *instrumentCount)
	for i := range instruments {
		instruments[i] = &instrumentState{
			name: "SYM" + strconv.Itoa(i+1),
			mid:  *basePrice,
			tick: *tick,
		}
	}

	fmt.Fprintln(w, "timestamp,order_id,instrument,side,type,quantity,price,action")

	var nextID int64 = 1
	var ts uint64 = 1
	for i := 0; i < *totalEvents; i++ {
		inst := instruments[rng.Intn(len(instruments))]
		inst.mid += (rng.Float64() - 0.5) * inst.tick * 2

		action, orderID := nextAction(rng, inst, *modifyRatio, *cancelRatio, &nextID)
		var line string
		switch action {
		case "CANCEL":
			line = formatCancel(ts, orderID, inst.name)
			removeLiveOrder(inst, orderID)
		case "MODIFY":
			side := randomSide(rng)
			qty := randomQty(rng)
			price := randomPrice(rng, inst, *priceRange)
			line = formatOrder(ts, orderID, inst.name, side, "LIMIT", qty, price, "MODIFY")
		default:
			side := randomSide(rng)
			qty := randomQty(rng)
			if rng.Intn(*marketRatio) == 0 {
				line = formatOrder(ts, orderID, inst.name, side, "MARKET", qty, 0, "NEW")
			} else {
				price := randomPrice(rng, inst, *priceRange)
				line = formatOrder(ts, orderID, inst.name, side, "LIMIT", qty, price, "NEW")
				inst.liveOrders = append(inst.liveOrders, orderID)
			}
		}
		fmt.Fprintln(w, line)
		ts++
	}
	return 0
}

func nextAction(rng *rand.Rand, inst *instrumentState, modifyRatio, cancelRatio int, nextID *int64) (string, int64) {
	if len(inst.liveOrders) > 0 && cancelRatio > 0 && rng.Intn(cancelRatio) == 0 {
		return "CANCEL", pickLiveOrder(rng, inst)
	}
	if len(inst.liveOrders) > 0 && modifyRatio > 0 && rng.Intn(modifyRatio) == 0 {
		return "MODIFY", pickLiveOrder(rng, inst)
	}
	id := *nextID
	*nextID++
	return "NEW", id
}

func pickLiveOrder(rng *rand.Rand, inst *instrumentState) int64 {
	return inst.liveOrders[rng.Intn(len(inst.liveOrders))]
}

func removeLiveOrder(inst *instrumentState, orderID int64) {
	for i, id := range inst.liveOrders {
		if id == orderID {
			inst.liveOrders = append(inst.liveOrders[:i], inst.liveOrders[i+1:]...)
			return
		}
	}
}

func randomSide(rng *rand.Rand) string {
	if rng.Intn(2) == 0 {
		return "BUY"
	}
	return "SELL"
}

func randomQty(rng *rand.Rand) uint64 {
	return uint64(rng.Intn(50) + 1)
}

func randomPrice(rng *rand.Rand, inst *instrumentState, priceRangeTicks int) float64 {
	offset := float64(rng.Intn(2*priceRangeTicks+1)-priceRangeTicks) * inst.tick
	price := inst.mid + offset
	if price <= 0 {
		price = inst.tick
	}
	return price
}

func formatOrder(ts uint64, id int64, instrument, side, typ string, qty uint64, price float64, action string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d,%d,%s,%s,%s,%d,%s,%s", ts, id, instrument, side, typ, qty, formatPrice(price), action)
	return b.String()
}

func formatCancel(ts uint64, id int64, instrument string) string {
	return fmt.Sprintf("%d,%d,%s,BUY,LIMIT,0,,CANCEL", ts, id, instrument)
}

func formatPrice(p float64) string {
	if p == 0 {
		return ""
	}
	return strconv.FormatFloat(p, 'f', 2, 64)
}
