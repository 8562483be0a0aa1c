// Command statetool inspects a persisted instrument-state snapshot
// directory (internal/persist/filestore.go's index.json plus one
// instrument-<id>.json per instrument) offline, without starting any
// matching engine. Repurposed from the teacher's cmd/decoder, which
// connected to a live feed and decoded ITCH frames as they arrived;
// this tool instead reads already-written state off disk, so it keeps
// the teacher's stdlib flag-based CLI shape (a small, single-purpose
// operator tool, not the venue process itself) rather than adopting
// cmd/matchengine's cobra/pflag tree.
//
// Usage:
//
//	statetool -dir ./state                 # summarize every instrument
//	statetool -dir ./state -id 7            # summarize instrument 7 only
//	statetool -dir ./state -id 7 -json      # raw JSON for instrument 7
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/openmarket-sim/matchcore/internal/persist"
)

func main() {
	dir := flag.String("dir", "", "persisted instrument state directory (required)")
	id := flag.Int64("id", -1, "inspect only this instrument id (-1 = all)")
	useJSON := flag.Bool("json", false, "print raw JSON instead of a summary table")
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "statetool: -dir is required")
		flag.Usage()
		os.Exit(1)
	}

	store := persist.NewFileStore(*dir)

	ids, err := store.IndexedInstrumentIDs()
	if err != nil {
		log.Fatalf("read index: %v", err)
	}
	if len(ids) == 0 {
		fmt.Println("no persisted instruments in", *dir)
		return
	}

	if *id >= 0 {
		printInstrument(store, uint64(*id), *useJSON)
		return
	}

	for _, instrumentID := range ids {
		printInstrument(store, instrumentID, *useJSON)
	}
}

func printInstrument(store *persist.FileStore, id uint64, useJSON bool) {
	state, err := store.ReadInstrumentState(id)
	if err != nil {
		fmt.Printf("instrument %d: error: %v\n", id, err)
		return
	}

	if useJSON {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			fmt.Printf("instrument %d: marshal error: %v\n", id, err)
			return
		}
		fmt.Println(string(data))
		return
	}

	var restingQty string
	for i, o := range state.RestingOrders {
		if i == 0 {
			restingQty = o.LeavesQuantity.String()
		}
	}

	fmt.Printf("instrument %-6d symbol=%-8s resting_orders=%-4d next_trade_id=%d",
		state.Instrument.InstrumentId, state.Instrument.Symbol, len(state.RestingOrders), state.NextTradeID)
	if restingQty != "" {
		fmt.Printf(" (first leaves=%s)", restingQty)
	}
	fmt.Println()
}
