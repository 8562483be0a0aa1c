package persist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/fabric"
	"github.com/openmarket-sim/matchcore/internal/instrument"
	"github.com/openmarket-sim/matchcore/internal/matchengine"
	"github.com/openmarket-sim/matchcore/internal/order"
	"github.com/openmarket-sim/matchcore/internal/phase"
	"github.com/openmarket-sim/matchcore/internal/repository"
	"github.com/openmarket-sim/matchcore/internal/wire"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testInstrument(id uint64) instrument.Instrument {
	return instrument.Instrument{
		InstrumentId:  id,
		Symbol:        "ACME",
		SecurityType:  instrument.Equity,
		PriceCurrency: "USD",
		TickSize:      dec("0.01"),
		MinQuantity:   dec("1"),
	}
}

func openEngine(inst instrument.Instrument) *matchengine.Engine {
	e := matchengine.NewEngine(inst, fabric.Inline, matchengine.DefaultConfig())
	e.OnPhaseTransition(phase.Transition{Kind: phase.Open}, false)
	return e
}

func TestFileStoreRoundTripsRestingOrders(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	repo := repository.New()
	eng := openEngine(testInstrument(1))
	if err := repo.AddEngine(eng); err != nil {
		t.Fatalf("add engine: %v", err)
	}
	repo.Seal()

	eng.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.GTC,
	}, time.Now())

	store := NewFileStore(dir)
	if err := store.StoreState(repo); err != nil {
		t.Fatalf("store state: %v", err)
	}

	// Recover into a fresh engine/repository pair.
	repo2 := repository.New()
	eng2 := openEngine(testInstrument(1))
	if err := repo2.AddEngine(eng2); err != nil {
		t.Fatalf("add engine: %v", err)
	}
	repo2.Seal()

	if err := store.RecoverState(repo2); err != nil {
		t.Fatalf("recover state: %v", err)
	}

	restored := eng2.CaptureInstrumentState()
	if len(restored.RestingOrders) != 1 {
		t.Fatalf("expected 1 restored resting order, got %d", len(restored.RestingOrders))
	}
	if !restored.RestingOrders[0].LeavesQuantity.Equal(dec("100")) {
		t.Fatalf("expected leaves quantity 100, got %v", restored.RestingOrders[0].LeavesQuantity)
	}
}

func TestFileStoreRecoverWithNoPriorSnapshotIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	store := NewFileStore(dir)

	repo := repository.New()
	eng := openEngine(testInstrument(1))
	if err := repo.AddEngine(eng); err != nil {
		t.Fatalf("add engine: %v", err)
	}
	repo.Seal()

	if err := store.RecoverState(repo); err != nil {
		t.Fatalf("expected no error recovering with no prior snapshot, got %v", err)
	}
}

func TestFileStoreSkipsUnknownInstrumentInIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	repo := repository.New()
	eng := openEngine(testInstrument(1))
	if err := repo.AddEngine(eng); err != nil {
		t.Fatalf("add engine: %v", err)
	}
	repo.Seal()

	eng.PlaceOrder(wire.NewOrderSingle{
		ClientOrderId: "c1", SessionId: "s1",
		Side: order.Buy, Type: order.Limit,
		Price: dec("10.00"), Quantity: dec("100"), TimeInForce: order.GTC,
	}, time.Now())

	store := NewFileStore(dir)
	if err := store.StoreState(repo); err != nil {
		t.Fatalf("store state: %v", err)
	}

	// A repository that never listed instrument 1 should skip it, not fail.
	repo2 := repository.New()
	eng2 := openEngine(testInstrument(2))
	if err := repo2.AddEngine(eng2); err != nil {
		t.Fatalf("add engine: %v", err)
	}
	repo2.Seal()

	if err := store.RecoverState(repo2); err != nil {
		t.Fatalf("expected unknown-instrument entries to be skipped, got error %v", err)
	}
}
