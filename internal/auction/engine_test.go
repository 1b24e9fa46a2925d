package auction

import (
	"errors"
	"testing"

	"github.com/klingon-exchange/taskauction/internal/auctiontest"
	"github.com/klingon-exchange/taskauction/internal/clock"
	"github.com/klingon-exchange/taskauction/internal/ledger"
)

const (
	acctA ledger.AccountID = "A"
	acctB ledger.AccountID = "B"
	acctC ledger.AccountID = "C"
	acctD ledger.AccountID = "D"
)

func newTestEngine(t *testing.T, start uint64) (*Engine, *auctiontest.Ledger, *clock.Manual) {
	t.Helper()
	store := auctiontest.NewStore()
	led := auctiontest.NewLedger()
	for _, a := range []ledger.AccountID{acctA, acctB, acctC, acctD} {
		led.Fund(a, 10000)
	}
	clk := clock.NewManual(start)
	cfg := Config{MinBounty: 500, MinDeposit: 100, MaxDataSize: 16}
	return New(store, led, clk, cfg), led, clk
}

func TestHappyPathConfirm(t *testing.T) {
	eng, led, clk := newTestEngine(t, 1)

	key, err := eng.Create("A", "B", 1000, 500, 5, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Confirm("A", key); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	assertFree(t, led, acctA, 9100)
	assertFree(t, led, acctC, 10900)
	assertFree(t, led, acctB, 10000)
	assertAbsent(t, eng, key)
}

func TestCancelWithUnassignedBid(t *testing.T) {
	eng, led, clk := newTestEngine(t, 1)
	_ = clk

	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 800); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := eng.Cancel("A", key); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	assertFree(t, led, acctA, 9500)
	assertFree(t, led, acctC, 10500)
	assertFree(t, led, acctB, 10000)
	assertAbsent(t, eng, key)
}

func TestRetractCascade(t *testing.T) {
	eng, led, _ := newTestEngine(t, 1)

	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid C: %v", err)
	}
	if _, err := eng.Bid("D", key, 800); err != nil {
		t.Fatalf("bid D: %v", err)
	}
	if err := eng.Retract("D", key); err != nil {
		t.Fatalf("retract: %v", err)
	}

	_, head, hasBid, err := eng.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hasBid || head.Top.Bidder != "C" || head.Price != 900 {
		t.Fatalf("expected top C@900, got %+v hasBid=%v", head, hasBid)
	}
	assertReserved(t, led, acctD, 0)
	assertReserved(t, led, acctC, 500)
}

func TestRetractAfterAssignmentPenalizes(t *testing.T) {
	eng, led, clk := newTestEngine(t, 1)

	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid C: %v", err)
	}
	if _, err := eng.Bid("D", key, 800); err != nil {
		t.Fatalf("bid D: %v", err)
	}
	clk.Set(10)
	if err := eng.Retract("D", key); err != nil {
		t.Fatalf("retract: %v", err)
	}

	// D loses its deposit to A as a no-show penalty; A's own bounty and
	// deposit remain reserved under the still-live auction.
	assertFree(t, led, acctD, 9500)
	assertFree(t, led, acctA, 9000)
	assertReserved(t, led, acctA, 1500)

	_, head, hasBid, err := eng.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hasBid || head.Top.Bidder != "C" || head.Price != 900 {
		t.Fatalf("expected top C@900, got %+v hasBid=%v", head, hasBid)
	}
	assertReserved(t, led, acctC, 500)
}

func TestArbitrateFulfilled(t *testing.T) {
	eng, led, clk := newTestEngine(t, 1)

	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 800); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Dispute("C", key); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := eng.Arbitrate("B", key, true); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}

	assertFree(t, led, acctA, 8700)
	assertFree(t, led, acctB, 10500)
	assertFree(t, led, acctC, 10800)
	assertAbsent(t, eng, key)
}

func TestArbitrateNotFulfilled(t *testing.T) {
	eng, led, clk := newTestEngine(t, 1)

	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 800); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Dispute("C", key); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := eng.Arbitrate("B", key, false); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}

	assertFree(t, led, acctA, 10000)
	assertFree(t, led, acctB, 10500)
	assertFree(t, led, acctC, 9500)
	assertAbsent(t, eng, key)
}

func TestCreateCancelRoundTrip(t *testing.T) {
	eng, led, _ := newTestEngine(t, 1)

	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := eng.Cancel("A", key); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	assertFree(t, led, acctA, 10000)
	assertReserved(t, led, acctA, 0)
}

func TestBidRejectsOwnerAndArbitrator(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("A", key, 900); !errors.Is(err, ErrOriginProhibited) {
		t.Fatalf("expected ErrOriginProhibited for owner, got %v", err)
	}
	if _, err := eng.Bid("B", key, 900); !errors.Is(err, ErrOriginProhibited) {
		t.Fatalf("expected ErrOriginProhibited for arbitrator, got %v", err)
	}
}

func TestBidMustStrictlyDecrease(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if _, err := eng.Bid("D", key, 900); !errors.Is(err, ErrMinBidRatioRequired) {
		t.Fatalf("expected ErrMinBidRatioRequired, got %v", err)
	}
	if _, err := eng.Bid("D", key, 901); !errors.Is(err, ErrMinBidRatioRequired) {
		t.Fatalf("expected ErrMinBidRatioRequired, got %v", err)
	}
}

func TestFirstBidCannotExceedBounty(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 1001); !errors.Is(err, ErrMinBidRatioRequired) {
		t.Fatalf("expected ErrMinBidRatioRequired, got %v", err)
	}
}

func TestRetractRequiresTopBidder(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := eng.Retract("C", key); !errors.Is(err, ErrTopBidRequired) {
		t.Fatalf("expected ErrTopBidRequired on empty stack, got %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := eng.Retract("D", key); !errors.Is(err, ErrTopBidRequired) {
		t.Fatalf("expected ErrTopBidRequired for non-top bidder, got %v", err)
	}
}

func TestDisputeRequiresAssignment(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := eng.Dispute("C", key); !errors.Is(err, ErrAuctionNotAssigned) {
		t.Fatalf("expected ErrAuctionNotAssigned, got %v", err)
	}
}

func TestCreateValidatesMinimums(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	if _, err := eng.Create("A", "B", 100, 500, 5, nil); !errors.Is(err, ErrMinBountyRequired) {
		t.Fatalf("expected ErrMinBountyRequired, got %v", err)
	}
	if _, err := eng.Create("A", "B", 1000, 50, 5, nil); !errors.Is(err, ErrMinDepositRequired) {
		t.Fatalf("expected ErrMinDepositRequired, got %v", err)
	}
	if _, err := eng.Create("A", "B", 1000, 500, 5, make([]byte, 17)); !errors.Is(err, ErrMaxDataSizeExceeded) {
		t.Fatalf("expected ErrMaxDataSizeExceeded, got %v", err)
	}
}

func TestExtendRaisesBountyAndTerminal(t *testing.T) {
	eng, led, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	assertReserved(t, led, acctA, 1500)

	if err := eng.Extend("A", key, 1500, 20); err != nil {
		t.Fatalf("extend: %v", err)
	}

	assertFree(t, led, acctA, 8000)
	assertReserved(t, led, acctA, 2000)

	rec, _, _, err := eng.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Bounty != 1500 || rec.TerminalBlock != 20 {
		t.Fatalf("rec = %+v, want bounty 1500 terminal 20", rec)
	}
}

func TestExtendRequiresOwner(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := eng.Extend("C", key, 1500, 20); !errors.Is(err, ErrOwnerRequired) {
		t.Fatalf("expected ErrOwnerRequired, got %v", err)
	}
}

func TestExtendRequiresBountyIncrease(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := eng.Extend("A", key, 1000, 20); !errors.Is(err, ErrMinBountyRequired) {
		t.Fatalf("expected ErrMinBountyRequired for equal bounty, got %v", err)
	}
	if err := eng.Extend("A", key, 900, 20); !errors.Is(err, ErrMinBountyRequired) {
		t.Fatalf("expected ErrMinBountyRequired for lower bounty, got %v", err)
	}
}

func TestExtendRejectsAssignedAuction(t *testing.T) {
	eng, _, clk := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Extend("A", key, 1500, 20); !errors.Is(err, ErrAuctionAssigned) {
		t.Fatalf("expected ErrAuctionAssigned, got %v", err)
	}
}

func TestBidRejectsAssignedAuction(t *testing.T) {
	eng, _, clk := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if _, err := eng.Bid("D", key, 800); !errors.Is(err, ErrAuctionAssigned) {
		t.Fatalf("expected ErrAuctionAssigned, got %v", err)
	}
}

func TestCancelRejectsAssignedAuction(t *testing.T) {
	eng, _, clk := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Cancel("A", key); !errors.Is(err, ErrAuctionAssigned) {
		t.Fatalf("expected ErrAuctionAssigned, got %v", err)
	}
}

func TestConfirmRequiresAssignment(t *testing.T) {
	eng, _, _ := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// BasePrice is low this early in the auction, so a bid above it
	// posts without being assigned yet.
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := eng.Confirm("A", key); !errors.Is(err, ErrAuctionNotAssigned) {
		t.Fatalf("expected ErrAuctionNotAssigned, got %v", err)
	}
}

func TestRetractRejectsDisputedAuction(t *testing.T) {
	eng, _, clk := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Dispute("C", key); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := eng.Retract("C", key); !errors.Is(err, ErrAuctionDisputed) {
		t.Fatalf("expected ErrAuctionDisputed, got %v", err)
	}
}

func TestDisputeRejectsWrongSigner(t *testing.T) {
	eng, _, clk := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Dispute("D", key); !errors.Is(err, ErrOriginProhibited) {
		t.Fatalf("expected ErrOriginProhibited, got %v", err)
	}
}

func TestArbitrateRejectsWrongSigner(t *testing.T) {
	eng, _, clk := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Dispute("C", key); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := eng.Arbitrate("C", key, true); !errors.Is(err, ErrOriginProhibited) {
		t.Fatalf("expected ErrOriginProhibited for non-arbitrator signer, got %v", err)
	}
}

func TestArbitrateRequiresDispute(t *testing.T) {
	eng, _, clk := newTestEngine(t, 1)
	key, err := eng.Create("A", "B", 1000, 500, 5, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := eng.Bid("C", key, 900); err != nil {
		t.Fatalf("bid: %v", err)
	}
	clk.Set(10)
	if err := eng.Arbitrate("B", key, true); !errors.Is(err, ErrAuctionNotDisputed) {
		t.Fatalf("expected ErrAuctionNotDisputed, got %v", err)
	}
}

func assertFree(t *testing.T, led *auctiontest.Ledger, account ledger.AccountID, want uint64) {
	t.Helper()
	if got := led.FreeBalance(account); got != want {
		t.Errorf("free balance of %s = %d, want %d", account, got, want)
	}
}

func assertReserved(t *testing.T, led *auctiontest.Ledger, account ledger.AccountID, want uint64) {
	t.Helper()
	if got := led.ReservedBalance(account); got != want {
		t.Errorf("reserved balance of %s = %d, want %d", account, got, want)
	}
}

func assertAbsent(t *testing.T, eng *Engine, key AuctionKey) {
	t.Helper()
	if _, _, _, err := eng.Get(key); !errors.Is(err, ErrAuctionKeyNotFound) {
		t.Errorf("expected auction %v to be absent, got err=%v", key, err)
	}
}
