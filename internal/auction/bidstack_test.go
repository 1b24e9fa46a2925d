package auction

import (
	"testing"

	"github.com/klingon-exchange/taskauction/internal/auctiontest"
)

func TestPushPopTopClear(t *testing.T) {
	store := auctiontest.NewStore()
	key := AuctionKey{Owner: "A", Nonce: 1}

	if _, ok, err := topOf(store, key); err != nil || ok {
		t.Fatalf("expected empty stack, ok=%v err=%v", ok, err)
	}

	k1, err := pushBid(store, key, "C", 900)
	if err != nil {
		t.Fatalf("push 1: %v", err)
	}
	k2, err := pushBid(store, key, "D", 800)
	if err != nil {
		t.Fatalf("push 2: %v", err)
	}
	if k1.Bidder != "C" || k2.Bidder != "D" {
		t.Fatalf("unexpected keys: %+v %+v", k1, k2)
	}

	head, ok, err := topOf(store, key)
	if err != nil || !ok || head.Top != k2 || head.Price != 800 {
		t.Fatalf("unexpected head after two pushes: %+v ok=%v err=%v", head, ok, err)
	}

	newHead, nonEmpty, err := popTop(store, key)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if !nonEmpty || newHead.Top != k1 || newHead.Price != 900 {
		t.Fatalf("unexpected head after pop: %+v nonEmpty=%v", newHead, nonEmpty)
	}

	_, nonEmpty, err = popTop(store, key)
	if err != nil {
		t.Fatalf("pop 2: %v", err)
	}
	if nonEmpty {
		t.Fatalf("expected empty stack after popping last bid")
	}
	if _, ok, _ := topOf(store, key); ok {
		t.Fatalf("expected no head after stack drained")
	}
}

func TestClearBids(t *testing.T) {
	store := auctiontest.NewStore()
	key := AuctionKey{Owner: "A", Nonce: 1}
	if _, err := pushBid(store, key, "C", 900); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := clearBids(store, key); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := topOf(store, key); ok {
		t.Fatalf("expected empty stack after clear")
	}
}

func TestNextLocalSeqIncrementsPerBidder(t *testing.T) {
	store := auctiontest.NewStore()
	key := AuctionKey{Owner: "A", Nonce: 1}

	k1, err := pushBid(store, key, "C", 900)
	if err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if k1.Seq != 1 {
		t.Fatalf("expected first bid seq 1, got %d", k1.Seq)
	}
	if _, err := pushBid(store, key, "D", 800); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	k3, err := pushBid(store, key, "C", 700)
	if err != nil {
		t.Fatalf("push 3: %v", err)
	}
	if k3.Seq != 2 {
		t.Fatalf("expected C's second bid to get seq 2, got %d", k3.Seq)
	}
}
