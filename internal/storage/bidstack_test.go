package storage

import (
	"testing"

	"github.com/klingon-exchange/taskauction/internal/auction"
)

func TestBidStackPersistence(t *testing.T) {
	store := newTestStorage(t)
	key := auction.AuctionKey{Owner: "A", Nonce: 1}

	if _, ok, err := store.GetHead(key); err != nil || ok {
		t.Fatalf("expected empty stack, ok=%v err=%v", ok, err)
	}

	k1 := auction.BidKey{Bidder: "C", Seq: 1}
	if err := store.PutBid(key, k1, auction.BidNode{Price: 900}); err != nil {
		t.Fatalf("PutBid 1: %v", err)
	}
	if err := store.SetHead(key, auction.Head{Top: k1, Price: 900}); err != nil {
		t.Fatalf("SetHead 1: %v", err)
	}

	k2 := auction.BidKey{Bidder: "D", Seq: 1}
	if err := store.PutBid(key, k2, auction.BidNode{Prev: k1, Price: 800}); err != nil {
		t.Fatalf("PutBid 2: %v", err)
	}
	if err := store.SetHead(key, auction.Head{Top: k2, Price: 800}); err != nil {
		t.Fatalf("SetHead 2: %v", err)
	}

	head, ok, err := store.GetHead(key)
	if err != nil || !ok || head.Top != k2 || head.Price != 800 {
		t.Fatalf("unexpected head: %+v ok=%v err=%v", head, ok, err)
	}

	node, ok, err := store.GetBid(key, k2)
	if err != nil || !ok || node.Prev != k1 || node.Price != 800 {
		t.Fatalf("unexpected node: %+v ok=%v err=%v", node, ok, err)
	}

	if err := store.DeleteBid(key, k2); err != nil {
		t.Fatalf("DeleteBid: %v", err)
	}
	if _, ok, _ := store.GetBid(key, k2); ok {
		t.Fatal("expected bid to be deleted")
	}

	if err := store.ClearBids(key); err != nil {
		t.Fatalf("ClearBids: %v", err)
	}
	if _, ok, _ := store.GetHead(key); ok {
		t.Fatal("expected head to be cleared")
	}
	if _, ok, _ := store.GetBid(key, k1); ok {
		t.Fatal("expected bid to be cleared")
	}
}
