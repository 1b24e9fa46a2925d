package auction

// pushBid computes a fresh BidKey for bidder, links it to the current
// top (or the sentinel if the stack is empty), and installs it as the
// new top. It returns the key it assigned.
func pushBid(store Store, key AuctionKey, bidder AccountID, price uint64) (BidKey, error) {
	head, ok, err := store.GetHead(key)
	if err != nil {
		return BidKey{}, err
	}
	prev := sentinelBidKey
	if ok {
		prev = head.Top
	}

	seq, err := nextLocalSeq(store, key, bidder)
	if err != nil {
		return BidKey{}, err
	}
	bidKey := BidKey{Bidder: bidder, Seq: seq}

	if err := store.PutBid(key, bidKey, BidNode{Prev: prev, Price: price}); err != nil {
		return BidKey{}, err
	}
	if err := store.SetHead(key, Head{Top: bidKey, Price: price}); err != nil {
		return BidKey{}, err
	}
	return bidKey, nil
}

// nextLocalSeq yields a fresh per-auction sequence number for bidder. It
// walks the stack from the top and returns one more than the sequence of
// bidder's most recent bid still on it; a bidder with no bid on the
// stack gets seq 1.
func nextLocalSeq(store Store, key AuctionKey, bidder AccountID) (uint64, error) {
	head, ok, err := store.GetHead(key)
	if err != nil {
		return 0, err
	}
	cur := sentinelBidKey
	if ok {
		cur = head.Top
	}
	for !cur.IsSentinel() {
		if cur.Bidder == bidder {
			return cur.Seq + 1, nil
		}
		node, ok, err := store.GetBid(key, cur)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		cur = node.Prev
	}
	return 1, nil
}

// topOf returns the current head of key's bid stack, or ok=false if it
// is empty.
func topOf(store Store, key AuctionKey) (head Head, ok bool, err error) {
	return store.GetHead(key)
}

// popTop removes the current top entry and installs its predecessor as
// the new top. If the predecessor is the sentinel, the stack becomes
// empty. It returns the new head and whether the stack still has bids.
func popTop(store Store, key AuctionKey) (newHead Head, nonEmpty bool, err error) {
	head, ok, err := store.GetHead(key)
	if err != nil {
		return Head{}, false, err
	}
	if !ok {
		return Head{}, false, nil
	}
	top := head.Top
	node, ok, err := store.GetBid(key, top)
	if err != nil {
		return Head{}, false, err
	}
	if !ok {
		// Inconsistent store state; treat as empty rather than panic.
		if err := store.DeleteHead(key); err != nil {
			return Head{}, false, err
		}
		return Head{}, false, nil
	}
	if err := store.DeleteBid(key, top); err != nil {
		return Head{}, false, err
	}

	if node.Prev.IsSentinel() {
		if err := store.DeleteHead(key); err != nil {
			return Head{}, false, err
		}
		return Head{}, false, nil
	}

	predNode, ok, err := store.GetBid(key, node.Prev)
	if err != nil {
		return Head{}, false, err
	}
	if !ok {
		if err := store.DeleteHead(key); err != nil {
			return Head{}, false, err
		}
		return Head{}, false, nil
	}
	newHead = Head{Top: node.Prev, Price: predNode.Price}
	if err := store.SetHead(key, newHead); err != nil {
		return Head{}, false, err
	}
	return newHead, true, nil
}

// clearBids removes every bid entry under key, including the sentinel
// head.
func clearBids(store Store, key AuctionKey) error {
	return store.ClearBids(key)
}
