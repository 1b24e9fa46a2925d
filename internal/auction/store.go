package auction

// Store is the persistence seam for the Auction Registry (C1) and Bid
// Stack (C2). It makes no atomicity promises of its own: the engine
// calls it only after all preconditions for a command have passed, so a
// Store implementation never needs to roll anything back (spec §5).
//
// Two implementations exist in this repo: internal/storage (SQLite, for
// the daemon) and internal/auctiontest (plain maps, for engine unit
// tests, per spec §9's design note that tests run against "a fresh
// registry ... per scenario").
type Store interface {
	// GetAuction returns the record for key, or ok=false if none exists.
	GetAuction(key AuctionKey) (rec *Record, ok bool, err error)
	// PutAuction inserts or overwrites the record for key.
	PutAuction(rec *Record) error
	// DeleteAuction removes the record for key. No-op if absent.
	DeleteAuction(key AuctionKey) error

	// GetHead returns the sentinel head for key's bid stack, or
	// ok=false if the stack is empty.
	GetHead(key AuctionKey) (head Head, ok bool, err error)
	// SetHead installs head as the new sentinel for key's stack.
	SetHead(key AuctionKey, head Head) error
	// DeleteHead removes the sentinel, leaving the stack empty.
	DeleteHead(key AuctionKey) error

	// GetBid returns the node stored at (auctionKey, bidKey).
	GetBid(auctionKey AuctionKey, bidKey BidKey) (node BidNode, ok bool, err error)
	// PutBid inserts or overwrites a bid node.
	PutBid(auctionKey AuctionKey, bidKey BidKey, node BidNode) error
	// DeleteBid removes a single bid node. No-op if absent.
	DeleteBid(auctionKey AuctionKey, bidKey BidKey) error
	// ClearBids removes every bid node under auctionKey, including the
	// head.
	ClearBids(auctionKey AuctionKey) error
}
