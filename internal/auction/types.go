// Package auction implements the task-auction escrow engine: a
// deterministic state machine for posting paid tasks, running a reverse
// Dutch auction over bids, and settling the resulting contract through an
// external ledger.
package auction

// AccountID identifies a party known to the host (owner, bidder,
// arbitrator). The engine never interprets its contents; equality and the
// sentinel zero value are the only things that matter here.
type AccountID string

// ZeroAccount is the sentinel identity. No real account may ever equal it;
// the host is responsible for that guarantee (see spec §9, "Sentinel
// key").
const ZeroAccount AccountID = ""

// AuctionKey is the auction's identity: the owner account paired with the
// owner's nonce at the moment of creation. The host guarantees
// per-account nonces are monotone, which makes the pair unique across the
// whole system.
type AuctionKey struct {
	Owner AccountID
	Nonce uint64
}

// BidKey identifies one entry on an auction's bid stack.
type BidKey struct {
	Bidder AccountID
	Seq    uint64
}

// sentinelBidKey marks the head of an empty chain.
var sentinelBidKey = BidKey{Bidder: ZeroAccount, Seq: 0}

// IsSentinel reports whether k is the reserved head marker rather than a
// real bid.
func (k BidKey) IsSentinel() bool {
	return k == sentinelBidKey
}

// Record is the persistent state of one auction.
type Record struct {
	Key           AuctionKey
	Arbitrator    AccountID
	Bounty        uint64
	Deposit       uint64
	InitialBlock  uint64
	TerminalBlock uint64
	Data          []byte
	InDispute     bool
}

// Owner returns the auction's owning account, which is always the first
// component of its key. No separate owner field is ever stored.
func (r *Record) Owner() AccountID {
	return r.Key.Owner
}

// BidNode is one link in an auction's bid stack: the price committed at
// BidKey and the key of the bid pushed immediately before it.
type BidNode struct {
	Prev  BidKey
	Price uint64
}

// Head is the sentinel entry recording the current top of an auction's
// bid stack, or its absence.
type Head struct {
	Top   BidKey
	Price uint64
}

// Empty reports whether the stack this head describes has no bids.
func (h Head) Empty() bool {
	return h.Top.IsSentinel()
}
