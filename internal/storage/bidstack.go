// Package storage - Bid stack persistence.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/klingon-exchange/taskauction/internal/auction"
)

const (
	sentinelBidder = ""
	sentinelSeq    = 0
)

// GetHead returns the sentinel head for key's bid stack, implementing
// auction.Store.
func (s *Storage) GetHead(key auction.AuctionKey) (auction.Head, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var topBidder string
	var topSeq uint64
	var price uint64
	err := s.db.QueryRow(`
		SELECT prev_bidder, prev_seq, price FROM bids
		WHERE owner = ? AND nonce = ? AND bid_bidder = ? AND bid_seq = ?
	`, string(key.Owner), key.Nonce, sentinelBidder, sentinelSeq).Scan(&topBidder, &topSeq, &price)

	if err == sql.ErrNoRows {
		return auction.Head{}, false, nil
	}
	if err != nil {
		return auction.Head{}, false, fmt.Errorf("failed to get bid stack head: %w", err)
	}

	return auction.Head{
		Top:   auction.BidKey{Bidder: auction.AccountID(topBidder), Seq: topSeq},
		Price: price,
	}, true, nil
}

// SetHead installs head as key's sentinel, implementing auction.Store.
func (s *Storage) SetHead(key auction.AuctionKey, head auction.Head) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO bids (owner, nonce, bid_bidder, bid_seq, prev_bidder, prev_seq, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, nonce, bid_bidder, bid_seq) DO UPDATE SET
			prev_bidder = excluded.prev_bidder,
			prev_seq = excluded.prev_seq,
			price = excluded.price
	`,
		string(key.Owner), key.Nonce, sentinelBidder, sentinelSeq,
		string(head.Top.Bidder), head.Top.Seq, head.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to set bid stack head: %w", err)
	}
	return nil
}

// DeleteHead removes key's sentinel, implementing auction.Store.
func (s *Storage) DeleteHead(key auction.AuctionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		DELETE FROM bids WHERE owner = ? AND nonce = ? AND bid_bidder = ? AND bid_seq = ?
	`, string(key.Owner), key.Nonce, sentinelBidder, sentinelSeq)
	if err != nil {
		return fmt.Errorf("failed to delete bid stack head: %w", err)
	}
	return nil
}

// GetBid returns the node stored at (auctionKey, bidKey), implementing
// auction.Store.
func (s *Storage) GetBid(auctionKey auction.AuctionKey, bidKey auction.BidKey) (auction.BidNode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var prevBidder string
	var prevSeq uint64
	var price uint64
	err := s.db.QueryRow(`
		SELECT prev_bidder, prev_seq, price FROM bids
		WHERE owner = ? AND nonce = ? AND bid_bidder = ? AND bid_seq = ?
	`, string(auctionKey.Owner), auctionKey.Nonce, string(bidKey.Bidder), bidKey.Seq).Scan(&prevBidder, &prevSeq, &price)

	if err == sql.ErrNoRows {
		return auction.BidNode{}, false, nil
	}
	if err != nil {
		return auction.BidNode{}, false, fmt.Errorf("failed to get bid: %w", err)
	}

	return auction.BidNode{
		Prev:  auction.BidKey{Bidder: auction.AccountID(prevBidder), Seq: prevSeq},
		Price: price,
	}, true, nil
}

// PutBid inserts or overwrites a bid node, implementing auction.Store.
func (s *Storage) PutBid(auctionKey auction.AuctionKey, bidKey auction.BidKey, node auction.BidNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO bids (owner, nonce, bid_bidder, bid_seq, prev_bidder, prev_seq, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, nonce, bid_bidder, bid_seq) DO UPDATE SET
			prev_bidder = excluded.prev_bidder,
			prev_seq = excluded.prev_seq,
			price = excluded.price
	`,
		string(auctionKey.Owner), auctionKey.Nonce, string(bidKey.Bidder), bidKey.Seq,
		string(node.Prev.Bidder), node.Prev.Seq, node.Price,
	)
	if err != nil {
		return fmt.Errorf("failed to save bid: %w", err)
	}
	return nil
}

// DeleteBid removes a single bid node, implementing auction.Store.
func (s *Storage) DeleteBid(auctionKey auction.AuctionKey, bidKey auction.BidKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		DELETE FROM bids WHERE owner = ? AND nonce = ? AND bid_bidder = ? AND bid_seq = ?
	`, string(auctionKey.Owner), auctionKey.Nonce, string(bidKey.Bidder), bidKey.Seq)
	if err != nil {
		return fmt.Errorf("failed to delete bid: %w", err)
	}
	return nil
}

// ClearBids removes every bid entry under auctionKey, including the
// head, implementing auction.Store.
func (s *Storage) ClearBids(auctionKey auction.AuctionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM bids WHERE owner = ? AND nonce = ?`, string(auctionKey.Owner), auctionKey.Nonce)
	if err != nil {
		return fmt.Errorf("failed to clear bid stack: %w", err)
	}
	return nil
}
