// Package auctiontest provides in-memory doubles for auction.Store and
// ledger.Ledger, so engine tests can run against "a fresh registry and a
// fresh mock ledger per scenario" without a database.
package auctiontest

import (
	"sync"

	"github.com/klingon-exchange/taskauction/internal/auction"
)

// Store is an in-memory auction.Store.
type Store struct {
	mu       sync.Mutex
	auctions map[auction.AuctionKey]*auction.Record
	heads    map[auction.AuctionKey]auction.Head
	bids     map[auction.AuctionKey]map[auction.BidKey]auction.BidNode
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		auctions: make(map[auction.AuctionKey]*auction.Record),
		heads:    make(map[auction.AuctionKey]auction.Head),
		bids:     make(map[auction.AuctionKey]map[auction.BidKey]auction.BidNode),
	}
}

func (s *Store) GetAuction(key auction.AuctionKey) (*auction.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.auctions[key]
	if !ok {
		return nil, false, nil
	}
	cp := *rec
	return &cp, true, nil
}

func (s *Store) PutAuction(rec *auction.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.auctions[rec.Key] = &cp
	return nil
}

func (s *Store) DeleteAuction(key auction.AuctionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.auctions, key)
	return nil
}

func (s *Store) GetHead(key auction.AuctionKey) (auction.Head, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.heads[key]
	return h, ok, nil
}

func (s *Store) SetHead(key auction.AuctionKey, head auction.Head) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads[key] = head
	return nil
}

func (s *Store) DeleteHead(key auction.AuctionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.heads, key)
	return nil
}

func (s *Store) GetBid(auctionKey auction.AuctionKey, bidKey auction.BidKey) (auction.BidNode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, ok := s.bids[auctionKey]
	if !ok {
		return auction.BidNode{}, false, nil
	}
	n, ok := nodes[bidKey]
	return n, ok, nil
}

func (s *Store) PutBid(auctionKey auction.AuctionKey, bidKey auction.BidKey, node auction.BidNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, ok := s.bids[auctionKey]
	if !ok {
		nodes = make(map[auction.BidKey]auction.BidNode)
		s.bids[auctionKey] = nodes
	}
	nodes[bidKey] = node
	return nil
}

func (s *Store) DeleteBid(auctionKey auction.AuctionKey, bidKey auction.BidKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bids[auctionKey], bidKey)
	return nil
}

func (s *Store) ClearBids(auctionKey auction.AuctionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bids, auctionKey)
	delete(s.heads, auctionKey)
	return nil
}
