package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klingon-exchange/taskauction/internal/auction"
	"github.com/klingon-exchange/taskauction/internal/ledger"
)

// ========================================
// Auction command handlers (spec §4.4)
// ========================================

// AuctionKeyParams identifies an auction on the wire.
type AuctionKeyParams struct {
	Owner AccountParam `json:"owner"`
	Nonce uint64       `json:"nonce"`
}

// AccountParam is the wire representation of an auction.AccountID.
type AccountParam string

func (k AuctionKeyParams) key() auction.AuctionKey {
	return auction.AuctionKey{Owner: auction.AccountID(k.Owner), Nonce: k.Nonce}
}

// AuctionCreateParams is the parameters for auction_create.
type AuctionCreateParams struct {
	Owner         AccountParam `json:"owner"`
	Arbitrator    AccountParam `json:"arbitrator"`
	Bounty        uint64       `json:"bounty"`
	Deposit       uint64       `json:"deposit"`
	TerminalBlock uint64       `json:"terminal_block"`
	Data          []byte       `json:"data,omitempty"`
}

// AuctionCreateResult is the response for auction_create.
type AuctionCreateResult struct {
	Owner AccountParam `json:"owner"`
	Nonce uint64       `json:"nonce"`
}

func (s *Server) auctionCreate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionCreateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	key, err := s.engine.Create(
		auction.AccountID(p.Owner), auction.AccountID(p.Arbitrator),
		p.Bounty, p.Deposit, p.TerminalBlock, p.Data,
	)
	if err != nil {
		return nil, err
	}

	s.log.Info("auction created", "owner", key.Owner, "nonce", key.Nonce, "bounty", p.Bounty)

	return &AuctionCreateResult{Owner: AccountParam(key.Owner), Nonce: key.Nonce}, nil
}

// AuctionExtendParams is the parameters for auction_extend.
type AuctionExtendParams struct {
	AuctionKeyParams
	NewBounty        uint64 `json:"new_bounty"`
	NewTerminalBlock uint64 `json:"new_terminal_block"`
}

func (s *Server) auctionExtend(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionExtendParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.engine.Extend(auction.AccountID(p.Owner), p.key(), p.NewBounty, p.NewTerminalBlock); err != nil {
		return nil, err
	}

	s.log.Info("auction extended", "owner", p.Owner, "nonce", p.Nonce, "new_bounty", p.NewBounty)
	return map[string]bool{"success": true}, nil
}

// AuctionBidParams is the parameters for auction_bid.
type AuctionBidParams struct {
	AuctionKeyParams
	Bidder AccountParam `json:"bidder"`
	Price  uint64       `json:"price"`
}

// AuctionBidResult is the response for auction_bid.
type AuctionBidResult struct {
	Bidder AccountParam `json:"bidder"`
	Seq    uint64       `json:"seq"`
}

func (s *Server) auctionBid(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionBidParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	bidKey, err := s.engine.Bid(auction.AccountID(p.Bidder), p.key(), p.Price)
	if err != nil {
		return nil, err
	}

	s.log.Info("bid posted", "owner", p.Owner, "nonce", p.Nonce, "bidder", p.Bidder, "price", p.Price)
	return &AuctionBidResult{Bidder: AccountParam(bidKey.Bidder), Seq: bidKey.Seq}, nil
}

// AuctionRetractParams is the parameters for auction_retract.
type AuctionRetractParams struct {
	AuctionKeyParams
	Bidder AccountParam `json:"bidder"`
}

func (s *Server) auctionRetract(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionRetractParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.engine.Retract(auction.AccountID(p.Bidder), p.key()); err != nil {
		return nil, err
	}

	s.log.Info("bid retracted", "owner", p.Owner, "nonce", p.Nonce, "bidder", p.Bidder)
	return map[string]bool{"success": true}, nil
}

// AuctionConfirmParams is the parameters for auction_confirm.
type AuctionConfirmParams struct {
	AuctionKeyParams
}

func (s *Server) auctionConfirm(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionConfirmParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.engine.Confirm(auction.AccountID(p.Owner), p.key()); err != nil {
		return nil, err
	}

	s.log.Info("auction confirmed", "owner", p.Owner, "nonce", p.Nonce)
	return map[string]bool{"success": true}, nil
}

// AuctionCancelParams is the parameters for auction_cancel.
type AuctionCancelParams struct {
	AuctionKeyParams
}

func (s *Server) auctionCancel(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionCancelParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.engine.Cancel(auction.AccountID(p.Owner), p.key()); err != nil {
		return nil, err
	}

	s.log.Info("auction cancelled", "owner", p.Owner, "nonce", p.Nonce)
	return map[string]bool{"success": true}, nil
}

// AuctionDisputeParams is the parameters for auction_dispute.
type AuctionDisputeParams struct {
	AuctionKeyParams
	Signer AccountParam `json:"signer"`
}

func (s *Server) auctionDispute(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionDisputeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.engine.Dispute(auction.AccountID(p.Signer), p.key()); err != nil {
		return nil, err
	}

	s.log.Info("auction disputed", "owner", p.Owner, "nonce", p.Nonce, "signer", p.Signer)
	return map[string]bool{"success": true}, nil
}

// AuctionArbitrateParams is the parameters for auction_arbitrate.
type AuctionArbitrateParams struct {
	AuctionKeyParams
	Signer    AccountParam `json:"signer"`
	Fulfilled bool         `json:"fulfilled"`
}

func (s *Server) auctionArbitrate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionArbitrateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	if err := s.engine.Arbitrate(auction.AccountID(p.Signer), p.key(), p.Fulfilled); err != nil {
		return nil, err
	}

	s.log.Info("auction arbitrated", "owner", p.Owner, "nonce", p.Nonce, "fulfilled", p.Fulfilled)
	return map[string]bool{"success": true}, nil
}

// ========================================
// Read-only handlers
// ========================================

// BidEntry is one link of an auction's bid chain, in top-to-sentinel
// order, as returned by auction_get.
type BidEntry struct {
	Bidder AccountParam `json:"bidder"`
	Seq    uint64       `json:"seq"`
	Price  uint64       `json:"price"`
}

// AuctionInfo is the wire representation of an auction record, its
// current top bid, and the full bid chain beneath it.
type AuctionInfo struct {
	Owner         AccountParam `json:"owner"`
	Nonce         uint64       `json:"nonce"`
	Arbitrator    AccountParam `json:"arbitrator"`
	Bounty        uint64       `json:"bounty"`
	Deposit       uint64       `json:"deposit"`
	InitialBlock  uint64       `json:"initial_block"`
	TerminalBlock uint64       `json:"terminal_block"`
	Data          []byte       `json:"data,omitempty"`
	InDispute     bool         `json:"in_dispute"`
	BasePrice     uint64       `json:"base_price"`
	HasBid        bool         `json:"has_bid"`
	TopBidder     AccountParam `json:"top_bidder,omitempty"`
	TopPrice      uint64       `json:"top_price,omitempty"`
	Assigned      bool         `json:"assigned"`
	Bids          []BidEntry   `json:"bids,omitempty"`
}

func recordToInfo(rec *auction.Record, head auction.Head, hasBid bool, now uint64) AuctionInfo {
	info := AuctionInfo{
		Owner:         AccountParam(rec.Owner()),
		Nonce:         rec.Key.Nonce,
		Arbitrator:    AccountParam(rec.Arbitrator),
		Bounty:        rec.Bounty,
		Deposit:       rec.Deposit,
		InitialBlock:  rec.InitialBlock,
		TerminalBlock: rec.TerminalBlock,
		Data:          rec.Data,
		InDispute:     rec.InDispute,
		BasePrice:     auction.BasePrice(rec, now),
		HasBid:        hasBid,
	}
	if hasBid {
		info.TopBidder = AccountParam(head.Top.Bidder)
		info.TopPrice = head.Price
		info.Assigned = auction.IsAssigned(head.Price, info.BasePrice)
	}
	return info
}

// bidChain walks an auction's bid stack from head down to the sentinel,
// for clients that want the full history rather than just the top bid.
// Mirrors the chain walk the original runtime's own tests perform to
// assert price monotonicity down the stack.
func bidChain(store auction.Store, key auction.AuctionKey, head auction.Head) ([]BidEntry, error) {
	var out []BidEntry
	cur := head.Top
	for !cur.IsSentinel() {
		node, ok, err := store.GetBid(key, cur)
		if err != nil {
			return nil, fmt.Errorf("failed to walk bid chain: %w", err)
		}
		if !ok {
			break
		}
		out = append(out, BidEntry{Bidder: AccountParam(cur.Bidder), Seq: cur.Seq, Price: node.Price})
		cur = node.Prev
	}
	return out, nil
}

func (s *Server) auctionGet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionKeyParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	key := p.key()
	rec, head, hasBid, err := s.engine.Get(key)
	if err != nil {
		return nil, err
	}

	info := recordToInfo(rec, head, hasBid, s.engine.Height())
	if hasBid {
		bids, err := bidChain(s.engine.Store(), key, head)
		if err != nil {
			return nil, err
		}
		info.Bids = bids
	}
	return info, nil
}

// AuctionListParams is the parameters for auction_list.
type AuctionListParams struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// AuctionListResult is the response for auction_list.
type AuctionListResult struct {
	Auctions []AuctionInfo `json:"auctions"`
	Count    int           `json:"count"`
}

// lister is implemented by storage backends that support paged auction
// listing. Not every auction.Store need support it, so it is probed
// rather than required by the engine's persistence seam.
type lister interface {
	ListAuctions(limit, offset int) ([]*auction.Record, error)
}

func (s *Server) auctionList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p AuctionListParams
	if params != nil {
		json.Unmarshal(params, &p)
	}
	if p.Limit == 0 {
		p.Limit = 100
	}

	store, ok := s.engine.Store().(lister)
	if !ok {
		return nil, fmt.Errorf("auction registry does not support listing")
	}

	recs, err := store.ListAuctions(p.Limit, p.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}

	now := s.engine.Height()
	out := make([]AuctionInfo, 0, len(recs))
	for _, rec := range recs {
		_, head, hasBid, err := s.engine.Get(rec.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, recordToInfo(rec, head, hasBid, now))
	}

	return &AuctionListResult{Auctions: out, Count: len(out)}, nil
}

// LedgerBalanceParams is the parameters for ledger_balance.
type LedgerBalanceParams struct {
	Account AccountParam `json:"account"`
}

// LedgerBalanceResult is the response for ledger_balance.
type LedgerBalanceResult struct {
	Free     uint64 `json:"free"`
	Reserved uint64 `json:"reserved"`
}

func (s *Server) ledgerBalance(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p LedgerBalanceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	acct := ledger.AccountID(p.Account)
	return &LedgerBalanceResult{
		Free:     s.ledger.FreeBalance(acct),
		Reserved: s.ledger.ReservedBalance(acct),
	}, nil
}

func (s *Server) clockHeight(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return map[string]uint64{"height": s.clock.Height()}, nil
}

// ClockAdvanceParams is the parameters for clock_advance.
type ClockAdvanceParams struct {
	Delta uint64 `json:"delta"`
}

// advanceableClock is implemented by clock.Manual. clock_advance is
// only meaningful against a manually-driven clock; a ticking clock
// rejects it.
type advanceableClock interface {
	Advance(delta uint64) uint64
}

func (s *Server) clockAdvance(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ClockAdvanceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	adv, ok := s.clock.(advanceableClock)
	if !ok {
		return nil, fmt.Errorf("clock does not support manual advance")
	}

	height := adv.Advance(p.Delta)
	s.log.Info("clock advanced", "delta", p.Delta, "height", height)
	return map[string]uint64{"height": height}, nil
}

// eventToInfo renders an engine event for the WebSocket feed.
func eventToInfo(ev auction.Event) map[string]interface{} {
	return map[string]interface{}{
		"id":           ev.ID,
		"kind":         string(ev.Kind),
		"owner":        string(ev.AuctionKey.Owner),
		"nonce":        ev.AuctionKey.Nonce,
		"block_height": ev.BlockHeight,
		"timestamp":    ev.Timestamp.Unix(),
		"data":         ev.Data,
	}
}
