// Package auction implements the task-auction escrow engine: a
// deterministic state machine for posting paid tasks, running a reverse
// Dutch auction over bids, and settling the resulting contract through an
// external ledger.
package auction

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klingon-exchange/taskauction/internal/clock"
	"github.com/klingon-exchange/taskauction/internal/ledger"
	"github.com/klingon-exchange/taskauction/pkg/logging"
)

// Engine is the escrow state machine. One Engine serves every auction
// in the system; auctions are distinguished entirely by their
// AuctionKey.
type Engine struct {
	mu sync.Mutex

	store  Store
	ledger ledger.Ledger
	clock  clock.Clock
	cfg    Config
	log    *logging.Logger

	eventHandlers []EventHandler
}

// New constructs an Engine over the given collaborators.
func New(store Store, led ledger.Ledger, clk clock.Clock, cfg Config) *Engine {
	return &Engine{
		store:         store,
		ledger:        led,
		clock:         clk,
		cfg:           cfg,
		log:           logging.GetDefault().Component("auction"),
		eventHandlers: make([]EventHandler, 0),
	}
}

func toLedgerAccount(a AccountID) ledger.AccountID { return ledger.AccountID(a) }

// Create opens a new auction. See spec §4.4, create.
func (e *Engine) Create(owner, arbitrator AccountID, bounty, deposit uint64, terminalBlock uint64, data []byte) (AuctionKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if bounty < e.cfg.MinBounty {
		return AuctionKey{}, ErrMinBountyRequired
	}
	if deposit < e.cfg.MinDeposit {
		return AuctionKey{}, ErrMinDepositRequired
	}
	if len(data) > e.cfg.MaxDataSize {
		return AuctionKey{}, ErrMaxDataSizeExceeded
	}

	nonce, err := e.freshNonce(owner)
	if err != nil {
		return AuctionKey{}, err
	}
	key := AuctionKey{Owner: owner, Nonce: nonce}
	now := e.clock.Height()

	if err := e.ledger.Reserve(toLedgerAccount(owner), bounty+deposit); err != nil {
		return AuctionKey{}, err
	}

	rec := &Record{
		Key:           key,
		Arbitrator:    arbitrator,
		Bounty:        bounty,
		Deposit:       deposit,
		InitialBlock:  now,
		TerminalBlock: terminalBlock,
		Data:          data,
		InDispute:     false,
	}
	if err := e.store.PutAuction(rec); err != nil {
		return AuctionKey{}, err
	}

	e.emitEvent(newEvent(EventCreated, key, now, CreatedData{
		Arbitrator:    arbitrator,
		Bounty:        bounty,
		Deposit:       deposit,
		InitialBlock:  now,
		TerminalBlock: terminalBlock,
	}))
	return key, nil
}

// freshNonce picks a nonce unused by owner. The host normally supplies a
// monotone per-account nonce already; this fallback linearly probes
// when the engine is asked to mint one itself (as in this repo's daemon,
// which has no separate account-nonce authority).
func (e *Engine) freshNonce(owner AccountID) (uint64, error) {
	for nonce := uint64(0); ; nonce++ {
		_, ok, err := e.store.GetAuction(AuctionKey{Owner: owner, Nonce: nonce})
		if err != nil {
			return 0, err
		}
		if !ok {
			return nonce, nil
		}
	}
}

// Extend raises an auction's bounty and resets its terminal block. See
// spec §4.4, extend.
func (e *Engine) Extend(owner AccountID, key AuctionKey, newBounty, newTerminalBlock uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuctionKeyNotFound
	}
	if owner != rec.Owner() {
		return ErrOwnerRequired
	}
	if err := e.requireNotAssigned(rec); err != nil {
		return err
	}
	if newBounty <= rec.Bounty {
		return ErrMinBountyRequired
	}

	delta := newBounty - rec.Bounty
	if err := e.ledger.Reserve(toLedgerAccount(owner), delta); err != nil {
		return err
	}

	rec.Bounty = newBounty
	rec.TerminalBlock = newTerminalBlock
	if err := e.store.PutAuction(rec); err != nil {
		return err
	}

	e.emitEvent(newEvent(EventExtended, key, e.clock.Height(), ExtendedData{Bounty: newBounty, TerminalBlock: newTerminalBlock}))
	return nil
}

// Bid posts a new top bid. See spec §4.4, bid.
func (e *Engine) Bid(bidder AccountID, key AuctionKey, price uint64) (BidKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return BidKey{}, err
	}
	if !ok {
		return BidKey{}, ErrAuctionKeyNotFound
	}
	if bidder == rec.Owner() || bidder == rec.Arbitrator {
		return BidKey{}, ErrOriginProhibited
	}

	head, hasBid, err := e.store.GetHead(key)
	if err != nil {
		return BidKey{}, err
	}
	now := e.clock.Height()
	if hasBid {
		if IsAssigned(head.Price, BasePrice(rec, now)) {
			return BidKey{}, ErrAuctionAssigned
		}
		if price >= head.Price {
			return BidKey{}, ErrMinBidRatioRequired
		}
	} else if price > rec.Bounty {
		return BidKey{}, ErrMinBidRatioRequired
	}

	if hasBid {
		e.ledger.Unreserve(toLedgerAccount(head.Top.Bidder), rec.Deposit)
	}
	if err := e.ledger.Reserve(toLedgerAccount(bidder), rec.Deposit); err != nil {
		if hasBid {
			if rerr := e.ledger.Reserve(toLedgerAccount(head.Top.Bidder), rec.Deposit); rerr != nil {
				e.log.Error("failed to restore previous top bidder's reserve after rejected bid", "err", rerr)
			}
		}
		return BidKey{}, err
	}

	bidKey, err := pushBid(e.store, key, bidder, price)
	if err != nil {
		return BidKey{}, err
	}

	e.emitEvent(newEvent(EventBid, key, now, BidData{BidKey: bidKey, Price: price}))
	return bidKey, nil
}

// requireNotAssigned returns ErrAuctionAssigned if key's top bid, if
// any, is currently assigned.
func (e *Engine) requireNotAssigned(rec *Record) error {
	head, ok, err := e.store.GetHead(rec.Key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if IsAssigned(head.Price, BasePrice(rec, e.clock.Height())) {
		return ErrAuctionAssigned
	}
	return nil
}

// Retract withdraws the top bid and cascades down the stack past any
// bidder who can no longer cover the deposit. See spec §4.4, retract.
func (e *Engine) Retract(bidder AccountID, key AuctionKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuctionKeyNotFound
	}
	if rec.InDispute {
		return ErrAuctionDisputed
	}

	head, hasBid, err := e.store.GetHead(key)
	if err != nil {
		return err
	}
	if !hasBid || head.Top.Bidder != bidder {
		return ErrTopBidRequired
	}

	now := e.clock.Height()
	wasAssigned := IsAssigned(head.Price, BasePrice(rec, now))

	e.ledger.Unreserve(toLedgerAccount(bidder), rec.Deposit)
	if wasAssigned {
		if err := e.ledger.Transfer(toLedgerAccount(bidder), toLedgerAccount(rec.Owner()), rec.Deposit, ledger.AllowReap); err != nil {
			e.log.Error("retract penalty transfer failed", "auction", key, "err", err)
		}
	}

	newHead, nonEmpty, err := popTop(e.store, key)
	if err != nil {
		return err
	}
	for nonEmpty {
		if err := e.ledger.Reserve(toLedgerAccount(newHead.Top.Bidder), rec.Deposit); err == nil {
			break
		}
		newHead, nonEmpty, err = popTop(e.store, key)
		if err != nil {
			return err
		}
	}

	newTop := BidKey{}
	newPrice := rec.Bounty
	if nonEmpty {
		newTop = newHead.Top
		newPrice = newHead.Price
	}
	e.emitEvent(newEvent(EventRetracted, key, now, RetractedData{BidKey: newTop, Price: newPrice}))
	return nil
}

// Confirm settles an assigned auction in the bidder's favor. See spec
// §4.4, confirm.
func (e *Engine) Confirm(owner AccountID, key AuctionKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuctionKeyNotFound
	}
	if owner != rec.Owner() {
		return ErrOwnerRequired
	}
	head, hasBid, err := e.store.GetHead(key)
	if err != nil {
		return err
	}
	if !hasBid || !IsAssigned(head.Price, BasePrice(rec, e.clock.Height())) {
		return ErrAuctionNotAssigned
	}

	top := head.Top
	topPrice := head.Price

	e.ledger.Unreserve(toLedgerAccount(top.Bidder), rec.Deposit)
	e.ledger.Unreserve(toLedgerAccount(owner), rec.Bounty+rec.Deposit)
	if err := e.ledger.Transfer(toLedgerAccount(owner), toLedgerAccount(top.Bidder), topPrice, ledger.AllowReap); err != nil {
		return err
	}

	if err := e.teardown(key); err != nil {
		return err
	}

	e.emitEvent(newEvent(EventConfirmed, key, e.clock.Height(), ConfirmedData{BidKey: top, Price: topPrice}))
	return nil
}

// Cancel withdraws an unassigned auction, penalizing a no-show owner if
// a bid had already been posted. See spec §4.4, cancel.
func (e *Engine) Cancel(owner AccountID, key AuctionKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuctionKeyNotFound
	}
	if owner != rec.Owner() {
		return ErrOwnerRequired
	}
	if err := e.requireNotAssigned(rec); err != nil {
		return err
	}

	head, hasBid, err := e.store.GetHead(key)
	if err != nil {
		return err
	}

	e.ledger.Unreserve(toLedgerAccount(owner), rec.Bounty+rec.Deposit)
	var penalized AccountID
	if hasBid {
		e.ledger.Unreserve(toLedgerAccount(head.Top.Bidder), rec.Deposit)
		if err := e.ledger.Transfer(toLedgerAccount(owner), toLedgerAccount(head.Top.Bidder), rec.Deposit, ledger.AllowReap); err != nil {
			e.log.Error("cancel no-show penalty transfer failed", "auction", key, "err", err)
		}
		penalized = head.Top.Bidder
	}

	if err := e.teardown(key); err != nil {
		return err
	}

	e.emitEvent(newEvent(EventCancelled, key, e.clock.Height(), CancelledData{PenalizedBidder: penalized}))
	return nil
}

// Dispute flags an assigned auction as contested. See spec §4.4,
// dispute.
func (e *Engine) Dispute(signer AccountID, key AuctionKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuctionKeyNotFound
	}
	if rec.InDispute {
		return ErrAuctionDisputed
	}
	head, hasBid, err := e.store.GetHead(key)
	if err != nil {
		return err
	}
	if !hasBid || !IsAssigned(head.Price, BasePrice(rec, e.clock.Height())) {
		return ErrAuctionNotAssigned
	}
	if signer != rec.Owner() && signer != head.Top.Bidder {
		return ErrOriginProhibited
	}

	rec.InDispute = true
	if err := e.store.PutAuction(rec); err != nil {
		return err
	}

	e.emitEvent(newEvent(EventDisputed, key, e.clock.Height(), DisputedData{Bidder: head.Top.Bidder}))
	return nil
}

// Arbitrate resolves a disputed auction. See spec §4.4, arbitrate.
func (e *Engine) Arbitrate(signer AccountID, key AuctionKey, fulfilled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuctionKeyNotFound
	}
	if signer != rec.Arbitrator {
		return ErrOriginProhibited
	}
	if !rec.InDispute {
		return ErrAuctionNotDisputed
	}

	head, hasBid, err := e.store.GetHead(key)
	if err != nil {
		return err
	}
	if !hasBid {
		return fmt.Errorf("auction: disputed auction %v has no top bid: %w", key, errors.New("invariant violation"))
	}
	top := head.Top
	topPrice := head.Price

	e.ledger.Unreserve(toLedgerAccount(rec.Owner()), rec.Bounty+rec.Deposit)
	e.ledger.Unreserve(toLedgerAccount(top.Bidder), rec.Deposit)

	loser := rec.Owner()
	if fulfilled {
		if err := e.ledger.Transfer(toLedgerAccount(rec.Owner()), toLedgerAccount(top.Bidder), topPrice, ledger.AllowReap); err != nil {
			return err
		}
	} else {
		loser = top.Bidder
	}
	if err := e.ledger.Transfer(toLedgerAccount(loser), toLedgerAccount(rec.Arbitrator), rec.Deposit, ledger.AllowReap); err != nil {
		e.log.Error("arbitration fee transfer failed", "auction", key, "err", err)
	}

	if err := e.teardown(key); err != nil {
		return err
	}

	e.emitEvent(newEvent(EventArbitrated, key, e.clock.Height(), ArbitratedData{Fulfilled: fulfilled}))
	return nil
}

// teardown clears an auction's bid stack and removes its record. It is
// the common tail of confirm, cancel, and arbitrate.
func (e *Engine) teardown(key AuctionKey) error {
	if err := clearBids(e.store, key); err != nil {
		return err
	}
	return e.store.DeleteAuction(key)
}

// Get returns the record for key and, if one exists, its current top
// bid.
func (e *Engine) Get(key AuctionKey) (rec *Record, head Head, hasBid bool, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok, err := e.store.GetAuction(key)
	if err != nil {
		return nil, Head{}, false, err
	}
	if !ok {
		return nil, Head{}, false, ErrAuctionKeyNotFound
	}
	head, hasBid, err = e.store.GetHead(key)
	if err != nil {
		return nil, Head{}, false, err
	}
	return rec, head, hasBid, nil
}

// Height returns the current value read from the engine's clock.
func (e *Engine) Height() uint64 {
	return e.clock.Height()
}

// Store returns the engine's underlying persistence seam, for hosts
// that need to probe it for optional capabilities (e.g. the daemon's
// auction_list RPC method, which requires a Store that also supports
// paged listing).
func (e *Engine) Store() Store {
	return e.store
}
