package auctiontest

import (
	"sync"

	"github.com/klingon-exchange/taskauction/internal/ledger"
)

type balance struct {
	free     uint64
	reserved uint64
}

// Ledger is an in-memory ledger.Ledger. Accounts spring into existence
// with a zero balance the first time they are touched; Fund sets an
// opening balance for test scenarios.
type Ledger struct {
	mu       sync.Mutex
	balances map[ledger.AccountID]*balance
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[ledger.AccountID]*balance)}
}

func (l *Ledger) entry(account ledger.AccountID) *balance {
	b, ok := l.balances[account]
	if !ok {
		b = &balance{}
		l.balances[account] = b
	}
	return b
}

// Fund sets account's free balance, for test setup.
func (l *Ledger) Fund(account ledger.AccountID, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entry(account).free = amount
}

func (l *Ledger) Reserve(account ledger.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.entry(account)
	if b.free < amount {
		return ledger.ErrInsufficientBalance
	}
	b.free -= amount
	b.reserved += amount
	return nil
}

func (l *Ledger) Unreserve(account ledger.AccountID, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.entry(account)
	if amount > b.reserved {
		amount = b.reserved
	}
	b.reserved -= amount
	b.free += amount
}

func (l *Ledger) Transfer(src, dst ledger.AccountID, amount uint64, _ ledger.ExistencePolicy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.entry(src)
	if s.free < amount {
		return ledger.ErrInsufficientBalance
	}
	s.free -= amount
	l.entry(dst).free += amount
	return nil
}

func (l *Ledger) FreeBalance(account ledger.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entry(account).free
}

func (l *Ledger) ReservedBalance(account ledger.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entry(account).reserved
}
