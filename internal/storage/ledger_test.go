package storage

import (
	"errors"
	"testing"

	"github.com/klingon-exchange/taskauction/internal/ledger"
)

func TestLedgerReserveUnreserve(t *testing.T) {
	store := newTestStorage(t)
	acct := ledger.AccountID("A")

	if err := store.Fund(acct, 1000); err != nil {
		t.Fatalf("Fund: %v", err)
	}

	if err := store.Reserve(acct, 400); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if got := store.FreeBalance(acct); got != 600 {
		t.Errorf("FreeBalance = %d, want 600", got)
	}
	if got := store.ReservedBalance(acct); got != 400 {
		t.Errorf("ReservedBalance = %d, want 400", got)
	}

	if err := store.Reserve(acct, 1000); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	store.Unreserve(acct, 100)
	if got := store.FreeBalance(acct); got != 700 {
		t.Errorf("FreeBalance after unreserve = %d, want 700", got)
	}
	if got := store.ReservedBalance(acct); got != 300 {
		t.Errorf("ReservedBalance after unreserve = %d, want 300", got)
	}

	// Unreserve never fails, even over-clamped.
	store.Unreserve(acct, 10000)
	if got := store.ReservedBalance(acct); got != 0 {
		t.Errorf("ReservedBalance after over-unreserve = %d, want 0", got)
	}
}

func TestLedgerTransfer(t *testing.T) {
	store := newTestStorage(t)
	src := ledger.AccountID("A")
	dst := ledger.AccountID("B")

	if err := store.Fund(src, 1000); err != nil {
		t.Fatalf("Fund: %v", err)
	}

	if err := store.Transfer(src, dst, 400, ledger.AllowReap); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := store.FreeBalance(src); got != 600 {
		t.Errorf("src free balance = %d, want 600", got)
	}
	if got := store.FreeBalance(dst); got != 400 {
		t.Errorf("dst free balance = %d, want 400", got)
	}

	if err := store.Transfer(src, dst, 10000, ledger.AllowReap); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}
