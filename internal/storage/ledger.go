// Package storage - Ledger account persistence. Storage is the daemon's
// ledger.Ledger implementation: a single SQLite table of free/reserved
// balances per account, mutated through reserve/unreserve/transfer and,
// for bootstrap, Fund.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/klingon-exchange/taskauction/internal/ledger"
)

func (s *Storage) ensureAccount(tx *sql.Tx, account ledger.AccountID) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_accounts (account, free_balance, reserved_balance)
		VALUES (?, 0, 0)
		ON CONFLICT(account) DO NOTHING
	`, string(account))
	if err != nil {
		return fmt.Errorf("failed to ensure ledger account: %w", err)
	}
	return nil
}

func (s *Storage) balances(tx *sql.Tx, account ledger.AccountID) (free, reserved uint64, err error) {
	if err := s.ensureAccount(tx, account); err != nil {
		return 0, 0, err
	}
	err = tx.QueryRow(`SELECT free_balance, reserved_balance FROM ledger_accounts WHERE account = ?`, string(account)).
		Scan(&free, &reserved)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read ledger balances: %w", err)
	}
	return free, reserved, nil
}

// Reserve moves amount from account's free bucket to reserved,
// implementing ledger.Ledger.
func (s *Storage) Reserve(account ledger.AccountID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reserve transaction: %w", err)
	}
	defer tx.Rollback()

	free, reserved, err := s.balances(tx, account)
	if err != nil {
		return err
	}
	if free < amount {
		return ledger.ErrInsufficientBalance
	}

	_, err = tx.Exec(`UPDATE ledger_accounts SET free_balance = ?, reserved_balance = ? WHERE account = ?`,
		free-amount, reserved+amount, string(account))
	if err != nil {
		return fmt.Errorf("failed to reserve balance: %w", err)
	}
	return tx.Commit()
}

// Unreserve moves amount from account's reserved bucket back to free,
// clamped at what is actually reserved. It never fails, implementing
// ledger.Ledger.
func (s *Storage) Unreserve(account ledger.AccountID, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	free, reserved, err := s.balances(tx, account)
	if err != nil {
		return
	}
	if amount > reserved {
		amount = reserved
	}

	if _, err := tx.Exec(`UPDATE ledger_accounts SET free_balance = ?, reserved_balance = ? WHERE account = ?`,
		free+amount, reserved-amount, string(account)); err != nil {
		return
	}
	tx.Commit()
}

// Transfer moves amount from src's free bucket to dst's free bucket,
// implementing ledger.Ledger. The existence policy is accepted for
// interface compatibility; this implementation always permits reaping.
func (s *Storage) Transfer(src, dst ledger.AccountID, amount uint64, _ ledger.ExistencePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transfer transaction: %w", err)
	}
	defer tx.Rollback()

	srcFree, _, err := s.balances(tx, src)
	if err != nil {
		return err
	}
	if srcFree < amount {
		return ledger.ErrInsufficientBalance
	}
	dstFree, _, err := s.balances(tx, dst)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE ledger_accounts SET free_balance = ? WHERE account = ?`, srcFree-amount, string(src)); err != nil {
		return fmt.Errorf("failed to debit transfer source: %w", err)
	}
	if _, err := tx.Exec(`UPDATE ledger_accounts SET free_balance = ? WHERE account = ?`, dstFree+amount, string(dst)); err != nil {
		return fmt.Errorf("failed to credit transfer destination: %w", err)
	}
	return tx.Commit()
}

// FreeBalance returns account's free balance, implementing
// ledger.Ledger.
func (s *Storage) FreeBalance(account ledger.AccountID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var free uint64
	err := s.db.QueryRow(`SELECT free_balance FROM ledger_accounts WHERE account = ?`, string(account)).Scan(&free)
	if err != nil {
		return 0
	}
	return free
}

// ReservedBalance returns account's reserved balance, implementing
// ledger.Ledger.
func (s *Storage) ReservedBalance(account ledger.AccountID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reserved uint64
	err := s.db.QueryRow(`SELECT reserved_balance FROM ledger_accounts WHERE account = ?`, string(account)).Scan(&reserved)
	if err != nil {
		return 0
	}
	return reserved
}

// Fund sets account's free balance directly, for daemon bootstrap and
// test fixtures — the engine's ledger contract has no "mint" operation,
// so this exists only outside the hot command path.
func (s *Storage) Fund(account ledger.AccountID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin fund transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ensureAccount(tx, account); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE ledger_accounts SET free_balance = ? WHERE account = ?`, amount, string(account)); err != nil {
		return fmt.Errorf("failed to fund account: %w", err)
	}
	return tx.Commit()
}
