// Package storage - Auction registry operations.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/klingon-exchange/taskauction/internal/auction"
)

// GetAuction retrieves the record for key, implementing auction.Store.
func (s *Storage) GetAuction(key auction.AuctionKey) (*auction.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec auction.Record
	var arbitrator string
	var data []byte
	var inDispute int

	err := s.db.QueryRow(`
		SELECT arbitrator, bounty, deposit, initial_block, terminal_block, data, in_dispute
		FROM auctions WHERE owner = ? AND nonce = ?
	`, string(key.Owner), key.Nonce).Scan(
		&arbitrator, &rec.Bounty, &rec.Deposit, &rec.InitialBlock, &rec.TerminalBlock, &data, &inDispute,
	)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get auction: %w", err)
	}

	rec.Key = key
	rec.Arbitrator = auction.AccountID(arbitrator)
	rec.Data = data
	rec.InDispute = inDispute != 0

	return &rec, true, nil
}

// PutAuction inserts or overwrites the record for key, implementing
// auction.Store.
func (s *Storage) PutAuction(rec *auction.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inDispute := 0
	if rec.InDispute {
		inDispute = 1
	}

	_, err := s.db.Exec(`
		INSERT INTO auctions (
			owner, nonce, arbitrator, bounty, deposit,
			initial_block, terminal_block, data, in_dispute
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, nonce) DO UPDATE SET
			arbitrator = excluded.arbitrator,
			bounty = excluded.bounty,
			deposit = excluded.deposit,
			initial_block = excluded.initial_block,
			terminal_block = excluded.terminal_block,
			data = excluded.data,
			in_dispute = excluded.in_dispute
	`,
		string(rec.Key.Owner), rec.Key.Nonce, string(rec.Arbitrator),
		rec.Bounty, rec.Deposit, rec.InitialBlock, rec.TerminalBlock,
		rec.Data, inDispute,
	)
	if err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}
	return nil
}

// DeleteAuction removes the record for key, implementing auction.Store.
func (s *Storage) DeleteAuction(key auction.AuctionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM auctions WHERE owner = ? AND nonce = ?`, string(key.Owner), key.Nonce)
	if err != nil {
		return fmt.Errorf("failed to delete auction: %w", err)
	}
	return nil
}

// ListAuctions returns up to limit live auctions in (owner, nonce)
// order, skipping the first offset, for the daemon's auction_list RPC
// method. No secondary indices exist, so this is a full scan, which
// matches the in-memory registry's O(1)-per-key design applied at small
// scale.
func (s *Storage) ListAuctions(limit, offset int) ([]*auction.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT owner, nonce, arbitrator, bounty, deposit, initial_block, terminal_block, data, in_dispute
		FROM auctions ORDER BY owner, nonce LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var out []*auction.Record
	for rows.Next() {
		var rec auction.Record
		var owner, arbitrator string
		var data []byte
		var inDispute int
		if err := rows.Scan(&owner, &rec.Key.Nonce, &arbitrator, &rec.Bounty, &rec.Deposit, &rec.InitialBlock, &rec.TerminalBlock, &data, &inDispute); err != nil {
			return nil, fmt.Errorf("failed to scan auction row: %w", err)
		}
		rec.Key.Owner = auction.AccountID(owner)
		rec.Arbitrator = auction.AccountID(arbitrator)
		rec.Data = data
		rec.InDispute = inDispute != 0
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auctions: %w", err)
	}
	return out, nil
}
