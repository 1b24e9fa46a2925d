// Package storage provides persistent storage for the task-auction
// daemon using SQLite. Storage implements both auction.Store and
// ledger.Ledger over a single database file.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage is the SQLite-backed persistence layer.
type Storage struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Config holds storage configuration.
type Config struct {
	DataDir string
}

// New opens (creating if necessary) the database under cfg.DataDir and
// initializes its schema.
func New(cfg *Config) (*Storage, error) {
	dataDir := expandPath(cfg.DataDir)

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "taskauction.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db, dbPath: dbPath}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *Storage) DB() *sql.DB {
	return s.db
}

func (s *Storage) initSchema() error {
	schema := `
	-- One row per live auction. Identity is (owner, nonce); no separate
	-- owner column is needed elsewhere since auction_key encodes it.
	CREATE TABLE IF NOT EXISTS auctions (
		owner TEXT NOT NULL,
		nonce INTEGER NOT NULL,
		arbitrator TEXT NOT NULL,
		bounty INTEGER NOT NULL,
		deposit INTEGER NOT NULL,
		initial_block INTEGER NOT NULL,
		terminal_block INTEGER NOT NULL,
		data BLOB,
		in_dispute INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (owner, nonce)
	);

	-- Bid stack: one row per (auction, bid) link, plus a sentinel row at
	-- bid_bidder = '' AND bid_seq = 0 recording the current head.
	CREATE TABLE IF NOT EXISTS bids (
		owner TEXT NOT NULL,
		nonce INTEGER NOT NULL,
		bid_bidder TEXT NOT NULL,
		bid_seq INTEGER NOT NULL,
		prev_bidder TEXT NOT NULL,
		prev_seq INTEGER NOT NULL,
		price INTEGER NOT NULL,
		PRIMARY KEY (owner, nonce, bid_bidder, bid_seq)
	);

	CREATE INDEX IF NOT EXISTS idx_bids_auction ON bids(owner, nonce);

	-- Ledger accounts: free and reserved buckets per account.
	CREATE TABLE IF NOT EXISTS ledger_accounts (
		account TEXT PRIMARY KEY,
		free_balance INTEGER NOT NULL DEFAULT 0,
		reserved_balance INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
