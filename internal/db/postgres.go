package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jpatching/daybreakscan/pkg/models"
)

// PostgresStore is the single writer connection for usage counters,
// payments, and the scan log, backed by pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for DaybreakScan")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file.
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("DaybreakScan schema initialized")
	return nil
}

// GetUsage implements internal/quota's Store interface.
func (s *PostgresStore) GetUsage(ctx context.Context, identity models.Identity) (int, time.Time, error) {
	var scansToday int
	var lastReset time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT scans_today, last_reset FROM identity_usage WHERE identity_key = $1 AND identity_kind = $2`,
		identity.Key, string(identity.Kind)).Scan(&scansToday, &lastReset)
	if err == pgx.ErrNoRows {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("get usage: %w", err)
	}
	return scansToday, lastReset, nil
}

// IncrementUsage implements internal/quota's Store interface: rolls the
// counter over to 1 if the stored last_reset predates today, otherwise
// increments it.
func (s *PostgresStore) IncrementUsage(ctx context.Context, identity models.Identity, today time.Time) error {
	sql := `
		INSERT INTO identity_usage (identity_key, identity_kind, scans_today, last_reset)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (identity_key, identity_kind) DO UPDATE
		SET scans_today = CASE WHEN identity_usage.last_reset < $3 THEN 1 ELSE identity_usage.scans_today + 1 END,
		    last_reset = $3;
	`
	_, err := s.pool.Exec(ctx, sql, identity.Key, string(identity.Kind), today)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// SeenTxSignature implements internal/payment's ReplayStore interface.
func (s *PostgresStore) SeenTxSignature(ctx context.Context, sig string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE tx_sig = $1)`, sig).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tx signature: %w", err)
	}
	return exists, nil
}

// SeenNonce implements internal/payment's ReplayStore interface.
func (s *PostgresStore) SeenNonce(ctx context.Context, nonce string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE nonce = $1)`, nonce).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check nonce: %w", err)
	}
	return exists, nil
}

// RecordPayment implements internal/payment's ReplayStore interface.
// The unique constraints on tx_sig/nonce give replay protection even
// under concurrent redemption attempts.
func (s *PostgresStore) RecordPayment(ctx context.Context, p models.Payment) error {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payments (id, scheme, tx_sig, nonce, payer, amount_usd, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7)`,
		id, string(p.Scheme), p.TxSig, p.Nonce, p.Payer, p.AmountUSD, p.Timestamp)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	return nil
}

// SaveScanResult persists a completed scan's headline row and the
// deployer's discovered token set, inside one transaction.
func (s *PostgresStore) SaveScanResult(ctx context.Context, scan models.Scan) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO scan_log (id, token, deployer, verdict, score, token_count, method, scanned_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), scan.Token, scan.Deployer.Wallet, string(scan.Reputation.Verdict),
		scan.Reputation.Score, len(scan.Tokens), string(scan.Deployer.Method), scan.ScannedAt)
	if err != nil {
		return fmt.Errorf("insert scan_log: %v", err)
	}

	for _, token := range scan.Tokens {
		_, err = tx.Exec(ctx,
			`INSERT INTO deployer_tokens (deployer, mint, discovered_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (deployer, mint) DO NOTHING`,
			scan.Deployer.Wallet, token.Mint.Address)
		if err != nil {
			return fmt.Errorf("insert deployer_tokens: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// CachedTokens returns every mint previously discovered for deployer,
// so a re-scan can seed enumeration without re-walking full history.
func (s *PostgresStore) CachedTokens(ctx context.Context, deployer string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT mint FROM deployer_tokens WHERE deployer = $1`, deployer)
	if err != nil {
		return nil, fmt.Errorf("query deployer_tokens: %w", err)
	}
	defer rows.Close()

	var mints []string
	for rows.Next() {
		var mint string
		if err := rows.Scan(&mint); err != nil {
			return nil, err
		}
		mints = append(mints, mint)
	}
	return mints, nil
}

// RecentScans returns the most recently completed scans, newest first.
type ScanLogEntry struct {
	Token      string    `json:"token"`
	Deployer   string    `json:"deployer"`
	Verdict    string    `json:"verdict"`
	Score      int       `json:"score"`
	TokenCount int       `json:"tokenCount"`
	Method     string    `json:"method"`
	ScannedAt  time.Time `json:"scannedAt"`
}

func (s *PostgresStore) RecentScans(ctx context.Context, limit int) ([]ScanLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT token, deployer, verdict, score, token_count, method, scanned_at
		 FROM scan_log ORDER BY scanned_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan_log: %w", err)
	}
	defer rows.Close()

	var entries []ScanLogEntry
	for rows.Next() {
		var e ScanLogEntry
		if err := rows.Scan(&e.Token, &e.Deployer, &e.Verdict, &e.Score, &e.TokenCount, &e.Method, &e.ScannedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if entries == nil {
		entries = []ScanLogEntry{}
	}
	return entries, nil
}

// GetPool exposes the connection pool for cmd/scanner's background jobs.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
