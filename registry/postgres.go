package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

const (
	createCampaignsTable = `
		CREATE TABLE IF NOT EXISTS journeyid_campaigns (
			campaign_id TEXT PRIMARY KEY,
			reserved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`

	createEntriesTable = `
		CREATE TABLE IF NOT EXISTS journeyid_entries (
			id              TEXT PRIMARY KEY,
			entry_type      TEXT NOT NULL,
			composite_key   TEXT NOT NULL,
			campaign_id     TEXT NOT NULL REFERENCES journeyid_campaigns (campaign_id),
			status          TEXT NOT NULL,
			node_id         TEXT NOT NULL DEFAULT '',
			microsegment_id TEXT NOT NULL DEFAULT '',
			minted_at       TIMESTAMPTZ NOT NULL,
			payload         JSONB NOT NULL
		)`

	reserveCampaignQuery = `
		INSERT INTO journeyid_campaigns (campaign_id)
		VALUES ($1)
		ON CONFLICT (campaign_id) DO NOTHING`

	campaignExistsQuery = `
		SELECT EXISTS (SELECT 1 FROM journeyid_campaigns WHERE campaign_id = $1)`

	upsertEntryQuery = `
		INSERT INTO journeyid_entries
			(id, entry_type, composite_key, campaign_id, status, node_id, microsegment_id, minted_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payload = EXCLUDED.payload`

	selectEntriesQuery = `
		SELECT payload FROM journeyid_entries ORDER BY minted_at, id`
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgresStore connects to the database at dsn and creates the tables
// if they do not exist.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the registry tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createCampaignsTable, createEntriesTable} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating registry schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// ReserveCampaign implements Store.
func (s *PostgresStore) ReserveCampaign(ctx context.Context, campaignID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, reserveCampaignQuery, campaignID)
	if err != nil {
		return false, fmt.Errorf("inserting campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}

// CampaignExists implements Store.
func (s *PostgresStore) CampaignExists(ctx context.Context, campaignID string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, campaignExistsQuery, campaignID).Scan(&exists); err != nil {
		return false, fmt.Errorf("querying campaign: %w", err)
	}
	return exists, nil
}

// SaveEntries implements Store. All entries are written in one transaction.
func (s *PostgresStore) SaveEntries(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding entry %s: %w", e.ID, err)
		}
		_, err = tx.ExecContext(ctx, upsertEntryQuery,
			e.ID, string(e.Type), e.CompositeKey, e.CampaignID, string(e.Status),
			e.NodeID, e.MicrosegmentID, e.MintedAt, payload)
		if err != nil {
			return fmt.Errorf("saving entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entries: %w", err)
	}
	return nil
}

// Entries implements Store.
func (s *PostgresStore) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntriesQuery)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		var e Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decoding entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}
