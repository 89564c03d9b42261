package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kangrills/nifty-expiry-predictor/internal/models"
)

// SQLiteStore implements AnalyticsStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Option chain snapshots, one row per capture
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		captured_at DATETIME NOT NULL,
		expiry DATETIME NOT NULL,
		spot REAL NOT NULL,
		lot_size INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, captured_at, expiry)
	);

	-- Per-strike rows belonging to a snapshot
	CREATE TABLE IF NOT EXISTS snapshot_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		snapshot_id INTEGER NOT NULL,
		strike REAL NOT NULL,
		call_oi INTEGER NOT NULL,
		call_oi_change INTEGER NOT NULL,
		call_volume INTEGER NOT NULL,
		call_iv REAL NOT NULL,
		call_ltp REAL NOT NULL,
		call_ltp_change REAL NOT NULL,
		put_oi INTEGER NOT NULL,
		put_oi_change INTEGER NOT NULL,
		put_volume INTEGER NOT NULL,
		put_iv REAL NOT NULL,
		put_ltp REAL NOT NULL,
		put_ltp_change REAL NOT NULL,
		UNIQUE(snapshot_id, strike),
		FOREIGN KEY (snapshot_id) REFERENCES snapshots(id)
	);

	-- Computed analysis results, stored as JSON documents
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		analyzed_at DATETIME NOT NULL,
		expiry DATETIME NOT NULL,
		spot REAL NOT NULL,
		max_pain REAL,
		net_gex REAL,
		pcr REAL,
		result TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_time ON snapshots(symbol, captured_at);
	CREATE INDEX IF NOT EXISTS idx_snapshot_rows_snapshot ON snapshot_rows(snapshot_id);
	CREATE INDEX IF NOT EXISTS idx_analyses_symbol_time ON analyses(symbol, analyzed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshot stores a snapshot and its rows in one transaction and
// returns the snapshot id.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *models.OptionChainSnapshot) (int64, error) {
	if err := snap.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (symbol, captured_at, expiry, spot, lot_size)
		VALUES (?, ?, ?, ?, ?)`,
		snap.Symbol, snap.Timestamp, snap.ExpiryDate, snap.UnderlyingSpot, snap.LotSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_rows (
			snapshot_id, strike,
			call_oi, call_oi_change, call_volume, call_iv, call_ltp, call_ltp_change,
			put_oi, put_oi_change, put_volume, put_iv, put_ltp, put_ltp_change
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range snap.Rows {
		if _, err := stmt.ExecContext(ctx, id, row.Strike,
			row.CallOI, row.CallOIChange, row.CallVolume, row.CallIV, row.CallLTP, row.CallLTPChange,
			row.PutOI, row.PutOIChange, row.PutVolume, row.PutIV, row.PutLTP, row.PutLTPChange,
		); err != nil {
			return 0, fmt.Errorf("failed to insert row at strike %v: %w", row.Strike, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return id, nil
}

// GetSnapshot loads one snapshot with all its rows.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id int64) (*models.OptionChainSnapshot, error) {
	snap := &models.OptionChainSnapshot{}
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, captured_at, expiry, spot, lot_size
		FROM snapshots WHERE id = ?`, id).
		Scan(&snap.Symbol, &snap.Timestamp, &snap.ExpiryDate, &snap.UnderlyingSpot, &snap.LotSize)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	rows, err := s.loadRows(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.Rows = rows
	return snap, nil
}

// LatestSnapshot loads the most recently captured snapshot for a symbol.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, symbol string) (*models.OptionChainSnapshot, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM snapshots WHERE symbol = ?
		ORDER BY captured_at DESC LIMIT 1`, symbol).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no snapshots stored for %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}
	return s.GetSnapshot(ctx, id)
}

func (s *SQLiteStore) loadRows(ctx context.Context, snapshotID int64) ([]models.StrikeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strike,
			call_oi, call_oi_change, call_volume, call_iv, call_ltp, call_ltp_change,
			put_oi, put_oi_change, put_volume, put_iv, put_ltp, put_ltp_change
		FROM snapshot_rows WHERE snapshot_id = ? ORDER BY strike ASC`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot rows: %w", err)
	}
	defer rows.Close()

	var result []models.StrikeRow
	for rows.Next() {
		var r models.StrikeRow
		if err := rows.Scan(&r.Strike,
			&r.CallOI, &r.CallOIChange, &r.CallVolume, &r.CallIV, &r.CallLTP, &r.CallLTPChange,
			&r.PutOI, &r.PutOIChange, &r.PutVolume, &r.PutIV, &r.PutLTP, &r.PutLTPChange,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ListSnapshots returns snapshot metadata matching the filter, newest
// first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]SnapshotMeta, error) {
	query := `
		SELECT s.id, s.symbol, s.captured_at, s.expiry, s.spot, s.lot_size,
			(SELECT COUNT(*) FROM snapshot_rows r WHERE r.snapshot_id = s.id)
		FROM snapshots s`
	var conditions []string
	var args []interface{}

	if filter.Symbol != "" {
		conditions = append(conditions, "s.symbol = ?")
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		conditions = append(conditions, "s.captured_at >= ?")
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		conditions = append(conditions, "s.captured_at <= ?")
		args = append(args, filter.EndDate)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.captured_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var result []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		if err := rows.Scan(&m.ID, &m.Symbol, &m.CapturedAt, &m.ExpiryDate, &m.Spot, &m.LotSize, &m.NumStrikes); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot meta: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// SaveAnalysis stores a full analysis result. Headline numbers are
// lifted into columns for querying, the full document goes in as JSON.
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, analysis *models.ChainAnalysis) error {
	doc, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (symbol, analyzed_at, expiry, spot, max_pain, net_gex, pcr, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		analysis.Symbol, analysis.Timestamp, analysis.ExpiryDate, analysis.Spot,
		analysis.MaxPain.MaxPainStrike, analysis.Gex.NetGex, analysis.OI.PCR, string(doc))
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	return nil
}

// GetAnalyses returns stored analyses matching the filter, newest first.
func (s *SQLiteStore) GetAnalyses(ctx context.Context, filter AnalysisFilter) ([]models.ChainAnalysis, error) {
	query := "SELECT result FROM analyses"
	var conditions []string
	var args []interface{}

	if filter.Symbol != "" {
		conditions = append(conditions, "symbol = ?")
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		conditions = append(conditions, "analyzed_at >= ?")
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		conditions = append(conditions, "analyzed_at <= ?")
		args = append(args, filter.EndDate)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY analyzed_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var result []models.ChainAnalysis
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		var analysis models.ChainAnalysis
		if err := json.Unmarshal([]byte(doc), &analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
		result = append(result, analysis)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements AnalyticsStore
var _ AnalyticsStore = (*SQLiteStore)(nil)
