package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		contract TEXT NOT NULL,
		network TEXT NOT NULL,
		chain_id INTEGER NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT,
		tx_hash TEXT,
		block_number INTEGER,
		constructor_args TEXT,
		verification_status TEXT NOT NULL DEFAULT 'not_submitted',
		verification_guid TEXT,
		verification_message TEXT,
		error TEXT,
		created_at TEXT DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
		updated_at TEXT DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_runs_lookup ON runs(chain_id, address);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Debug("database migrations complete", slog.String("driver", "sqlite"))
	return nil
}

const sqliteRunColumns = `id, contract, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args,
	verification_status, verification_guid, verification_message, error, created_at, updated_at`

// CreateRun records a new run
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	prepareRun(run)
	query := `
		INSERT INTO runs (id, contract, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, verification_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, run.ID, run.Contract, run.Network, run.ChainID, run.Address,
		run.DeployerAddress, run.TxHash, run.BlockNumber, run.ConstructorArgs, run.VerificationStatus)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`, id)
	return scanSQLiteRun(row)
}

// GetRunByAddress retrieves the most recent run for a deployed address
func (s *SQLiteStore) GetRunByAddress(ctx context.Context, chainID int64, address string) (*Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE chain_id = ? AND address = ? ORDER BY created_at DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, chainID, normalizeAddress(address))
	return scanSQLiteRun(row)
}

// ListRuns lists runs, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter, pagination PaginationParams) (*PaginatedResult[Run], error) {
	var whereClauses []string
	var args []any

	if filter.Network != "" {
		whereClauses = append(whereClauses, "network = ?")
		args = append(args, filter.Network)
	}
	if filter.ChainID != 0 {
		whereClauses = append(whereClauses, "chain_id = ?")
		args = append(args, filter.ChainID)
	}
	if filter.Status != "" {
		whereClauses = append(whereClauses, "verification_status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + sqliteRunColumns + ` FROM runs`
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	limit := listLimit(pagination)
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	hasMore := len(runs) > limit
	if hasMore {
		runs = runs[:limit]
	}

	return &PaginatedResult[Run]{Data: runs, HasMore: hasMore}, rows.Err()
}

// UpdateVerification writes the verification outcome of a run
func (s *SQLiteStore) UpdateVerification(ctx context.Context, id string, v VerificationUpdate) error {
	query := `
		UPDATE runs
		SET verification_status = ?, verification_guid = ?, verification_message = ?, error = ?,
			updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, v.Status, v.GUID, v.Message, v.Error, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row rowScanner) (*Run, error) {
	var run Run
	var deployer, txHash, args, guid, message, runErr sql.NullString
	var block sql.NullInt64
	err := row.Scan(&run.ID, &run.Contract, &run.Network, &run.ChainID, &run.Address, &deployer, &txHash, &block, &args,
		&run.VerificationStatus, &guid, &message, &runErr, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	run.DeployerAddress = deployer.String
	run.TxHash = txHash.String
	run.BlockNumber = block.Int64
	run.ConstructorArgs = args.String
	run.VerificationGUID = guid.String
	run.VerificationMessage = message.String
	run.Error = runErr.String
	return &run, nil
}
