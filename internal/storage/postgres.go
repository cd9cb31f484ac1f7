package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		contract TEXT NOT NULL,
		network TEXT NOT NULL,
		chain_id BIGINT NOT NULL,
		address TEXT NOT NULL,
		deployer_address TEXT,
		tx_hash TEXT,
		block_number BIGINT,
		constructor_args TEXT,
		verification_status TEXT NOT NULL DEFAULT 'not_submitted',
		verification_guid TEXT,
		verification_message TEXT,
		error TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_runs_lookup ON runs(chain_id, address);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Debug("database migrations complete", slog.String("driver", "postgres"))
	return nil
}

const postgresRunColumns = `id::text, contract, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args,
	verification_status, verification_guid, verification_message, error, created_at, updated_at`

// CreateRun records a new run
func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	prepareRun(run)
	query := `
		INSERT INTO runs (id, contract, network, chain_id, address, deployer_address, tx_hash, block_number, constructor_args, verification_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query, run.ID, run.Contract, run.Network, run.ChainID, run.Address,
		run.DeployerAddress, run.TxHash, run.BlockNumber, run.ConstructorArgs, run.VerificationStatus)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetRun retrieves a run by ID
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postgresRunColumns+` FROM runs WHERE id::text = $1`, id)
	return scanPostgresRun(row)
}

// GetRunByAddress retrieves the most recent run for a deployed address
func (s *PostgresStore) GetRunByAddress(ctx context.Context, chainID int64, address string) (*Run, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM runs WHERE chain_id = $1 AND address = $2 ORDER BY created_at DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, chainID, normalizeAddress(address))
	return scanPostgresRun(row)
}

// ListRuns lists runs, newest first
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter, pagination PaginationParams) (*PaginatedResult[Run], error) {
	var whereClauses []string
	var args []any
	argIdx := 1

	if filter.Network != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("network = $%d", argIdx))
		args = append(args, filter.Network)
		argIdx++
	}
	if filter.ChainID != 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("chain_id = $%d", argIdx))
		args = append(args, filter.ChainID)
		argIdx++
	}
	if filter.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("verification_status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	query := `SELECT ` + postgresRunColumns + ` FROM runs`
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}
	limit := listLimit(pagination)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanPostgresRun(rows)
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
func (s *PostgresStore) UpdateVerification(ctx context.Context, id string, v VerificationUpdate) error {
	query := `
		UPDATE runs
		SET verification_status = $1, verification_guid = $2, verification_message = $3, error = $4, updated_at = NOW()
		WHERE id::text = $5
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

func scanPostgresRun(row rowScanner) (*Run, error) {
	var run Run
	var deployer, txHash, args, guid, message, runErr sql.NullString
	var block sql.NullInt64
	var createdAt, updatedAt time.Time
	err := row.Scan(&run.ID, &run.Contract, &run.Network, &run.ChainID, &run.Address, &deployer, &txHash, &block, &args,
		&run.VerificationStatus, &guid, &message, &runErr, &createdAt, &updatedAt)
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
	run.CreatedAt = createdAt.UTC().Format(timestampLayout)
	run.UpdatedAt = updatedAt.UTC().Format(timestampLayout)
	return &run, nil
}
