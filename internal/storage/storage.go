// Package storage persists the run ledger: one record per launch, updated as
// the run moves from deployment to verification.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pendergraft/tokenlaunch/internal/config"
)

// RunStore handles run ledger operations
type RunStore interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	GetRunByAddress(ctx context.Context, chainID int64, address string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter, pagination PaginationParams) (*PaginatedResult[Run], error)
	UpdateVerification(ctx context.Context, id string, v VerificationUpdate) error
}

// Store combines the ledger with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	RunStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Run is one recorded launch
type Run struct {
	ID                  string
	Contract            string
	Network             string
	ChainID             int64
	Address             string
	DeployerAddress     string
	TxHash              string
	BlockNumber         int64
	ConstructorArgs     string
	VerificationStatus  string
	VerificationGUID    string
	VerificationMessage string
	Error               string
	CreatedAt           string
	UpdatedAt           string
}

// VerificationUpdate is the verification outcome written to a run
type VerificationUpdate struct {
	Status  string
	GUID    string
	Message string
	Error   string
}

// RunFilter contains filter options for listing runs
type RunFilter struct {
	Network string
	ChainID int64
	Status  string
}

// PaginationParams contains pagination options
type PaginationParams struct {
	Limit int
}

// PaginatedResult contains paginated results
type PaginatedResult[T any] struct {
	Data    []T
	HasMore bool
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	case "none", "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
