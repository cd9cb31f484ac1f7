package deployments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/storage"
	"github.com/pendergraft/tokenlaunch/internal/token"
	"github.com/pendergraft/tokenlaunch/internal/validation"
)

// Common errors returned by the deployment service.
var (
	ErrNotFound       = errors.New("run not found")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidChainID = errors.New("invalid chain ID")
)

// Store is the subset of storage.Store the service uses.
type Store interface {
	CreateRun(ctx context.Context, run *storage.Run) error
	GetRun(ctx context.Context, id string) (*storage.Run, error)
	GetRunByAddress(ctx context.Context, chainID int64, address string) (*storage.Run, error)
	ListRuns(ctx context.Context, filter storage.RunFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Run], error)
	UpdateVerification(ctx context.Context, id string, v storage.VerificationUpdate) error
}

// Service records runs. It implements release.Recorder.
type Service struct {
	store   Store
	network string
}

var _ release.Recorder = (*Service)(nil)

// NewService creates a new deployment service for runs on network.
func NewService(store Store, network string) *Service {
	return &Service{store: store, network: network}
}

// RecordDeployment records a confirmed deployment under runID.
func (s *Service) RecordDeployment(ctx context.Context, runID string, req *token.DeploymentRequest, res *release.DeploymentResult) error {
	if err := validation.ValidateAddress(res.Address); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if res.ChainID == nil || !res.ChainID.IsInt64() {
		return ErrInvalidChainID
	}
	if err := validation.ValidateChainID(res.ChainID.Int64()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChainID, err)
	}

	var block int64
	if res.BlockNumber <= math.MaxInt64 {
		block = int64(res.BlockNumber)
	}

	run := &storage.Run{
		ID:              runID,
		Contract:        req.Contract(),
		Network:         s.network,
		ChainID:         res.ChainID.Int64(),
		Address:         res.Address,
		DeployerAddress: res.DeployerAddress,
		TxHash:          res.TxHash,
		BlockNumber:     block,
		ConstructorArgs: res.ConstructorArgs,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("recording deployment: %w", err)
	}
	return nil
}

// RecordVerification writes the verification outcome of runID. verifyErr is
// the error the Verifier returned, if any; res may be nil in that case.
func (s *Service) RecordVerification(ctx context.Context, runID string, res *release.VerificationResult, verifyErr error) error {
	update := storage.VerificationUpdate{}
	if res != nil {
		update.Status = string(res.Status)
		update.GUID = res.GUID
		update.Message = res.Message
	}
	if verifyErr != nil {
		update.Error = verifyErr.Error()
		var ve *release.VerificationError
		switch {
		case errors.As(verifyErr, &ve) && ve.Status != "":
			update.Status = string(ve.Status)
		case update.Status == "":
			update.Status = string(release.StatusFailed)
		}
	}

	if err := s.store.UpdateVerification(ctx, runID, update); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("recording verification: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *Service) Get(ctx context.Context, id string) (*Run, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return toRun(run), nil
}

// FindByAddress retrieves the latest run that deployed address.
func (s *Service) FindByAddress(ctx context.Context, chainID int64, address string) (*Run, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	run, err := s.store.GetRunByAddress(ctx, chainID, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return toRun(run), nil
}

// List lists runs, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter, limit int) (*ListResult, error) {
	result, err := s.store.ListRuns(ctx, storage.RunFilter{
		Network: filter.Network,
		ChainID: filter.ChainID,
		Status:  filter.Status,
	}, storage.PaginationParams{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	runs := make([]Run, len(result.Data))
	for i := range result.Data {
		runs[i] = *toRun(&result.Data[i])
	}
	return &ListResult{Runs: runs, HasMore: result.HasMore}, nil
}

// storage timestamps come back in one of these layouts
var timeLayouts = []string{"2006-01-02 15:04:05.000", "2006-01-02 15:04:05"}

func parseTime(v string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func toRun(r *storage.Run) *Run {
	return &Run{
		ID:                  r.ID,
		Contract:            r.Contract,
		Network:             r.Network,
		ChainID:             r.ChainID,
		Address:             r.Address,
		DeployerAddress:     r.DeployerAddress,
		TxHash:              r.TxHash,
		BlockNumber:         r.BlockNumber,
		ConstructorArgs:     r.ConstructorArgs,
		VerificationStatus:  r.VerificationStatus,
		VerificationGUID:    r.VerificationGUID,
		VerificationMessage: r.VerificationMessage,
		Error:               r.Error,
		CreatedAt:           parseTime(r.CreatedAt),
		UpdatedAt:           parseTime(r.UpdatedAt),
	}
}
