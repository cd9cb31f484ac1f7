package deployments

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/storage"
	"github.com/pendergraft/tokenlaunch/internal/token"
)

// mockStore implements Store for testing
type mockStore struct {
	runs     map[string]*storage.Run
	order    []string
	failWith error
}

func newMockStore() *mockStore {
	return &mockStore{runs: make(map[string]*storage.Run)}
}

func (m *mockStore) CreateRun(ctx context.Context, run *storage.Run) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.runs[run.ID]; ok {
		return storage.ErrDuplicate
	}
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return nil
}

func (m *mockStore) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) GetRunByAddress(ctx context.Context, chainID int64, address string) (*storage.Run, error) {
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.runs[m.order[i]]
		if r.ChainID == chainID && r.Address == address {
			return r, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) ListRuns(ctx context.Context, filter storage.RunFilter, pagination storage.PaginationParams) (*storage.PaginatedResult[storage.Run], error) {
	var runs []storage.Run
	for _, id := range m.order {
		r := m.runs[id]
		if filter.Network != "" && r.Network != filter.Network {
			continue
		}
		runs = append(runs, *r)
	}
	return &storage.PaginatedResult[storage.Run]{Data: runs}, nil
}

func (m *mockStore) UpdateVerification(ctx context.Context, id string, v storage.VerificationUpdate) error {
	r, ok := m.runs[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.VerificationStatus = v.Status
	r.VerificationGUID = v.GUID
	r.VerificationMessage = v.Message
	r.Error = v.Error
	return nil
}

const testAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func deployed() *release.DeploymentResult {
	return &release.DeploymentResult{
		Address:         testAddress,
		TxConfirmed:     true,
		TxHash:          "0xabc",
		DeployerAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		BlockNumber:     12,
		ChainID:         big.NewInt(137),
		ConstructorArgs: "00ff",
	}
}

func TestService_RecordDeployment(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, "polygon")
	ctx := context.Background()

	err := svc.RecordDeployment(ctx, "run-1", token.DefaultRequest(), deployed())
	require.NoError(t, err)

	run, err := svc.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "TokenContract", run.Contract)
	assert.Equal(t, "polygon", run.Network)
	assert.Equal(t, int64(137), run.ChainID)
	assert.Equal(t, int64(12), run.BlockNumber)
	assert.Equal(t, "00ff", run.ConstructorArgs)

	t.Run("duplicate", func(t *testing.T) {
		err := svc.RecordDeployment(ctx, "run-1", token.DefaultRequest(), deployed())
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("invalid address", func(t *testing.T) {
		res := deployed()
		res.Address = "0x123"
		err := svc.RecordDeployment(ctx, "run-2", token.DefaultRequest(), res)
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})

	t.Run("missing chain id", func(t *testing.T) {
		res := deployed()
		res.ChainID = nil
		err := svc.RecordDeployment(ctx, "run-3", token.DefaultRequest(), res)
		assert.ErrorIs(t, err, ErrInvalidChainID)
	})

	t.Run("store failure", func(t *testing.T) {
		failing := newMockStore()
		failing.failWith = errors.New("disk full")
		err := NewService(failing, "polygon").RecordDeployment(ctx, "run-4", token.DefaultRequest(), deployed())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestService_RecordVerification(t *testing.T) {
	tests := []struct {
		name        string
		res         *release.VerificationResult
		verifyErr   error
		wantStatus  string
		wantGUID    string
		wantErrText string
	}{
		{
			name:       "verified",
			res:        &release.VerificationResult{Status: release.StatusVerified, GUID: "g1", Message: "Pass - Verified"},
			wantStatus: "verified",
			wantGUID:   "g1",
		},
		{
			name:        "explorer rejection",
			verifyErr:   &release.VerificationError{Address: testAddress, Status: release.StatusFailed, Err: errors.New("Fail - Unable to verify")},
			wantStatus:  "failed",
			wantErrText: "Fail - Unable to verify",
		},
		{
			name:        "still pending",
			res:         &release.VerificationResult{GUID: "g2"},
			verifyErr:   &release.VerificationError{Address: testAddress, Status: release.StatusPending, Err: errors.New("gave up")},
			wantStatus:  "pending",
			wantGUID:    "g2",
			wantErrText: "gave up",
		},
		{
			name:        "infrastructure",
			verifyErr:   &release.InfrastructureError{Op: "submit", Err: errors.New("connection refused")},
			wantStatus:  "failed",
			wantErrText: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			svc := NewService(store, "polygon")
			ctx := context.Background()
			require.NoError(t, svc.RecordDeployment(ctx, "run", token.DefaultRequest(), deployed()))

			require.NoError(t, svc.RecordVerification(ctx, "run", tt.res, tt.verifyErr))

			run, err := svc.Get(ctx, "run")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, run.VerificationStatus)
			assert.Equal(t, tt.wantGUID, run.VerificationGUID)
			if tt.wantErrText != "" {
				assert.Contains(t, run.Error, tt.wantErrText)
			} else {
				assert.Empty(t, run.Error)
			}
		})
	}

	t.Run("unknown run", func(t *testing.T) {
		svc := NewService(newMockStore(), "polygon")
		err := svc.RecordVerification(context.Background(), "missing", &release.VerificationResult{Status: release.StatusVerified}, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_FindByAddress(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, "polygon")
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		require.NoError(t, svc.RecordDeployment(ctx, fmt.Sprintf("run-%d", i), token.DefaultRequest(), deployed()))
	}

	run, err := svc.FindByAddress(ctx, 137, testAddress)
	require.NoError(t, err)
	assert.Equal(t, "run-2", run.ID)

	_, err = svc.FindByAddress(ctx, 1, testAddress)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.FindByAddress(ctx, 137, "not-an-address")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestService_List(t *testing.T) {
	store := newMockStore()
	ctx := context.Background()
	require.NoError(t, NewService(store, "polygon").RecordDeployment(ctx, "a", token.DefaultRequest(), deployed()))
	require.NoError(t, NewService(store, "amoy").RecordDeployment(ctx, "b", token.DefaultRequest(), deployed()))

	svc := NewService(store, "polygon")
	all, err := svc.List(ctx, ListFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, all.Runs, 2)

	amoy, err := svc.List(ctx, ListFilter{Network: "amoy"}, 10)
	require.NoError(t, err)
	require.Len(t, amoy.Runs, 1)
	assert.Equal(t, "b", amoy.Runs[0].ID)
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, 2026, parseTime("2026-03-01 10:00:00.123").Year())
	assert.Equal(t, 14, parseTime("2026-03-01 14:05:06").Hour())
	assert.True(t, parseTime("yesterday").IsZero())
}
