//go:build e2e

package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tokenlaunch"),
		postgres.WithUsername("tokenlaunch"),
		postgres.WithPassword("tokenlaunch"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return connString
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewPostgresStore(setupPostgres(ctx, t), logger)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	// migrations are idempotent
	require.NoError(t, store.Migrate(ctx))

	run := &Run{
		ID:              uuid.New().String(),
		Contract:        "TokenContract",
		Network:         "amoy",
		ChainID:         80002,
		Address:         "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		DeployerAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		TxHash:          "0xabc",
		BlockNumber:     7,
		ConstructorArgs: "00ff",
	}
	require.NoError(t, store.CreateRun(ctx, run))
	assert.ErrorIs(t, store.CreateRun(ctx, run), ErrDuplicate)

	got, err := store.GetRunByAddress(ctx, 80002, "0x5FBDB2315678AFECB367F032D93F642F64180AA3")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "not_submitted", got.VerificationStatus)
	assert.NotEmpty(t, got.CreatedAt)

	require.NoError(t, store.UpdateVerification(ctx, run.ID, VerificationUpdate{
		Status:  "failed",
		Message: "Fail - Unable to verify",
		Error:   "bytecode mismatch",
	}))
	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", got.VerificationStatus)
	assert.Equal(t, "bytecode mismatch", got.Error)

	err = store.UpdateVerification(ctx, uuid.New().String(), VerificationUpdate{Status: "verified"})
	assert.True(t, errors.Is(err, ErrNotFound))

	list, err := store.ListRuns(ctx, RunFilter{Network: "amoy", Status: "failed"}, PaginationParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.False(t, list.HasMore)
}
