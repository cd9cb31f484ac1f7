package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenlaunch/internal/release"
)

func TestRun_Success(t *testing.T) {
	env := newTestEnv(t)

	res := env.execute()
	require.NoError(t, res.err, res.stderr)

	assert.Contains(t, res.stdout, "Launching Gold CryptoToken (Gold) on polygon, initial supply 100")
	assert.Contains(t, res.stdout, "Deploying TokenContract...")
	addr := deployedAddress(t, res.stdout)
	assert.Contains(t, res.stdout, "Waiting for 2m0s before verifying the contract...")
	assert.Contains(t, res.stdout, addr+" verified")
	assert.Contains(t, res.stdout, "GUID: test-guid")

	// the indexing delay runs in full before anything reaches the explorer
	sleeps := env.slept()
	require.NotEmpty(t, sleeps)
	assert.Equal(t, release.DefaultIndexingDelay, sleeps[0])

	subs := env.explorer.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "1337", subs[0].ChainID)
	assert.Equal(t, "TESTKEY", subs[0].APIKey)
	assert.True(t, strings.EqualFold(addr, subs[0].Address))
	assert.Equal(t, "src/TokenContract.sol:TokenContract", subs[0].ContractName)
	assert.Equal(t, "v"+solcVersion, subs[0].CompilerVersion)
	assert.NotEmpty(t, subs[0].ConstructorArgs)
}

func TestRun_SubcommandAndDelayFlag(t *testing.T) {
	env := newTestEnv(t)

	res := env.execute("run", "--delay", "30s")
	require.NoError(t, res.err, res.stderr)

	sleeps := env.slept()
	require.NotEmpty(t, sleeps)
	assert.Equal(t, 30*time.Second, sleeps[0])
	assert.Contains(t, res.stdout, "Waiting for 30s before verifying the contract...")
}

func TestRun_ConstructorFlags(t *testing.T) {
	env := newTestEnv(t)

	gold := env.execute()
	require.NoError(t, gold.err, gold.stderr)
	silver := env.execute("--name", "Silver Token", "--symbol", "SLV", "--decimals", "6", "--supply", "2500")
	require.NoError(t, silver.err, silver.stderr)

	subs := env.explorer.Submissions()
	require.Len(t, subs, 2)
	assert.NotEqual(t, subs[0].ConstructorArgs, subs[1].ConstructorArgs)
}

func TestRun_VerificationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.explorer.SetStatuses("Fail - Unable to verify")

	res := env.execute()
	require.Error(t, res.err)

	var ve *release.VerificationError
	require.True(t, errors.As(res.err, &ve), "got %T", res.err)
	assert.Equal(t, release.StatusFailed, ve.Status)

	// the deployed address is still reported
	addr := deployedAddress(t, res.stdout)
	assert.Contains(t, res.stdout, "TokenContract deployed to "+addr+" but not verified")
	assert.Contains(t, res.stdout, "tokenlaunch verify --address "+addr)
	assert.Contains(t, res.stderr, "contract deployed but not verified")
}

func TestRun_AlreadyVerified(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		wantOut string
	}{
		{name: "error by default", wantErr: true, wantOut: "but not verified"},
		{name: "accepted with flag", args: []string{"--accept-already-verified"}, wantOut: "was already verified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.explorer.SetStatuses("Already Verified")

			res := env.execute(tt.args...)
			if tt.wantErr {
				var ve *release.VerificationError
				require.True(t, errors.As(res.err, &ve), "got %v", res.err)
				assert.Equal(t, release.StatusAlreadyVerified, ve.Status)
			} else {
				require.NoError(t, res.err, res.stderr)
			}
			assert.Contains(t, res.stdout, tt.wantOut)
		})
	}
}

func TestRun_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		args    []string
		wantErr string
	}{
		{name: "missing api key", unset: "ETHERSCAN_API_KEY", wantErr: "ETHERSCAN_API_KEY"},
		{name: "missing rpc", unset: "RPC_URL", wantErr: "RPC_URL"},
		{name: "bad supply", args: []string{"--supply", "lots"}, wantErr: "supply"},
		{name: "negative delay", args: []string{"--delay=-1s"}, wantErr: "indexing delay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.unset != "" {
				require.NoError(t, os.Unsetenv(tt.unset))
			}

			res := env.execute(tt.args...)
			require.Error(t, res.err)
			assert.Contains(t, res.err.Error(), tt.wantErr)
			assert.NotContains(t, res.stdout, "deployed to")
			assert.Empty(t, env.explorer.Submissions())
		})
	}
}

func TestRun_RecordsToLedger(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(env.dir, "data", "ledger.db"))

	res := env.execute()
	require.NoError(t, res.err, res.stderr)
	addr := deployedAddress(t, res.stdout)

	history := env.execute("history")
	require.NoError(t, history.err, history.stderr)
	assert.Contains(t, history.stdout, "RUN")
	assert.Contains(t, history.stdout, strings.ToLower(addr))
	assert.Contains(t, history.stdout, "verified")
	assert.Contains(t, history.stdout, "polygon")
}
