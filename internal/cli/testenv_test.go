package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenlaunch/internal/deployer"
	"github.com/pendergraft/tokenlaunch/internal/explorer/explorertest"
)

const (
	tokenABI = `[{"type":"constructor","stateMutability":"nonpayable","inputs":[` +
		`{"name":"name","type":"string"},{"name":"symbol","type":"string"},` +
		`{"name":"decimals","type":"uint8"},{"name":"initialSupply","type":"uint256"}]}]`

	// MSTORE8 0 at 0, RETURN one byte: runtime code 0x00
	initCode    = "0x600060005360016000f3"
	runtimeCode = "0x00"
	solcVersion = "0.8.19+commit.7dd6d404"
	sourcePath  = "src/TokenContract.sol"
)

var envKeys = []string{
	"RPC_URL", "Polygon_Url", "PRIVATE_KEY", "Private_Key", "ETHERSCAN_API_KEY", "CHAIN_ID",
	"EXPLORER_API_URL", "EXPLORER_BROWSER_URL", "TOKENLAUNCH_NETWORK", "TOKENLAUNCH_INDEXING_DELAY",
	"TOKENLAUNCH_CONFIRM_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "STORAGE_TYPE", "SQLITE_PATH",
	"DATABASE_URL", "METRICS_ENABLED", "METRICS_PUSHGATEWAY_URL",
}

var addressPattern = regexp.MustCompile(`deployed to: (0x[0-9a-fA-F]{40})`)

func init() {
	color.NoColor = true
}

// simBackend hides the embedded client's Close so commands cannot shut the
// shared simulated node down.
type simBackend struct {
	simulated.Client
}

// testEnv is a Foundry project on disk, a simulated chain and a fake explorer.
type testEnv struct {
	dir      string
	sim      *simulated.Backend
	explorer *explorertest.Server
	keyHex   string

	mu     sync.Mutex
	sleeps []time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	t.Chdir(dir)
	writeFoundryProject(t, dir)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	balance := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
	sim := simulated.NewBackend(types.GenesisAlloc{
		crypto.PubkeyToAddress(key.PublicKey): {Balance: balance},
	})
	t.Cleanup(func() { _ = sim.Close() })

	e := &testEnv{
		dir:      dir,
		sim:      sim,
		explorer: explorertest.New(t),
		keyHex:   hex.EncodeToString(crypto.FromECDSA(key)),
	}
	e.autoCommit(t)

	t.Setenv("RPC_URL", "http://127.0.0.1:8545")
	t.Setenv("PRIVATE_KEY", e.keyHex)
	t.Setenv("ETHERSCAN_API_KEY", "TESTKEY")
	t.Setenv("EXPLORER_API_URL", e.explorer.URL())
	t.Setenv("CHAIN_ID", "1337")
	t.Setenv("LOG_LEVEL", "error")

	return e
}

func (e *testEnv) autoCommit(t *testing.T) {
	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.sim.Commit()
			}
		}
	}()
}

func (e *testEnv) sleep(ctx context.Context, d time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sleeps = append(e.sleeps, d)
	return ctx.Err()
}

func (e *testEnv) slept() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Duration(nil), e.sleeps...)
}

// result is the captured output of one command execution.
type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the CLI with args against the simulated chain.
func (e *testEnv) execute(args ...string) result {
	var stdout, stderr bytes.Buffer
	a := &app{
		stdout: &stdout,
		stderr: &stderr,
		dial: func(ctx context.Context, rpcURL string) (deployer.Backend, error) {
			return simBackend{e.sim.Client()}, nil
		},
		sleep: e.sleep,
	}

	cmd := newRootCmd(a, "test")
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func deployedAddress(t *testing.T, stdout string) string {
	t.Helper()
	m := addressPattern.FindStringSubmatch(stdout)
	require.Len(t, m, 2, "no deployed address in output:\n%s", stdout)
	return m[1]
}

func writeFoundryProject(t *testing.T, dir string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "foundry.toml"), []byte("[profile.default]\n"), 0644))

	metadata := map[string]any{
		"compiler": map[string]any{"version": solcVersion},
		"language": "Solidity",
		"settings": map[string]any{
			"compilationTarget": map[string]string{sourcePath: "TokenContract"},
			"optimizer":         map[string]any{"enabled": false, "runs": 200},
		},
		"sources": map[string]any{sourcePath: map[string]any{"keccak256": "0x00", "license": "MIT"}},
	}
	rawMetadata, err := json.Marshal(metadata)
	require.NoError(t, err)

	artifact := map[string]any{
		"abi":              json.RawMessage(tokenABI),
		"bytecode":         map[string]any{"object": initCode},
		"deployedBytecode": map[string]any{"object": runtimeCode},
		"rawMetadata":      string(rawMetadata),
	}
	writeJSON(t, filepath.Join(dir, "out", "TokenContract.sol", "TokenContract.json"), artifact)

	buildInfo := map[string]any{
		"id":              "b1",
		"solcVersion":     "0.8.19",
		"solcLongVersion": solcVersion,
		"input": map[string]any{
			"language": "Solidity",
			"sources":  map[string]any{sourcePath: map[string]any{"content": "contract TokenContract {}"}},
			"settings": map[string]any{},
		},
		"output": map[string]any{
			"contracts": map[string]any{sourcePath: map[string]any{"TokenContract": map[string]any{}}},
		},
	}
	writeJSON(t, filepath.Join(dir, "out", "build-info", "b1.json"), buildInfo)
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}
