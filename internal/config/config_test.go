package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenlaunch/internal/release"
)

var envKeys = []string{
	"RPC_URL", "Polygon_Url", "PRIVATE_KEY", "Private_Key", "ETHERSCAN_API_KEY", "CHAIN_ID",
	"EXPLORER_API_URL", "EXPLORER_BROWSER_URL", "TOKENLAUNCH_NETWORK", "TOKENLAUNCH_INDEXING_DELAY",
	"TOKENLAUNCH_CONFIRM_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "STORAGE_TYPE", "SQLITE_PATH",
	"DATABASE_URL", "METRICS_ENABLED", "METRICS_PUSHGATEWAY_URL",
}

// isolate runs the test in an empty directory with a clean environment.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func load(t *testing.T, opts LoadOptions) *Config {
	t.Helper()
	if opts.NetworksFile == "" {
		opts.NetworksFile = filepath.Join(t.TempDir(), "missing.yaml")
	}
	cfg, err := Load(opts)
	require.NoError(t, err)
	return cfg
}

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg := load(t, LoadOptions{})

	assert.Equal(t, "polygon", cfg.Network.Name)
	assert.Equal(t, int64(137), cfg.Network.ChainID)
	assert.Equal(t, "https://api.etherscan.io/v2/api", cfg.Explorer.APIURL)
	assert.Equal(t, release.DefaultIndexingDelay, cfg.Pipeline.IndexingDelay)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.ConfirmTimeout)
	assert.Equal(t, 10, cfg.Pipeline.GasLimitBuffer)
	assert.Equal(t, "none", cfg.Storage.Type)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Explorer.AcceptAlreadyVerified)

	req, err := cfg.Request()
	require.NoError(t, err)
	assert.Equal(t, "Gold CryptoToken", req.Name())
	assert.Equal(t, "Gold", req.Symbol())
	assert.Equal(t, uint8(18), req.Decimals())
	assert.Equal(t, "100000000000000000000", req.InitialSupply().String())
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("RPC_URL", "https://rpc.example.com")
	t.Setenv("PRIVATE_KEY", testKey)
	t.Setenv("ETHERSCAN_API_KEY", "ABC")
	t.Setenv("TOKENLAUNCH_INDEXING_DELAY", "90")
	t.Setenv("TOKENLAUNCH_CONFIRM_TIMEOUT", "2m")
	t.Setenv("DATABASE_URL", "postgres://localhost/tokenlaunch")
	t.Setenv("METRICS_PUSHGATEWAY_URL", "http://localhost:9091")

	cfg := load(t, LoadOptions{})

	assert.Equal(t, "https://rpc.example.com", cfg.Network.RPCURL)
	assert.Equal(t, testKey, cfg.Network.PrivateKey)
	assert.Equal(t, "ABC", cfg.Explorer.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.IndexingDelay)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.ConfirmTimeout)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.True(t, cfg.Metrics.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	isolate(t)
	t.Setenv("Polygon_Url", "https://polygon-rpc.com")
	t.Setenv("Private_Key", testKey)

	cfg := load(t, LoadOptions{})
	assert.Equal(t, "https://polygon-rpc.com", cfg.Network.RPCURL)
	assert.Equal(t, testKey, cfg.Network.PrivateKey)

	t.Setenv("RPC_URL", "https://preferred.example.com")
	cfg = load(t, LoadOptions{})
	assert.Equal(t, "https://preferred.example.com", cfg.Network.RPCURL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	content := "Polygon_Url=https://dotenv.example.com\nPrivate_Key=" + testKey + "\nETHERSCAN_API_KEY=FROMFILE\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0600))

	cfg := load(t, LoadOptions{})
	assert.Equal(t, "https://dotenv.example.com", cfg.Network.RPCURL)
	assert.Equal(t, "FROMFILE", cfg.Explorer.APIKey)
}

func TestLoad_ProjectFile(t *testing.T) {
	dir := isolate(t)
	content := `
network = "amoy"

[token]
name = "Silver"
symbol = "SLV"
decimals = 6
initial_supply = "2500.5"

[pipeline]
indexing_delay = "30s"
gas_limit_buffer = 25

[explorer]
accept_already_verified = true
poll_interval = "1s"

[storage]
type = "sqlite"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenlaunch.toml"), []byte(content), 0644))

	cfg := load(t, LoadOptions{})

	assert.Equal(t, "amoy", cfg.Network.Name)
	assert.Equal(t, int64(80002), cfg.Network.ChainID)
	assert.Equal(t, "https://amoy.polygonscan.com", cfg.Explorer.BrowserURL)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.IndexingDelay)
	assert.Equal(t, 25, cfg.Pipeline.GasLimitBuffer)
	assert.Equal(t, time.Second, cfg.Explorer.PollInterval)
	assert.True(t, cfg.Explorer.AcceptAlreadyVerified)
	assert.Equal(t, "sqlite", cfg.Storage.Type)

	req, err := cfg.Request()
	require.NoError(t, err)
	assert.Equal(t, "2500500000", req.InitialSupply().String())

	// env wins over the project file
	t.Setenv("TOKENLAUNCH_INDEXING_DELAY", "45s")
	t.Setenv("TOKENLAUNCH_NETWORK", "sepolia")
	cfg = load(t, LoadOptions{})
	assert.Equal(t, 45*time.Second, cfg.Pipeline.IndexingDelay)
	assert.Equal(t, "sepolia", cfg.Network.Name)

	// explicit network option wins over env
	cfg = load(t, LoadOptions{Network: "mainnet"})
	assert.Equal(t, int64(1), cfg.Network.ChainID)
}

func TestLoad_ProjectFileErrors(t *testing.T) {
	dir := isolate(t)

	t.Run("explicit file missing", func(t *testing.T) {
		_, err := Load(LoadOptions{ConfigFile: filepath.Join(dir, "nope.toml"), NetworksFile: filepath.Join(dir, "n.yaml")})
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte("[pipeline]\nindexing_delay = \"soon\"\n"), 0644))
		_, err := Load(LoadOptions{ConfigFile: path, NetworksFile: filepath.Join(dir, "n.yaml")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid duration")
	})
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"duration with unknown unit", "TOKENLAUNCH_INDEXING_DELAY", "2min"},
		{"confirm timeout words", "TOKENLAUNCH_CONFIRM_TIMEOUT", "ten minutes"},
		{"non-numeric chain id", "CHAIN_ID", "abc"},
		{"fractional chain id", "CHAIN_ID", "1.5"},
		{"metrics flag", "METRICS_ENABLED", "yes please"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(LoadOptions{NetworksFile: filepath.Join(dir, "missing.yaml")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
			assert.Contains(t, err.Error(), tt.value)
		})
	}
}

func TestLoad_EnvDurationForms(t *testing.T) {
	isolate(t)
	t.Setenv("TOKENLAUNCH_INDEXING_DELAY", "90s")
	t.Setenv("TOKENLAUNCH_CONFIRM_TIMEOUT", "120")

	cfg := load(t, LoadOptions{})
	assert.Equal(t, 90*time.Second, cfg.Pipeline.IndexingDelay)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.ConfirmTimeout)
}

func TestLoadNetworks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "networks.yaml")
	content := `
networks:
  polygon:
    rpc_url: https://polygon.example.com
  local:
    rpc_url: http://127.0.0.1:8545
    chain_id: 31337
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	profiles, err := LoadNetworks(path)
	require.NoError(t, err)

	assert.Equal(t, "https://polygon.example.com", profiles["polygon"].RPCURL)
	assert.Equal(t, int64(137), profiles["polygon"].ChainID)
	assert.Equal(t, "https://polygonscan.com", profiles["polygon"].ExplorerBrowserURL)
	assert.Equal(t, int64(31337), profiles["local"].ChainID)

	_, err = LoadNetworks(writeFile(t, dir, "bad.yaml", "networks: [1, 2"))
	assert.Error(t, err)

	profiles, err = LoadNetworks(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Len(t, profiles, len(BuiltinNetworks()))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Network.RPCURL = "https://rpc.example.com"
		cfg.Network.PrivateKey = "0x" + testKey
		cfg.Explorer.APIKey = "ABC"
		cfg.Explorer.APIURL = etherscanV2
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero delay allowed", mutate: func(c *Config) { c.Pipeline.IndexingDelay = 0 }},
		{name: "missing rpc", mutate: func(c *Config) { c.Network.RPCURL = "" }, wantErr: "RPC_URL"},
		{name: "missing key", mutate: func(c *Config) { c.Network.PrivateKey = "" }, wantErr: "PRIVATE_KEY"},
		{name: "short key", mutate: func(c *Config) { c.Network.PrivateKey = "abcd" }, wantErr: "64 hex"},
		{name: "missing api key", mutate: func(c *Config) { c.Explorer.APIKey = "" }, wantErr: "ETHERSCAN_API_KEY"},
		{name: "negative delay", mutate: func(c *Config) { c.Pipeline.IndexingDelay = -time.Second }, wantErr: "indexing delay"},
		{name: "bad storage", mutate: func(c *Config) { c.Storage.Type = "redis" }, wantErr: "storage type"},
		{name: "bad decimals", mutate: func(c *Config) { c.Token.Decimals = 300 }, wantErr: "decimals"},
		{name: "bad supply", mutate: func(c *Config) { c.Token.InitialSupply = "-1" }, wantErr: "supply"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.False(t, strings.Contains(err.Error(), testKey), "key leaked into error")
		})
	}
}

func TestWriteProject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tokenlaunch.toml")
	tok := defaults().Token

	require.NoError(t, WriteProject(path, "polygon", tok, false))
	assert.Error(t, WriteProject(path, "polygon", tok, false))
	require.NoError(t, WriteProject(path, "amoy", tok, true))

	p, _, err := LoadProject(path)
	require.NoError(t, err)
	assert.Equal(t, "amoy", p.Network)
	assert.Equal(t, "Gold CryptoToken", p.Token.Name)
	require.NotNil(t, p.Token.Decimals)
	assert.Equal(t, 18, *p.Token.Decimals)
	require.NotNil(t, p.Pipeline.IndexingDelay)
	assert.Equal(t, 120*time.Second, p.Pipeline.IndexingDelay.Duration)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
