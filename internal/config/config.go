// Package config resolves launch configuration from flags, environment,
// the project file and network profiles.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/token"
	"github.com/pendergraft/tokenlaunch/internal/validation"
)

// DefaultNetwork matches the network the token was first launched on.
const DefaultNetwork = "polygon"

// Config holds everything a launch needs, resolved once at startup
type Config struct {
	ProjectDir string
	Builder    string // "", "foundry" or "hardhat"

	Network  NetworkConfig
	Token    TokenConfig
	Explorer ExplorerConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// NetworkConfig holds node connection and signing settings
type NetworkConfig struct {
	Name       string
	RPCURL     string
	ChainID    int64 // 0 = accept whatever the node reports
	PrivateKey string
}

// TokenConfig holds the contract identifier and constructor arguments
type TokenConfig struct {
	Contract      string
	Name          string
	Symbol        string
	Decimals      int
	InitialSupply string // whole tokens, decimal string
}

// ExplorerConfig holds block explorer settings
type ExplorerConfig struct {
	APIURL                string
	BrowserURL            string
	APIKey                string
	AcceptAlreadyVerified bool
	PollAttempts          int
	PollInterval          time.Duration
	RequestsPerSecond     float64
}

// PipelineConfig holds stage timing settings
type PipelineConfig struct {
	IndexingDelay  time.Duration
	ConfirmTimeout time.Duration
	GasLimitBuffer int // percent
}

// StorageConfig holds run ledger settings
type StorageConfig struct {
	Type     string // "none", "sqlite" or "postgres"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds metrics settings
type MetricsConfig struct {
	Enabled        bool
	PushgatewayURL string
}

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// ConfigFile is an explicit project file; empty searches the working directory
	ConfigFile string
	// Network overrides every other network selection
	Network string
	// EnvFile is loaded into the environment without overriding it; empty means ".env"
	EnvFile string
	// NetworksFile overrides ~/.tokenlaunch/networks.yaml
	NetworksFile string
}

// Load resolves configuration. Precedence, highest first: environment
// (after .env), project file, network profile, defaults. Flags are applied
// by the caller on top of the result.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	project, _, err := LoadProject(opts.ConfigFile)
	if err != nil && !(errors.Is(err, os.ErrNotExist) && opts.ConfigFile == "") {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	if project == nil {
		project = &ProjectConfig{}
	}

	networkName := firstNonEmpty(opts.Network, os.Getenv("TOKENLAUNCH_NETWORK"), project.Network, DefaultNetwork)
	profiles, err := LoadNetworks(opts.NetworksFile)
	if err != nil {
		return nil, err
	}
	profile := profiles[networkName]

	cfg := defaults()
	cfg.Network.Name = networkName
	cfg.applyProfile(profile)
	cfg.applyProject(project)
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// If DATABASE_URL is set, default to postgres
	if cfg.Storage.Postgres.URL != "" && cfg.Storage.Type == "none" {
		cfg.Storage.Type = "postgres"
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ProjectDir: ".",
		Token: TokenConfig{
			Contract:      token.DefaultContract,
			Name:          token.DefaultName,
			Symbol:        token.DefaultSymbol,
			Decimals:      token.DefaultDecimals,
			InitialSupply: token.DefaultInitialSupply,
		},
		Explorer: ExplorerConfig{
			PollAttempts:      10,
			PollInterval:      5 * time.Second,
			RequestsPerSecond: 4,
		},
		Pipeline: PipelineConfig{
			IndexingDelay:  release.DefaultIndexingDelay,
			ConfirmTimeout: 5 * time.Minute,
			GasLimitBuffer: 10,
		},
		Storage: StorageConfig{
			Type:   "none",
			SQLite: SQLiteConfig{Path: "./data/tokenlaunch.db"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) applyProfile(p *NetworkProfile) {
	if p == nil {
		return
	}
	c.Network.RPCURL = p.RPCURL
	c.Network.ChainID = p.ChainID
	c.Explorer.APIURL = p.ExplorerAPIURL
	c.Explorer.BrowserURL = p.ExplorerBrowserURL
}

func (c *Config) applyProject(p *ProjectConfig) {
	setString(&c.ProjectDir, p.ProjectDir)
	setString(&c.Builder, p.Builder)

	setString(&c.Token.Contract, p.Token.Contract)
	setString(&c.Token.Name, p.Token.Name)
	setString(&c.Token.Symbol, p.Token.Symbol)
	if p.Token.Decimals != nil {
		c.Token.Decimals = *p.Token.Decimals
	}
	setString(&c.Token.InitialSupply, p.Token.InitialSupply)

	setString(&c.Explorer.APIURL, p.Explorer.APIURL)
	setString(&c.Explorer.BrowserURL, p.Explorer.BrowserURL)
	c.Explorer.AcceptAlreadyVerified = c.Explorer.AcceptAlreadyVerified || p.Explorer.AcceptAlreadyVerified
	if p.Explorer.PollAttempts > 0 {
		c.Explorer.PollAttempts = p.Explorer.PollAttempts
	}
	if p.Explorer.PollInterval != nil {
		c.Explorer.PollInterval = p.Explorer.PollInterval.Duration
	}

	if p.Pipeline.IndexingDelay != nil {
		c.Pipeline.IndexingDelay = p.Pipeline.IndexingDelay.Duration
	}
	if p.Pipeline.ConfirmTimeout != nil {
		c.Pipeline.ConfirmTimeout = p.Pipeline.ConfirmTimeout.Duration
	}
	if p.Pipeline.GasLimitBuffer != nil {
		c.Pipeline.GasLimitBuffer = *p.Pipeline.GasLimitBuffer
	}

	setString(&c.Storage.Type, p.Storage.Type)
	setString(&c.Storage.SQLite.Path, p.Storage.SQLitePath)

	c.Metrics.Enabled = c.Metrics.Enabled || p.Metrics.Enabled
	setString(&c.Metrics.PushgatewayURL, p.Metrics.PushgatewayURL)
}

// applyEnv overlays environment variables. A variable that is set but
// cannot be parsed is an error rather than a silent fallback.
func (c *Config) applyEnv() error {
	var err error
	c.Network.RPCURL = getEnvFirst([]string{"RPC_URL", "Polygon_Url"}, c.Network.RPCURL)
	c.Network.PrivateKey = getEnvFirst([]string{"PRIVATE_KEY", "Private_Key"}, c.Network.PrivateKey)
	if c.Network.ChainID, err = getEnvInt64("CHAIN_ID", c.Network.ChainID); err != nil {
		return err
	}

	c.Explorer.APIKey = getEnv("ETHERSCAN_API_KEY", c.Explorer.APIKey)
	c.Explorer.APIURL = getEnv("EXPLORER_API_URL", c.Explorer.APIURL)
	c.Explorer.BrowserURL = getEnv("EXPLORER_BROWSER_URL", c.Explorer.BrowserURL)

	if c.Pipeline.IndexingDelay, err = getEnvDuration("TOKENLAUNCH_INDEXING_DELAY", c.Pipeline.IndexingDelay); err != nil {
		return err
	}
	if c.Pipeline.ConfirmTimeout, err = getEnvDuration("TOKENLAUNCH_CONFIRM_TIMEOUT", c.Pipeline.ConfirmTimeout); err != nil {
		return err
	}

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.Storage.Type = getEnv("STORAGE_TYPE", c.Storage.Type)
	c.Storage.SQLite.Path = getEnv("SQLITE_PATH", c.Storage.SQLite.Path)
	c.Storage.Postgres.URL = getEnv("DATABASE_URL", c.Storage.Postgres.URL)

	if c.Metrics.Enabled, err = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled); err != nil {
		return err
	}
	c.Metrics.PushgatewayURL = getEnv("METRICS_PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
	if c.Metrics.PushgatewayURL != "" {
		c.Metrics.Enabled = true
	}
	return nil
}

// Request builds the deployment request from the token settings.
func (c *Config) Request() (*token.DeploymentRequest, error) {
	if c.Token.Decimals < 0 || c.Token.Decimals > 255 {
		return nil, fmt.Errorf("decimals must be between 0 and 255, got %d", c.Token.Decimals)
	}
	return token.NewRequest(c.Token.Contract, c.Token.Name, c.Token.Symbol, uint8(c.Token.Decimals), c.Token.InitialSupply)
}

// ValidateDeploy checks what the deploy stage needs.
func (c *Config) ValidateDeploy() error {
	if err := validation.ValidateRPCURL(c.Network.RPCURL); err != nil {
		return fmt.Errorf("%w (set RPC_URL)", err)
	}
	if err := validation.ValidatePrivateKey(c.Network.PrivateKey); err != nil {
		return fmt.Errorf("%w (set PRIVATE_KEY)", err)
	}
	if c.Network.ChainID != 0 {
		if err := validation.ValidateChainID(c.Network.ChainID); err != nil {
			return err
		}
	}
	if c.Pipeline.ConfirmTimeout <= 0 {
		return errors.New("confirm timeout must be positive")
	}
	if c.Pipeline.GasLimitBuffer < 0 {
		return errors.New("gas limit buffer must not be negative")
	}
	return c.validateToken()
}

// ValidateVerify checks what the verify stage needs.
func (c *Config) ValidateVerify() error {
	if err := validation.ValidateRPCURL(c.Network.RPCURL); err != nil {
		return fmt.Errorf("%w (set RPC_URL)", err)
	}
	if c.Explorer.APIKey == "" {
		return errors.New("explorer API key is empty (set ETHERSCAN_API_KEY)")
	}
	if c.Explorer.APIURL == "" {
		return fmt.Errorf("no explorer API URL for network %q (set EXPLORER_API_URL)", c.Network.Name)
	}
	if c.Explorer.PollInterval < 0 {
		return errors.New("explorer poll interval must not be negative")
	}
	return c.validateToken()
}

// Validate checks everything a full run needs.
func (c *Config) Validate() error {
	if err := c.ValidateDeploy(); err != nil {
		return err
	}
	if err := c.ValidateVerify(); err != nil {
		return err
	}
	if c.Pipeline.IndexingDelay < 0 {
		return errors.New("indexing delay must not be negative")
	}
	switch c.Storage.Type {
	case "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}

func (c *Config) validateToken() error {
	_, err := c.Request()
	return err
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first set variable among keys
func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: expected an integer", key, value)
	}
	return i, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: expected true or false", key, value)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("120")
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid %s %q: expected a duration like 90s or whole seconds", key, value)
}
