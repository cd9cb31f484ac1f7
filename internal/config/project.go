package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ProjectConfigFiles is the search order for project config files
var ProjectConfigFiles = []string{"tokenlaunch.toml", ".tokenlaunch.toml"}

// ProjectConfig is the project-level TOML configuration. Secrets never live here.
type ProjectConfig struct {
	Network    string `toml:"network,omitempty"`
	ProjectDir string `toml:"project_dir,omitempty"`
	Builder    string `toml:"builder,omitempty"`

	Token    TokenTOML    `toml:"token"`
	Pipeline PipelineTOML `toml:"pipeline"`
	Explorer ExplorerTOML `toml:"explorer"`
	Storage  StorageTOML  `toml:"storage"`
	Metrics  MetricsTOML  `toml:"metrics"`
}

// TokenTOML is the [token] table
type TokenTOML struct {
	Contract      string `toml:"contract,omitempty"`
	Name          string `toml:"name,omitempty"`
	Symbol        string `toml:"symbol,omitempty"`
	Decimals      *int   `toml:"decimals,omitempty"`
	InitialSupply string `toml:"initial_supply,omitempty"`
}

// PipelineTOML is the [pipeline] table
type PipelineTOML struct {
	IndexingDelay  *Duration `toml:"indexing_delay,omitempty"`
	ConfirmTimeout *Duration `toml:"confirm_timeout,omitempty"`
	GasLimitBuffer *int      `toml:"gas_limit_buffer,omitempty"`
}

// ExplorerTOML is the [explorer] table
type ExplorerTOML struct {
	APIURL                string    `toml:"api_url,omitempty"`
	BrowserURL            string    `toml:"browser_url,omitempty"`
	AcceptAlreadyVerified bool      `toml:"accept_already_verified,omitempty"`
	PollAttempts          int       `toml:"poll_attempts,omitempty"`
	PollInterval          *Duration `toml:"poll_interval,omitempty"`
}

// StorageTOML is the [storage] table
type StorageTOML struct {
	Type       string `toml:"type,omitempty"`
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// MetricsTOML is the [metrics] table
type MetricsTOML struct {
	Enabled        bool   `toml:"enabled,omitempty"`
	PushgatewayURL string `toml:"pushgateway_url,omitempty"`
}

// Duration is a time.Duration written as "120s" in config files
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadProject loads the project config from path, or from the first file in
// ProjectConfigFiles when path is empty. Returns os.ErrNotExist when nothing is found.
func LoadProject(path string) (*ProjectConfig, string, error) {
	if path != "" {
		cfg, err := loadProjectFromPath(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}

	for _, name := range ProjectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			cfg, err := loadProjectFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return cfg, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

func loadProjectFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg ProjectConfig
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return &cfg, nil
}

// DefaultProjectTemplate is written by `tokenlaunch config init`.
const DefaultProjectTemplate = `# tokenlaunch project configuration
# Secrets (RPC_URL, PRIVATE_KEY, ETHERSCAN_API_KEY) are read from the environment or .env

network = %q
project_dir = "."
# builder = "hardhat"   # detected from foundry.toml / hardhat.config.* when unset

[token]
contract = %q
name = %q
symbol = %q
decimals = %d
initial_supply = %q

[pipeline]
indexing_delay = "120s"
confirm_timeout = "5m"
gas_limit_buffer = 10

[explorer]
# api_url = "https://api.etherscan.io/v2/api"
# browser_url = "https://polygonscan.com"
accept_already_verified = false
poll_attempts = 10
poll_interval = "5s"

[storage]
type = "none"   # none, sqlite or postgres (DATABASE_URL)
# sqlite_path = "./data/tokenlaunch.db"

[metrics]
# pushgateway_url = "http://localhost:9091"
`

// WriteProject writes a starter tokenlaunch.toml to path.
func WriteProject(path, network string, t TokenConfig, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content := fmt.Sprintf(DefaultProjectTemplate, network, t.Contract, t.Name, t.Symbol, t.Decimals, t.InitialSupply)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
