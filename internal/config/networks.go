package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// etherscanV2 serves every supported chain, selected by chainid
const etherscanV2 = "https://api.etherscan.io/v2/api"

// NetworkProfile is a named network in ~/.tokenlaunch/networks.yaml
type NetworkProfile struct {
	RPCURL             string `yaml:"rpc_url,omitempty"`
	ChainID            int64  `yaml:"chain_id"`
	ExplorerAPIURL     string `yaml:"explorer_api_url,omitempty"`
	ExplorerBrowserURL string `yaml:"explorer_browser_url,omitempty"`
}

// networksFile is the YAML document layout
type networksFile struct {
	Networks map[string]*NetworkProfile `yaml:"networks"`
}

// BuiltinNetworks are available without a networks file. RPC URLs are left
// to the environment.
func BuiltinNetworks() map[string]*NetworkProfile {
	return map[string]*NetworkProfile{
		"polygon": {ChainID: 137, ExplorerAPIURL: etherscanV2, ExplorerBrowserURL: "https://polygonscan.com"},
		"amoy":    {ChainID: 80002, ExplorerAPIURL: etherscanV2, ExplorerBrowserURL: "https://amoy.polygonscan.com"},
		"mainnet": {ChainID: 1, ExplorerAPIURL: etherscanV2, ExplorerBrowserURL: "https://etherscan.io"},
		"sepolia": {ChainID: 11155111, ExplorerAPIURL: etherscanV2, ExplorerBrowserURL: "https://sepolia.etherscan.io"},
	}
}

// ConfigDir returns ~/.tokenlaunch
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tokenlaunch"
	}
	return filepath.Join(home, ".tokenlaunch")
}

// DefaultNetworksFile returns ~/.tokenlaunch/networks.yaml
func DefaultNetworksFile() string {
	return filepath.Join(ConfigDir(), "networks.yaml")
}

// LoadNetworks merges the networks file over the builtin profiles. A
// missing file is not an error; fields left empty keep the builtin value.
func LoadNetworks(path string) (map[string]*NetworkProfile, error) {
	profiles := BuiltinNetworks()

	if path == "" {
		path = DefaultNetworksFile()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profiles, nil
		}
		return nil, fmt.Errorf("reading networks file: %w", err)
	}

	var file networksFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for name, p := range file.Networks {
		if p == nil {
			continue
		}
		base, ok := profiles[name]
		if !ok {
			profiles[name] = p
			continue
		}
		if p.RPCURL != "" {
			base.RPCURL = p.RPCURL
		}
		if p.ChainID != 0 {
			base.ChainID = p.ChainID
		}
		if p.ExplorerAPIURL != "" {
			base.ExplorerAPIURL = p.ExplorerAPIURL
		}
		if p.ExplorerBrowserURL != "" {
			base.ExplorerBrowserURL = p.ExplorerBrowserURL
		}
	}
	return profiles, nil
}
