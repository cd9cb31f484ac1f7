// Package chains provides the chain module interfaces and the artifact model
// used to deploy and verify compiled contracts.
package chains

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrArtifactNotFound is returned when no compiled artifact exists for a contract.
var ErrArtifactNotFound = errors.New("artifact not found")

// Chain represents a blockchain ecosystem
type Chain interface {
	// Metadata
	Name() string        // "evm"
	DisplayName() string // "Ethereum/EVM"

	// Builder discovery
	DetectBuilder(dir string) (Builder, error)
	Builders() []Builder

	// On-chain checks
	VerifyDeployment(ctx context.Context, opts VerifyOptions) (*VerifyResult, error)
	GetDeployedBytecode(ctx context.Context, rpc string, address string) ([]byte, error)
}

// Builder reads artifacts produced by a specific build tool
type Builder interface {
	// Metadata
	Name() string        // "foundry", "hardhat"
	DisplayName() string // "Foundry", "Hardhat"
	Chain() string       // "evm"

	// Detection
	Detect(dir string) (bool, error)
	ConfigFile() string // "foundry.toml", "hardhat.config.js"

	// Artifact handling
	Find(dir string, contractName string) (*Artifact, error)
	Parse(artifactPath string) (*Artifact, error)
	VerificationInput(dir string, artifact *Artifact) (*VerificationInput, error)
}

// VerifyOptions configures an on-chain bytecode comparison
type VerifyOptions struct {
	RPC          string
	Address      string
	ExpectedCode []byte
}

// VerifyResult contains bytecode comparison results
type VerifyResult struct {
	Match     bool   // Whether the bytecode matches
	MatchType string // "full", "partial", "none"
	Message   string // Human-readable explanation
}

// VerificationInput is what an explorer needs to recompile a contract.
type VerificationInput struct {
	StandardJSON    []byte
	SolcLongVersion string // "0.8.19+commit.7dd6d404"
}

// CompilerVersion returns the explorer-style compiler version string.
func (v *VerificationInput) CompilerVersion() string {
	if v.SolcLongVersion == "" {
		return ""
	}
	return "v" + v.SolcLongVersion
}

// Artifact is a compiled contract
type Artifact struct {
	Name  string `json:"name"`
	Chain string `json:"chain"`

	// ArtifactPath is the file the artifact was read from
	ArtifactPath string `json:"-"`

	EVM *EVMArtifact `json:"evm,omitempty"`
}

// QualifiedName returns "<sourcePath>:<Name>" as explorers expect.
func (a *Artifact) QualifiedName() string {
	if a.EVM == nil || a.EVM.SourcePath == "" {
		return a.Name
	}
	return a.EVM.SourcePath + ":" + a.Name
}

// EVMArtifact contains EVM-specific contract data
type EVMArtifact struct {
	SourcePath       string          `json:"sourcePath"`
	License          string          `json:"license,omitempty"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
	Compiler         EVMCompiler     `json:"compiler"`
}

// EVMCompiler contains EVM compiler details
type EVMCompiler struct {
	Version    string          `json:"version"` // "0.8.19+commit.7dd6d404"
	Optimizer  OptimizerConfig `json:"optimizer"`
	EVMVersion string          `json:"evmVersion"` // "paris", "shanghai"
	ViaIR      bool            `json:"viaIR"`
}

// OptimizerConfig contains optimizer settings
type OptimizerConfig struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

// Registry holds all registered chain modules
type Registry struct {
	chains map[string]Chain
	order  []string
}

// NewRegistry creates a new chain registry
func NewRegistry() *Registry {
	return &Registry{
		chains: make(map[string]Chain),
	}
}

// Register adds a chain module to the registry
func (r *Registry) Register(c Chain) {
	if _, ok := r.chains[c.Name()]; !ok {
		r.order = append(r.order, c.Name())
	}
	r.chains[c.Name()] = c
}

// List returns all registered chain modules in registration order
func (r *Registry) List() []Chain {
	chains := make([]Chain, 0, len(r.order))
	for _, name := range r.order {
		chains = append(chains, r.chains[name])
	}
	return chains
}

// DetectChainAndBuilder detects the chain and builder for a project directory
func (r *Registry) DetectChainAndBuilder(dir string) (Chain, Builder, error) {
	for _, chain := range r.List() {
		builder, err := chain.DetectBuilder(dir)
		if err == nil && builder != nil {
			return chain, builder, nil
		}
	}
	return nil, nil, fmt.Errorf("no supported builder detected in %s", dir)
}
