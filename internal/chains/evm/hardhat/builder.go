// Package hardhat provides the Hardhat builder for EVM contracts.
package hardhat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pendergraft/tokenlaunch/internal/chains"
)

// configFiles are the names Hardhat looks for, in order.
var configFiles = []string{"hardhat.config.js", "hardhat.config.ts", "hardhat.config.cjs", "hardhat.config.mjs"}

// Builder implements chains.Builder for Hardhat projects
type Builder struct{}

// New creates a new Hardhat builder
func New() *Builder {
	return &Builder{}
}

// Name returns the builder identifier
func (b *Builder) Name() string {
	return "hardhat"
}

// DisplayName returns a human-readable name
func (b *Builder) DisplayName() string {
	return "Hardhat"
}

// Chain returns the chain this builder targets
func (b *Builder) Chain() string {
	return "evm"
}

// ConfigFile returns the config file name
func (b *Builder) ConfigFile() string {
	return configFiles[0]
}

// Detect checks if a directory is a Hardhat project
func (b *Builder) Detect(dir string) (bool, error) {
	for _, name := range configFiles {
		_, err := os.Stat(filepath.Join(dir, name))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, err
		}
	}
	return false, nil
}

// Find locates artifacts/<sourceName>/<contractName>.json. Sources under
// contracts/ win over dependencies compiled into the same tree.
func (b *Builder) Find(dir string, contractName string) (*chains.Artifact, error) {
	artifactsDir := filepath.Join(dir, "artifacts")

	if _, err := os.Stat(artifactsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: artifacts directory not found - run 'npx hardhat compile' first", chains.ErrArtifactNotFound)
	}

	var candidates []string
	err := filepath.Walk(artifactsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == contractName+".json" && strings.HasSuffix(filepath.Dir(path), ".sol") {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking artifacts directory: %w", err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", chains.ErrArtifactNotFound, contractName)
	}
	sort.Strings(candidates)

	var fallback *chains.Artifact
	for _, path := range candidates {
		artifact, err := b.Parse(path)
		if err != nil {
			continue
		}
		if strings.HasPrefix(artifact.EVM.SourcePath, "contracts/") {
			return artifact, nil
		}
		if fallback == nil {
			fallback = artifact
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("%w: %s has no deployable bytecode", chains.ErrArtifactNotFound, contractName)
	}
	return fallback, nil
}

// Parse parses a Hardhat artifact file. Compiler details are read from the
// build-info referenced by the sibling .dbg.json when present.
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var raw Artifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}
	if raw.Bytecode == "" || raw.Bytecode == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	name := raw.ContractName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(artifactPath), ".json")
	}

	artifact := &chains.Artifact{
		Name:         name,
		Chain:        "evm",
		ArtifactPath: artifactPath,
		EVM: &chains.EVMArtifact{
			SourcePath:       raw.SourceName,
			ABI:              raw.ABI,
			Bytecode:         raw.Bytecode,
			DeployedBytecode: raw.DeployedBytecode,
		},
	}

	if bi, err := readBuildInfo(artifactPath); err == nil {
		artifact.EVM.Compiler = bi.compiler()
	}
	return artifact, nil
}

// VerificationInput returns the build-info's standard JSON input.
func (b *Builder) VerificationInput(dir string, artifact *chains.Artifact) (*chains.VerificationInput, error) {
	if artifact == nil || artifact.EVM == nil {
		return nil, fmt.Errorf("artifact has no EVM data")
	}

	bi, err := readBuildInfo(artifact.ArtifactPath)
	if err != nil {
		return nil, err
	}

	var output struct {
		Contracts map[string]map[string]json.RawMessage `json:"contracts"`
	}
	if err := json.Unmarshal(bi.Output, &output); err == nil && output.Contracts != nil {
		if _, ok := output.Contracts[artifact.EVM.SourcePath][artifact.Name]; !ok {
			return nil, fmt.Errorf("build-info %s does not contain %s", bi.ID, artifact.QualifiedName())
		}
	}

	if len(bi.Input) == 0 {
		return nil, fmt.Errorf("build-info %s has no input", bi.ID)
	}
	return &chains.VerificationInput{
		StandardJSON:    bi.Input,
		SolcLongVersion: bi.SolcLongVersion,
	}, nil
}

// readBuildInfo follows <artifact>.dbg.json to the build-info file.
func readBuildInfo(artifactPath string) (*BuildInfo, error) {
	dbgPath := strings.TrimSuffix(artifactPath, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, fmt.Errorf("reading debug file: %w", err)
	}

	var dbg DebugFile
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("parsing debug file: %w", err)
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("debug file %s has no buildInfo", dbgPath)
	}

	biPath := filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo))
	data, err = os.ReadFile(biPath)
	if err != nil {
		return nil, fmt.Errorf("reading build-info: %w", err)
	}

	var bi BuildInfo
	if err := json.Unmarshal(data, &bi); err != nil {
		return nil, fmt.Errorf("parsing build-info: %w", err)
	}
	return &bi, nil
}

// Artifact is the hh-sol-artifact-1 format.
type Artifact struct {
	Format           string          `json:"_format"`
	ContractName     string          `json:"contractName"`
	SourceName       string          `json:"sourceName"`
	ABI              json.RawMessage `json:"abi"`
	Bytecode         string          `json:"bytecode"`
	DeployedBytecode string          `json:"deployedBytecode"`
}

// DebugFile is the hh-sol-dbg-1 format written next to each artifact.
type DebugFile struct {
	Format    string `json:"_format"`
	BuildInfo string `json:"buildInfo"`
}

// BuildInfo is the hh-sol-build-info-1 format.
type BuildInfo struct {
	ID              string          `json:"id"`
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
	Output          json.RawMessage `json:"output"`
}

type inputSettings struct {
	Settings struct {
		Optimizer struct {
			Enabled bool `json:"enabled"`
			Runs    int  `json:"runs"`
		} `json:"optimizer"`
		EVMVersion string `json:"evmVersion"`
		ViaIR      bool   `json:"viaIR"`
	} `json:"settings"`
}

func (bi *BuildInfo) compiler() chains.EVMCompiler {
	c := chains.EVMCompiler{Version: bi.SolcLongVersion}

	var in inputSettings
	if err := json.Unmarshal(bi.Input, &in); err == nil {
		c.EVMVersion = in.Settings.EVMVersion
		c.ViaIR = in.Settings.ViaIR
		c.Optimizer = chains.OptimizerConfig{
			Enabled: in.Settings.Optimizer.Enabled,
			Runs:    in.Settings.Optimizer.Runs,
		}
	}
	return c
}
