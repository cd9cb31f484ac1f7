// Package foundry reads Foundry build output for EVM contracts.
package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pendergraft/tokenlaunch/internal/chains"
)

// Builder implements chains.Builder for Foundry projects
type Builder struct{}

// New creates a new Foundry builder
func New() *Builder {
	return &Builder{}
}

func (b *Builder) Name() string        { return "foundry" }
func (b *Builder) DisplayName() string { return "Foundry" }
func (b *Builder) Chain() string       { return "evm" }
func (b *Builder) ConfigFile() string  { return "foundry.toml" }

// Detect reports whether dir holds a foundry.toml
func (b *Builder) Detect(dir string) (bool, error) {
	_, err := os.Stat(filepath.Join(dir, b.ConfigFile()))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Find returns the artifact for contractName from out/{Source}.sol/{Contract}.json.
// When several sources define the name, a source under src/ is preferred over
// dependencies and scripts.
func (b *Builder) Find(dir string, contractName string) (*chains.Artifact, error) {
	outDir := filepath.Join(dir, "out")
	if _, err := os.Stat(outDir); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: out directory not found - run 'forge build' first", chains.ErrArtifactNotFound)
	}

	paths, err := artifactPaths(outDir, contractName)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s", chains.ErrArtifactNotFound, contractName)
	}

	var found []*chains.Artifact
	for _, path := range paths {
		if a, err := b.Parse(path); err == nil {
			found = append(found, a)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s has no deployable bytecode", chains.ErrArtifactNotFound, contractName)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return sourceRank(found[i].EVM.SourcePath) < sourceRank(found[j].EVM.SourcePath)
	})
	return found[0], nil
}

func artifactPaths(outDir, contractName string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(outDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == contractName+".json" && strings.HasSuffix(filepath.Dir(path), ".sol") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking out directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func sourceRank(sourcePath string) int {
	if strings.HasPrefix(sourcePath, "src/") {
		return 0
	}
	return 1
}

// Parse reads a single Foundry artifact. Interfaces and abstract contracts
// carry no bytecode and are rejected.
func (b *Builder) Parse(artifactPath string) (*chains.Artifact, error) {
	file, meta, err := readArtifact(artifactPath)
	if err != nil {
		return nil, err
	}
	if file.Bytecode.Object == "" || file.Bytecode.Object == "0x" {
		return nil, fmt.Errorf("contract has no bytecode (likely an interface)")
	}

	var sourcePath string
	for path := range meta.Settings.CompilationTarget {
		sourcePath = path
	}

	return &chains.Artifact{
		Name:         strings.TrimSuffix(filepath.Base(artifactPath), ".json"),
		Chain:        "evm",
		ArtifactPath: artifactPath,
		EVM: &chains.EVMArtifact{
			SourcePath:       sourcePath,
			License:          meta.license(),
			ABI:              file.ABI,
			Bytecode:         file.Bytecode.Object,
			DeployedBytecode: file.DeployedBytecode.Object,
			Compiler: chains.EVMCompiler{
				Version:    meta.Compiler.Version,
				EVMVersion: meta.Settings.EVMVersion,
				ViaIR:      meta.Settings.ViaIR,
				Optimizer: chains.OptimizerConfig{
					Enabled: meta.Settings.Optimizer.Enabled,
					Runs:    meta.Settings.Optimizer.Runs,
				},
			},
		},
	}, nil
}

// artifactFile is the on-disk layout of out/X.sol/X.json
type artifactFile struct {
	ABI              json.RawMessage `json:"abi"`
	Bytecode         bytecodeObject  `json:"bytecode"`
	DeployedBytecode bytecodeObject  `json:"deployedBytecode"`
	RawMetadata      string          `json:"rawMetadata"`
}

type bytecodeObject struct {
	Object string `json:"object"`
}

// compilerMetadata is the solc metadata JSON embedded as rawMetadata
type compilerMetadata struct {
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Language string `json:"language"`
	Settings struct {
		CompilationTarget map[string]string            `json:"compilationTarget"`
		EVMVersion        string                       `json:"evmVersion"`
		Libraries         map[string]map[string]string `json:"libraries"`
		Metadata          *metadataSettings            `json:"metadata,omitempty"`
		Optimizer         optimizerSettings            `json:"optimizer"`
		Remappings        []string                     `json:"remappings"`
		ViaIR             bool                         `json:"viaIR"`
	} `json:"settings"`
	Sources map[string]struct {
		License string `json:"license"`
	} `json:"sources"`
}

func (m *compilerMetadata) license() string {
	for _, src := range m.Sources {
		if src.License != "" {
			return src.License
		}
	}
	return ""
}

// readArtifact decodes an artifact and its metadata. Missing or malformed
// metadata yields an empty compilerMetadata.
func readArtifact(path string) (*artifactFile, *compilerMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading artifact: %w", err)
	}

	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parsing artifact JSON: %w", err)
	}

	var meta compilerMetadata
	if file.RawMetadata != "" {
		_ = json.Unmarshal([]byte(file.RawMetadata), &meta)
	}
	return &file, &meta, nil
}
