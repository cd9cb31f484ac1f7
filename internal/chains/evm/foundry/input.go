package foundry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pendergraft/tokenlaunch/internal/chains"
)

// nonStandardInputKeys are added by forge to build-info input and rejected
// by solc and the explorers.
var nonStandardInputKeys = []string{"allowPaths", "basePath", "includePaths", "version"}

// VerificationInput returns the standard JSON input for artifact. The
// build-info that compiled the contract is used when present; otherwise the
// input is rebuilt from rawMetadata and the sources on disk.
func (b *Builder) VerificationInput(dir string, artifact *chains.Artifact) (*chains.VerificationInput, error) {
	if artifact == nil || artifact.EVM == nil {
		return nil, fmt.Errorf("artifact has no EVM data")
	}

	vi, biErr := fromBuildInfo(dir, artifact.EVM.SourcePath, artifact.Name)
	if biErr == nil {
		return vi, nil
	}

	stdJSON, err := fromMetadata(dir, artifact.ArtifactPath)
	if err != nil {
		return nil, fmt.Errorf("no verification input for %s: %v; %w", artifact.Name, biErr, err)
	}
	return &chains.VerificationInput{
		StandardJSON:    stdJSON,
		SolcLongVersion: artifact.EVM.Compiler.Version,
	}, nil
}

// buildInfo is an out/build-info/*.json file
type buildInfo struct {
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
	Output          struct {
		Contracts map[string]map[string]json.RawMessage `json:"contracts"`
	} `json:"output"`
}

func (bi *buildInfo) compiled(sourcePath, contract string) bool {
	_, ok := bi.Output.Contracts[sourcePath][contract]
	return ok
}

// fromBuildInfo scans out/build-info for the compilation that produced
// sourcePath:contract.
func fromBuildInfo(dir, sourcePath, contract string) (*chains.VerificationInput, error) {
	biDir := filepath.Join(dir, "out", "build-info")
	entries, err := os.ReadDir(biDir)
	if err != nil {
		return nil, fmt.Errorf("reading build-info directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(biDir, entry.Name()))
		if err != nil {
			continue
		}
		var bi buildInfo
		if json.Unmarshal(data, &bi) != nil || !bi.compiled(sourcePath, contract) {
			continue
		}

		stdJSON, err := standardInput(bi.Input)
		if err != nil {
			return nil, fmt.Errorf("build-info %s: %w", entry.Name(), err)
		}
		return &chains.VerificationInput{
			StandardJSON:    stdJSON,
			SolcLongVersion: bi.SolcLongVersion,
		}, nil
	}
	return nil, fmt.Errorf("build-info not found for contract %s", contract)
}

// standardInput drops the forge-specific keys from a build-info input
func standardInput(raw json.RawMessage) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	for _, key := range nonStandardInputKeys {
		delete(m, key)
	}
	return json.Marshal(m)
}

type standardJSONInput struct {
	Language string                   `json:"language"`
	Sources  map[string]sourceContent `json:"sources"`
	Settings standardJSONSettings     `json:"settings"`
}

type sourceContent struct {
	Content string `json:"content"`
}

type standardJSONSettings struct {
	Optimizer       optimizerSettings              `json:"optimizer"`
	EVMVersion      string                         `json:"evmVersion,omitempty"`
	ViaIR           bool                           `json:"viaIR,omitempty"`
	Libraries       map[string]map[string]string   `json:"libraries,omitempty"`
	Remappings      []string                       `json:"remappings,omitempty"`
	Metadata        metadataSettings               `json:"metadata,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

type optimizerSettings struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs"`
}

type metadataSettings struct {
	BytecodeHash      string `json:"bytecodeHash,omitempty"`
	UseLiteralContent bool   `json:"useLiteralContent,omitempty"`
	AppendCBOR        *bool  `json:"appendCBOR,omitempty"`
}

// fromMetadata rebuilds a minimal standard JSON input holding only the
// sources listed in the artifact's metadata.
func fromMetadata(dir, artifactPath string) ([]byte, error) {
	file, meta, err := readArtifact(artifactPath)
	if err != nil {
		return nil, err
	}
	if file.RawMetadata == "" {
		return nil, errors.New("artifact has no rawMetadata")
	}
	if len(meta.Sources) == 0 {
		return nil, errors.New("metadata has no sources")
	}

	sources := make(map[string]sourceContent, len(meta.Sources))
	for path := range meta.Sources {
		content, err := os.ReadFile(filepath.Join(dir, path))
		if err != nil {
			return nil, fmt.Errorf("reading source %s: %w", path, err)
		}
		sources[path] = sourceContent{Content: string(content)}
	}

	input := standardJSONInput{
		Language: meta.Language,
		Sources:  sources,
		Settings: standardJSONSettings{
			Optimizer:  meta.Settings.Optimizer,
			EVMVersion: meta.Settings.EVMVersion,
			ViaIR:      meta.Settings.ViaIR,
			Libraries:  meta.Settings.Libraries,
			Remappings: meta.Settings.Remappings,
			Metadata:   metadataSettings{BytecodeHash: "ipfs"},
			OutputSelection: map[string]map[string][]string{
				"*": {"*": {"abi", "evm.bytecode", "evm.deployedBytecode", "metadata"}},
			},
		},
	}
	if input.Language == "" {
		input.Language = "Solidity"
	}
	// runs is only meaningful with the optimizer on
	if input.Settings.Optimizer.Enabled && input.Settings.Optimizer.Runs == 0 {
		input.Settings.Optimizer.Runs = 200
	}
	if m := meta.Settings.Metadata; m != nil {
		if m.BytecodeHash != "" {
			input.Settings.Metadata.BytecodeHash = m.BytecodeHash
		}
		input.Settings.Metadata.UseLiteralContent = m.UseLiteralContent
		input.Settings.Metadata.AppendCBOR = m.AppendCBOR
	}
	return json.Marshal(input)
}
