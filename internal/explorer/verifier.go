package explorer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pendergraft/tokenlaunch/internal/chains"
	"github.com/pendergraft/tokenlaunch/internal/chains/evm"
	"github.com/pendergraft/tokenlaunch/internal/release"
	"github.com/pendergraft/tokenlaunch/internal/validation"
)

const (
	DefaultPollAttempts = 10
	DefaultPollInterval = 5 * time.Second
)

// ArtifactSource resolves the artifact and its compiler input.
// chains.Builder implementations satisfy it.
type ArtifactSource interface {
	Find(dir string, contractName string) (*chains.Artifact, error)
	VerificationInput(dir string, artifact *chains.Artifact) (*chains.VerificationInput, error)
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	ProjectDir   string
	PollAttempts int
	PollInterval time.Duration
	// AcceptAlreadyVerified treats an "already verified" answer as success
	AcceptAlreadyVerified bool
	// BrowserURL is the explorer's web root, used for result links
	BrowserURL string
}

// Verifier implements release.Verifier against an Etherscan-compatible explorer.
type Verifier struct {
	client    *Client
	artifacts ArtifactSource
	cfg       VerifierConfig
	sleep     release.Sleeper
	logger    *slog.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(client *Client, artifacts ArtifactSource, cfg VerifierConfig, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = DefaultPollAttempts
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = 0
	}

	return &Verifier{
		client:    client,
		artifacts: artifacts,
		cfg:       cfg,
		sleep:     release.Sleep,
		logger:    logger,
	}
}

// WithSleeper replaces the wait between status checks.
func (v *Verifier) WithSleeper(s release.Sleeper) *Verifier {
	v.sleep = s
	return v
}

// Verify submits the deployed contract's source with the constructor
// arguments re-encoded from the same request the deployer used, then polls
// until the explorer reaches a verdict.
func (v *Verifier) Verify(ctx context.Context, in release.VerifyInput) (*release.VerificationResult, error) {
	if !in.Deployment.Ready() {
		return nil, &release.DeploymentError{Stage: "confirm", Err: release.ErrUnconfirmed}
	}
	address := in.Deployment.Address
	contract := in.Request.Contract()

	artifact, err := v.artifacts.Find(v.cfg.ProjectDir, contract)
	if err != nil {
		return nil, &release.InfrastructureError{Op: "resolving artifact", Err: err}
	}
	vi, err := v.artifacts.VerificationInput(v.cfg.ProjectDir, artifact)
	if err != nil {
		return nil, &release.InfrastructureError{Op: "building verification input", Err: err}
	}
	if err := validation.ValidateCompilerVersion(vi.SolcLongVersion); err != nil {
		return nil, &release.InfrastructureError{Op: "checking compiler version", Err: err}
	}
	if built := artifact.EVM.Compiler.Version; built != "" && validation.CompareVersions(built, vi.SolcLongVersion) != 0 {
		return nil, &release.InfrastructureError{
			Op:  "checking compiler version",
			Err: fmt.Errorf("artifact built with %s but build-info is %s", built, vi.SolcLongVersion),
		}
	}

	argsHex, err := encodeArgs(artifact, in)
	if err != nil {
		return nil, &release.VerificationError{Address: address, Status: release.StatusFailed, Err: err}
	}

	v.logger.Info("submitting contract for verification",
		slog.String("address", address),
		slog.String("contract", artifact.QualifiedName()),
		slog.String("compiler", vi.CompilerVersion()),
	)

	guid, err := v.client.VerifySourceCode(ctx, SubmitRequest{
		Address:         address,
		StandardJSON:    vi.StandardJSON,
		ContractName:    artifact.QualifiedName(),
		CompilerVersion: vi.CompilerVersion(),
		ConstructorArgs: argsHex,
	})
	if err != nil {
		return v.submitFailed(address, err)
	}

	v.logger.Info("verification submitted", slog.String("address", address), slog.String("guid", guid))
	return v.poll(ctx, address, guid)
}

// encodeArgs packs the request's arguments against the artifact ABI and
// checks them against what was sent with the creation transaction.
func encodeArgs(artifact *chains.Artifact, in release.VerifyInput) (string, error) {
	parsed, err := evm.ParseABI(artifact.EVM.ABI)
	if err != nil {
		return "", err
	}
	packed, err := evm.PackConstructor(parsed, in.Request.ConstructorArgs()...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", release.ErrConstructorMismatch, err)
	}

	argsHex := hex.EncodeToString(packed)
	if deployed := strings.TrimPrefix(in.Deployment.ConstructorArgs, "0x"); deployed != "" && !strings.EqualFold(deployed, argsHex) {
		return "", fmt.Errorf("%w: arguments differ from those used at deployment", release.ErrConstructorMismatch)
	}
	return argsHex, nil
}

func (v *Verifier) submitFailed(address string, err error) (*release.VerificationResult, error) {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrAlreadyVerified):
		return v.alreadyVerified(address, "", err.Error())
	case errors.As(err, &apiErr):
		return nil, &release.VerificationError{Address: address, Status: release.StatusFailed, Err: err}
	default:
		return nil, &release.InfrastructureError{Op: "submitting verification", Err: err}
	}
}

func (v *Verifier) poll(ctx context.Context, address, guid string) (*release.VerificationResult, error) {
	var last string
	for attempt := 1; attempt <= v.cfg.PollAttempts; attempt++ {
		if err := v.sleep(ctx, v.cfg.PollInterval); err != nil {
			return nil, &release.InfrastructureError{Op: "waiting for verification status", Err: err}
		}

		text, err := v.client.CheckVerifyStatus(ctx, guid)
		if err != nil {
			return nil, &release.InfrastructureError{Op: "checking verification status", Err: err}
		}
		last = text

		switch ParseStatus(text) {
		case release.StatusVerified:
			v.logger.Info("contract verified", slog.String("address", address), slog.String("guid", guid))
			return v.result(address, guid, release.StatusVerified, text), nil
		case release.StatusAlreadyVerified:
			return v.alreadyVerified(address, guid, text)
		case release.StatusPending:
			v.logger.Debug("verification pending",
				slog.String("guid", guid),
				slog.Int("attempt", attempt),
				slog.String("status", text),
			)
		default:
			return nil, &release.VerificationError{Address: address, Status: release.StatusFailed, Err: errors.New(text)}
		}
	}

	return nil, &release.VerificationError{
		Address: address,
		Status:  release.StatusPending,
		Err:     fmt.Errorf("still pending after %d checks (guid %s): %s", v.cfg.PollAttempts, guid, last),
	}
}

func (v *Verifier) alreadyVerified(address, guid, text string) (*release.VerificationResult, error) {
	if !v.cfg.AcceptAlreadyVerified {
		return nil, &release.VerificationError{Address: address, Status: release.StatusAlreadyVerified, Err: ErrAlreadyVerified}
	}
	v.logger.Info("contract already verified", slog.String("address", address))
	return v.result(address, guid, release.StatusAlreadyVerified, text), nil
}

func (v *Verifier) result(address, guid string, status release.VerificationStatus, msg string) *release.VerificationResult {
	res := &release.VerificationResult{
		Address: address,
		GUID:    guid,
		Status:  status,
		Message: msg,
	}
	if v.cfg.BrowserURL != "" {
		res.URL = strings.TrimRight(v.cfg.BrowserURL, "/") + "/address/" + address + "#code"
	}
	return res
}

// ParseStatus maps checkverifystatus text to a verification status.
func ParseStatus(text string) release.VerificationStatus {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "pass - verified"):
		return release.StatusVerified
	case isAlreadyVerified(lower):
		return release.StatusAlreadyVerified
	case strings.Contains(lower, "pending"), strings.Contains(lower, "in progress"):
		return release.StatusPending
	default:
		return release.StatusFailed
	}
}
