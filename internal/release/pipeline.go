package release

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pendergraft/tokenlaunch/internal/observability/metrics"
	"github.com/pendergraft/tokenlaunch/internal/token"
)

// Step is one stage of the launch pipeline. It consumes the previous stage's
// output and either produces its own or fails.
type Step[In, Out any] func(ctx context.Context, in In) (Out, error)

// Then composes two steps. next only runs when first succeeds.
func Then[A, B, C any](first Step[A, B], next Step[B, C]) Step[A, C] {
	return func(ctx context.Context, a A) (C, error) {
		b, err := first(ctx, a)
		if err != nil {
			var zero C
			return zero, err
		}
		return next(ctx, b)
	}
}

// Stage identifies a pipeline stage in progress callbacks and metrics.
type Stage string

const (
	StageDeploy Stage = "deploy"
	StageDelay  Stage = "delay"
	StageVerify Stage = "verify"
)

// Deployer submits the contract-creation transaction and waits for it to be mined.
type Deployer interface {
	Deploy(ctx context.Context, req *token.DeploymentRequest) (*DeploymentResult, error)
}

// Verifier submits a deployed contract to an explorer for source verification.
type Verifier interface {
	Verify(ctx context.Context, in VerifyInput) (*VerificationResult, error)
}

// Recorder persists run progress. Failures are logged and never affect the run.
type Recorder interface {
	RecordDeployment(ctx context.Context, runID string, req *token.DeploymentRequest, res *DeploymentResult) error
	RecordVerification(ctx context.Context, runID string, res *VerificationResult, verifyErr error) error
}

// ProgressFunc receives operator-facing progress messages.
type ProgressFunc func(stage Stage, message string)

// Config configures an Orchestrator.
type Config struct {
	Deployer Deployer
	Verifier Verifier

	// IndexingDelay is the fixed wait between confirmation and verification
	IndexingDelay time.Duration
	Sleep         Sleeper

	Recorder   Recorder
	OnProgress ProgressFunc
	Logger     *slog.Logger
}

// Orchestrator runs deploy, delay and verify strictly in sequence.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = Sleep
	}
	if cfg.IndexingDelay < 0 {
		cfg.IndexingDelay = 0
	}

	return &Orchestrator{cfg: cfg, logger: logger}
}

// Run executes the launch. The returned Outcome is never nil and holds
// whatever was produced before a failure, so callers can report a contract
// that was deployed but not verified.
func (o *Orchestrator) Run(ctx context.Context, req *token.DeploymentRequest) (*Outcome, error) {
	out := &Outcome{
		RunID:   uuid.New().String(),
		Request: req,
	}

	o.logger.Info("starting token launch",
		slog.String("run_id", out.RunID),
		slog.String("contract", req.Contract()),
		slog.String("symbol", req.Symbol()),
	)

	pipeline := Then(
		Then(
			Then(o.deployStep(out), o.guardStep()),
			o.delayStep(),
		),
		o.verifyStep(out),
	)

	if _, err := pipeline(ctx, req); err != nil {
		metrics.Run(Classify(err))
		return out, err
	}

	metrics.Run("success")
	o.logger.Info("token launch completed",
		slog.String("run_id", out.RunID),
		slog.String("address", out.Deployment.Address),
	)
	return out, nil
}

func (o *Orchestrator) deployStep(out *Outcome) Step[*token.DeploymentRequest, *DeploymentResult] {
	return func(ctx context.Context, req *token.DeploymentRequest) (*DeploymentResult, error) {
		o.progress(StageDeploy, "Deploying "+req.Contract()+"...")
		start := time.Now()

		res, err := o.cfg.Deployer.Deploy(ctx, req)
		metrics.ObserveStage(string(StageDeploy), time.Since(start))
		if err != nil {
			metrics.Deploy("failed")
			return nil, err
		}
		if !res.Ready() {
			// guardStep turns this into a DeploymentError
			metrics.Deploy("unconfirmed")
			return res, nil
		}
		metrics.Deploy("success")

		out.Deployment = res
		o.logger.Info("contract deployed",
			slog.String("run_id", out.RunID),
			slog.String("address", res.Address),
			slog.String("tx_hash", res.TxHash),
			slog.Uint64("block_number", res.BlockNumber),
		)
		o.progress(StageDeploy, req.Contract()+" deployed to: "+res.Address)

		if o.cfg.Recorder != nil {
			if err := o.cfg.Recorder.RecordDeployment(ctx, out.RunID, req, res); err != nil {
				o.logger.Warn("failed to record deployment", slog.String("error", err.Error()))
			}
		}
		return res, nil
	}
}

// guardStep enforces that the Verifier only ever sees a confirmed address.
func (o *Orchestrator) guardStep() Step[*DeploymentResult, *DeploymentResult] {
	return func(ctx context.Context, res *DeploymentResult) (*DeploymentResult, error) {
		if !res.Ready() {
			return nil, &DeploymentError{Stage: "confirm", Err: ErrUnconfirmed}
		}
		return res, nil
	}
}

func (o *Orchestrator) delayStep() Step[*DeploymentResult, *DeploymentResult] {
	gate := DelayGate(o.cfg.IndexingDelay, o.cfg.Sleep, o.logger)

	return func(ctx context.Context, res *DeploymentResult) (*DeploymentResult, error) {
		o.progress(StageDelay, "Waiting for "+o.cfg.IndexingDelay.String()+" before verifying the contract...")
		start := time.Now()
		defer func() { metrics.ObserveStage(string(StageDelay), time.Since(start)) }()

		return gate(ctx, res)
	}
}

func (o *Orchestrator) verifyStep(out *Outcome) Step[*DeploymentResult, *VerificationResult] {
	return func(ctx context.Context, res *DeploymentResult) (*VerificationResult, error) {
		o.progress(StageVerify, "Verifying "+res.Address+"...")
		start := time.Now()

		vr, err := o.cfg.Verifier.Verify(ctx, VerifyInput{Deployment: res, Request: out.Request})
		metrics.ObserveStage(string(StageVerify), time.Since(start))

		if o.cfg.Recorder != nil {
			if recErr := o.cfg.Recorder.RecordVerification(ctx, out.RunID, vr, err); recErr != nil {
				o.logger.Warn("failed to record verification", slog.String("error", recErr.Error()))
			}
		}

		if err != nil {
			status := StatusFailed
			var ve *VerificationError
			if errors.As(err, &ve) && ve.Status != "" {
				status = ve.Status
			}
			metrics.Verify(string(status))
			o.logger.Error("contract deployed but not verified",
				slog.String("run_id", out.RunID),
				slog.String("address", res.Address),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		metrics.Verify(string(vr.Status))
		out.Verification = vr
		o.progress(StageVerify, "Verified "+res.Address+" ("+string(vr.Status)+")")
		return vr, nil
	}
}

func (o *Orchestrator) progress(stage Stage, msg string) {
	if o.cfg.OnProgress != nil {
		o.cfg.OnProgress(stage, msg)
	}
}
