package release

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the stages.
var (
	ErrUnconfirmed         = errors.New("deployment not confirmed")
	ErrConstructorMismatch = errors.New("constructor arguments do not match artifact")
)

// DeploymentError reports a rejected or unconfirmed contract-creation
// transaction. Stage is one of "resolve", "encode", "submit", "confirm".
type DeploymentError struct {
	Stage string
	Err   error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deployment failed (%s): %v", e.Stage, e.Err)
}

func (e *DeploymentError) Unwrap() error { return e.Err }

// VerificationError reports an explorer rejection. The contract is already
// live when this is returned.
type VerificationError struct {
	Address string
	Status  VerificationStatus
	Err     error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification of %s failed (%s): %v", e.Address, e.Status, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// InfrastructureError covers network and configuration failures that are
// not attributable to the transaction or the explorer's judgement.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// Error classes returned by Classify.
const (
	ClassDeployment     = "deployment"
	ClassVerification   = "verification"
	ClassInfrastructure = "infrastructure"
)

// Classify returns the error class for logging.
// Unrecognised errors are reported as infrastructure failures.
func Classify(err error) string {
	var de *DeploymentError
	var ve *VerificationError
	switch {
	case errors.As(err, &de):
		return ClassDeployment
	case errors.As(err, &ve):
		return ClassVerification
	default:
		return ClassInfrastructure
	}
}
