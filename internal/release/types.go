// Package release orchestrates a token launch: deploy the contract, wait for
// the explorer to index it, then submit it for source verification.
package release

import (
	"math/big"

	"github.com/pendergraft/tokenlaunch/internal/token"
)

// DeploymentResult is produced by the Deployer once the creation transaction
// has been mined.
type DeploymentResult struct {
	Address         string
	TxConfirmed     bool
	TxHash          string
	DeployerAddress string
	BlockNumber     uint64
	GasUsed         uint64
	ChainID         *big.Int
	// ConstructorArgs is the hex ABI encoding submitted with the creation
	// transaction, without 0x prefix.
	ConstructorArgs string
}

// Ready reports whether the result may be handed to the Verifier.
func (r *DeploymentResult) Ready() bool {
	return r != nil && r.TxConfirmed && r.Address != ""
}

// VerificationStatus is the explorer-reported state of a verification.
type VerificationStatus string

const (
	StatusVerified        VerificationStatus = "verified"
	StatusAlreadyVerified VerificationStatus = "already_verified"
	StatusPending         VerificationStatus = "pending"
	StatusFailed          VerificationStatus = "failed"
)

// VerificationResult is produced by the Verifier.
type VerificationResult struct {
	Address string
	GUID    string
	Status  VerificationStatus
	Message string
	URL     string
}

// VerifyInput is what the Verifier needs: the deployed address plus the
// request whose constructor arguments were used at deployment.
type VerifyInput struct {
	Deployment *DeploymentResult
	Request    *token.DeploymentRequest
}

// Outcome collects whatever a run produced, including partial progress.
type Outcome struct {
	RunID        string
	Request      *token.DeploymentRequest
	Deployment   *DeploymentResult
	Verification *VerificationResult
}
