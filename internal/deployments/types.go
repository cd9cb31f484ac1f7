// Package deployments records launch runs in the ledger and reads them back.
package deployments

import (
	"time"
)

// Run is a recorded launch.
type Run struct {
	ID                  string    `json:"id"`
	Contract            string    `json:"contract"`
	Network             string    `json:"network"`
	ChainID             int64     `json:"chainId"`
	Address             string    `json:"address"`
	DeployerAddress     string    `json:"deployerAddress,omitempty"`
	TxHash              string    `json:"txHash,omitempty"`
	BlockNumber         int64     `json:"blockNumber,omitempty"`
	ConstructorArgs     string    `json:"constructorArgs,omitempty"`
	VerificationStatus  string    `json:"verificationStatus"`
	VerificationGUID    string    `json:"verificationGuid,omitempty"`
	VerificationMessage string    `json:"verificationMessage,omitempty"`
	Error               string    `json:"error,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// ListFilter contains filter options for listing runs.
type ListFilter struct {
	Network string
	ChainID int64
	Status  string
}

// ListResult contains list results.
type ListResult struct {
	Runs    []Run
	HasMore bool
}
