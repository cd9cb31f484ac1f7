// Package token describes the token contract deployment request and its
// constructor arguments.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Defaults for the token this tool was built to launch.
const (
	DefaultContract      = "TokenContract"
	DefaultName          = "Gold CryptoToken"
	DefaultSymbol        = "Gold"
	DefaultDecimals      = 18
	DefaultInitialSupply = "100"
)

// DeploymentRequest is the immutable description of one token deployment.
// The constructor arguments are always (name, symbol, decimals, initialSupply).
type DeploymentRequest struct {
	contract      string
	name          string
	symbol        string
	decimals      uint8
	initialSupply *big.Int
}

// NewRequest creates a request. supply is a human-readable amount and is
// scaled to base units using decimals.
func NewRequest(contract, name, symbol string, decimals uint8, supply string) (*DeploymentRequest, error) {
	baseUnits, err := ParseUnits(supply, decimals)
	if err != nil {
		return nil, fmt.Errorf("initial supply: %w", err)
	}

	r := &DeploymentRequest{
		contract:      contract,
		name:          name,
		symbol:        symbol,
		decimals:      decimals,
		initialSupply: baseUnits,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// DefaultRequest returns the Gold CryptoToken request.
func DefaultRequest() *DeploymentRequest {
	r, err := NewRequest(DefaultContract, DefaultName, DefaultSymbol, DefaultDecimals, DefaultInitialSupply)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate checks the request fields
func (r *DeploymentRequest) Validate() error {
	if strings.TrimSpace(r.contract) == "" {
		return errors.New("contract identifier is required")
	}
	if strings.TrimSpace(r.name) == "" {
		return errors.New("token name is required")
	}
	if strings.TrimSpace(r.symbol) == "" {
		return errors.New("token symbol is required")
	}
	if r.initialSupply == nil || r.initialSupply.Sign() <= 0 {
		return errors.New("initial supply must be positive")
	}
	return nil
}

// Contract returns the contract identifier (artifact name).
func (r *DeploymentRequest) Contract() string { return r.contract }

// Name returns the token name.
func (r *DeploymentRequest) Name() string { return r.name }

// Symbol returns the token symbol.
func (r *DeploymentRequest) Symbol() string { return r.symbol }

// Decimals returns the token decimals.
func (r *DeploymentRequest) Decimals() uint8 { return r.decimals }

// InitialSupply returns a copy of the initial supply in base units.
func (r *DeploymentRequest) InitialSupply() *big.Int {
	return new(big.Int).Set(r.initialSupply)
}

// ConstructorArgs returns the constructor arguments in declaration order.
// A fresh slice is returned on every call so callers cannot mutate the request.
func (r *DeploymentRequest) ConstructorArgs() []any {
	return []any{r.name, r.symbol, r.decimals, r.InitialSupply()}
}
