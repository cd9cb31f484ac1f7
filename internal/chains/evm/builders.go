package evm

import (
	"github.com/pendergraft/tokenlaunch/internal/chains"
	"github.com/pendergraft/tokenlaunch/internal/chains/evm/foundry"
	"github.com/pendergraft/tokenlaunch/internal/chains/evm/hardhat"
)

// NewFoundryBuilder creates a new Foundry builder
func NewFoundryBuilder() chains.Builder {
	return foundry.New()
}

// NewHardhatBuilder creates a new Hardhat builder
func NewHardhatBuilder() chains.Builder {
	return hardhat.New()
}

// DefaultRegistry returns a registry with the EVM chain registered.
func DefaultRegistry() *chains.Registry {
	r := chains.NewRegistry()
	r.Register(NewChain())
	return r
}
