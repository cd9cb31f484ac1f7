// Package validation provides input validation for launch configuration.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var (
	addressRegex    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	privateKeyRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
	// solc long versions carry the commit as build metadata
	commitRegex = regexp.MustCompile(`^commit\.[0-9a-f]{8}$`)
)

// ValidateAddress validates an Ethereum address
func ValidateAddress(addr string) error {
	if len(addr) != 42 {
		return errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !addressRegex.MatchString(addr) {
		return errors.New("invalid address: must be 0x followed by 40 hex characters")
	}
	return nil
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int64) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}

// ValidatePrivateKey checks for 32 hex-encoded bytes, with or without 0x.
// The key itself is never included in the error.
func ValidatePrivateKey(key string) error {
	if key == "" {
		return errors.New("private key is empty")
	}
	if !privateKeyRegex.MatchString(strings.TrimPrefix(key, "0x")) {
		return errors.New("invalid private key: must be 64 hex characters")
	}
	return nil
}

// ValidateRPCURL validates a node endpoint URL
func ValidateRPCURL(raw string) error {
	if raw == "" {
		return errors.New("RPC URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid RPC URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid RPC URL scheme %q: must be http, https, ws or wss", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("invalid RPC URL: missing host")
	}
	return nil
}

// ValidateCompilerVersion validates a full solc version such as
// "0.8.19+commit.7dd6d404", with or without a leading v.
func ValidateCompilerVersion(v string) error {
	normalized := NormalizeVersion(v)
	if normalized == "" {
		return errors.New("compiler version cannot be empty")
	}
	if !semver.IsValid("v" + normalized) {
		return fmt.Errorf("invalid compiler version %q", v)
	}
	if strings.Count(strings.SplitN(normalized, "+", 2)[0], ".") != 2 {
		return fmt.Errorf("invalid compiler version %q: must be X.Y.Z", v)
	}
	if !commitRegex.MatchString(strings.TrimPrefix(semver.Build("v"+normalized), "+")) {
		return fmt.Errorf("compiler version %q has no commit hash (expected X.Y.Z+commit.xxxxxxxx)", v)
	}
	return nil
}

// NormalizeVersion strips a leading 'v'
func NormalizeVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}

// CompareVersions compares two compiler versions, ignoring build metadata.
// Returns -1 if v1 < v2, 0 if v1 == v2, 1 if v1 > v2
func CompareVersions(v1, v2 string) int {
	return semver.Compare("v"+NormalizeVersion(v1), "v"+NormalizeVersion(v2))
}
