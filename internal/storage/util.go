package storage

import (
	"strings"

	"github.com/google/uuid"
)

const defaultListLimit = 20

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// normalizeAddress lowercases a hex address so lookups ignore checksum casing
func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func listLimit(p PaginationParams) int {
	if p.Limit <= 0 {
		return defaultListLimit
	}
	return p.Limit
}

// prepareRun fills defaults before insert
func prepareRun(run *Run) {
	if run.ID == "" {
		run.ID = generateID()
	}
	run.Address = normalizeAddress(run.Address)
	run.DeployerAddress = normalizeAddress(run.DeployerAddress)
	if run.VerificationStatus == "" {
		run.VerificationStatus = "not_submitted"
	}
}

// isUniqueViolation matches the duplicate key errors of both drivers
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "SQLSTATE 23505")
}
