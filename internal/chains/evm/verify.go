package evm

import (
	"bytes"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pendergraft/tokenlaunch/internal/chains"
)

// CBOR map header followed by "ipfs" or "bzzr", the keys solc writes first
var metadataMarkers = [][]byte{
	{0xa2, 0x64, 0x69, 0x70, 0x66, 0x73},
	{0xa1, 0x65, 0x62, 0x7a, 0x7a, 0x72},
	{0xa2, 0x65, 0x62, 0x7a, 0x7a, 0x72},
}

// StripMetadata removes the CBOR metadata solc appends to runtime bytecode.
// The last two bytes hold the big-endian length of the CBOR section.
func StripMetadata(code []byte) []byte {
	if len(code) < 2 {
		return code
	}
	n := int(binary.BigEndian.Uint16(code[len(code)-2:]))
	start := len(code) - 2 - n
	if n == 0 || start < 0 {
		return code
	}
	for _, m := range metadataMarkers {
		if bytes.HasPrefix(code[start:], m) {
			return code[:start]
		}
	}
	return code
}

// CompareBytecode compares on-chain runtime code with the artifact's
// deployedBytecode (hex, with or without 0x).
func CompareBytecode(deployed []byte, artifactHex string) *chains.VerifyResult {
	expected := common.FromHex(artifactHex)

	if len(deployed) == 0 {
		return &chains.VerifyResult{
			Match:     false,
			MatchType: "none",
			Message:   "No code at address",
		}
	}

	if bytes.Equal(deployed, expected) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "full",
			Message:   "Bytecode matches exactly including metadata",
		}
	}

	if bytes.Equal(StripMetadata(deployed), StripMetadata(expected)) {
		return &chains.VerifyResult{
			Match:     true,
			MatchType: "partial",
			Message:   "Executable code matches, metadata differs (different source paths, comments, or build environment)",
		}
	}

	return &chains.VerifyResult{
		Match:     false,
		MatchType: "none",
		Message:   "Bytecode does not match",
	}
}
