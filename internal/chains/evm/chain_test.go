package evm

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/tokenlaunch/internal/chains"
)

type fakeCodeReader struct {
	code map[common.Address][]byte
	err  error
}

func (f *fakeCodeReader) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.code[account], nil
}

func TestChain_DetectBuilder(t *testing.T) {
	c := NewChain()

	tests := []struct {
		name    string
		file    string
		want    string
		wantErr bool
	}{
		{name: "foundry", file: "foundry.toml", want: "foundry"},
		{name: "hardhat", file: "hardhat.config.ts", want: "hardhat"},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), nil, 0644))
			}

			b, err := c.DetectBuilder(dir)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Name())
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Ethereum/EVM", list[0].DisplayName())
	assert.Len(t, list[0].Builders(), 2)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foundry.toml"), nil, 0644))
	_, b, err := r.DetectChainAndBuilder(dir)
	require.NoError(t, err)
	assert.Equal(t, "foundry", b.Name())
}

func TestChain_VerifyDeployment(t *testing.T) {
	addr := common.HexToAddress("0xABCDabcdABCDabcdABCDabcdABCDabcdABCDabcd")
	reader := &fakeCodeReader{code: map[common.Address][]byte{addr: {0x60, 0x80, 0x60, 0x40}}}
	c := NewChain().WithCodeReader(reader)

	t.Run("matches", func(t *testing.T) {
		res, err := c.VerifyDeployment(context.Background(), chains.VerifyOptions{
			Address:      addr.Hex(),
			ExpectedCode: []byte("0x60806040"),
		})
		require.NoError(t, err)
		assert.True(t, res.Match)
		assert.Equal(t, "full", res.MatchType)
	})

	t.Run("empty account", func(t *testing.T) {
		res, err := c.VerifyDeployment(context.Background(), chains.VerifyOptions{
			Address:      "0x0000000000000000000000000000000000000001",
			ExpectedCode: []byte("0x60806040"),
		})
		require.NoError(t, err)
		assert.False(t, res.Match)
	})

	t.Run("invalid address", func(t *testing.T) {
		_, err := c.GetDeployedBytecode(context.Background(), "", "not-an-address")
		assert.Error(t, err)
	})

	t.Run("rpc error", func(t *testing.T) {
		failing := NewChain().WithCodeReader(&fakeCodeReader{err: errors.New("connection refused")})
		_, err := failing.GetDeployedBytecode(context.Background(), "", addr.Hex())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "eth_getCode")
	})
}
