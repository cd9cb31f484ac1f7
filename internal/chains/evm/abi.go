package evm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ParseABI parses an artifact's ABI.
func ParseABI(raw json.RawMessage) (abi.ABI, error) {
	if len(raw) == 0 {
		return abi.ABI{}, fmt.Errorf("artifact has no ABI")
	}
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing ABI: %w", err)
	}
	return parsed, nil
}

// PackConstructor ABI-encodes constructor arguments. The deployer and the
// explorer submission both go through here so the bytes always agree.
// Integer arguments are converted to whatever width the constructor
// declares, so decimals given as uint8 also fit a uint256 parameter.
func PackConstructor(parsed abi.ABI, args ...any) ([]byte, error) {
	args, err := coerceArgs(parsed.Constructor.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("packing constructor arguments: %w", err)
	}
	packed, err := parsed.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("packing constructor arguments: %w", err)
	}
	return packed, nil
}

// coerceArgs converts integer arguments to the Go type go-ethereum expects
// for each declared input. Other arguments pass through untouched; an arity
// mismatch is left for Pack to report.
func coerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return args, nil
	}

	out := make([]any, len(args))
	for i, input := range inputs {
		out[i] = args[i]
		if input.Type.T != abi.UintTy && input.Type.T != abi.IntTy {
			continue
		}
		v, ok := toBigInt(args[i])
		if !ok {
			continue
		}
		converted, err := convertInt(v, input.Type)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", input.Name, err)
		}
		out[i] = converted
	}
	return out, nil
}

func toBigInt(v any) (*big.Int, bool) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return n, true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case int8:
		return big.NewInt(int64(n)), true
	case int16:
		return big.NewInt(int64(n)), true
	case int32:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case int:
		return big.NewInt(int64(n)), true
	default:
		return nil, false
	}
}

// convertInt range-checks v against t and returns it as t's Go type:
// the sized integer for 8, 16, 32 and 64 bits, *big.Int otherwise.
func convertInt(v *big.Int, t abi.Type) (any, error) {
	if t.T == abi.UintTy {
		if v.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", v, t)
		}
		if v.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s overflows %s", v, t)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if v.Cmp(limit) >= 0 || v.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value %s overflows %s", v, t)
		}
	}

	goType := t.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		return new(big.Int).Set(v), nil
	}
	rv := reflect.New(goType).Elem()
	if t.T == abi.UintTy {
		rv.SetUint(v.Uint64())
	} else {
		rv.SetInt(v.Int64())
	}
	return rv.Interface(), nil
}
