package chainabi

import (
	"fmt"
	"math/big"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
)

var poolABI gethabi.ABI

func init() {
	var err error
	poolABI, err = gethabi.JSON(strings.NewReader(`[
		{
			"name": "getPoolData",
			"type": "function",
			"inputs": [],
			"outputs": [
				{"name": "deficit", "type": "uint256"},
				{"name": "surplus", "type": "uint256"}
			]
		},
		{
			"name": "fillDeficit",
			"type": "function",
			"inputs": [{"name": "amount", "type": "uint256"}],
			"outputs": []
		},
		{
			"name": "takeSurplus",
			"type": "function",
			"inputs": [{"name": "amount", "type": "uint256"}],
			"outputs": []
		},
		{
			"name": "bridgeIOU",
			"type": "function",
			"inputs": [
				{"name": "amount", "type": "uint256"},
				{"name": "destChainId", "type": "uint256"}
			],
			"outputs": []
		}
	]`))
	if err != nil {
		panic("chainabi: parse pool abi: " + err.Error())
	}
}

// PackGetPoolData encodes a getPoolData() call.
func PackGetPoolData() ([]byte, error) {
	return poolABI.Pack("getPoolData")
}

// PoolData is the decoded (deficit, surplus) pair returned by getPoolData.
type PoolData struct {
	Deficit *uint256.Int
	Surplus *uint256.Int
}

// UnpackPoolData decodes the result of a getPoolData() call.
func UnpackPoolData(data []byte) (PoolData, error) {
	vals, err := poolABI.Unpack("getPoolData", data)
	if err != nil {
		return PoolData{}, fmt.Errorf("chainabi: unpack getPoolData: %w", err)
	}
	if len(vals) != 2 {
		return PoolData{}, fmt.Errorf("chainabi: unpack getPoolData: expected 2 return values, got %d", len(vals))
	}
	deficitBig, ok := vals[0].(*big.Int)
	if !ok {
		return PoolData{}, fmt.Errorf("chainabi: unpack getPoolData: unexpected deficit type %T", vals[0])
	}
	surplusBig, ok := vals[1].(*big.Int)
	if !ok {
		return PoolData{}, fmt.Errorf("chainabi: unpack getPoolData: unexpected surplus type %T", vals[1])
	}
	deficit, overflow := uint256.FromBig(deficitBig)
	if overflow {
		return PoolData{}, fmt.Errorf("chainabi: unpack getPoolData: deficit overflows uint256")
	}
	surplus, overflow := uint256.FromBig(surplusBig)
	if overflow {
		return PoolData{}, fmt.Errorf("chainabi: unpack getPoolData: surplus overflows uint256")
	}
	return PoolData{Deficit: deficit, Surplus: surplus}, nil
}

// PackFillDeficit encodes a fillDeficit(amount) call.
func PackFillDeficit(amount *uint256.Int) ([]byte, error) {
	return poolABI.Pack("fillDeficit", amount.ToBig())
}

// PackTakeSurplus encodes a takeSurplus(amount) call.
func PackTakeSurplus(amount *uint256.Int) ([]byte, error) {
	return poolABI.Pack("takeSurplus", amount.ToBig())
}

// PackBridgeIOU encodes a bridgeIOU(amount, destChainId) call.
func PackBridgeIOU(amount *uint256.Int, destChainID uint64) ([]byte, error) {
	return poolABI.Pack("bridgeIOU", amount.ToBig(), new(big.Int).SetUint64(destChainID))
}
