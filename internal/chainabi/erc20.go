// Package chainabi packs and unpacks the ABI calldata the core issues
// against pool and token contracts. It knows nothing about transport,
// signing, or gas — see internal/adapters/onchain for that.
package chainabi

import (
	"fmt"
	"math/big"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

var erc20ABI gethabi.ABI

func init() {
	var err error
	erc20ABI, err = gethabi.JSON(strings.NewReader(`[
		{
			"name": "balanceOf",
			"type": "function",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "approve",
			"type": "function",
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		}
	]`))
	if err != nil {
		panic("chainabi: parse erc20 abi: " + err.Error())
	}
}

func toCommon(a domain.Address) common.Address {
	var c common.Address
	copy(c[:], a[:])
	return c
}

// PackBalanceOf encodes an ERC-20 balanceOf(account) call.
func PackBalanceOf(account domain.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", toCommon(account))
}

// PackAllowance encodes an ERC-20 allowance(owner,spender) call.
func PackAllowance(owner, spender domain.Address) ([]byte, error) {
	return erc20ABI.Pack("allowance", toCommon(owner), toCommon(spender))
}

// PackApprove encodes an ERC-20 approve(spender,amount) call.
func PackApprove(spender domain.Address, amount *uint256.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", toCommon(spender), amount.ToBig())
}

// UnpackUint256 decodes a single uint256 return value, as returned by
// balanceOf and allowance.
func UnpackUint256(method string, data []byte) (*uint256.Int, error) {
	vals, err := erc20ABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("chainabi: unpack %s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("chainabi: unpack %s: expected 1 return value, got %d", method, len(vals))
	}
	raw, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chainabi: unpack %s: unexpected return type %T", method, vals[0])
	}
	out, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("chainabi: unpack %s: value overflows uint256", method)
	}
	return out, nil
}
