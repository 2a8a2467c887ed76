package domain

import "github.com/holiman/uint256"

// TokenSymbol is a closed enum of tracked token kinds. A closed enum avoids
// the spelling-drift bugs that come from keying balances by bare strings.
type TokenSymbol int

const (
	USDC TokenSymbol = iota
	IOU
)

func (s TokenSymbol) String() string {
	switch s {
	case USDC:
		return "USDC"
	case IOU:
		return "IOU"
	default:
		return "UNKNOWN"
	}
}

// TokenBalance holds the operator's native-gas and token balances for one network.
type TokenBalance struct {
	Native *uint256.Int
	Tokens map[TokenSymbol]*uint256.Int
}

// NewTokenBalance returns a zeroed TokenBalance.
func NewTokenBalance() TokenBalance {
	return TokenBalance{
		Native: uint256.NewInt(0),
		Tokens: make(map[TokenSymbol]*uint256.Int),
	}
}

// Token returns the balance of symbol, or zero if never observed.
func (b TokenBalance) Token(symbol TokenSymbol) *uint256.Int {
	if v, ok := b.Tokens[symbol]; ok {
		return v
	}
	return uint256.NewInt(0)
}

// WithToken returns a copy of b with symbol set to amount, leaving b untouched
// (copy-on-write: the rest of the entry, including Native, is preserved).
func (b TokenBalance) WithToken(symbol TokenSymbol, amount *uint256.Int) TokenBalance {
	out := TokenBalance{Native: b.Native, Tokens: make(map[TokenSymbol]*uint256.Int, len(b.Tokens))}
	for k, v := range b.Tokens {
		out.Tokens[k] = v
	}
	out.Tokens[symbol] = amount
	return out
}

// WithNative returns a copy of b with Native set to amount.
func (b TokenBalance) WithNative(amount *uint256.Int) TokenBalance {
	out := TokenBalance{Native: amount, Tokens: make(map[TokenSymbol]*uint256.Int, len(b.Tokens))}
	for k, v := range b.Tokens {
		out.Tokens[k] = v
	}
	return out
}
