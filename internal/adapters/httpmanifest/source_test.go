package httpmanifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lbf-labs/rebalancer/internal/domain"
)

func TestParseLinesExtractsNetworkFromKey(t *testing.T) {
	body := strings.NewReader(strings.Join([]string{
		"# comment, should be skipped",
		"",
		"LBF_PARENT_POOL_eth-mainnet=0x0000000000000000000000000000000000000001",
		"LBF_CHILD_POOL_arb-mainnet=0x0000000000000000000000000000000000000002",
		"USDC_eth-mainnet=0x0000000000000000000000000000000000000003",
		"IOU_arb-mainnet=0x0000000000000000000000000000000000000004",
		"SOME_UNRELATED_KEY=ignored",
	}, "\n"))

	entries, err := parseLines(body)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, domain.NetworkName("eth-mainnet"), entries[0].Network)
	assert.Equal(t, "LBF_PARENT_POOL_eth-mainnet", entries[0].Key)
	assert.Equal(t, domain.NetworkName("arb-mainnet"), entries[1].Network)
	assert.Equal(t, domain.NetworkName("eth-mainnet"), entries[2].Network)
	assert.Equal(t, domain.NetworkName("arb-mainnet"), entries[3].Network)
}

func TestParseLinesSkipsMalformedAndUnmatchedLines(t *testing.T) {
	body := strings.NewReader(strings.Join([]string{
		"no-equals-sign-here",
		"=missing-key",
		"RANDOM_THING=value",
	}, "\n"))

	entries, err := parseLines(body)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMatchNetworkTriesEachPatternInOrder(t *testing.T) {
	cases := []struct {
		key     string
		want    domain.NetworkName
		matched bool
	}{
		{"LBF_CHILD_POOL_polygon-mainnet", "polygon-mainnet", true},
		{"LBF_PARENT_POOL_eth-mainnet", "eth-mainnet", true},
		{"USDC_arb-mainnet", "arb-mainnet", true},
		{"IOU_base-mainnet", "base-mainnet", true},
		{"NOT_A_RECOGNIZED_KEY", "", false},
	}
	for _, c := range cases {
		network, matched := matchNetwork(c.key)
		assert.Equal(t, c.matched, matched, c.key)
		assert.Equal(t, c.want, network, c.key)
	}
}
