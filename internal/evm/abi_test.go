package evm

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestERC20Selectors(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	amount := big.NewInt(1)

	cases := []struct {
		selector string
		data     func() ([]byte, error)
	}{
		{"a9059cbb", func() ([]byte, error) { return erc20.Pack("transfer", addr, amount) }},
		{"23b872dd", func() ([]byte, error) { return erc20.Pack("transferFrom", addr, addr, amount) }},
		{"095ea7b3", func() ([]byte, error) { return erc20.Pack("approve", addr, amount) }},
		{"70a08231", func() ([]byte, error) { return erc20.Pack("balanceOf", addr) }},
		{"dd62ed3e", func() ([]byte, error) { return erc20.Pack("allowance", addr, addr) }},
	}
	for _, tc := range cases {
		data, err := tc.data()
		require.NoError(t, err)
		assert.Equal(t, tc.selector, hex.EncodeToString(data[:4]))
	}
}

func TestSwapRouterSelectors(t *testing.T) {
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")

	data, err := swapRouter.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           addr,
		TokenOut:          addr,
		Fee:               big.NewInt(3000),
		Recipient:         addr,
		Deadline:          big.NewInt(1),
		AmountIn:          big.NewInt(1),
		AmountOutMinimum:  big.NewInt(0),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "414bf389", hex.EncodeToString(data[:4]))

	data, err = swapRouter.Pack("exactOutputSingle", exactOutputSingleParams{
		TokenIn:           addr,
		TokenOut:          addr,
		Fee:               big.NewInt(3000),
		Recipient:         addr,
		Deadline:          big.NewInt(1),
		AmountOut:         big.NewInt(1),
		AmountInMaximum:   big.NewInt(1),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	require.NoError(t, err)
	assert.Equal(t, "db3e2198", hex.EncodeToString(data[:4]))
}

func TestParseAddress(t *testing.T) {
	_, err := parseAddress("not-an-address")
	assert.Error(t, err)

	addr, err := parseAddress("0x3333333333333333333333333333333333333333")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), addr)
}
