package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vicent00/swap-facade/internal/router"
)

const swapRouterABI = `[
	{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountIn","type":"uint256"},{"name":"amountOutMinimum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"exactInputSingle","outputs":[{"name":"amountOut","type":"uint256"}],"stateMutability":"payable","type":"function"},
	{"inputs":[{"components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"recipient","type":"address"},{"name":"deadline","type":"uint256"},{"name":"amountOut","type":"uint256"},{"name":"amountInMaximum","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"params","type":"tuple"}],"name":"exactOutputSingle","outputs":[{"name":"amountIn","type":"uint256"}],"stateMutability":"payable","type":"function"}
]`

const quoterABI = `[
	{"inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"amountIn","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"quoteExactInputSingle","outputs":[{"name":"amountOut","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"name":"quoteExactOutputSingle","outputs":[{"name":"amountIn","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

var (
	swapRouter = mustParseABI(swapRouterABI)
	quoter     = mustParseABI(quoterABI)
)

// exactInputSingleParams mirrors the router's tuple argument. Field order
// must match the ABI components.
type exactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

type exactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountOut         *big.Int
	AmountInMaximum   *big.Int
	SqrtPriceLimitX96 *big.Int
}

// UniswapRouter drives a deployed Uniswap V3 SwapRouter contract. The payer
// is implicitly the signing key; params.Payer is validated against it rather
// than forwarded, since the contract pulls input from msg.sender.
type UniswapRouter struct {
	client     *Client
	routerAddr common.Address
	quoterAddr common.Address
}

// NewUniswapRouter binds the adapter to the router and quoter contract
// addresses. The quoter address may be empty when quoting is not needed.
func NewUniswapRouter(client *Client, routerAddr, quoterAddr string) (*UniswapRouter, error) {
	r, err := parseAddress(routerAddr)
	if err != nil {
		return nil, fmt.Errorf("router contract: %w", err)
	}
	u := &UniswapRouter{client: client, routerAddr: r}
	if quoterAddr != "" {
		q, err := parseAddress(quoterAddr)
		if err != nil {
			return nil, fmt.Errorf("quoter contract: %w", err)
		}
		u.quoterAddr = q
	}
	return u, nil
}

// Address returns the router contract address, which is what input-token
// allowances must be granted to.
func (u *UniswapRouter) Address() string {
	return u.routerAddr.Hex()
}

func (u *UniswapRouter) ExactInputSingle(ctx context.Context, params router.ExactInputParams) (*big.Int, error) {
	if err := u.requirePayer(params.Payer); err != nil {
		return nil, err
	}
	tokenIn, err := parseAddress(params.TokenIn)
	if err != nil {
		return nil, err
	}
	tokenOut, err := parseAddress(params.TokenOut)
	if err != nil {
		return nil, err
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		return nil, err
	}

	data, err := swapRouter.Pack("exactInputSingle", exactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(int64(params.Fee)),
		Recipient:         recipient,
		Deadline:          big.NewInt(params.Deadline),
		AmountIn:          params.AmountIn,
		AmountOutMinimum:  orZero(params.AmountOutMinimum),
		SqrtPriceLimitX96: orZero(params.SqrtPriceLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack exactInputSingle: %w", err)
	}
	return u.execute(ctx, "exactInputSingle", data)
}

func (u *UniswapRouter) ExactOutputSingle(ctx context.Context, params router.ExactOutputParams) (*big.Int, error) {
	if err := u.requirePayer(params.Payer); err != nil {
		return nil, err
	}
	tokenIn, err := parseAddress(params.TokenIn)
	if err != nil {
		return nil, err
	}
	tokenOut, err := parseAddress(params.TokenOut)
	if err != nil {
		return nil, err
	}
	recipient, err := parseAddress(params.Recipient)
	if err != nil {
		return nil, err
	}

	data, err := swapRouter.Pack("exactOutputSingle", exactOutputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Fee:               big.NewInt(int64(params.Fee)),
		Recipient:         recipient,
		Deadline:          big.NewInt(params.Deadline),
		AmountOut:         params.AmountOut,
		AmountInMaximum:   params.AmountInMaximum,
		SqrtPriceLimitX96: orZero(params.SqrtPriceLimit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack exactOutputSingle: %w", err)
	}
	return u.execute(ctx, "exactOutputSingle", data)
}

// execute simulates the call to recover the return value, then sends the
// real transaction. The simulated amount is what the mined swap realizes as
// long as pool state does not move between the two.
func (u *UniswapRouter) execute(ctx context.Context, method string, data []byte) (*big.Int, error) {
	result, err := u.client.call(ctx, u.routerAddr, data)
	if err != nil {
		return nil, fmt.Errorf("%s simulation: %w", method, err)
	}
	amount, err := unpackAmount(swapRouter, method, result)
	if err != nil {
		return nil, err
	}

	if _, err := u.client.transact(ctx, u.routerAddr, data); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return amount, nil
}

func (u *UniswapRouter) QuoteExactInput(ctx context.Context, tokenIn, tokenOut string, fee router.FeeTier, amountIn *big.Int) (*big.Int, error) {
	return u.quote(ctx, "quoteExactInputSingle", tokenIn, tokenOut, fee, amountIn)
}

func (u *UniswapRouter) QuoteExactOutput(ctx context.Context, tokenIn, tokenOut string, fee router.FeeTier, amountOut *big.Int) (*big.Int, error) {
	return u.quote(ctx, "quoteExactOutputSingle", tokenIn, tokenOut, fee, amountOut)
}

func (u *UniswapRouter) quote(ctx context.Context, method, tokenIn, tokenOut string, fee router.FeeTier, amount *big.Int) (*big.Int, error) {
	if (u.quoterAddr == common.Address{}) {
		return nil, fmt.Errorf("quoter contract not configured")
	}
	in, err := parseAddress(tokenIn)
	if err != nil {
		return nil, err
	}
	out, err := parseAddress(tokenOut)
	if err != nil {
		return nil, err
	}

	data, err := quoter.Pack(method, in, out, big.NewInt(int64(fee)), amount, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	result, err := u.client.call(ctx, u.quoterAddr, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return unpackAmount(quoter, method, result)
}

func (u *UniswapRouter) requirePayer(payer string) error {
	addr, err := parseAddress(payer)
	if err != nil {
		return err
	}
	if addr != u.client.address {
		return fmt.Errorf("payer %s is not the signing key %s", payer, u.client.Address())
	}
	return nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func unpackAmount(contract abi.ABI, method string, data []byte) (*big.Int, error) {
	values, err := contract.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s result arity %d", method, len(values))
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, values[0])
	}
	return amount, nil
}
