package router

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vicent00/swap-facade/internal/ledger"
)

// Pool is one discrete constant-product pricing pool. Its reserves are the
// ledger balances of Account, so funding the account is adding liquidity.
type Pool struct {
	TokenA  string
	TokenB  string
	Fee     FeeTier
	Account string
}

type poolKey struct {
	tokenA string
	tokenB string
	fee    FeeTier
}

// AMM is a local constant-product Router backed by a Ledger. It pulls input
// funds from the payer through its spend allowance and pays the recipient
// from the pool account, the same custody contract an on-chain router keeps.
type AMM struct {
	mu      sync.Mutex
	ledger  ledger.Ledger
	account string // spender identity the facade grants allowances to
	pools   map[poolKey]*Pool
	clock   func() time.Time
	logger  *logrus.Logger
}

func NewAMM(l ledger.Ledger, account string, logger *logrus.Logger) *AMM {
	if logger == nil {
		logger = logrus.New()
	}
	return &AMM{
		ledger:  l,
		account: account,
		pools:   make(map[poolKey]*Pool),
		clock:   time.Now,
		logger:  logger,
	}
}

// SetClock overrides the time source for deterministic deadline tests.
func (a *AMM) SetClock(clock func() time.Time) {
	if clock != nil {
		a.clock = clock
	}
}

// Account returns the spender identity that must be granted allowances.
func (a *AMM) Account() string { return a.account }

// AddPool registers a pool for both trade directions.
func (a *AMM) AddPool(p Pool) error {
	if !p.Fee.Valid() {
		return fmt.Errorf("invalid fee tier %s", p.Fee)
	}
	if p.TokenA == p.TokenB {
		return fmt.Errorf("pool tokens must differ")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pools[poolKey{p.TokenA, p.TokenB, p.Fee}] = &p
	a.pools[poolKey{p.TokenB, p.TokenA, p.Fee}] = &p
	return nil
}

func (a *AMM) findPool(tokenIn, tokenOut string, fee FeeTier) (*Pool, error) {
	p, ok := a.pools[poolKey{tokenIn, tokenOut, fee}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s fee %s", ErrPoolNotFound, tokenIn, tokenOut, fee)
	}
	return p, nil
}

func (a *AMM) checkDeadline(deadline int64) error {
	if deadline > 0 && a.clock().Unix() > deadline {
		return ErrDeadlineExpired
	}
	return nil
}

func (a *AMM) reserves(ctx context.Context, p *Pool, tokenIn, tokenOut string) (*big.Int, *big.Int, error) {
	reserveIn, err := a.ledger.BalanceOf(ctx, tokenIn, p.Account)
	if err != nil {
		return nil, nil, err
	}
	reserveOut, err := a.ledger.BalanceOf(ctx, tokenOut, p.Account)
	if err != nil {
		return nil, nil, err
	}
	return reserveIn, reserveOut, nil
}

func (a *AMM) ExactInputSingle(ctx context.Context, params ExactInputParams) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkDeadline(params.Deadline); err != nil {
		return nil, err
	}
	pool, err := a.findPool(params.TokenIn, params.TokenOut, params.Fee)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut, err := a.reserves(ctx, pool, params.TokenIn, params.TokenOut)
	if err != nil {
		return nil, err
	}
	amountOut, err := computeAmountOut(params.AmountIn, reserveIn, reserveOut, params.Fee)
	if err != nil {
		return nil, err
	}
	if params.AmountOutMinimum != nil && amountOut.Cmp(params.AmountOutMinimum) < 0 {
		return nil, fmt.Errorf("%w: %s < %s", ErrTooLittleReceived, amountOut, params.AmountOutMinimum)
	}

	if err := a.settle(ctx, pool, params.TokenIn, params.TokenOut,
		params.Payer, params.Recipient, params.AmountIn, amountOut); err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"pair":       params.TokenIn + "/" + params.TokenOut,
		"fee":        params.Fee.String(),
		"amount_in":  params.AmountIn.String(),
		"amount_out": amountOut.String(),
	}).Debug("filled exact-input order")

	return amountOut, nil
}

func (a *AMM) ExactOutputSingle(ctx context.Context, params ExactOutputParams) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.checkDeadline(params.Deadline); err != nil {
		return nil, err
	}
	pool, err := a.findPool(params.TokenIn, params.TokenOut, params.Fee)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut, err := a.reserves(ctx, pool, params.TokenIn, params.TokenOut)
	if err != nil {
		return nil, err
	}
	amountIn, err := computeAmountIn(params.AmountOut, reserveIn, reserveOut, params.Fee)
	if err != nil {
		return nil, err
	}
	if params.AmountInMaximum != nil && amountIn.Cmp(params.AmountInMaximum) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrTooMuchRequested, amountIn, params.AmountInMaximum)
	}

	if err := a.settle(ctx, pool, params.TokenIn, params.TokenOut,
		params.Payer, params.Recipient, amountIn, params.AmountOut); err != nil {
		return nil, err
	}

	a.logger.WithFields(logrus.Fields{
		"pair":       params.TokenIn + "/" + params.TokenOut,
		"fee":        params.Fee.String(),
		"amount_in":  amountIn.String(),
		"amount_out": params.AmountOut.String(),
	}).Debug("filled exact-output order")

	return amountIn, nil
}

// settle moves the input from the payer into the pool and the output from the
// pool to the recipient. A failed payout rolls the pull back so a failed
// order never strands funds in the pool.
func (a *AMM) settle(ctx context.Context, pool *Pool, tokenIn, tokenOut, payer, recipient string, amountIn, amountOut *big.Int) error {
	if err := a.ledger.TransferFrom(ctx, tokenIn, a.account, payer, pool.Account, amountIn); err != nil {
		return fmt.Errorf("pull input: %w", err)
	}
	if err := a.ledger.Transfer(ctx, tokenOut, pool.Account, recipient, amountOut); err != nil {
		if rbErr := a.ledger.Transfer(ctx, tokenIn, pool.Account, payer, amountIn); rbErr != nil {
			a.logger.WithError(rbErr).Error("rollback of pulled input failed")
		}
		return fmt.Errorf("pay output: %w", err)
	}
	return nil
}

func (a *AMM) QuoteExactInput(ctx context.Context, tokenIn, tokenOut string, fee FeeTier, amountIn *big.Int) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pool, err := a.findPool(tokenIn, tokenOut, fee)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := a.reserves(ctx, pool, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	return computeAmountOut(amountIn, reserveIn, reserveOut, fee)
}

func (a *AMM) QuoteExactOutput(ctx context.Context, tokenIn, tokenOut string, fee FeeTier, amountOut *big.Int) (*big.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pool, err := a.findPool(tokenIn, tokenOut, fee)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut, err := a.reserves(ctx, pool, tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	return computeAmountIn(amountOut, reserveIn, reserveOut, fee)
}
