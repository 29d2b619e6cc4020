package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

// FeeTier selects one of the discrete pricing pools for a pair. Values are in
// hundredths of a basis point, so 3000 is a 0.30% fee.
type FeeTier uint32

const (
	FeeTier500   FeeTier = 500
	FeeTier3000  FeeTier = 3000
	FeeTier10000 FeeTier = 10000

	// feeDenominator is the unit base for fee tiers (1e6 = 100%).
	feeDenominator = 1_000_000
)

func (f FeeTier) Valid() bool {
	switch f {
	case FeeTier500, FeeTier3000, FeeTier10000:
		return true
	}
	return false
}

func (f FeeTier) String() string {
	return fmt.Sprintf("%d", uint32(f))
}

var (
	ErrDeadlineExpired       = errors.New("transaction too old")
	ErrPoolNotFound          = errors.New("pool not found")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrTooLittleReceived means the exact-input output fell below the
	// caller's minimum bound.
	ErrTooLittleReceived = errors.New("too little received")
	// ErrTooMuchRequested means the exact-output input exceeded the caller's
	// ceiling.
	ErrTooMuchRequested = errors.New("too much requested")
)

// ExactInputParams describes a spend-exact-input order.
type ExactInputParams struct {
	TokenIn          string
	TokenOut         string
	Fee              FeeTier
	Payer            string // account the router pulls the input from, via allowance
	Recipient        string
	Deadline         int64 // unix seconds; order is invalid after this instant
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
	SqrtPriceLimit   *big.Int // optional price bound; nil means no override
}

// ExactOutputParams describes a receive-exact-output order.
type ExactOutputParams struct {
	TokenIn         string
	TokenOut        string
	Fee             FeeTier
	Payer           string
	Recipient       string
	Deadline        int64
	AmountOut       *big.Int
	AmountInMaximum *big.Int
	SqrtPriceLimit  *big.Int
}

// Router is the delegated-execution collaborator. Implementations own all
// price discovery and fund movement for an order; the facade only grants them
// a spend allowance and inspects the realized amounts they report.
type Router interface {
	// ExactInputSingle fills an exact-input order and returns the realized
	// output amount delivered to the recipient.
	ExactInputSingle(ctx context.Context, params ExactInputParams) (*big.Int, error)

	// ExactOutputSingle fills an exact-output order and returns the realized
	// input amount consumed from the payer.
	ExactOutputSingle(ctx context.Context, params ExactOutputParams) (*big.Int, error)
}

// Quoter is implemented by routers that can price an order without executing
// it. The HTTP quote endpoint uses it.
type Quoter interface {
	QuoteExactInput(ctx context.Context, tokenIn, tokenOut string, fee FeeTier, amountIn *big.Int) (*big.Int, error)
	QuoteExactOutput(ctx context.Context, tokenIn, tokenOut string, fee FeeTier, amountOut *big.Int) (*big.Int, error)
}
