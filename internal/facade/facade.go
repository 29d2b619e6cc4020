package facade

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vicent00/swap-facade/internal/ledger"
	"github.com/vicent00/swap-facade/internal/models"
	"github.com/vicent00/swap-facade/internal/router"
	"github.com/vicent00/swap-facade/internal/storage"
)

// PairConfig fixes one facade instance to one trading pair and fee tier. It
// is set at construction and never mutated.
type PairConfig struct {
	TokenIn  string
	TokenOut string
	Fee      router.FeeTier

	// Account is the facade's own ledger account, where input funds are held
	// between custody pull and settlement.
	Account string

	// RouterAccount is the spender identity the router pulls input funds
	// with; it is the target of every allowance the facade grants.
	RouterAccount string
}

func (c PairConfig) validate() error {
	if c.TokenIn == "" || c.TokenOut == "" {
		return fmt.Errorf("input and output token required")
	}
	if c.TokenIn == c.TokenOut {
		return fmt.Errorf("input and output token must differ")
	}
	if !c.Fee.Valid() {
		return fmt.Errorf("invalid fee tier %s", c.Fee)
	}
	if c.Account == "" {
		return fmt.Errorf("facade account required")
	}
	if c.RouterAccount == "" {
		return fmt.Errorf("router account required")
	}
	return nil
}

// Facade executes swaps against an external router while owning the custody,
// authorization, and settlement sequence around each order. It holds no
// liquidity and does no pricing; it exists so that custody can never be
// stolen, double spent, or stranded no matter what the router does.
type Facade struct {
	cfg    PairConfig
	ledger ledger.Ledger
	router router.Router
	sink   storage.EventSink
	logger *logrus.Logger
	grace  time.Duration
	guard  reentryGuard
}

type Option func(*Facade)

func WithEventSink(sink storage.EventSink) Option {
	return func(f *Facade) { f.sink = sink }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(f *Facade) { f.logger = logger }
}

// WithDeadlineGrace extends order deadlines past the submission instant. The
// default is zero: orders carry "now" as their deadline, which the reference
// design used and which makes deadline protection a no-op for a router that
// fills synchronously.
func WithDeadlineGrace(grace time.Duration) Option {
	return func(f *Facade) {
		if grace > 0 {
			f.grace = grace
		}
	}
}

func New(cfg PairConfig, l ledger.Ledger, r router.Router, opts ...Option) (*Facade, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if r == nil {
		return nil, fmt.Errorf("router is required")
	}

	f := &Facade{
		cfg:    cfg,
		ledger: l,
		router: r,
		logger: logrus.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Pair returns the immutable pair configuration.
func (f *Facade) Pair() PairConfig { return f.cfg }

// SwapExactInput spends exactly amountIn of the input token for a variable
// output bounded below by minAmountOut, delivered straight to the caller.
//
// Sequence: reentry guard -> custody pull -> router authorization ->
// delegated execution -> settlement -> event. Any failure after the custody
// pull returns the pulled amount to the caller and zeroes the router's
// allowance before the error surfaces.
func (f *Facade) SwapExactInput(ctx context.Context, caller string, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountIn must be > 0", ErrInvalidAmount)
	}
	if caller == "" {
		return nil, fmt.Errorf("%w: caller required", ErrInvalidAmount)
	}
	if minAmountOut == nil {
		minAmountOut = new(big.Int)
	}

	if err := f.guard.acquire(); err != nil {
		return nil, err
	}
	defer f.guard.release()

	if err := f.takeCustody(ctx, caller, amountIn); err != nil {
		return nil, err
	}
	if err := f.authorize(ctx, amountIn); err != nil {
		f.abort(ctx, caller, amountIn)
		return nil, err
	}

	amountOut, err := f.router.ExactInputSingle(ctx, router.ExactInputParams{
		TokenIn:          f.cfg.TokenIn,
		TokenOut:         f.cfg.TokenOut,
		Fee:              f.cfg.Fee,
		Payer:            f.cfg.Account,
		Recipient:        caller,
		Deadline:         f.deadline(),
		AmountIn:         amountIn,
		AmountOutMinimum: minAmountOut,
	})
	if err != nil {
		f.abort(ctx, caller, amountIn)
		return nil, fmt.Errorf("%w: %v", ErrDelegatedExecution, err)
	}

	// The router consumed the full allowance; zeroing is a no-op for honest
	// routers but keeps the cross-call invariant unconditional.
	if err := f.clearAuthorization(ctx); err != nil {
		return nil, err
	}

	f.emit(ctx, caller, models.DirectionExactInput, amountIn, amountOut)
	return amountOut, nil
}

// ExactOutputSingle buys exactly amountOut of the output token for a variable
// input bounded above by amountInMaximum. The full ceiling is pulled into
// custody up front because the realized spend is unknown until the router
// fills; whatever the router leaves unconsumed is refunded to the caller.
func (f *Facade) ExactOutputSingle(ctx context.Context, caller string, amountOut, amountInMaximum *big.Int) (*big.Int, error) {
	if amountInMaximum == nil || amountInMaximum.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountInMaximum must be > 0", ErrInvalidAmount)
	}
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amountOut must be > 0", ErrInvalidAmount)
	}
	if caller == "" {
		return nil, fmt.Errorf("%w: caller required", ErrInvalidAmount)
	}

	if err := f.guard.acquire(); err != nil {
		return nil, err
	}
	defer f.guard.release()

	if err := f.takeCustody(ctx, caller, amountInMaximum); err != nil {
		return nil, err
	}
	if err := f.authorize(ctx, amountInMaximum); err != nil {
		f.abort(ctx, caller, amountInMaximum)
		return nil, err
	}

	amountIn, err := f.router.ExactOutputSingle(ctx, router.ExactOutputParams{
		TokenIn:         f.cfg.TokenIn,
		TokenOut:        f.cfg.TokenOut,
		Fee:             f.cfg.Fee,
		Payer:           f.cfg.Account,
		Recipient:       caller,
		Deadline:        f.deadline(),
		AmountOut:       amountOut,
		AmountInMaximum: amountInMaximum,
	})
	if err != nil {
		f.abort(ctx, caller, amountInMaximum)
		return nil, fmt.Errorf("%w: %v", ErrDelegatedExecution, err)
	}

	if amountIn == nil || amountIn.Cmp(amountInMaximum) > 0 {
		// Collaborator integrity violation. Revoke what is revocable and
		// surface it; nothing here is retryable.
		if clearErr := f.clearAuthorization(ctx); clearErr != nil {
			f.logger.WithError(clearErr).Error("failed to revoke authorization after excess spend")
		}
		return nil, fmt.Errorf("%w: realized %s exceeds ceiling %s", ErrExcessSpend, amountIn, amountInMaximum)
	}

	if err := f.clearAuthorization(ctx); err != nil {
		return nil, err
	}
	if amountIn.Cmp(amountInMaximum) < 0 {
		refund := new(big.Int).Sub(amountInMaximum, amountIn)
		if err := f.ledger.Transfer(ctx, f.cfg.TokenIn, f.cfg.Account, caller, refund); err != nil {
			return nil, fmt.Errorf("%w: refund of %s: %v", ErrCustodyTransfer, refund, err)
		}
	}

	f.emit(ctx, caller, models.DirectionExactOutput, amountIn, amountOut)
	return amountIn, nil
}

// takeCustody pulls amount of the input token from the caller into the
// facade's account via the caller's pre-existing allowance.
func (f *Facade) takeCustody(ctx context.Context, caller string, amount *big.Int) error {
	if err := f.ledger.TransferFrom(ctx, f.cfg.TokenIn, f.cfg.Account, caller, f.cfg.Account, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrCustodyTransfer, err)
	}
	return nil
}

// authorize sets the router's allowance to exactly amount, always passing
// through zero first. Some asset implementations reject nonzero -> nonzero
// allowance changes, so the two-step dance is unconditional.
func (f *Facade) authorize(ctx context.Context, amount *big.Int) error {
	if err := f.ledger.Approve(ctx, f.cfg.TokenIn, f.cfg.Account, f.cfg.RouterAccount, new(big.Int)); err != nil {
		return fmt.Errorf("%w: reset: %v", ErrAuthorization, err)
	}
	if err := f.ledger.Approve(ctx, f.cfg.TokenIn, f.cfg.Account, f.cfg.RouterAccount, amount); err != nil {
		return fmt.Errorf("%w: grant %s: %v", ErrAuthorization, amount, err)
	}
	return nil
}

func (f *Facade) clearAuthorization(ctx context.Context) error {
	if err := f.ledger.Approve(ctx, f.cfg.TokenIn, f.cfg.Account, f.cfg.RouterAccount, new(big.Int)); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrAuthorization, err)
	}
	return nil
}

// abort unwinds a failed operation: the router's allowance goes back to zero
// and the custodied amount goes back to the caller. Unwind failures are
// logged, not returned; the original failure is what the caller needs to see.
func (f *Facade) abort(ctx context.Context, caller string, custodied *big.Int) {
	if err := f.clearAuthorization(ctx); err != nil {
		f.logger.WithError(err).Error("failed to revoke authorization during abort")
	}
	if err := f.ledger.Transfer(ctx, f.cfg.TokenIn, f.cfg.Account, caller, custodied); err != nil {
		f.logger.WithError(err).WithFields(logrus.Fields{
			"caller": caller,
			"amount": custodied.String(),
		}).Error("failed to return custody during abort")
	}
}

func (f *Facade) deadline() int64 {
	return time.Now().Add(f.grace).Unix()
}

func (f *Facade) emit(ctx context.Context, caller, direction string, amountIn, amountOut *big.Int) {
	event := &models.SwapEvent{
		ID:        fmt.Sprintf("swap_%d", time.Now().UnixNano()),
		Timestamp: time.Now().UTC(),
		Direction: direction,
		Caller:    caller,
		Pair:      f.cfg.TokenIn + "/" + f.cfg.TokenOut,
		TokenIn:   f.cfg.TokenIn,
		TokenOut:  f.cfg.TokenOut,
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
		FeeTier:   uint32(f.cfg.Fee),
	}

	f.logger.WithFields(logrus.Fields{
		"direction":  direction,
		"caller":     caller,
		"pair":       event.Pair,
		"amount_in":  event.AmountIn,
		"amount_out": event.AmountOut,
	}).Info("swap settled")

	if f.sink != nil {
		if err := f.sink.Emit(ctx, event); err != nil {
			f.logger.WithError(err).Warn("failed to emit swap event")
		}
	}
}
