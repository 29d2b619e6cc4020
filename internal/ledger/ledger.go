package ledger

import (
	"context"
	"errors"
	"math/big"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrNonZeroApproval is returned by ledgers that require an allowance to
	// pass through zero before it can be set to a new nonzero value.
	ErrNonZeroApproval = errors.New("allowance must be reset to zero first")
)

// Ledger is the asset-ledger collaborator consumed by the swap facade and the
// local router. Tokens and accounts are opaque identifiers; on the in-memory
// backend they are arbitrary strings, on the EVM backend hex addresses.
//
// All mutating operations fail loudly: a transfer that cannot be covered by
// the source balance (or, for TransferFrom, by the spender's allowance)
// returns an error and changes nothing.
type Ledger interface {
	// BalanceOf returns the balance of account for token.
	BalanceOf(ctx context.Context, token, account string) (*big.Int, error)

	// Transfer moves amount of token from one account to another.
	Transfer(ctx context.Context, token, from, to string, amount *big.Int) error

	// TransferFrom moves amount of token from `from` to `to` on the authority
	// of spender. The spender's allowance granted by `from` is reduced by
	// amount.
	TransferFrom(ctx context.Context, token, spender, from, to string, amount *big.Int) error

	// Approve sets spender's allowance over owner's balance of token to
	// exactly amount.
	Approve(ctx context.Context, token, owner, spender string, amount *big.Int) error

	// Allowance returns the remaining allowance granted by owner to spender.
	Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
}
