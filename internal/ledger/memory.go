package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
)

// MemoryLedger is a mutex-guarded in-memory Ledger. It keeps one balance book
// and one allowance book per token and is safe for concurrent use.
type MemoryLedger struct {
	mu              sync.Mutex
	balances        map[string]map[string]*big.Int            // token -> account -> balance
	allowances      map[string]map[string]map[string]*big.Int // token -> owner -> spender -> allowance
	strictApprovals bool
}

type MemoryOption func(*MemoryLedger)

// WithStrictApprovals makes Approve reject nonzero -> nonzero changes, the
// way some token implementations do. Callers then have to reset to zero
// before granting a new allowance.
func WithStrictApprovals() MemoryOption {
	return func(l *MemoryLedger) { l.strictApprovals = true }
}

func NewMemoryLedger(opts ...MemoryOption) *MemoryLedger {
	l := &MemoryLedger{
		balances:   make(map[string]map[string]*big.Int),
		allowances: make(map[string]map[string]map[string]*big.Int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Mint credits amount of token to account. Used to seed balances in tests and
// local deployments.
func (l *MemoryLedger) Mint(token, account string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balance(token, account)
	bal.Add(bal, amount)
}

func (l *MemoryLedger) BalanceOf(_ context.Context, token, account string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(token, account)), nil
}

func (l *MemoryLedger) Transfer(_ context.Context, token, from, to string, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(token, from, to, amount)
}

func (l *MemoryLedger) TransferFrom(_ context.Context, token, spender, from, to string, amount *big.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowance(token, from, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s allowed %s to spend %s, requested %s",
			ErrInsufficientAllowance, from, spender, allowed, amount)
	}
	if err := l.move(token, from, to, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	return nil
}

func (l *MemoryLedger) Approve(_ context.Context, token, owner, spender string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid approval amount")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.allowance(token, owner, spender)
	if l.strictApprovals && current.Sign() != 0 && amount.Sign() != 0 {
		return fmt.Errorf("%w: %s -> %s", ErrNonZeroApproval, current, amount)
	}
	current.Set(amount)
	return nil
}

func (l *MemoryLedger) Allowance(_ context.Context, token, owner, spender string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowance(token, owner, spender)), nil
}

// move transfers under the held lock.
func (l *MemoryLedger) move(token, from, to string, amount *big.Int) error {
	src := l.balance(token, from)
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, requested %s",
			ErrInsufficientBalance, from, src, token, amount)
	}
	src.Sub(src, amount)
	dst := l.balance(token, to)
	dst.Add(dst, amount)
	return nil
}

func (l *MemoryLedger) balance(token, account string) *big.Int {
	book, ok := l.balances[token]
	if !ok {
		book = make(map[string]*big.Int)
		l.balances[token] = book
	}
	bal, ok := book[account]
	if !ok {
		bal = new(big.Int)
		book[account] = bal
	}
	return bal
}

func (l *MemoryLedger) allowance(token, owner, spender string) *big.Int {
	book, ok := l.allowances[token]
	if !ok {
		book = make(map[string]map[string]*big.Int)
		l.allowances[token] = book
	}
	owned, ok := book[owner]
	if !ok {
		owned = make(map[string]*big.Int)
		book[owner] = owned
	}
	allowed, ok := owned[spender]
	if !ok {
		allowed = new(big.Int)
		owned[spender] = allowed
	}
	return allowed
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("invalid transfer amount")
	}
	return nil
}
