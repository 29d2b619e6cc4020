package facade

import "errors"

var (
	// ErrInvalidAmount means a supplied amount is zero, negative, or nil.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrCustodyTransfer means the initial pull from the caller failed,
	// typically for insufficient balance or a missing allowance to the
	// facade.
	ErrCustodyTransfer = errors.New("custody transfer failed")

	// ErrAuthorization means setting the router's spend allowance failed.
	ErrAuthorization = errors.New("authorization failed")

	// ErrDelegatedExecution means the router rejected the order (deadline
	// passed, bound unmet, insufficient liquidity).
	ErrDelegatedExecution = errors.New("delegated execution failed")

	// ErrExcessSpend means the router reported consuming more input than the
	// authorized ceiling. This is an integrity violation by the collaborator
	// and is never retried.
	ErrExcessSpend = errors.New("excess spend detected")

	// ErrReentrantCall means an operation was invoked while another one on
	// the same facade was still in flight.
	ErrReentrantCall = errors.New("reentrant call")
)
