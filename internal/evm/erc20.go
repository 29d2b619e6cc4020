package evm

import (
	"context"
	"fmt"
	"math/big"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_from","type":"address"},{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

var erc20 = mustParseABI(erc20ABI)

// ERC20Ledger exposes ERC-20 token contracts through the ledger interface.
// Token identifiers and accounts are 0x-prefixed hex addresses. All
// state-changing calls are signed by the client's key, so the acting party
// (the transfer sender, the approval owner, the transferFrom spender) must be
// the client's own address.
type ERC20Ledger struct {
	client *Client
}

func NewERC20Ledger(client *Client) *ERC20Ledger {
	return &ERC20Ledger{client: client}
}

func (l *ERC20Ledger) BalanceOf(ctx context.Context, token, account string) (*big.Int, error) {
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}
	accountAddr, err := parseAddress(account)
	if err != nil {
		return nil, err
	}

	data, err := erc20.Pack("balanceOf", accountAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	result, err := l.client.call(ctx, tokenAddr, data)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token, err)
	}
	return new(big.Int).SetBytes(result), nil
}

func (l *ERC20Ledger) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return nil, err
	}
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return nil, err
	}
	spenderAddr, err := parseAddress(spender)
	if err != nil {
		return nil, err
	}

	data, err := erc20.Pack("allowance", ownerAddr, spenderAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to pack allowance: %w", err)
	}
	result, err := l.client.call(ctx, tokenAddr, data)
	if err != nil {
		return nil, fmt.Errorf("allowance %s: %w", token, err)
	}
	return new(big.Int).SetBytes(result), nil
}

func (l *ERC20Ledger) Transfer(ctx context.Context, token, from, to string, amount *big.Int) error {
	if err := l.requireSigner(from); err != nil {
		return err
	}
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return err
	}
	toAddr, err := parseAddress(to)
	if err != nil {
		return err
	}

	data, err := erc20.Pack("transfer", toAddr, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transfer: %w", err)
	}
	if _, err := l.client.transact(ctx, tokenAddr, data); err != nil {
		return fmt.Errorf("transfer %s: %w", token, err)
	}
	return nil
}

func (l *ERC20Ledger) TransferFrom(ctx context.Context, token, spender, from, to string, amount *big.Int) error {
	if err := l.requireSigner(spender); err != nil {
		return err
	}
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return err
	}
	fromAddr, err := parseAddress(from)
	if err != nil {
		return err
	}
	toAddr, err := parseAddress(to)
	if err != nil {
		return err
	}

	data, err := erc20.Pack("transferFrom", fromAddr, toAddr, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	if _, err := l.client.transact(ctx, tokenAddr, data); err != nil {
		return fmt.Errorf("transferFrom %s: %w", token, err)
	}
	return nil
}

func (l *ERC20Ledger) Approve(ctx context.Context, token, owner, spender string, amount *big.Int) error {
	if err := l.requireSigner(owner); err != nil {
		return err
	}
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return err
	}
	spenderAddr, err := parseAddress(spender)
	if err != nil {
		return err
	}

	data, err := erc20.Pack("approve", spenderAddr, amount)
	if err != nil {
		return fmt.Errorf("failed to pack approve: %w", err)
	}
	if _, err := l.client.transact(ctx, tokenAddr, data); err != nil {
		return fmt.Errorf("approve %s: %w", token, err)
	}
	return nil
}

func (l *ERC20Ledger) requireSigner(account string) error {
	addr, err := parseAddress(account)
	if err != nil {
		return err
	}
	if addr != l.client.address {
		return fmt.Errorf("account %s is not the signing key %s", account, l.client.Address())
	}
	return nil
}
