package server

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vicent00/swap-facade/internal/controls"
	"github.com/vicent00/swap-facade/internal/facade"
	"github.com/vicent00/swap-facade/internal/intent"
	"github.com/vicent00/swap-facade/internal/ledger"
	"github.com/vicent00/swap-facade/internal/models"
	"github.com/vicent00/swap-facade/internal/router"
	"github.com/vicent00/swap-facade/internal/storage"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Facade   *facade.Facade     // Swap protocol entry point
	Quoter   router.Quoter      // Indicative pricing (optional)
	Ledger   ledger.Ledger      // Balance lookups
	Cache    storage.EventCache // Redis-backed recent swap feed (optional)
	Controls *controls.Store    // Redis-backed operational switches (optional)
	Refiner  *intent.Refiner    // LLM fallback for intent parsing (optional)
	DevMode  bool               // Enable detailed error responses in development
	Logger   *logrus.Logger     // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	pair := h.Facade.Pair()
	return c.JSON(http.StatusOK, HealthResponse{OK: true, Pair: pair.TokenIn + "/" + pair.TokenOut})
}

// swapsPaused consults the operational switch; missing store means never paused.
func (h *Handlers) swapsPaused(ctx context.Context) bool {
	if h.Controls == nil {
		return false
	}
	paused, err := h.Controls.SwapsPaused(ctx)
	if err != nil {
		h.Logger.WithError(err).Warn("failed to read pause switch")
		return false
	}
	return paused
}

// SwapExactInput executes a fixed-input swap for the caller
func (h *Handlers) SwapExactInput(c echo.Context) error {
	var req SwapExactInputRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if strings.TrimSpace(req.Caller) == "" {
		return h.err(c, http.StatusBadRequest, "caller is required", nil)
	}
	amountIn, ok := parseAmount(req.AmountIn)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount_in", map[string]any{"amount_in": "must be a positive integer"})
	}
	var minAmountOut *big.Int
	if req.MinAmountOut != "" {
		if minAmountOut, ok = parseAmount(req.MinAmountOut); !ok {
			return h.err(c, http.StatusBadRequest, "invalid min_amount_out", map[string]any{"min_amount_out": "must be a positive integer"})
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if h.swapsPaused(ctx) {
		return h.err(c, http.StatusServiceUnavailable, "swaps are paused", nil)
	}

	amountOut, err := h.Facade.SwapExactInput(ctx, req.Caller, amountIn, minAmountOut)
	if err != nil {
		code, msg := swapStatus(err)
		return h.err(c, code, msg, map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, SwapResponse{
		Direction: models.DirectionExactInput,
		Caller:    req.Caller,
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
	})
}

// SwapExactOutput executes a fixed-output swap for the caller, refunding
// whatever part of the ceiling went unspent
func (h *Handlers) SwapExactOutput(c echo.Context) error {
	var req SwapExactOutputRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if strings.TrimSpace(req.Caller) == "" {
		return h.err(c, http.StatusBadRequest, "caller is required", nil)
	}
	amountOut, ok := parseAmount(req.AmountOut)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount_out", map[string]any{"amount_out": "must be a positive integer"})
	}
	amountInMaximum, ok := parseAmount(req.AmountInMaximum)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount_in_maximum", map[string]any{"amount_in_maximum": "must be a positive integer"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if h.swapsPaused(ctx) {
		return h.err(c, http.StatusServiceUnavailable, "swaps are paused", nil)
	}

	amountIn, err := h.Facade.ExactOutputSingle(ctx, req.Caller, amountOut, amountInMaximum)
	if err != nil {
		code, msg := swapStatus(err)
		return h.err(c, code, msg, map[string]any{"err": err.Error()})
	}

	refund := new(big.Int).Sub(amountInMaximum, amountIn)
	resp := SwapResponse{
		Direction: models.DirectionExactOutput,
		Caller:    req.Caller,
		AmountIn:  amountIn.String(),
		AmountOut: amountOut.String(),
	}
	if refund.Sign() > 0 {
		resp.Refund = refund.String()
	}
	return c.JSON(http.StatusOK, resp)
}

// RecentSwaps returns the most recent swap events with optional limit parameter
// Accepts limit query parameter (default: 100, range: 1-200)
func (h *Handlers) RecentSwaps(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "swap feed is not configured", nil)
	}

	limitStr := c.QueryParam("limit")
	limit := 100
	if limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 200"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, int64(limit))
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// Balances returns the account's holdings in both tokens of the pair
func (h *Handlers) Balances(c echo.Context) error {
	account := strings.TrimSpace(c.Param("account"))
	if account == "" {
		return h.err(c, http.StatusBadRequest, "invalid account", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair := h.Facade.Pair()
	balances := make(map[string]string, 2)
	for _, token := range []string{pair.TokenIn, pair.TokenOut} {
		bal, err := h.Ledger.BalanceOf(ctx, token, account)
		if err != nil {
			return h.err(c, http.StatusInternalServerError, "failed to get balance", map[string]any{"token": token})
		}
		balances[token] = bal.String()
	}
	return c.JSON(http.StatusOK, BalancesResponse{Account: account, Balances: balances})
}

// IntentParse turns a natural language command into a structured swap intent.
// The regex parser runs first; the LLM refiner, when configured, handles
// whatever the regex rejects.
func (h *Handlers) IntentParse(c echo.Context) error {
	var req IntentParseRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return h.err(c, http.StatusBadRequest, "command is required", map[string]any{"command": "required"})
	}

	parsed, parseErr := intent.Parse(req.Command)
	if parseErr == nil {
		return c.JSON(http.StatusOK, parsed)
	}
	if h.Refiner == nil {
		return h.err(c, http.StatusBadRequest, "could not parse command", map[string]any{"err": parseErr.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	refined, err := h.Refiner.Refine(ctx, req.Command)
	if err != nil {
		return h.err(c, http.StatusBadRequest, "could not parse command", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, refined)
}

// SwitchesUpsert creates or updates an operational switch
func (h *Handlers) SwitchesUpsert(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	var req SwitchUpsertRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := controls.ValidateKey(req.Key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Controls.Upsert(ctx, req.Key, req.Enabled)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to upsert switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchesUpdate updates an existing operational switch
func (h *Handlers) SwitchesUpdate(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	key := c.Param("key")
	if err := controls.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}
	var req SwitchUpdateRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Controls.Upsert(ctx, key, req.Enabled)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to update switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchesGet retrieves an operational switch by its key
// Returns 404 if the switch doesn't exist
func (h *Handlers) SwitchesGet(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	key := c.Param("key")
	if err := controls.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	out, err := h.Controls.Get(ctx, key)
	if err != nil {
		if errors.Is(err, controls.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "switch not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchesList returns all operational switches
func (h *Handlers) SwitchesList(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Controls.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list switches", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// SwitchesDelete removes an operational switch by its key
// Returns 204 No Content on successful deletion
func (h *Handlers) SwitchesDelete(c echo.Context) error {
	if h.Controls == nil {
		return h.err(c, http.StatusServiceUnavailable, "controls are not configured", nil)
	}
	key := c.Param("key")
	if err := controls.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", map[string]any{"key": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.Controls.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete switch", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

// parseAmount parses a positive integer amount string.
func parseAmount(s string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || amount.Sign() <= 0 {
		return nil, false
	}
	return amount, true
}
