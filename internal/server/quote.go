package server

import (
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vicent00/swap-facade/internal/models"
)

// Quote returns an indicative price for the configured pair without moving
// funds. direction selects which leg is fixed, amount is that leg's size.
func (h *Handlers) Quote(c echo.Context) error {
	if h.Quoter == nil {
		return h.err(c, http.StatusBadRequest, "quoting is not configured", nil)
	}

	direction := strings.TrimSpace(c.QueryParam("direction"))
	if direction == "" {
		direction = models.DirectionExactInput
	}
	if direction != models.DirectionExactInput && direction != models.DirectionExactOutput {
		return h.err(c, http.StatusBadRequest, "invalid direction", map[string]any{"direction": "must be exact_input or exact_output"})
	}

	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "required"})
	}
	amount, ok := parseAmount(amountStr)
	if !ok {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive integer"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair := h.Facade.Pair()
	var (
		quoted *big.Int
		err    error
	)
	switch direction {
	case models.DirectionExactInput:
		quoted, err = h.Quoter.QuoteExactInput(ctx, pair.TokenIn, pair.TokenOut, pair.Fee, amount)
	case models.DirectionExactOutput:
		quoted, err = h.Quoter.QuoteExactOutput(ctx, pair.TokenIn, pair.TokenOut, pair.Fee, amount)
	}
	if err != nil {
		return h.err(c, http.StatusBadGateway, "quote failed", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		Direction: direction,
		Pair:      pair.TokenIn + "/" + pair.TokenOut,
		Amount:    amount.String(),
		Quoted:    quoted.String(),
		FeeTier:   uint32(pair.Fee),
	})
}
