package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vicent00/swap-facade/internal/facade"
)

// NotFoundJSON returns a custom HTTP error handler that returns JSON responses
// This ensures all errors (including 404s) have consistent JSON format
func NotFoundJSON() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		// Don't send response if already committed
		if c.Response().Committed {
			return
		}

		if he, ok := err.(*echo.HTTPError); ok {
			_ = c.JSON(he.Code, ErrorResponse{
				Error: http.StatusText(he.Code),
				Code:  he.Code,
			})
			return
		}

		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// swapStatus maps a swap failure to the HTTP status and client-facing message.
// Validation problems are the client's fault, custody and authorization
// failures mean the caller's funds or approvals do not cover the request, and
// execution failures are the downstream router's.
func swapStatus(err error) (int, string) {
	switch {
	case errors.Is(err, facade.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid amount"
	case errors.Is(err, facade.ErrReentrantCall):
		return http.StatusConflict, "swap already in progress"
	case errors.Is(err, facade.ErrCustodyTransfer):
		return http.StatusPaymentRequired, "custody transfer failed"
	case errors.Is(err, facade.ErrAuthorization):
		return http.StatusPaymentRequired, "authorization failed"
	case errors.Is(err, facade.ErrExcessSpend):
		return http.StatusBadGateway, "router overspent the authorized ceiling"
	case errors.Is(err, facade.ErrDelegatedExecution):
		return http.StatusBadGateway, "swap execution failed"
	default:
		return http.StatusInternalServerError, "swap failed"
	}
}
