package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/evm-swap-engine/internal/swap"
)

// JSONErrorHandler renders echo errors (404, 405, 429, auth failures) in the
// same envelope as handler errors.
func JSONErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, ErrorResponse{Error: http.StatusText(he.Code), Code: he.Code})
			return
		}
		_ = c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  http.StatusInternalServerError,
		})
	}
}

// swapStatus maps swap failures onto HTTP status codes.
func swapStatus(err error) int {
	switch {
	case errors.Is(err, swap.ErrNoPairData):
		return http.StatusNotFound
	case errors.Is(err, swap.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, swap.ErrInvalidAmount), errors.Is(err, swap.ErrExactOutUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, swap.ErrQuoteFetchFailed), errors.Is(err, swap.ErrApprovalCheckFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
