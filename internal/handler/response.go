package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/service"
)

const msgInternal = "Internal Server Error"

// Per-request budgets for the service calls.  Endpoints that hand a message
// to the mail transport get more room than plain store round trips.
var (
	storeTimeout = 5 * time.Second
	mailTimeout  = 15 * time.Second
)

func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

// ok writes {success:true, message, ...extra}.
func ok(c echo.Context, status int, msg string, extra echo.Map) error {
	body := echo.Map{"success": true, "message": msg}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// outcome is the client-facing rendering of one expected failure.
type outcome struct {
	status int
	msg    string
}

// respondErr maps a service error through table.  Validation errors carry
// their own message; anything unmatched is logged and rendered as 500.
func respondErr(c echo.Context, log logging.Logger, op string, err error, table map[error]outcome) error {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		return fail(c, http.StatusBadRequest, ve.Msg)
	}
	for target, o := range table {
		if errors.Is(err, target) {
			return fail(c, o.status, o.msg)
		}
	}
	log.Error(c.Request().Context(), op+" failed", "err", err)
	return fail(c, http.StatusInternalServerError, msgInternal)
}

// ErrorHandler renders errors escaping handlers and middleware (unknown
// routes, bad methods, panics turned into errors by Recover) in the
// standard envelope.
func ErrorHandler(log logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		msg := msgInternal
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			switch {
			case status == http.StatusNotFound:
				msg = "API route not found"
			case status < http.StatusInternalServerError:
				if m, isStr := he.Message.(string); isStr {
					msg = m
				} else {
					msg = http.StatusText(status)
				}
			}
		}
		if status >= http.StatusInternalServerError {
			log.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Request().URL.Path, "err", err)
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = fail(c, status, msg)
	}
}
