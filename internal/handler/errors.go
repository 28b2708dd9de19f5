package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "formini/internal/errors"
	"formini/internal/logging"
)

// HTTPErrorHandler renders every error returned by a handler or middleware as an
// ErrorResponse. Domain errors go through MapErrorToHTTP; echo's own errors (unknown
// route, wrong method, oversized body) keep their status.
func HTTPErrorHandler(logger logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var resp apperrors.ErrorResponse
		var status int

		var he *echo.HTTPError
		if errors.As(err, &he) && !isDomainError(err) {
			status = he.Code
			resp = apperrors.ErrorResponse{
				Error: http.StatusText(status),
				Code:  codeForStatus(status),
			}
			if msg, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
				resp.Error = msg
			}
		} else {
			httpErr := apperrors.MapErrorToHTTP(err)
			status = httpErr.StatusCode
			resp = httpErr.ToErrorResponse()
		}

		if status >= http.StatusInternalServerError {
			logger.Error(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Path(), "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			logger.Error(c.Request().Context(), "write error response", "error", err)
		}
	}
}

func isDomainError(err error) bool {
	var e *apperrors.Error
	return errors.As(err, &e)
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return string(apperrors.KindInvalidToken)
	case status == http.StatusBadRequest:
		return string(apperrors.KindValidation)
	case status >= http.StatusInternalServerError:
		return string(apperrors.KindInternal)
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// bindError reports a body that could not be decoded.
func bindError() error {
	return apperrors.Validation("invalid request body")
}
