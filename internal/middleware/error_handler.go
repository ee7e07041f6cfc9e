package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CustomErrorHandler creates a centralized JSON error handler for Echo.
// Handlers raise echo.HTTPError with a status matching the error taxonomy
// (401 auth, 400 validation, 404 not found, 500 everything else); anything
// that is not an HTTPError becomes a generic 500 without leaking internals.
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	errorMessage := ""

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			errorMessage = msg
		}
	}

	if errorMessage == "" {
		switch code {
		case http.StatusNotFound:
			errorMessage = "The requested resource doesn't exist."
		case http.StatusForbidden:
			errorMessage = "You don't have permission to access this resource."
		case http.StatusUnauthorized:
			errorMessage = "Please log in to continue."
		case http.StatusBadRequest:
			errorMessage = "The request could not be processed."
		default:
			errorMessage = "Something went wrong. Please try again later."
		}
	}

	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}

	if writeErr := c.JSON(code, map[string]interface{}{
		"error": errorMessage,
	}); writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
