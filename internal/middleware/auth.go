package middleware

import (
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// RequireAuth returns a middleware that authenticates academy staff via
// Firebase: either a session cookie or a Bearer ID token is accepted.
func RequireAuth(authClient *auth.Client) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authClient == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication is not configured")
			}

			ctx := c.Request().Context()

			// Session cookie first
			if cookie, err := c.Cookie("session"); err == nil && cookie.Value != "" {
				if decoded, err := authClient.VerifySessionCookie(ctx, cookie.Value); err == nil {
					setUserContext(c, decoded.UID, decoded.Claims)
					return next(c)
				}
				// Invalid session, clear the cookie before rejecting
				c.SetCookie(&http.Cookie{
					Name:     "session",
					Value:    "",
					MaxAge:   -1,
					HttpOnly: true,
					Path:     "/",
				})
			}

			// Fall back to a Bearer ID token
			authHeader := c.Request().Header.Get("Authorization")
			if token := strings.TrimPrefix(authHeader, "Bearer "); token != "" && token != authHeader {
				if decoded, err := authClient.VerifyIDToken(ctx, token); err == nil {
					setUserContext(c, decoded.UID, decoded.Claims)
					return next(c)
				}
			}

			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
	}
}

// RequireJobToken guards the externally triggered job endpoints. Only the
// presence of a Bearer token is checked; the value itself is not matched
// against anything.
func RequireJobToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
			}
			return next(c)
		}
	}
}

func setUserContext(c echo.Context, uid string, claims map[string]interface{}) {
	c.Set("userUID", uid)
	if email, ok := claims["email"].(string); ok {
		c.Set("userEmail", email)
	}
	if name, ok := claims["name"].(string); ok {
		c.Set("userName", name)
	}
}
