package ingest

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/salescontrol/pipeline/internal/datastore"
	"github.com/salescontrol/pipeline/internal/security"
)

const deviceContextKey = "device"

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="ingest"`)
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": detail})
}

// deviceAuth authenticates the bearer secret against the hashed device
// token; the hash lookup is the constant-time surface, so no additional
// timing discipline is needed on top of it.
func (s *Server) deviceAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok {
			return unauthorized(c, "missing or malformed Authorization header")
		}

		device, err := s.devices.GetByTokenHash(c.Request().Context(), security.HashToken(token))
		if err != nil {
			if err == datastore.ErrDeviceNotFound {
				return unauthorized(c, "unknown or disabled device")
			}
			return err
		}

		_ = s.devices.TouchLastSeen(c.Request().Context(), device.DeviceID)
		c.Set(deviceContextKey, device)
		return next(c)
	}
}

// internalAuth guards the internal chunk-fetch endpoint with a shared
// service secret, compared in constant time.
func (s *Server) internalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok || !security.ConstantTimeEquals(token, s.settings.InternalToken) {
			return unauthorized(c, "invalid internal token")
		}
		return next(c)
	}
}

// adminAuth guards device-management endpoints with the admin secret.
func (s *Server) adminAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c)
		if !ok || !security.ConstantTimeEquals(token, s.settings.AdminToken) {
			return unauthorized(c, "invalid admin token")
		}
		return next(c)
	}
}

func deviceFromContext(c echo.Context) *datastore.Device {
	d, _ := c.Get(deviceContextKey).(*datastore.Device)
	return d
}
