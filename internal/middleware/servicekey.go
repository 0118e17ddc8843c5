package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
	"github.com/iliyamo/meeting-room-reservation/internal/utils"
)

// ServiceKeyHeader carries the shared secret of internal callers.
const ServiceKeyHeader = "X-Service-Key"

// ServiceKeyOrJWT authenticates internal services by a shared key checked
// against a bcrypt hash, and everyone else by bearer token.  A request
// presenting the header is judged on the key alone.  With an empty hash
// the header is ignored and only tokens are accepted.
func ServiceKeyOrJWT(keyHash, jwtSecret string) echo.MiddlewareFunc {
	jwtAuth := JWTAuth(jwtSecret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		viaToken := jwtAuth(next)
		return func(c echo.Context) error {
			key := c.Request().Header.Get(ServiceKeyHeader)
			if key == "" || keyHash == "" {
				return viaToken(c)
			}
			if !utils.VerifySecret(keyHash, key) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid service key"})
			}
			setActor(c, model.Actor{Role: model.RoleServiceAccount})
			return next(c)
		}
	}
}
