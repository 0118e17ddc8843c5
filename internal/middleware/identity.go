package middleware

// identity.go defines the context keys shared by the auth middleware and
// the handlers.  The authenticated caller is stored once as a
// model.Actor; user_id and role are kept alongside for log fields and
// rate-limit keys.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

const (
	actorKey  = "actor"
	userIDKey = "user_id"
	roleKey   = "role"
)

func setActor(c echo.Context, a model.Actor) {
	c.Set(actorKey, a)
	c.Set(userIDKey, strconv.FormatUint(a.UserID, 10))
	c.Set(roleKey, string(a.Role))
}

// ActorFrom returns the authenticated caller.  ok is false when no auth
// middleware ran for the request.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(actorKey).(model.Actor)
	return a, ok
}

// userID returns the caller's id for keys and logs, or "anon".
func userID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok && s != "" {
		return s
	}
	return "anon"
}
