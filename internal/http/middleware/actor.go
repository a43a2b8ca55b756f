package middleware

import (
	"github.com/gofiber/fiber/v2"

	"certdocs/internal/model"
)

const (
	ActorIDHeader    = "X-Actor-ID"
	ActorEmailHeader = "X-Actor-Email"
	ActorRoleHeader  = "X-Actor-Role"

	// ActorLocalKey is the key used to store the acting model.Actor in Fiber's context locals.
	ActorLocalKey = "actor"
)

// Actor reads the identity forwarded by the authenticating gateway and stores it
// under ActorLocalKey. Requests without an id or with an unknown role are rejected with 401.
func Actor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(ActorIDHeader)
		if id == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing "+ActorIDHeader)
		}
		role, err := model.ParseRole(c.Get(ActorRoleHeader))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid "+ActorRoleHeader)
		}

		c.Locals(ActorLocalKey, model.Actor{
			ID:    id,
			Email: c.Get(ActorEmailHeader),
			Role:  role,
		})
		return c.Next()
	}
}

// ActorFromCtx returns the actor stored by Actor.
func ActorFromCtx(c *fiber.Ctx) (model.Actor, bool) {
	a, ok := c.Locals(ActorLocalKey).(model.Actor)
	return a, ok
}
