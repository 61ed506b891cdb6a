package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/slotswapper/slotswapper/config"
	"github.com/slotswapper/slotswapper/database"
	"github.com/slotswapper/slotswapper/services"
	"github.com/slotswapper/slotswapper/utils"
)

// WebApp bundles the handler dependencies.
type WebApp struct {
	Config      *config.Config
	DB          *database.DB // nil when running on the memory driver
	AuthService *services.AuthService
	SlotService *services.SlotService
	SwapService *services.SwapService
	Version     string
}

// HealthCheck reports liveness and, when present, database reachability.
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":  "ok",
			"version": webApp.Version,
		}

		if webApp.DB != nil {
			if err := webApp.DB.Ping(c.Context()); err != nil {
				status["status"] = "degraded"
				status["database"] = "unreachable"
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
			status["database"] = "ok"
		}

		return c.JSON(status)
	}
}

func requireSession(c *fiber.Ctx) (string, error) {
	session, ok := utils.ExtractUserSession(c)
	if !ok {
		return "", utils.SendUnauthorized(c, "Please authenticate")
	}
	return session.ID, nil
}
