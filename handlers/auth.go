package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/slotswapper/slotswapper/models"
	"github.com/slotswapper/slotswapper/utils"
)

// Signup registers a new user and returns a bearer token.
func Signup(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.SignupRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if details := utils.ValidateStruct(req); details != nil {
			return utils.SendValidationError(c, "Validation failed", details)
		}

		user, token, err := webApp.AuthService.Signup(c.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			return utils.SendAppError(c, err)
		}

		return utils.SendCreated(c, models.AuthResponse{
			Token: token,
			User:  &models.UserSession{ID: user.ID, Name: user.Name, Email: user.Email},
		}, "Account created")
	}
}

// Login verifies credentials and returns a bearer token.
func Login(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if details := utils.ValidateStruct(req); details != nil {
			return utils.SendValidationError(c, "Validation failed", details)
		}

		user, token, err := webApp.AuthService.Login(c.Context(), req.Email, req.Password)
		if err != nil {
			return utils.SendAppError(c, err)
		}

		return utils.SendSuccess(c, models.AuthResponse{
			Token: token,
			User:  &models.UserSession{ID: user.ID, Name: user.Name, Email: user.Email},
		}, "Logged in")
	}
}
