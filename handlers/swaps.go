package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/slotswapper/slotswapper/models"
	"github.com/slotswapper/slotswapper/utils"
)

// SwapRequestCreate proposes a swap between the caller's slot and another
// user's slot, locking both into SWAP_PENDING.
func SwapRequestCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		var req models.SwapProposalRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if details := utils.ValidateStruct(req); details != nil {
			return utils.SendValidationError(c, "Validation failed", details)
		}

		request, err := webApp.SwapService.Propose(c.Context(), userID, req.MySlotID, req.TheirSlotID)
		if err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendCreated(c, request, "Swap proposed")
	}
}

// SwapResponse accepts or rejects a pending swap request addressed to the
// caller.
func SwapResponse(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		var req models.SwapResponseRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if details := utils.ValidateStruct(req); details != nil {
			return utils.SendValidationError(c, "Validation failed", details)
		}

		request, err := webApp.SwapService.Respond(c.Context(), userID, c.Params("requestId"), req.Action)
		if err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendSuccess(c, request, "Swap resolved")
	}
}

// SwapRequestsList returns the caller's swap requests, enriched with slot
// data, display names and the incoming flag.
func SwapRequestsList(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		requests, err := webApp.SwapService.ListForUser(c.Context(), userID)
		if err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendSuccess(c, requests, "")
	}
}
