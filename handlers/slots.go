package handlers

import (
	"github.com/gofiber/fiber/v2"
	dbmodels "github.com/slotswapper/slotswapper/database/models"
	"github.com/slotswapper/slotswapper/models"
	"github.com/slotswapper/slotswapper/services"
	"github.com/slotswapper/slotswapper/utils"
)

// EventsList returns the caller's own slots.
func EventsList(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		slots, err := webApp.SlotService.ListByOwner(c.Context(), userID)
		if err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendSuccess(c, slots, "")
	}
}

// EventsCreate adds a slot to the caller's calendar, status BUSY.
func EventsCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		var req models.CreateSlotRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if details := utils.ValidateStruct(req); details != nil {
			return utils.SendValidationError(c, "Validation failed", details)
		}

		slot, err := webApp.SlotService.Create(c.Context(), userID, req.Title, req.StartTime, req.EndTime)
		if err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendCreated(c, slot, "Slot created")
	}
}

// EventsUpdate applies a patch to the caller's slot.
func EventsUpdate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		var req models.UpdateSlotRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendValidationError(c, "Invalid request body", nil)
		}
		if details := utils.ValidateStruct(req); details != nil {
			return utils.SendValidationError(c, "Validation failed", details)
		}

		patch := services.SlotPatch{
			Title:     req.Title,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		}
		if req.Status != nil {
			status := dbmodels.SlotStatus(*req.Status)
			patch.Status = &status
		}

		slot, err := webApp.SlotService.Update(c.Context(), userID, c.Params("id"), patch)
		if err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendSuccess(c, slot, "Slot updated")
	}
}

// EventsDelete removes the caller's slot unless it is under negotiation.
func EventsDelete(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		if err := webApp.SlotService.Delete(c.Context(), userID, c.Params("id")); err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendNoContent(c)
	}
}

// SwappableSlots returns the marketplace: other users' SWAPPABLE slots,
// optionally filtered by a fuzzy title query (?q=).
func SwappableSlots(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := requireSession(c)
		if err != nil {
			return err
		}

		slots, err := webApp.SlotService.ListSwappable(c.Context(), userID, c.Query("q"))
		if err != nil {
			return utils.SendAppError(c, err)
		}
		return utils.SendSuccess(c, slots, "")
	}
}
