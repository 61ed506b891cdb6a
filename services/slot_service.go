package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"github.com/slotswapper/slotswapper/apperrors"
	"github.com/slotswapper/slotswapper/database/models"
	"github.com/slotswapper/slotswapper/database/repositories"
)

// SlotService is the slot registry: it owns slot records, their invariants
// and every user-facing mutation. It never touches SWAP_PENDING - entering
// and leaving that status belongs to the swap coordinator alone.
type SlotService struct {
	slots repositories.SlotRepository
}

func NewSlotService(slots repositories.SlotRepository) *SlotService {
	return &SlotService{slots: slots}
}

// SlotPatch carries the owner-editable fields; nil means unchanged.
type SlotPatch struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Status    *models.SlotStatus
}

func (s *SlotService) Create(ctx context.Context, ownerID, title string, start, end time.Time) (*models.Slot, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperrors.Validation("title is required")
	}
	if start.IsZero() || end.IsZero() {
		return nil, apperrors.Validation("start and end times are required")
	}
	if !start.Before(end) {
		return nil, apperrors.Validation("start time must be before end time")
	}

	slot := &models.Slot{
		ID:        uuid.NewString(),
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Status:    models.SlotBusy,
		OwnerID:   ownerID,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}

	slog.Info("Slot created",
		slog.String("slot_id", slot.ID),
		slog.String("owner_id", ownerID),
	)
	return slot, nil
}

func (s *SlotService) Get(ctx context.Context, id string) (*models.Slot, error) {
	return s.slots.GetByID(ctx, id)
}

func (s *SlotService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Slot, error) {
	return s.slots.GetByOwnerID(ctx, ownerID)
}

// ListSwappable returns the marketplace view: other users' SWAPPABLE slots
// with owner names. A non-empty query ranks results by fuzzy title match.
func (s *SlotService) ListSwappable(ctx context.Context, requesterID, query string) ([]*models.SwappableSlot, error) {
	slots, err := s.slots.GetSwappableExcluding(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return slots, nil
	}

	titles := make([]string, len(slots))
	for i, slot := range slots {
		titles[i] = slot.Title
	}

	matches := fuzzy.Find(query, titles)
	ranked := make([]*models.SwappableSlot, 0, len(matches))
	for _, match := range matches {
		ranked = append(ranked, slots[match.Index])
	}
	return ranked, nil
}

func (s *SlotService) Update(ctx context.Context, requesterID, id string, patch SlotPatch) (*models.Slot, error) {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot.OwnerID != requesterID {
		return nil, apperrors.Forbidden("not the slot owner")
	}
	// A slot under negotiation is frozen against unilateral edits.
	if slot.Status == models.SlotSwapPending {
		return nil, apperrors.Conflict("slot is locked by a pending swap")
	}

	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return nil, apperrors.Validation("title is required")
		}
		slot.Title = *patch.Title
	}
	if patch.StartTime != nil {
		slot.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		slot.EndTime = *patch.EndTime
	}
	if !slot.StartTime.Before(slot.EndTime) {
		return nil, apperrors.Validation("start time must be before end time")
	}
	if patch.Status != nil {
		// Owners only toggle BUSY and SWAPPABLE; SWAP_PENDING is the
		// coordinator's lock token, never settable by edit.
		if *patch.Status != models.SlotBusy && *patch.Status != models.SlotSwappable {
			return nil, apperrors.Validation("status must be BUSY or SWAPPABLE")
		}
		slot.Status = *patch.Status
	}
	slot.UpdatedAt = time.Now()

	// The repository re-checks SWAP_PENDING at the write, closing the race
	// with a concurrent propose.
	if err := s.slots.Update(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *SlotService) Delete(ctx context.Context, requesterID, id string) error {
	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if slot.OwnerID != requesterID {
		return apperrors.Forbidden("not the slot owner")
	}
	if slot.Status == models.SlotSwapPending {
		return apperrors.Conflict("slot is locked by a pending swap")
	}

	if err := s.slots.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("Slot deleted",
		slog.String("slot_id", id),
		slog.String("owner_id", requesterID),
	)
	return nil
}
