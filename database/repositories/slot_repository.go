package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/slotswapper/slotswapper/apperrors"
	"github.com/slotswapper/slotswapper/database/models"
	"github.com/uptrace/bun"
)

type SlotRepository interface {
	Create(ctx context.Context, slot *models.Slot) error
	GetByID(ctx context.Context, id string) (*models.Slot, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]*models.Slot, error)
	GetSwappableExcluding(ctx context.Context, ownerID string) ([]*models.SwappableSlot, error)
	// UpdateStatus transitions the slot's status only if the current status
	// equals expected. The losing side of a race always gets a conflict,
	// never a silent overwrite.
	UpdateStatus(ctx context.Context, id string, expected, next models.SlotStatus) error
	// Update applies title/time/status edits. The write is guarded against
	// SWAP_PENDING so a slot under negotiation cannot be changed
	// unilaterally, even if its status moved after the caller's read.
	Update(ctx context.Context, slot *models.Slot) error
	// Delete removes the slot, refusing while SWAP_PENDING.
	Delete(ctx context.Context, id string) error
}

type slotRepository struct {
	db *bun.DB
}

func NewSlotRepository(db *bun.DB) SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) Create(ctx context.Context, slot *models.Slot) error {
	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt

	_, err := r.db.NewInsert().Model(slot).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *slotRepository) GetByID(ctx context.Context, id string) (*models.Slot, error) {
	slot := new(models.Slot)
	err := r.db.NewSelect().
		Model(slot).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("slot not found")
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

func (r *slotRepository) GetByOwnerID(ctx context.Context, ownerID string) ([]*models.Slot, error) {
	var slots []*models.Slot
	err := r.db.NewSelect().
		Model(&slots).
		Where("owner_id = ?", ownerID).
		Order("start_time ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get slots by owner: %w", err)
	}
	return slots, nil
}

func (r *slotRepository) GetSwappableExcluding(ctx context.Context, ownerID string) ([]*models.SwappableSlot, error) {
	var slots []*models.SwappableSlot
	err := r.db.NewSelect().
		TableExpr("slots AS s").
		ColumnExpr("s.*").
		ColumnExpr("u.name AS owner_name").
		Join("JOIN users AS u ON u.id = s.owner_id").
		Where("s.status = ?", models.SlotSwappable).
		Where("s.owner_id != ?", ownerID).
		OrderExpr("s.start_time ASC").
		Scan(ctx, &slots)

	if err != nil {
		return nil, fmt.Errorf("failed to get swappable slots: %w", err)
	}
	return slots, nil
}

func (r *slotRepository) UpdateStatus(ctx context.Context, id string, expected, next models.SlotStatus) error {
	result, err := r.db.NewUpdate().
		Model((*models.Slot)(nil)).
		Set("status = ?", next).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, expected).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update slot status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *slotRepository) Update(ctx context.Context, slot *models.Slot) error {
	result, err := r.db.NewUpdate().
		Model(slot).
		Column("title", "start_time", "end_time", "status", "updated_at").
		Where("id = ? AND status != ?", slot.ID, models.SlotSwapPending).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return r.missOrConflict(ctx, slot.ID)
	}
	return nil
}

func (r *slotRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NewDelete().
		Model((*models.Slot)(nil)).
		Where("id = ? AND status != ?", id, models.SlotSwapPending).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

// missOrConflict distinguishes a guarded write that matched no rows: the
// slot either does not exist or its current status blocked the write.
func (r *slotRepository) missOrConflict(ctx context.Context, id string) error {
	exists, err := r.db.NewSelect().
		Model((*models.Slot)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check slot existence: %w", err)
	}
	if !exists {
		return apperrors.NotFound("slot not found")
	}
	return apperrors.Conflict("slot status changed concurrently")
}
