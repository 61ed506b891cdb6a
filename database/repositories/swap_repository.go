package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/slotswapper/slotswapper/apperrors"
	"github.com/slotswapper/slotswapper/database/models"
	"github.com/uptrace/bun"
)

type SwapRepository interface {
	Create(ctx context.Context, request *models.SwapRequest) error
	GetByID(ctx context.Context, id string) (*models.SwapRequest, error)
	GetForUser(ctx context.Context, userID string) ([]*models.SwapRequest, error)
	// Resolve applies the terminal transition of a pending request as one
	// atomic unit: on accept both slots exchange owners and become BUSY, on
	// reject both revert to SWAPPABLE; either way the request status is
	// written in the same transaction. No caller ever observes a mix of
	// pre- and post-states.
	Resolve(ctx context.Context, requestID, recipientID string, accept bool) (*models.SwapRequest, error)
}

type swapRepository struct {
	db *bun.DB
}

func NewSwapRepository(db *bun.DB) SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, request *models.SwapRequest) error {
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	request.Status = models.SwapPending

	_, err := r.db.NewInsert().Model(request).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create swap request: %w", err)
	}
	return nil
}

func (r *swapRepository) GetByID(ctx context.Context, id string) (*models.SwapRequest, error) {
	request := new(models.SwapRequest)
	err := r.db.NewSelect().
		Model(request).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("swap request not found")
		}
		return nil, fmt.Errorf("failed to get swap request: %w", err)
	}
	return request, nil
}

func (r *swapRepository) GetForUser(ctx context.Context, userID string) ([]*models.SwapRequest, error) {
	var requests []*models.SwapRequest
	err := r.db.NewSelect().
		Model(&requests).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to get swap requests for user: %w", err)
	}
	return requests, nil
}

func (r *swapRepository) Resolve(ctx context.Context, requestID, recipientID string, accept bool) (*models.SwapRequest, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the request row, scoped to the recipient and the pending status.
	// A second responder, or a responder that is not the recipient, matches
	// no row here regardless of the storage isolation level.
	request := new(models.SwapRequest)
	err = tx.NewSelect().
		Model(request).
		Where("id = ? AND to_user_id = ? AND status = ?", requestID, recipientID, models.SwapPending).
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("swap request not found")
		}
		return nil, fmt.Errorf("failed to get swap request: %w", err)
	}

	// Lock both slots in one statement, ordered by id, so two resolves
	// touching overlapping slots cannot deadlock.
	var slots []*models.Slot
	err = tx.NewSelect().
		Model(&slots).
		Where("id IN (?)", bun.In([]string{request.MySlotID, request.TheirSlotID})).
		OrderExpr("id ASC").
		For("UPDATE").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to lock slots: %w", err)
	}

	var mySlot, theirSlot *models.Slot
	for _, slot := range slots {
		switch slot.ID {
		case request.MySlotID:
			mySlot = slot
		case request.TheirSlotID:
			theirSlot = slot
		}
	}

	// Both slots were locked into SWAP_PENDING when the request was created
	// and nothing else may unlock them. Any deviation is a protocol bug.
	if mySlot == nil || theirSlot == nil {
		return nil, apperrors.Internal(fmt.Sprintf("swap request %s references missing slots", requestID))
	}
	if mySlot.Status != models.SlotSwapPending || theirSlot.Status != models.SlotSwapPending {
		return nil, apperrors.Internal(fmt.Sprintf(
			"swap request %s slots not locked: %s=%s %s=%s",
			requestID, mySlot.ID, mySlot.Status, theirSlot.ID, theirSlot.Status,
		))
	}

	now := time.Now()
	if accept {
		// Exchange owners; both slots land BUSY in their new calendars.
		if err := updateSlotTx(ctx, tx, mySlot.ID, theirSlot.OwnerID, models.SlotBusy, now); err != nil {
			return nil, err
		}
		if err := updateSlotTx(ctx, tx, theirSlot.ID, mySlot.OwnerID, models.SlotBusy, now); err != nil {
			return nil, err
		}
		request.Status = models.SwapAccepted
	} else {
		if err := updateSlotTx(ctx, tx, mySlot.ID, mySlot.OwnerID, models.SlotSwappable, now); err != nil {
			return nil, err
		}
		if err := updateSlotTx(ctx, tx, theirSlot.ID, theirSlot.OwnerID, models.SlotSwappable, now); err != nil {
			return nil, err
		}
		request.Status = models.SwapRejected
	}

	request.UpdatedAt = now
	_, err = tx.NewUpdate().
		Model(request).
		Column("status", "updated_at").
		Where("id = ?", request.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update swap request status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit swap resolution: %w", err)
	}

	slog.Info("Swap request resolved",
		slog.String("type", "swap"),
		slog.String("request_id", request.ID),
		slog.String("status", string(request.Status)),
	)
	return request, nil
}

func updateSlotTx(ctx context.Context, tx bun.Tx, slotID, ownerID string, status models.SlotStatus, now time.Time) error {
	_, err := tx.NewUpdate().
		Model((*models.Slot)(nil)).
		Set("owner_id = ?", ownerID).
		Set("status = ?", status).
		Set("updated_at = ?", now).
		Where("id = ?", slotID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update slot %s: %w", slotID, err)
	}
	return nil
}
