package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/slotswapper/slotswapper/apperrors"
	"github.com/slotswapper/slotswapper/database/models"
	"github.com/slotswapper/slotswapper/database/repositories"
	"github.com/slotswapper/slotswapper/logger"
	"golang.org/x/sync/errgroup"
)

const (
	ActionAccept = "ACCEPT"
	ActionReject = "REJECT"

	nameCacheSize  = 256
	enrichParallel = 4
)

// SwapService is the exchange coordinator. It drives the swap state machine
// and guarantees that a swap either transfers ownership of both slots or
// leaves both unchanged. SWAP_PENDING doubles as the per-slot lock: the two
// compare-and-set transitions in Propose are the only way in, and Resolve's
// transaction is the only way out.
type SwapService struct {
	slots repositories.SlotRepository
	swaps repositories.SwapRepository
	users repositories.UserRepository
	names *lru.Cache
}

func NewSwapService(
	slots repositories.SlotRepository,
	swaps repositories.SwapRepository,
	users repositories.UserRepository,
) *SwapService {
	names, _ := lru.New(nameCacheSize)
	return &SwapService{
		slots: slots,
		swaps: swaps,
		users: users,
		names: names,
	}
}

// Propose validates both slots, locks them into SWAP_PENDING and creates a
// PENDING request. On any failure after the first lock it compensates,
// reverting acquired locks before returning, so no partial lock survives.
func (s *SwapService) Propose(ctx context.Context, proposerID, mySlotID, theirSlotID string) (*models.SwapRequest, error) {
	mySlot, err := s.slots.GetByID(ctx, mySlotID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.Invalid("your slot must be swappable")
		}
		return nil, err
	}
	if mySlot.OwnerID != proposerID || mySlot.Status != models.SlotSwappable {
		return nil, apperrors.Invalid("your slot must be swappable")
	}

	theirSlot, err := s.slots.GetByID(ctx, theirSlotID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.Invalid("invalid target slot")
		}
		return nil, err
	}
	if theirSlot.Status != models.SlotSwappable || theirSlot.OwnerID == proposerID {
		return nil, apperrors.Invalid("invalid target slot")
	}

	// Lock my slot first. Losing this compare-and-set means another
	// proposal won the race; nothing was written, so just report conflict.
	if err := s.slots.UpdateStatus(ctx, mySlotID, models.SlotSwappable, models.SlotSwapPending); err != nil {
		return nil, raceConflict(err, "your slot is no longer swappable")
	}

	// Lock their slot. On failure the half-acquired lock must be released
	// before the error is returned.
	if err := s.slots.UpdateStatus(ctx, theirSlotID, models.SlotSwappable, models.SlotSwapPending); err != nil {
		s.compensate(ctx, mySlotID)
		return nil, raceConflict(err, "target slot is no longer swappable")
	}

	request := &models.SwapRequest{
		ID:          uuid.NewString(),
		MySlotID:    mySlotID,
		TheirSlotID: theirSlotID,
		FromUserID:  proposerID,
		ToUserID:    theirSlot.OwnerID,
	}
	if err := s.swaps.Create(ctx, request); err != nil {
		s.compensate(ctx, theirSlotID)
		s.compensate(ctx, mySlotID)
		return nil, err
	}

	logger.LogSwap("Swap proposed",
		slog.String("request_id", request.ID),
		slog.String("from_user_id", proposerID),
		slog.String("to_user_id", request.ToUserID),
		slog.String("my_slot_id", mySlotID),
		slog.String("their_slot_id", theirSlotID),
	)
	return request, nil
}

// Respond resolves a pending request exactly once, on behalf of its
// recipient. Accept swaps ownership and parks both slots BUSY; reject
// releases both back to SWAPPABLE. Either way all writes land atomically in
// the repository's resolve transaction.
func (s *SwapService) Respond(ctx context.Context, recipientID, requestID, action string) (*models.SwapRequest, error) {
	var accept bool
	switch action {
	case ActionAccept:
		accept = true
	case ActionReject:
		accept = false
	default:
		return nil, apperrors.Validation("action must be ACCEPT or REJECT")
	}

	request, err := s.swaps.Resolve(ctx, requestID, recipientID, accept)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindInternal) {
			logger.LogError("Swap resolution invariant violated", err,
				slog.String("request_id", requestID),
			)
		}
		return nil, err
	}

	logger.LogSwap("Swap responded",
		slog.String("request_id", request.ID),
		slog.String("recipient_id", recipientID),
		slog.String("status", string(request.Status)),
	)
	return request, nil
}

// ListForUser returns every request the user proposed or received, enriched
// with both slots' current data, both display names and an incoming flag.
func (s *SwapService) ListForUser(ctx context.Context, userID string) ([]*models.SwapRequestDetails, error) {
	requests, err := s.swaps.GetForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	details := make([]*models.SwapRequestDetails, len(requests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichParallel)

	for i, request := range requests {
		i, request := i, request
		g.Go(func() error {
			d := &models.SwapRequestDetails{
				SwapRequest: *request,
				Incoming:    request.ToUserID == userID,
			}

			// Slots may have been deleted after the request resolved;
			// the ledger entry still lists.
			if slot, err := s.slots.GetByID(gctx, request.MySlotID); err == nil {
				d.MySlot = slot
			} else if !apperrors.IsKind(err, apperrors.KindNotFound) {
				return err
			}
			if slot, err := s.slots.GetByID(gctx, request.TheirSlotID); err == nil {
				d.TheirSlot = slot
			} else if !apperrors.IsKind(err, apperrors.KindNotFound) {
				return err
			}

			var err error
			if d.FromName, err = s.displayName(gctx, request.FromUserID); err != nil {
				return err
			}
			if d.ToName, err = s.displayName(gctx, request.ToUserID); err != nil {
				return err
			}

			details[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

// displayName resolves a user's name through a small LRU cache; names are
// immutable once registered.
func (s *SwapService) displayName(ctx context.Context, userID string) (string, error) {
	if name, ok := s.names.Get(userID); ok {
		return name.(string), nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return "", nil
		}
		return "", err
	}

	s.names.Add(userID, user.Name)
	return user.Name, nil
}

// compensate releases a slot lock acquired earlier in a failed propose. A
// failure here means the slot was mutated outside the protocol and can only
// be logged; nothing else may hold SWAP_PENDING.
func (s *SwapService) compensate(ctx context.Context, slotID string) {
	if err := s.slots.UpdateStatus(ctx, slotID, models.SlotSwapPending, models.SlotSwappable); err != nil {
		logger.LogError("Failed to release slot lock during compensation", err,
			slog.String("slot_id", slotID),
		)
	}
}

func raceConflict(err error, message string) error {
	if apperrors.IsKind(err, apperrors.KindConflict) || apperrors.IsKind(err, apperrors.KindNotFound) {
		return apperrors.Conflict(message)
	}
	return err
}
