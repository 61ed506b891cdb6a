// Package memorystore implements the repository interfaces over
// mutex-guarded maps. It backs tests and the "memory" db driver for local
// development. One lock guards all records, so every operation - including
// the three-write swap resolution - is a single critical section and the
// compare-and-set semantics match the SQL implementations exactly.
package memorystore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/slotswapper/slotswapper/apperrors"
	"github.com/slotswapper/slotswapper/database/models"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	slots    map[string]*models.Slot
	requests map[string]*models.SwapRequest
}

func New() *Store {
	return &Store{
		users:    make(map[string]*models.User),
		slots:    make(map[string]*models.Slot),
		requests: make(map[string]*models.SwapRequest),
	}
}

// Users, Slots and Swaps return repository views over the shared store.
func (s *Store) Users() *UserStore { return &UserStore{s} }
func (s *Store) Slots() *SlotStore { return &SlotStore{s} }
func (s *Store) Swaps() *SwapStore { return &SwapStore{s} }

type UserStore struct{ store *Store }

func (r *UserStore) Create(_ context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.users {
		if existing.Email == user.Email {
			return apperrors.Conflict("email already registered")
		}
	}
	user.CreatedAt = time.Now()
	u := *user
	r.store.users[user.ID] = &u
	return nil
}

func (r *UserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	u := *user
	return &u, nil
}

func (r *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, user := range r.store.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

type SlotStore struct{ store *Store }

func (r *SlotStore) Create(_ context.Context, slot *models.Slot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot.CreatedAt = time.Now()
	slot.UpdatedAt = slot.CreatedAt
	s := *slot
	r.store.slots[slot.ID] = &s
	return nil
}

func (r *SlotStore) GetByID(_ context.Context, id string) (*models.Slot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.getSlotLocked(id)
}

func (r *SlotStore) GetByOwnerID(_ context.Context, ownerID string) ([]*models.Slot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var slots []*models.Slot
	for _, slot := range r.store.slots {
		if slot.OwnerID == ownerID {
			s := *slot
			slots = append(slots, &s)
		}
	}
	sortSlots(slots)
	return slots, nil
}

func (r *SlotStore) GetSwappableExcluding(_ context.Context, ownerID string) ([]*models.SwappableSlot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var slots []*models.SwappableSlot
	for _, slot := range r.store.slots {
		if slot.Status != models.SlotSwappable || slot.OwnerID == ownerID {
			continue
		}
		row := models.SwappableSlot{Slot: *slot}
		if owner, ok := r.store.users[slot.OwnerID]; ok {
			row.OwnerName = owner.Name
		}
		slots = append(slots, &row)
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	return slots, nil
}

func (r *SlotStore) UpdateStatus(_ context.Context, id string, expected, next models.SlotStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[id]
	if !ok {
		return apperrors.NotFound("slot not found")
	}
	if slot.Status != expected {
		return apperrors.Conflict("slot status changed concurrently")
	}
	slot.Status = next
	slot.UpdatedAt = time.Now()
	return nil
}

func (r *SlotStore) Update(_ context.Context, updated *models.Slot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[updated.ID]
	if !ok {
		return apperrors.NotFound("slot not found")
	}
	if slot.Status == models.SlotSwapPending {
		return apperrors.Conflict("slot status changed concurrently")
	}
	slot.Title = updated.Title
	slot.StartTime = updated.StartTime
	slot.EndTime = updated.EndTime
	slot.Status = updated.Status
	slot.UpdatedAt = time.Now()
	return nil
}

func (r *SlotStore) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slot, ok := r.store.slots[id]
	if !ok {
		return apperrors.NotFound("slot not found")
	}
	if slot.Status == models.SlotSwapPending {
		return apperrors.Conflict("slot status changed concurrently")
	}
	delete(r.store.slots, id)
	return nil
}

type SwapStore struct{ store *Store }

func (r *SwapStore) Create(_ context.Context, request *models.SwapRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	request.Status = models.SwapPending
	req := *request
	r.store.requests[request.ID] = &req
	return nil
}

func (r *SwapStore) GetByID(_ context.Context, id string) (*models.SwapRequest, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	request, ok := r.store.requests[id]
	if !ok {
		return nil, apperrors.NotFound("swap request not found")
	}
	req := *request
	return &req, nil
}

func (r *SwapStore) GetForUser(_ context.Context, userID string) ([]*models.SwapRequest, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var requests []*models.SwapRequest
	for _, request := range r.store.requests {
		if request.FromUserID == userID || request.ToUserID == userID {
			req := *request
			requests = append(requests, &req)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (r *SwapStore) Resolve(_ context.Context, requestID, recipientID string, accept bool) (*models.SwapRequest, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, ok := r.store.requests[requestID]
	if !ok || request.ToUserID != recipientID || request.Status != models.SwapPending {
		return nil, apperrors.NotFound("swap request not found")
	}

	mySlot, err := r.store.getSlotRefLocked(request.MySlotID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Sprintf("swap request %s references missing slots", requestID))
	}
	theirSlot, err := r.store.getSlotRefLocked(request.TheirSlotID)
	if err != nil {
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
		mySlot.OwnerID, theirSlot.OwnerID = theirSlot.OwnerID, mySlot.OwnerID
		mySlot.Status = models.SlotBusy
		theirSlot.Status = models.SlotBusy
		request.Status = models.SwapAccepted
	} else {
		mySlot.Status = models.SlotSwappable
		theirSlot.Status = models.SlotSwappable
		request.Status = models.SwapRejected
	}
	mySlot.UpdatedAt = now
	theirSlot.UpdatedAt = now
	request.UpdatedAt = now

	req := *request
	return &req, nil
}

func (s *Store) getSlotLocked(id string) (*models.Slot, error) {
	slot, err := s.getSlotRefLocked(id)
	if err != nil {
		return nil, err
	}
	copied := *slot
	return &copied, nil
}

func (s *Store) getSlotRefLocked(id string) (*models.Slot, error) {
	slot, ok := s.slots[id]
	if !ok {
		return nil, apperrors.NotFound("slot not found")
	}
	return slot, nil
}

func sortSlots(slots []*models.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}
