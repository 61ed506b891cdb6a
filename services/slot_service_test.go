package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/slotswapper/slotswapper/apperrors"
	"github.com/slotswapper/slotswapper/database/memorystore"
	"github.com/slotswapper/slotswapper/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusPtr(s models.SlotStatus) *models.SlotStatus { return &s }
func strPtr(s string) *string                          { return &s }

func TestSlotCreate(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name     string
		title    string
		start    time.Time
		end      time.Time
		wantKind apperrors.Kind
		wantOK   bool
	}{
		{name: "valid slot", title: "Gym", start: start, end: end, wantOK: true},
		{name: "blank title", title: "   ", start: start, end: end, wantKind: apperrors.KindValidation},
		{name: "zero start", title: "Gym", end: end, wantKind: apperrors.KindValidation},
		{name: "start equals end", title: "Gym", start: start, end: start, wantKind: apperrors.KindValidation},
		{name: "start after end", title: "Gym", start: end, end: start, wantKind: apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSlotService(memorystore.New().Slots())
			slot, err := svc.Create(ctx, "alice", tt.title, tt.start, tt.end)
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, models.SlotBusy, slot.Status, "new slots start BUSY")
				assert.Equal(t, "alice", slot.OwnerID)
				assert.NotEmpty(t, slot.ID)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestSlotUpdate_StatusToggle(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	svc := NewSlotService(store.Slots())

	slot, err := svc.Create(ctx, "alice", "Gym", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "alice", slot.ID, SlotPatch{Status: statusPtr(models.SlotSwappable)})
	require.NoError(t, err)
	assert.Equal(t, models.SlotSwappable, updated.Status)

	updated, err = svc.Update(ctx, "alice", slot.ID, SlotPatch{Status: statusPtr(models.SlotBusy)})
	require.NoError(t, err)
	assert.Equal(t, models.SlotBusy, updated.Status)

	// SWAP_PENDING is not a settable status.
	_, err = svc.Update(ctx, "alice", slot.ID, SlotPatch{Status: statusPtr(models.SlotSwapPending)})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestSlotUpdate_Guards(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	svc := NewSlotService(store.Slots())

	slot, err := svc.Create(ctx, "alice", "Gym", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	t.Run("not the owner", func(t *testing.T) {
		_, err := svc.Update(ctx, "bob", slot.ID, SlotPatch{Title: strPtr("Hijacked")})
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	})

	t.Run("unknown slot", func(t *testing.T) {
		_, err := svc.Update(ctx, "alice", uuid.NewString(), SlotPatch{Title: strPtr("X")})
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	})

	t.Run("blank title", func(t *testing.T) {
		_, err := svc.Update(ctx, "alice", slot.ID, SlotPatch{Title: strPtr("  ")})
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("end moved before start", func(t *testing.T) {
		bad := slot.StartTime.Add(-time.Minute)
		_, err := svc.Update(ctx, "alice", slot.ID, SlotPatch{EndTime: &bad})
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("locked by pending swap", func(t *testing.T) {
		require.NoError(t, store.Slots().UpdateStatus(ctx, slot.ID, models.SlotBusy, models.SlotSwapPending))
		defer func() {
			require.NoError(t, store.Slots().UpdateStatus(ctx, slot.ID, models.SlotSwapPending, models.SlotBusy))
		}()

		_, err := svc.Update(ctx, "alice", slot.ID, SlotPatch{Title: strPtr("Frozen")})
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	})
}

func TestSlotDelete(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	svc := NewSlotService(store.Slots())

	slot, err := svc.Create(ctx, "alice", "Gym", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = svc.Delete(ctx, "bob", slot.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))

	require.NoError(t, store.Slots().UpdateStatus(ctx, slot.ID, models.SlotBusy, models.SlotSwapPending))
	err = svc.Delete(ctx, "alice", slot.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	require.NoError(t, store.Slots().UpdateStatus(ctx, slot.ID, models.SlotSwapPending, models.SlotBusy))

	require.NoError(t, svc.Delete(ctx, "alice", slot.ID))
	_, err = svc.Get(ctx, slot.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListSwappable(t *testing.T) {
	ctx := context.Background()
	store := memorystore.New()
	svc := NewSlotService(store.Slots())

	require.NoError(t, store.Users().Create(ctx, &models.User{ID: "bob", Name: "Bob", Email: "bob@example.com"}))

	add := func(ownerID, title string, status models.SlotStatus) *models.Slot {
		slot := &models.Slot{
			ID:        uuid.NewString(),
			Title:     title,
			StartTime: time.Now(),
			EndTime:   time.Now().Add(time.Hour),
			Status:    status,
			OwnerID:   ownerID,
		}
		require.NoError(t, store.Slots().Create(ctx, slot))
		return slot
	}

	add("alice", "My own offer", models.SlotSwappable)
	add("bob", "Morning standup", models.SlotBusy)
	piano := add("bob", "Piano lesson", models.SlotSwappable)
	guitar := add("bob", "Guitar practice", models.SlotSwappable)

	t.Run("excludes own and busy slots", func(t *testing.T) {
		rows, err := svc.ListSwappable(ctx, "alice", "")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.Equal(t, "bob", row.OwnerID)
			assert.Equal(t, "Bob", row.OwnerName)
			assert.Equal(t, models.SlotSwappable, row.Status)
		}
	})

	t.Run("query filters by fuzzy title match", func(t *testing.T) {
		rows, err := svc.ListSwappable(ctx, "alice", "piano")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, piano.ID, rows[0].ID)
	})

	t.Run("no match yields empty result", func(t *testing.T) {
		rows, err := svc.ListSwappable(ctx, "alice", "zzzzzz")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("guitar is findable too", func(t *testing.T) {
		rows, err := svc.ListSwappable(ctx, "alice", "guitar")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, guitar.ID, rows[0].ID)
	})
}
