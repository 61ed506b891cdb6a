package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SlotStatus string

const (
	// SlotBusy - a plain calendar entry, not offered for exchange.
	SlotBusy SlotStatus = "BUSY"
	// SlotSwappable - the owner offers this slot for exchange.
	SlotSwappable SlotStatus = "SWAPPABLE"
	// SlotSwapPending - locked under an unresolved swap negotiation.
	// This status doubles as the per-slot exclusive lock token: only the
	// exchange coordinator may set or clear it, always via compare-and-set.
	SlotSwapPending SlotStatus = "SWAP_PENDING"
)

// Valid reports whether s is one of the three known statuses.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotBusy, SlotSwappable, SlotSwapPending:
		return true
	}
	return false
}

type Slot struct {
	bun.BaseModel `bun:"table:slots,alias:s"`

	ID        string     `bun:"id,pk" json:"id"`
	Title     string     `bun:"title,notnull" json:"title"`
	StartTime time.Time  `bun:"start_time,notnull" json:"startTime"`
	EndTime   time.Time  `bun:"end_time,notnull" json:"endTime"`
	Status    SlotStatus `bun:"status,notnull" json:"status"`
	OwnerID   string     `bun:"owner_id,notnull" json:"ownerId"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// SwappableSlot is a marketplace row: a swappable slot joined with its
// owner's display name.
type SwappableSlot struct {
	Slot
	OwnerName string `bun:"owner_name" json:"ownerName"`
}
