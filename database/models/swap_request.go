package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SwapStatus string

const (
	SwapPending  SwapStatus = "PENDING"
	SwapAccepted SwapStatus = "ACCEPTED"
	SwapRejected SwapStatus = "REJECTED"
)

// Terminal reports whether the request can no longer change. Accepted and
// rejected requests are permanent ledger entries.
func (s SwapStatus) Terminal() bool {
	return s == SwapAccepted || s == SwapRejected
}

type SwapRequest struct {
	bun.BaseModel `bun:"table:swap_requests,alias:sr"`

	ID          string     `bun:"id,pk" json:"id"`
	MySlotID    string     `bun:"my_slot_id,notnull" json:"mySlotId"`
	TheirSlotID string     `bun:"their_slot_id,notnull" json:"theirSlotId"`
	FromUserID  string     `bun:"from_user_id,notnull" json:"fromUserId"`
	ToUserID    string     `bun:"to_user_id,notnull" json:"toUserId"`
	Status      SwapStatus `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// SwapRequestDetails is a request enriched for listing: both slots' current
// data, both users' display names, and whether the request is incoming for
// the user the listing was built for.
type SwapRequestDetails struct {
	SwapRequest
	MySlot    *Slot  `json:"mySlot,omitempty"`
	TheirSlot *Slot  `json:"theirSlot,omitempty"`
	FromName  string `json:"fromName,omitempty"`
	ToName    string `json:"toName,omitempty"`
	Incoming  bool   `json:"incoming"`
}
