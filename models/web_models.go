package models

import "time"

// UserSession is the authenticated caller, extracted from the bearer token
// by the auth middleware and stored in the request context.
type UserSession struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SignupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *UserSession `json:"user"`
}

type CreateSlotRequest struct {
	Title     string    `json:"title" validate:"required,max=200"`
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
}

// UpdateSlotRequest is a patch; nil fields stay unchanged. Status accepts
// only the owner-settable values.
type UpdateSlotRequest struct {
	Title     *string    `json:"title,omitempty" validate:"omitempty,max=200"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Status    *string    `json:"status,omitempty" validate:"omitempty,oneof=BUSY SWAPPABLE"`
}

type SwapProposalRequest struct {
	MySlotID    string `json:"mySlotId" validate:"required"`
	TheirSlotID string `json:"theirSlotId" validate:"required"`
}

type SwapResponseRequest struct {
	Action string `json:"action" validate:"required,oneof=ACCEPT REJECT"`
}
