package transport

import (
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralBooked    ReferralStatus = "booked"
	ReferralConverted ReferralStatus = "converted"
	ReferralLost      ReferralStatus = "lost"
)

// Request DTOs
type CreatePartnerRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=200"`
	Phone           string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	GoogleReviewURL string `json:"googleReviewUrl,omitempty" validate:"omitempty,url,max=500"`
}

type UpdatePartnerRequest struct {
	Name            *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone           *string `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	GoogleReviewURL *string `json:"googleReviewUrl,omitempty" validate:"omitempty,url,max=500"`
}

type CreateReferralRequest struct {
	ClientName       string `json:"clientName" validate:"required,min=1,max=200"`
	ClientPhone      string `json:"clientPhone" validate:"required,min=5,max=20"`
	CreditAmountCents int64 `json:"creditAmountCents,omitempty" validate:"omitempty,min=0,max=100000"`
}

// UpdateReferralStatusRequest carries both sides of the transition: the
// ledger has no transaction history of its own, so the caller states which
// status it believes it is moving away from. A stale previousStatus means
// someone else already moved the referral, and the call is rejected
// instead of double-crediting.
type UpdateReferralStatusRequest struct {
	PreviousStatus ReferralStatus `json:"previousStatus" validate:"required,oneof=pending booked converted lost"`
	Status         ReferralStatus `json:"status" validate:"required,oneof=pending booked converted lost"`
}

// Response DTOs
type PartnerResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Phone              string     `json:"phone,omitempty"`
	CreditBalanceCents int64      `json:"creditBalanceCents"`
	TotalTaps          int        `json:"totalTaps"`
	TotalConversions   int        `json:"totalConversions"`
	LastSasquatchTapAt *time.Time `json:"lastSasquatchTapAt,omitempty"`
	LastReviewTapAt    *time.Time `json:"lastReviewTapAt,omitempty"`
	GoogleReviewURL    string     `json:"googleReviewUrl,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

type ReferralResponse struct {
	ID                uuid.UUID      `json:"id"`
	PartnerID         uuid.UUID      `json:"partnerId"`
	ClientName        string         `json:"clientName"`
	ClientPhone       string         `json:"clientPhone"`
	Status            ReferralStatus `json:"status"`
	CreditAmountCents int64          `json:"creditAmountCents"`
	ConvertedAt       *time.Time     `json:"convertedAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
}
