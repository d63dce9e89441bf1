package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the subscription level that selects a daily message limit.
type Tier string

const (
	TierBasic Tier = "basic"
	TierPro   Tier = "pro"
)

// ParseTier maps a stored tier string to a Tier. Unknown values fall back to basic.
func ParseTier(s string) Tier {
	if Tier(s) == TierPro {
		return TierPro
	}
	return TierBasic
}

// User is owned by the auth collaborator; the pipeline only reads ID and Tier.
type User struct {
	ID               uuid.UUID `json:"id"`
	MobileNumber     string    `json:"mobile_number"`
	Tier             Tier      `json:"subscription_tier"`
	StripeCustomerID *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
