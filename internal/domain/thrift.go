/**
 * @description
 * This file defines the core domain models for the thrift-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Using distinct types for API requests and database models ensures clear
 *   separation of concerns and type safety.
 * - Amounts are stored as `int64` to represent the value in the smallest currency
 *   unit (kobo), which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Thrift system lifecycle statuses.
const (
	SystemStatusDraft     = "draft"
	SystemStatusActive    = "active"
	SystemStatusPaused    = "paused"
	SystemStatusCompleted = "completed"
)

// Contribution frequencies.
const (
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
)

// Membership roles.
const (
	RoleAdmin   = "admin"
	RoleMember  = "member"
	RolePending = "pending"
)

// Contribution statuses.
const (
	ContributionStatusPending   = "pending"
	ContributionStatusCompleted = "completed"
	ContributionStatusMissed    = "missed"
)

// Payout statuses.
const (
	PayoutStatusScheduled = "scheduled"
	PayoutStatusCompleted = "completed"
	PayoutStatusCancelled = "cancelled"
)

// Privacy levels for a thrift system.
const (
	PrivacyPublic     = "public"
	PrivacyPrivate    = "private"
	PrivacyInviteOnly = "invite_only"
)

// User represents a simplified view of a user, containing only the data
// needed by the thrift-service. The row is created by the identity provider
// during onboarding; this service only reads it.
type User struct {
	ID          uuid.UUID `json:"id"`
	AuthSubject string    `json:"-"`
	Email       string    `json:"email"`
	FirstName   *string   `json:"first_name,omitempty"`
	LastName    *string   `json:"last_name,omitempty"`
}

// ThriftSystem represents a rotating-savings group. This struct maps directly
// to the `thrift_systems` table in the database.
type ThriftSystem struct {
	ID                    uuid.UUID  `json:"id"`
	Name                  string     `json:"name"`
	Description           *string    `json:"description,omitempty"`
	CreatorID             uuid.UUID  `json:"creator_id"`
	Status                string     `json:"status"` // 'draft', 'active', 'paused', 'completed'
	TotalMembers          int        `json:"total_members"`
	ContributionAmount    int64      `json:"contribution_amount"` // in kobo
	ContributionFrequency string     `json:"contribution_frequency"`
	StartDate             time.Time  `json:"start_date"`
	EndDate               *time.Time `json:"end_date,omitempty"`
	TargetAmount          *int64     `json:"target_amount,omitempty"` // in kobo
	PrivacyLevel          string     `json:"privacy_level"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Membership links one user to one thrift system. At most one membership may
// exist per (user, system) pair; the database enforces this with a unique index.
type Membership struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"user_id"`
	ThriftSystemID    uuid.UUID `json:"thrift_system_id"`
	Role              string    `json:"role"` // 'admin', 'member', 'pending'
	IsActive          bool      `json:"is_active"`
	JoinedAt          time.Time `json:"joined_at"`
	ContributionsMade int       `json:"contributions_made"`
}

// Contribution is a single payment event by a member into a thrift system.
// Contributions are always created as 'pending'; settlement happens out of
// band via the payment processor's status events.
type Contribution struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	ThriftSystemID   uuid.UUID `json:"thrift_system_id"`
	Amount           int64     `json:"amount"` // in kobo
	ContributionDate time.Time `json:"contribution_date"`
	Status           string    `json:"status"` // 'pending', 'completed', 'missed'
	PaymentMethod    string    `json:"payment_method"`
}

// Payout is a scheduled disbursement from aggregated contributions to a
// recipient member.
type Payout struct {
	ID             uuid.UUID `json:"id"`
	ThriftSystemID uuid.UUID `json:"thrift_system_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	Amount         int64     `json:"amount"` // in kobo
	PayoutDate     time.Time `json:"payout_date"`
	Status         string    `json:"status"` // 'scheduled', 'completed', 'cancelled'
	PayoutMethod   string    `json:"payout_method"`
}

// Invitation is declared for schema completeness; invitation workflows are
// handled by an external surface, not this service.
type Invitation struct {
	ID             uuid.UUID `json:"id"`
	ThriftSystemID uuid.UUID `json:"thrift_system_id"`
	InviterID      uuid.UUID `json:"inviter_id"`
	InviteeEmail   string    `json:"invitee_email"`
	Status         string    `json:"status"` // 'pending', 'accepted', 'rejected'
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// CreateThriftSystemPayload defines the structure for creating a new thrift system.
type CreateThriftSystemPayload struct {
	Name                  string     `json:"name"`
	Description           *string    `json:"description,omitempty"`
	Status                string     `json:"status,omitempty"`
	ContributionAmount    int64      `json:"contribution_amount"`
	ContributionFrequency string     `json:"contribution_frequency"`
	StartDate             time.Time  `json:"start_date"`
	EndDate               *time.Time `json:"end_date,omitempty"`
	TargetAmount          *int64     `json:"target_amount,omitempty"`
	PrivacyLevel          string     `json:"privacy_level,omitempty"`
}

// UpdateThriftSystemPayload is a partial update; nil fields are left unchanged.
type UpdateThriftSystemPayload struct {
	Name                  *string    `json:"name,omitempty"`
	Description           *string    `json:"description,omitempty"`
	Status                *string    `json:"status,omitempty"`
	ContributionAmount    *int64     `json:"contribution_amount,omitempty"`
	ContributionFrequency *string    `json:"contribution_frequency,omitempty"`
	StartDate             *time.Time `json:"start_date,omitempty"`
	EndDate               *time.Time `json:"end_date,omitempty"`
	TargetAmount          *int64     `json:"target_amount,omitempty"`
	PrivacyLevel          *string    `json:"privacy_level,omitempty"`
}

// MakeContributionPayload is the DTO for recording a contribution.
type MakeContributionPayload struct {
	Amount        int64  `json:"amount"` // in kobo
	PaymentMethod string `json:"payment_method,omitempty"`
}

// InitiatePayoutPayload is the DTO for scheduling a payout.
type InitiatePayoutPayload struct {
	RecipientID  uuid.UUID `json:"recipient_id"`
	PayoutMethod string    `json:"payout_method,omitempty"`
}

// ThriftSystemListOptions controls pagination and search for system listings.
type ThriftSystemListOptions struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// ThriftSystemPage is one page of systems plus the full filtered match count.
type ThriftSystemPage struct {
	Systems  []ThriftSystem `json:"systems"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}
