/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the thrift-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID generation and handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/transfa/thrift-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User methods
	// Resolve the internal user row from the identity provider subject
	// (the `sub` claim of a validated JWT).
	FindUserByAuthSubject(ctx context.Context, authSubject string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// Thrift system methods
	// CreateThriftSystemWithAdmin persists the system and the creator's
	// admin membership in a single transaction so that a partial failure
	// never leaves a system without its first member.
	CreateThriftSystemWithAdmin(ctx context.Context, creatorID uuid.UUID, payload domain.CreateThriftSystemPayload) (*domain.ThriftSystem, error)
	// UpdateThriftSystemAsAdmin applies the partial update only when the
	// actor holds an active admin membership; the check and the write are
	// one conditional statement so they cannot race.
	UpdateThriftSystemAsAdmin(ctx context.Context, systemID uuid.UUID, actorID uuid.UUID, patch domain.UpdateThriftSystemPayload) (*domain.ThriftSystem, error)
	FindThriftSystemByID(ctx context.Context, systemID uuid.UUID) (*domain.ThriftSystem, error)
	ListThriftSystems(ctx context.Context, opts domain.ThriftSystemListOptions) ([]domain.ThriftSystem, int64, error)

	// Membership methods
	// CreateMembership performs an atomic conditional insert (unique on
	// user+system) and increments the system's total_members counter in
	// the same transaction. A duplicate join returns ErrMembershipExists.
	CreateMembership(ctx context.Context, userID uuid.UUID, systemID uuid.UUID) (*domain.Membership, error)
	HasActiveAdminMembership(ctx context.Context, userID uuid.UUID, systemID uuid.UUID) (bool, error)
	HasMembership(ctx context.Context, userID uuid.UUID, systemID uuid.UUID) (bool, error)

	// Contribution methods
	// CreateContribution inserts the pending contribution guarded by a
	// membership existence predicate inside the same statement; a missing
	// membership returns ErrNotAMember.
	CreateContribution(ctx context.Context, userID uuid.UUID, systemID uuid.UUID, amount int64, paymentMethod string) (*domain.Contribution, error)
	FindContributionByID(ctx context.Context, contributionID uuid.UUID) (*domain.Contribution, error)
	// SettleContribution transitions a contribution out of 'pending' and,
	// when the new status is 'completed', increments the member's
	// contributions_made counter in the same transaction. Settling a
	// contribution that is not pending returns ErrContributionSettled.
	SettleContribution(ctx context.Context, contributionID uuid.UUID, status string) (*domain.Contribution, error)

	// Payout methods
	// CreatePayout schedules a disbursement whose amount is the sum of the
	// system's completed contributions, computed inside the insert
	// statement, guarded by the actor's active admin membership.
	CreatePayout(ctx context.Context, systemID uuid.UUID, recipientID uuid.UUID, actorID uuid.UUID, payoutMethod string) (*domain.Payout, error)
}
