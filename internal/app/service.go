/**
 * @description
 * This file contains the core business logic for the thrift-service. The `Service`
 * struct orchestrates the contribution/payout lifecycle workflow, coordinating
 * between the database repository, the Redis rate limiter, and the message broker.
 *
 * Key features:
 * - Implements the main use cases: creating/updating/listing thrift systems,
 *   joining them, recording contributions, and scheduling payouts.
 * - Every operation resolves the authenticated actor first and returns the
 *   uniform `{data, error, status}` envelope; no raw error or panic escapes.
 * - Publishes lifecycle events to RabbitMQ for asynchronous processing by
 *   downstream services.
 *
 * @dependencies
 * - context, log, net/http, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For lifecycle event publication.
 */

package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/thrift-service/internal/domain"
	"github.com/transfa/thrift-service/internal/store"
	"github.com/transfa/thrift-service/pkg/rabbitmq"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	defaultPaymentMethod = "bank_transfer"
	defaultPayoutMethod  = "bank_transfer"
)

// RateLimiter abstracts the distributed rate limiter so the service can run
// without Redis (limiting disabled) and tests can substitute their own.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope string, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic for the thrift workflow.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher

	rateLimiter             RateLimiter
	joinLimitPerMinute      int
	contributionLimitPerMin int
}

// NewService creates a new thrift service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
	}
}

// SetRateLimiter enables per-user rate limiting for joins and contribution
// recording. Limits at or below zero disable the corresponding check.
func (s *Service) SetRateLimiter(limiter RateLimiter, joinPerMinute, contributionPerMinute int) {
	s.rateLimiter = limiter
	s.joinLimitPerMinute = joinPerMinute
	s.contributionLimitPerMin = contributionPerMinute
}

// resolveActor converts the validated auth subject into the internal user
// record. Every operation calls this first; a missing subject or unknown
// user yields ErrAuthenticationRequired, never a panic.
func (s *Service) resolveActor(ctx context.Context, authSubject string) (*domain.User, error) {
	if strings.TrimSpace(authSubject) == "" {
		return nil, ErrAuthenticationRequired
	}
	actor, err := s.repo.FindUserByAuthSubject(ctx, authSubject)
	if err != nil {
		if err == store.ErrUserNotFound {
			return nil, ErrAuthenticationRequired
		}
		return nil, err
	}
	return actor, nil
}

func (s *Service) consumeRateLimit(ctx context.Context, scope string, userID uuid.UUID, limit int) error {
	if s.rateLimiter == nil || limit <= 0 {
		return nil
	}
	count, _, err := s.rateLimiter.ConsumeRateLimit(ctx, scope, userID.String(), limit, time.Minute)
	if err != nil {
		// A broken limiter must not take the workflow down with it.
		log.Printf("level=warn component=service msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return nil
	}
	if count > limit {
		return ErrRateLimited
	}
	return nil
}

func (s *Service) publishEvent(ctx context.Context, routingKey string, event rabbitmq.ThriftLifecycleEvent) {
	if s.eventProducer == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	if err := s.eventProducer.PublishLifecycleEvent(ctx, routingKey, event); err != nil {
		log.Printf("level=warn component=service msg=\"lifecycle event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}

// CreateThriftSystem persists a new thrift system with the actor as creator
// and first admin member. The system row and the admin membership are written
// in one storage transaction.
func (s *Service) CreateThriftSystem(ctx context.Context, authSubject string, payload domain.CreateThriftSystemPayload) domain.APIResponse[domain.ThriftSystem] {
	return respond(http.StatusCreated, func() (*domain.ThriftSystem, error) {
		actor, err := s.resolveActor(ctx, authSubject)
		if err != nil {
			return nil, err
		}

		system, err := s.repo.CreateThriftSystemWithAdmin(ctx, actor.ID, payload)
		if err != nil {
			log.Printf("level=error component=service op=create_thrift_system user_id=%s err=%v", actor.ID, err)
			return nil, err
		}

		log.Printf("level=info component=service op=create_thrift_system system_id=%s creator_id=%s", system.ID, actor.ID)
		s.publishEvent(ctx, rabbitmq.RoutingKeySystemCreated, rabbitmq.ThriftLifecycleEvent{
			ThriftSystemID: system.ID,
			ActorID:        actor.ID,
			Amount:         system.ContributionAmount,
		})
		return system, nil
	})
}

// UpdateThriftSystem applies a partial update to a system. Only an active
// admin member may update; the authorization predicate is part of the write.
func (s *Service) UpdateThriftSystem(ctx context.Context, authSubject string, systemID uuid.UUID, patch domain.UpdateThriftSystemPayload) domain.APIResponse[domain.ThriftSystem] {
	return respond(http.StatusOK, func() (*domain.ThriftSystem, error) {
		actor, err := s.resolveActor(ctx, authSubject)
		if err != nil {
			return nil, err
		}

		system, err := s.repo.UpdateThriftSystemAsAdmin(ctx, systemID, actor.ID, patch)
		if err != nil {
			return nil, err
		}

		log.Printf("level=info component=service op=update_thrift_system system_id=%s actor_id=%s", system.ID, actor.ID)
		s.publishEvent(ctx, rabbitmq.RoutingKeySystemUpdated, rabbitmq.ThriftLifecycleEvent{
			ThriftSystemID: system.ID,
			ActorID:        actor.ID,
		})
		return system, nil
	})
}

// GetThriftSystem retrieves a single thrift system by ID.
func (s *Service) GetThriftSystem(ctx context.Context, authSubject string, systemID uuid.UUID) domain.APIResponse[domain.ThriftSystem] {
	return respond(http.StatusOK, func() (*domain.ThriftSystem, error) {
		if _, err := s.resolveActor(ctx, authSubject); err != nil {
			return nil, err
		}
		return s.repo.FindThriftSystemByID(ctx, systemID)
	})
}

// GetThriftSystems lists systems newest-first with offset pagination, an
// optional status filter, and a case-insensitive search over name and
// description. The returned total is the full filtered match count.
func (s *Service) GetThriftSystems(ctx context.Context, authSubject string, opts domain.ThriftSystemListOptions) domain.APIResponse[domain.ThriftSystemPage] {
	return respond(http.StatusOK, func() (*domain.ThriftSystemPage, error) {
		if _, err := s.resolveActor(ctx, authSubject); err != nil {
			return nil, err
		}

		if opts.Page < 1 {
			opts.Page = 1
		}
		if opts.PageSize < 1 {
			opts.PageSize = DefaultPageSize
		}
		if opts.PageSize > MaxPageSize {
			opts.PageSize = MaxPageSize
		}

		systems, total, err := s.repo.ListThriftSystems(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &domain.ThriftSystemPage{
			Systems:  systems,
			Total:    total,
			Page:     opts.Page,
			PageSize: opts.PageSize,
		}, nil
	})
}

// JoinThriftSystem adds the actor to a system as an active member. Duplicate
// joins surface as a Conflict; the membership insert and the total_members
// increment are atomic at the storage layer.
func (s *Service) JoinThriftSystem(ctx context.Context, authSubject string, systemID uuid.UUID) domain.APIResponse[domain.Membership] {
	return respond(http.StatusCreated, func() (*domain.Membership, error) {
		actor, err := s.resolveActor(ctx, authSubject)
		if err != nil {
			return nil, err
		}
		if err := s.consumeRateLimit(ctx, "thrift_join", actor.ID, s.joinLimitPerMinute); err != nil {
			return nil, err
		}

		membership, err := s.repo.CreateMembership(ctx, actor.ID, systemID)
		if err != nil {
			return nil, err
		}

		log.Printf("level=info component=service op=join_thrift_system system_id=%s user_id=%s", systemID, actor.ID)
		s.publishEvent(ctx, rabbitmq.RoutingKeyMembershipJoined, rabbitmq.ThriftLifecycleEvent{
			ThriftSystemID: systemID,
			ActorID:        actor.ID,
			EntityID:       membership.ID,
		})
		return membership, nil
	})
}

// MakeContribution records a pending contribution by the actor against a
// system they belong to. Settlement happens out of band; this operation never
// transitions a contribution to 'completed'.
func (s *Service) MakeContribution(ctx context.Context, authSubject string, systemID uuid.UUID, payload domain.MakeContributionPayload) domain.APIResponse[domain.Contribution] {
	return respond(http.StatusCreated, func() (*domain.Contribution, error) {
		actor, err := s.resolveActor(ctx, authSubject)
		if err != nil {
			return nil, err
		}
		if err := s.consumeRateLimit(ctx, "thrift_contribution", actor.ID, s.contributionLimitPerMin); err != nil {
			return nil, err
		}

		method := payload.PaymentMethod
		if method == "" {
			method = defaultPaymentMethod
		}

		contribution, err := s.repo.CreateContribution(ctx, actor.ID, systemID, payload.Amount, method)
		if err != nil {
			return nil, err
		}

		log.Printf("level=info component=service op=make_contribution system_id=%s user_id=%s amount=%d", systemID, actor.ID, payload.Amount)
		s.publishEvent(ctx, rabbitmq.RoutingKeyContributionRecorded, rabbitmq.ThriftLifecycleEvent{
			ThriftSystemID: systemID,
			ActorID:        actor.ID,
			EntityID:       contribution.ID,
			Amount:         contribution.Amount,
		})
		return contribution, nil
	})
}

// InitiatePayout schedules a disbursement to a recipient. Only an active
// admin may initiate; the amount is the sum of the system's completed
// contributions at call time (zero completed contributions still schedule a
// zero-amount payout).
func (s *Service) InitiatePayout(ctx context.Context, authSubject string, systemID uuid.UUID, payload domain.InitiatePayoutPayload) domain.APIResponse[domain.Payout] {
	return respond(http.StatusCreated, func() (*domain.Payout, error) {
		actor, err := s.resolveActor(ctx, authSubject)
		if err != nil {
			return nil, err
		}
		if _, err := s.repo.FindUserByID(ctx, payload.RecipientID); err != nil {
			return nil, err
		}

		method := payload.PayoutMethod
		if method == "" {
			method = defaultPayoutMethod
		}

		payout, err := s.repo.CreatePayout(ctx, systemID, payload.RecipientID, actor.ID, method)
		if err != nil {
			return nil, err
		}

		log.Printf("level=info component=service op=initiate_payout system_id=%s recipient_id=%s amount=%d", systemID, payout.RecipientID, payout.Amount)
		s.publishEvent(ctx, rabbitmq.RoutingKeyPayoutScheduled, rabbitmq.ThriftLifecycleEvent{
			ThriftSystemID: systemID,
			ActorID:        actor.ID,
			EntityID:       payout.ID,
			Amount:         payout.Amount,
		})
		return payout, nil
	})
}

// ContributionSettlementConsumer returns the consumer that applies settlement
// events from the payment processor to pending contributions.
func (s *Service) ContributionSettlementConsumer() *ContributionSettlementConsumer {
	return NewContributionSettlementConsumer(s.repo)
}
