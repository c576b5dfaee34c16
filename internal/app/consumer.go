package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/thrift-service/internal/domain"
	"github.com/transfa/thrift-service/internal/store"
)

// ContributionSettlementConsumer applies contribution settlement events
// published by the payment processor integration. The thrift API itself never
// moves a contribution out of 'pending'; this consumer is the only path.
type ContributionSettlementConsumer struct {
	repo store.Repository
}

func NewContributionSettlementConsumer(repo store.Repository) *ContributionSettlementConsumer {
	return &ContributionSettlementConsumer{repo: repo}
}

// HandleMessage is the RabbitMQ binding callback. Returning true acknowledges
// the delivery; returning false requeues it.
func (c *ContributionSettlementConsumer) HandleMessage(body []byte) bool {
	var event domain.ContributionStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("level=warn component=settlement_consumer msg=\"unmarshal failed; dropping\" err=%v", err)
		return true
	}

	if event.ContributionID == uuid.Nil {
		log.Printf("level=warn component=settlement_consumer msg=\"missing contribution id; dropping\" event_id=%s", event.EventID)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.processEvent(ctx, event); err != nil {
		log.Printf("level=error component=settlement_consumer msg=\"processing failed; requeueing\" contribution_id=%s err=%v", event.ContributionID, err)
		return false
	}
	return true
}

func (c *ContributionSettlementConsumer) processEvent(ctx context.Context, event domain.ContributionStatusEvent) error {
	status := normalizeSettlementStatus(event.Status)
	if status == "" {
		log.Printf("level=warn component=settlement_consumer msg=\"unknown settlement status; dropping\" contribution_id=%s status=%q", event.ContributionID, event.Status)
		return nil
	}

	settled, err := c.repo.SettleContribution(ctx, event.ContributionID, status)
	if err != nil {
		if errors.Is(err, store.ErrContributionNotFound) {
			log.Printf("level=warn component=settlement_consumer msg=\"no contribution for event; dropping\" contribution_id=%s", event.ContributionID)
			return nil
		}
		if errors.Is(err, store.ErrContributionSettled) {
			// Replays and out-of-order deliveries for already settled
			// contributions are acknowledged without any state change.
			log.Printf("level=info component=settlement_consumer msg=\"replay for settled contribution ignored\" contribution_id=%s status=%s", event.ContributionID, status)
			return nil
		}
		return fmt.Errorf("settle contribution: %w", err)
	}

	log.Printf("level=info component=settlement_consumer msg=\"contribution settled\" contribution_id=%s status=%s amount=%d", settled.ID, settled.Status, settled.Amount)
	return nil
}

// normalizeSettlementStatus maps processor status vocabulary onto the
// contribution statuses this service persists. Anything else is dropped.
func normalizeSettlementStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "successful", "settled":
		return domain.ContributionStatusCompleted
	case "missed", "failed", "expired":
		return domain.ContributionStatusMissed
	default:
		return ""
	}
}
