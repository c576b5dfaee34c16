package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/transfa/thrift-service/internal/domain"
	"github.com/transfa/thrift-service/internal/store"
)

// settlementRepoStub overrides only the settlement path; any other repository
// call fails loudly via the embedded nil interface.
type settlementRepoStub struct {
	store.Repository

	settleErr    error
	settledID    uuid.UUID
	settledWith  string
	settleCalled bool
}

func (s *settlementRepoStub) SettleContribution(ctx context.Context, contributionID uuid.UUID, status string) (*domain.Contribution, error) {
	s.settleCalled = true
	s.settledID = contributionID
	s.settledWith = status
	if s.settleErr != nil {
		return nil, s.settleErr
	}
	return &domain.Contribution{ID: contributionID, Status: status, Amount: 5000}, nil
}

func settlementBody(t *testing.T, event domain.ContributionStatusEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func TestHandleMessage_MalformedPayloadAcked(t *testing.T) {
	stub := &settlementRepoStub{}
	consumer := NewContributionSettlementConsumer(stub)

	if !consumer.HandleMessage([]byte("{not json")) {
		t.Fatal("expected malformed payload to be acknowledged, not requeued")
	}
	if stub.settleCalled {
		t.Fatal("expected no settlement attempt for malformed payload")
	}
}

func TestHandleMessage_MissingContributionIDAcked(t *testing.T) {
	stub := &settlementRepoStub{}
	consumer := NewContributionSettlementConsumer(stub)

	body := settlementBody(t, domain.ContributionStatusEvent{EventID: "evt_1", Status: "completed"})
	if !consumer.HandleMessage(body) {
		t.Fatal("expected event without contribution id to be acknowledged")
	}
	if stub.settleCalled {
		t.Fatal("expected no settlement attempt without a contribution id")
	}
}

func TestHandleMessage_ProcessorStatusNormalized(t *testing.T) {
	stub := &settlementRepoStub{}
	consumer := NewContributionSettlementConsumer(stub)
	contributionID := uuid.New()

	body := settlementBody(t, domain.ContributionStatusEvent{
		EventID:        "evt_2",
		ContributionID: contributionID,
		Status:         "Successful",
	})
	if !consumer.HandleMessage(body) {
		t.Fatal("expected successful settlement to be acknowledged")
	}
	if !stub.settleCalled {
		t.Fatal("expected a settlement attempt")
	}
	if stub.settledID != contributionID {
		t.Fatalf("expected contribution %s, got %s", contributionID, stub.settledID)
	}
	if stub.settledWith != domain.ContributionStatusCompleted {
		t.Fatalf("expected status normalized to completed, got %q", stub.settledWith)
	}
}

func TestHandleMessage_UnknownStatusDropped(t *testing.T) {
	stub := &settlementRepoStub{}
	consumer := NewContributionSettlementConsumer(stub)

	body := settlementBody(t, domain.ContributionStatusEvent{
		EventID:        "evt_3",
		ContributionID: uuid.New(),
		Status:         "refunded",
	})
	if !consumer.HandleMessage(body) {
		t.Fatal("expected unknown status to be acknowledged, not requeued")
	}
	if stub.settleCalled {
		t.Fatal("expected no settlement attempt for unknown status")
	}
}

func TestHandleMessage_UnknownContributionDropped(t *testing.T) {
	stub := &settlementRepoStub{settleErr: store.ErrContributionNotFound}
	consumer := NewContributionSettlementConsumer(stub)

	body := settlementBody(t, domain.ContributionStatusEvent{
		EventID:        "evt_4",
		ContributionID: uuid.New(),
		Status:         "completed",
	})
	if !consumer.HandleMessage(body) {
		t.Fatal("expected event for unknown contribution to be acknowledged")
	}
}

func TestHandleMessage_ReplayForSettledContributionAcked(t *testing.T) {
	stub := &settlementRepoStub{settleErr: store.ErrContributionSettled}
	consumer := NewContributionSettlementConsumer(stub)

	body := settlementBody(t, domain.ContributionStatusEvent{
		EventID:        "evt_5",
		ContributionID: uuid.New(),
		Status:         "missed",
	})
	if !consumer.HandleMessage(body) {
		t.Fatal("expected replay for settled contribution to be acknowledged")
	}
}

func TestHandleMessage_TransientFailureRequeues(t *testing.T) {
	stub := &settlementRepoStub{settleErr: errors.New("connection reset")}
	consumer := NewContributionSettlementConsumer(stub)

	body := settlementBody(t, domain.ContributionStatusEvent{
		EventID:        "evt_6",
		ContributionID: uuid.New(),
		Status:         "completed",
	})
	if consumer.HandleMessage(body) {
		t.Fatal("expected transient repository failure to requeue the delivery")
	}
}

func TestNormalizeSettlementStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"completed", domain.ContributionStatusCompleted},
		{"SETTLED", domain.ContributionStatusCompleted},
		{" successful ", domain.ContributionStatusCompleted},
		{"missed", domain.ContributionStatusMissed},
		{"failed", domain.ContributionStatusMissed},
		{"expired", domain.ContributionStatusMissed},
		{"pending", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := normalizeSettlementStatus(tc.raw); got != tc.want {
			t.Fatalf("normalizeSettlementStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
