package app

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/transfa/thrift-service/internal/store"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"authentication", ErrAuthenticationRequired, http.StatusUnauthorized},
		{"admin required", store.ErrAdminRequired, http.StatusForbidden},
		{"not a member", store.ErrNotAMember, http.StatusForbidden},
		{"duplicate membership", store.ErrMembershipExists, http.StatusConflict},
		{"system not found", store.ErrThriftSystemNotFound, http.StatusNotFound},
		{"user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"contribution not found", store.ErrContributionNotFound, http.StatusNotFound},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"wrapped sentinel", fmt.Errorf("join thrift system: %w", store.ErrMembershipExists), http.StatusConflict},
		{"unclassified", errors.New("amount must be positive"), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(tc.err); got != tc.want {
				t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestRespond_Success(t *testing.T) {
	res := respond(http.StatusCreated, func() (*string, error) {
		v := "ok"
		return &v, nil
	})
	if res.Status != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", res.Status)
	}
	if res.Error != nil {
		t.Fatalf("expected nil error, got %q", *res.Error)
	}
	if res.Data == nil || *res.Data != "ok" {
		t.Fatal("expected data to be passed through")
	}
}

func TestRespond_Failure(t *testing.T) {
	res := respond(http.StatusOK, func() (*string, error) {
		return nil, store.ErrMembershipExists
	})
	if res.Status != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", res.Status)
	}
	if res.Data != nil {
		t.Fatal("expected nil data on failure")
	}
	if res.Error == nil || *res.Error == "" {
		t.Fatal("expected a non-empty error message")
	}
}
