/**
 * @description
 * This file implements the uniform response envelope shared by every public
 * operation of the thrift-service. Instead of repeating a try/catch-style
 * mapping in each method, a single generic combinator converts the outcome of
 * a fallible operation into `{data, error, status}`.
 *
 * @dependencies
 * - errors, net/http: Standard Go libraries.
 * - internal/domain, internal/store: For the envelope type and sentinel errors.
 */

package app

import (
	"errors"
	"net/http"

	"github.com/transfa/thrift-service/internal/domain"
	"github.com/transfa/thrift-service/internal/store"
)

var (
	// ErrAuthenticationRequired is returned when no actor can be resolved
	// for the operation.
	ErrAuthenticationRequired = errors.New("user must be authenticated")
	// ErrRateLimited is returned when the per-user rate limit for an
	// operation has been exhausted.
	ErrRateLimited = errors.New("too many requests; please slow down")
)

// statusFor maps an operation failure to the HTTP-style status carried in the
// envelope. Failures that do not belong to the taxonomy default to 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrAdminRequired), errors.Is(err, store.ErrNotAMember):
		return http.StatusForbidden
	case errors.Is(err, store.ErrMembershipExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrThriftSystemNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrContributionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// respond runs a fallible operation and wraps its outcome in the uniform
// envelope. No error ever crosses the public surface as a raw Go error.
func respond[T any](successStatus int, fn func() (*T, error)) domain.APIResponse[T] {
	data, err := fn()
	if err != nil {
		message := err.Error()
		return domain.APIResponse[T]{Data: nil, Error: &message, Status: statusFor(err)}
	}
	return domain.APIResponse[T]{Data: data, Error: nil, Status: successStatus}
}
