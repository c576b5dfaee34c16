/**
 * @description
 * This file contains the HTTP handlers for the thrift-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * Every operation responds with the uniform `{data, error, status}` envelope;
 * the HTTP status code mirrors the envelope's status field.
 *
 * @dependencies
 * - encoding/json, net/http, strconv: Standard Go libraries.
 * - internal/app, internal/domain: For service logic and models.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/transfa/thrift-service/internal/app"
	"github.com/transfa/thrift-service/internal/domain"
)

// ThriftHandlers holds the application service that handlers will use.
type ThriftHandlers struct {
	service *app.Service
}

// NewThriftHandlers creates a new instance of ThriftHandlers.
func NewThriftHandlers(service *app.Service) *ThriftHandlers {
	return &ThriftHandlers{service: service}
}

// writeEnvelope serializes an APIResponse, mirroring its status on the wire.
func writeEnvelope[T any](w http.ResponseWriter, envelope domain.APIResponse[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(envelope.Status)
	json.NewEncoder(w).Encode(envelope)
}

// writeBadRequest emits an envelope-shaped error for malformed requests that
// never reach the service layer.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeEnvelope(w, domain.APIResponse[struct{}]{Error: &message, Status: http.StatusBadRequest})
}

func authSubject(r *http.Request) string {
	subject, _ := GetAuthSubject(r.Context())
	return subject
}

func systemIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "systemID"))
	return id, err == nil
}

// CreateThriftSystemHandler handles POST /thrift-systems.
func (h *ThriftHandlers) CreateThriftSystemHandler(w http.ResponseWriter, r *http.Request) {
	var payload domain.CreateThriftSystemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	writeEnvelope(w, h.service.CreateThriftSystem(r.Context(), authSubject(r), payload))
}

// UpdateThriftSystemHandler handles PATCH /thrift-systems/{systemID}.
func (h *ThriftHandlers) UpdateThriftSystemHandler(w http.ResponseWriter, r *http.Request) {
	systemID, ok := systemIDParam(r)
	if !ok {
		writeBadRequest(w, "Invalid thrift system id")
		return
	}
	var patch domain.UpdateThriftSystemPayload
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	writeEnvelope(w, h.service.UpdateThriftSystem(r.Context(), authSubject(r), systemID, patch))
}

// GetThriftSystemHandler handles GET /thrift-systems/{systemID}.
func (h *ThriftHandlers) GetThriftSystemHandler(w http.ResponseWriter, r *http.Request) {
	systemID, ok := systemIDParam(r)
	if !ok {
		writeBadRequest(w, "Invalid thrift system id")
		return
	}
	writeEnvelope(w, h.service.GetThriftSystem(r.Context(), authSubject(r), systemID))
}

// ListThriftSystemsHandler handles GET /thrift-systems with page, page_size,
// status, and search query parameters.
func (h *ThriftHandlers) ListThriftSystemsHandler(w http.ResponseWriter, r *http.Request) {
	opts := domain.ThriftSystemListOptions{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			opts.Page = page
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			opts.PageSize = size
		}
	}
	writeEnvelope(w, h.service.GetThriftSystems(r.Context(), authSubject(r), opts))
}

// JoinThriftSystemHandler handles POST /thrift-systems/{systemID}/join.
func (h *ThriftHandlers) JoinThriftSystemHandler(w http.ResponseWriter, r *http.Request) {
	systemID, ok := systemIDParam(r)
	if !ok {
		writeBadRequest(w, "Invalid thrift system id")
		return
	}
	writeEnvelope(w, h.service.JoinThriftSystem(r.Context(), authSubject(r), systemID))
}

// MakeContributionHandler handles POST /thrift-systems/{systemID}/contributions.
func (h *ThriftHandlers) MakeContributionHandler(w http.ResponseWriter, r *http.Request) {
	systemID, ok := systemIDParam(r)
	if !ok {
		writeBadRequest(w, "Invalid thrift system id")
		return
	}
	var payload domain.MakeContributionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	writeEnvelope(w, h.service.MakeContribution(r.Context(), authSubject(r), systemID, payload))
}

// InitiatePayoutHandler handles POST /thrift-systems/{systemID}/payouts.
func (h *ThriftHandlers) InitiatePayoutHandler(w http.ResponseWriter, r *http.Request) {
	systemID, ok := systemIDParam(r)
	if !ok {
		writeBadRequest(w, "Invalid thrift system id")
		return
	}
	var payload domain.InitiatePayoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "Invalid request body")
		return
	}
	if payload.RecipientID == uuid.Nil {
		writeBadRequest(w, "recipient_id is required")
		return
	}
	writeEnvelope(w, h.service.InitiatePayout(r.Context(), authSubject(r), systemID, payload))
}
