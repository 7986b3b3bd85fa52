package server

import (
	"encoding/json"
	"net/http"

	"github.com/brokenrx/rx-auth/rx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MeHandler reports the caller's identity from the validated token
// (GET /api/me).
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		userID, err := claims.UserID()
		if err != nil {
			writeOAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":   userID,
			"role": claims.Role,
		})
	}
}

// ListPrescriptionsHandler returns the caller's own prescriptions, newest
// first (GET /api/prescriptions).
func (s *Server) ListPrescriptionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		userID, err := claims.UserID()
		if err != nil {
			writeOAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
			return
		}

		list, err := s.repos.Prescriptions.ListByUser(r.Context(), userID)
		if err != nil {
			log.Err(err).Msg("failed to list prescriptions")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type createPrescriptionRequest struct {
	FileName string `json:"file_name"`
}

// CreatePrescriptionHandler records a new prescription submission for the
// caller (POST /api/prescriptions). Admin tokens are rejected; submissions
// belong to patients.
func (s *Server) CreatePrescriptionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if claims.IsAdmin() {
			writeOAuthError(w, http.StatusForbidden, "forbidden", "admins cannot submit prescriptions")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			writeOAuthError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
			return
		}

		var req createPrescriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FileName == "" {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "file_name is required")
			return
		}

		prescription := &rx.Prescription{
			UserID:   userID,
			FileName: req.FileName,
			Status:   rx.StatusUnchecked,
		}
		if err := s.repos.Prescriptions.Create(r.Context(), prescription); err != nil {
			log.Err(err).Msg("failed to create prescription")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, prescription)
	}
}

// AdminListPrescriptionsHandler returns every prescription plus per-user
// submission counts (GET /api/admin/prescriptions).
func (s *Server) AdminListPrescriptionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.repos.Prescriptions.ListAll(r.Context())
		if err != nil {
			log.Err(err).Msg("failed to list prescriptions")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		counts, err := s.repos.Prescriptions.CountByUsername(r.Context())
		if err != nil {
			log.Err(err).Msg("failed to aggregate prescriptions")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"prescriptions": list,
			"user_counts":   counts,
		})
	}
}

type statusUpdateRequest struct {
	Status rx.Status `json:"status"`
}

// UpdatePrescriptionStatusHandler moves a prescription through its lifecycle
// (PATCH /api/admin/prescriptions/{id}/status). Delivered and rejected are
// final.
func (s *Server) UpdatePrescriptionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		var req statusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "malformed body")
			return
		}

		updated, err := s.repos.Prescriptions.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			switch {
			case errors.Is(err, rx.ErrInvalidStatus):
				writeOAuthError(w, http.StatusBadRequest, "invalid_request", "unknown status")
			case errors.Is(err, rx.ErrNotFound):
				writeOAuthError(w, http.StatusNotFound, "not_found", "prescription not found")
			case errors.Is(err, rx.ErrStatusFinal):
				writeOAuthError(w, http.StatusConflict, "invalid_request", "prescription is delivered or rejected and cannot change")
			default:
				log.Err(err).Msg("failed to update prescription status")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}
