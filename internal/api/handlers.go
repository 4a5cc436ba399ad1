package api

import (
	"encoding/json"
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 5 << 20

// requireRef resolves the document reference, answering 401 when identity is missing.
func requireRef(w http.ResponseWriter, r *http.Request) (types.DocumentRef, bool) {
	ref := documentRef(r)
	if !ref.Complete() {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return ref, false
	}
	return ref, true
}

func decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// =============================================================================
// PAYLOAD
// =============================================================================

func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	ref, ok := requireRef(w, r)
	if !ok {
		return
	}
	p, err := s.payloads.Get(r.Context(), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpsertLanding(w http.ResponseWriter, r *http.Request) {
	ref, ok := requireRef(w, r)
	if !ok {
		return
	}
	var landing types.LandingStatus
	if !decode(w, r, &landing) {
		return
	}
	p, err := s.payloads.UpsertLanding(r.Context(), chi.URLParam(r, "productID"), landing, ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleValidateLanding(w http.ResponseWriter, r *http.Request) {
	ref := documentRef(r)
	var items []types.ProductLanded
	if !decode(w, r, &items) {
		return
	}
	verr, err := s.validator.ValidateLanding(r.Context(), items, ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if verr != nil {
		logging.Get(logging.CategoryAPI).Debug("Landing validation failed for %s: %v", ref.DocumentNumber, verr.Errors)
		writeJSON(w, http.StatusBadRequest, verr)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// =============================================================================
// LANDINGS ENTRY OPTION
// =============================================================================

type entryOptionBody struct {
	LandingsEntryOption types.LandingsEntryOption `json:"landingsEntryOption"`
}

func (s *Server) handleGetEntryOption(w http.ResponseWriter, r *http.Request) {
	ref, ok := requireRef(w, r)
	if !ok {
		return
	}
	option, err := s.payloads.GetLandingsType(r.Context(), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryOptionBody{LandingsEntryOption: option})
}

func (s *Server) handleAddEntryOption(w http.ResponseWriter, r *http.Request) {
	ref, ok := requireRef(w, r)
	if !ok {
		return
	}
	var body entryOptionBody
	if !decode(w, r, &body) {
		return
	}
	option, err := s.payloads.AddLandingsEntryOption(r.Context(), ref, body.LandingsEntryOption)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryOptionBody{LandingsEntryOption: option})
}

func (s *Server) handleConfirmEntryOption(w http.ResponseWriter, r *http.Request) {
	ref, ok := requireRef(w, r)
	if !ok {
		return
	}
	var body entryOptionBody
	if !decode(w, r, &body) {
		return
	}
	if err := s.payloads.ConfirmLandingsType(r.Context(), ref, body.LandingsEntryOption); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// =============================================================================
// CERTIFICATE
// =============================================================================

func (s *Server) handlePreCheck(w http.ResponseWriter, r *http.Request) {
	ref, ok := requireRef(w, r)
	if !ok {
		return
	}
	outcome, err := s.certificates.PreCheck(r.Context(), ref)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if outcome == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "documentNumber": ref.DocumentNumber})
		return
	}
	writeOutcome(w, r, outcome)
}

type submitBody struct {
	Email string `json:"email"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ref, ok := requireRef(w, r)
	if !ok {
		return
	}
	var body submitBody
	if !decode(w, r, &body) {
		return
	}
	if body.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	logging.AuditWithRequest(RequestIDFrom(r.Context())).Log(logging.AuditEvent{
		EventType:      logging.AuditDocumentSubmitted,
		DocumentNumber: ref.DocumentNumber,
		UserPrincipal:  ref.UserPrincipal,
		Success:        true,
	})

	outcome, err := s.certificates.Create(r.Context(), ref, body.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOutcome(w, r, outcome)
}
