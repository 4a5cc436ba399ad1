package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/certificate"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/payload"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryAPI).Warn("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps sentinel errors to status codes. Anything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payload.ErrVesselOverriddenByAdmin):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, payload.ErrProductNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, payload.ErrInvalidEntryOption):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.Get(logging.CategoryAPI).Error("%s %s failed (req=%s): %v", r.Method, r.URL.Path, RequestIDFrom(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// wantsRedirect reports whether the caller is a browser form post rather than an API client.
func wantsRedirect(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// outcomeStatus is the JSON status code of each outcome. Locked and invalid
// outcomes are navigation results carried in the body, so they answer 200.
func outcomeStatus(kind certificate.OutcomeKind) int {
	switch kind {
	case certificate.OutcomeComplete, certificate.OutcomeLocked, certificate.OutcomeInvalid:
		return http.StatusOK
	case certificate.OutcomePending:
		return http.StatusAccepted
	default:
		return http.StatusBadRequest
	}
}

// outcomePage is where a browser is sent for each outcome.
func outcomePage(o *certificate.Outcome) string {
	switch o.Kind {
	case certificate.OutcomeLocked:
		return "/create-catch-certificate/catch-certificates"
	case certificate.OutcomeInvalid:
		return o.Redirect
	case certificate.OutcomePending:
		return fmt.Sprintf("/create-catch-certificate/%s/catch-certificate-pending", o.DocumentNumber)
	case certificate.OutcomeComplete:
		return fmt.Sprintf("/create-catch-certificate/%s/catch-certificate-created", o.DocumentNumber)
	default:
		return fmt.Sprintf("/create-catch-certificate/%s/check-your-information", o.DocumentNumber)
	}
}

// writeOutcome renders an outcome as JSON or a 302 redirect.
func writeOutcome(w http.ResponseWriter, r *http.Request, o *certificate.Outcome) {
	if wantsRedirect(r) {
		http.Redirect(w, r, outcomePage(o), http.StatusFound)
		return
	}
	writeJSON(w, outcomeStatus(o.Kind), o)
}
