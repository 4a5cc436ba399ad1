// Package api is the HTTP boundary of certd. Handlers resolve the caller's document
// reference, call the payload, validator and certificate services, and render typed
// outcomes as JSON or as browser redirects.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/certificate"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/landings"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Caller identity headers set by the fronting gateway.
const (
	HeaderUserPrincipal = "X-User-Principal"
	HeaderContactID     = "X-Contact-Id"
	HeaderRequestID     = "X-Request-Id"
)

// Payloads is the payload side of the boundary.
type Payloads interface {
	Get(ctx context.Context, ref types.DocumentRef) (types.ExportPayload, error)
	UpsertLanding(ctx context.Context, productID string, landing types.LandingStatus, ref types.DocumentRef) (types.ExportPayload, error)
	GetLandingsType(ctx context.Context, ref types.DocumentRef) (types.LandingsEntryOption, error)
	AddLandingsEntryOption(ctx context.Context, ref types.DocumentRef, option types.LandingsEntryOption) (types.LandingsEntryOption, error)
	ConfirmLandingsType(ctx context.Context, ref types.DocumentRef, option types.LandingsEntryOption) error
}

// LandingValidator validates landings before they are saved.
type LandingValidator interface {
	ValidateLanding(ctx context.Context, items []types.ProductLanded, ref types.DocumentRef) (*landings.ValidationError, error)
}

// Certificates runs pre-checks and submissions.
type Certificates interface {
	PreCheck(ctx context.Context, ref types.DocumentRef) (*certificate.Outcome, error)
	Create(ctx context.Context, ref types.DocumentRef, email string) (*certificate.Outcome, error)
}

// Server holds the handler dependencies.
type Server struct {
	payloads     Payloads
	validator    LandingValidator
	certificates Certificates
}

// NewServer returns a Server.
func NewServer(payloads Payloads, validator LandingValidator, certificates Certificates) *Server {
	return &Server{payloads: payloads, validator: validator, certificates: certificates}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/certificates/{documentNumber}", func(r chi.Router) {
		r.Get("/payload", s.handleGetPayload)
		r.Post("/products/{productID}/landings", s.handleUpsertLanding)
		r.Post("/landings/validate", s.handleValidateLanding)

		r.Get("/landings-entry", s.handleGetEntryOption)
		r.Post("/landings-entry", s.handleAddEntryOption)
		r.Post("/landings-entry/confirm", s.handleConfirmEntryOption)

		r.Post("/precheck", s.handlePreCheck)
		r.Post("/submit", s.handleSubmit)
	})
	return r
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type ctxKey int

const requestIDKey ctxKey = iota

// requestID reuses an inbound request id or mints one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the request id stored by the router, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Get(logging.CategoryAPI).Debug("%s %s -> %d in %v (req=%s)",
			r.Method, r.URL.Path, ww.Status(), time.Since(start), RequestIDFrom(r.Context()))
	})
}

// documentRef reads the caller's reference from the path and identity headers.
func documentRef(r *http.Request) types.DocumentRef {
	return types.DocumentRef{
		UserPrincipal:  r.Header.Get(HeaderUserPrincipal),
		DocumentNumber: chi.URLParam(r, "documentNumber"),
		ContactID:      r.Header.Get(HeaderContactID),
	}
}
