// Package certificate runs the export certificate submission pipeline: pre-checks,
// online or offline validation against the rule engine, artifact generation and the
// follow-up notifications and cleanup.
package certificate

import (
	"context"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/artifact"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/notify"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/refdata"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/rules"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/ruleengine"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/tasks"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/certificate")

// =============================================================================
// COLLABORATORS
// =============================================================================

// DocumentStore is the persisted certificate.
type DocumentStore interface {
	GetExportPayload(ctx context.Context, ref types.DocumentRef) (*types.ExportPayload, error)
	GetExporterDetails(ctx context.Context, ref types.DocumentRef) (*types.ExporterDetails, error)
	GetExportLocation(ctx context.Context, ref types.DocumentRef) (*types.ExportLocation, error)
	GetTransport(ctx context.Context, ref types.DocumentRef) (*types.Transport, error)
	GetConservation(ctx context.Context, ref types.DocumentRef) (*types.Conservation, error)
	GetLandingsEntryOption(ctx context.Context, ref types.DocumentRef) (types.LandingsEntryOption, error)
	GetCertificateStatus(ctx context.Context, ref types.DocumentRef) (types.DocumentStatus, error)
	UpdateCertificateStatus(ctx context.Context, ref types.DocumentRef, status types.DocumentStatus) error
	InvalidateDraftCache(ctx context.Context, ref types.DocumentRef) error
	DeleteDraftLink(ctx context.Context, ref types.DocumentRef) error
	CompleteDraft(ctx context.Context, documentNumber, artifactURI, email string) error
}

// ErrorStore keeps the per-document failure lists.
type ErrorStore interface {
	SummaryErrors(ctx context.Context, documentNumber string) ([]types.ValidationFailure, error)
	SetSummaryErrors(ctx context.Context, documentNumber string, failures []types.ValidationFailure) error
	SetSystemFailure(ctx context.Context, failure types.SystemFailure) error
	Clear(ctx context.Context, documentNumber string) error
}

// Overlay clears the session edit state of a journey.
type Overlay interface {
	ClearOverlay(ctx context.Context, ref types.DocumentRef) error
}

// Notifier sends the offline validation emails.
type Notifier interface {
	SendSuccess(ctx context.Context, emailAddress, documentNumber, artifactURI string) error
	SendFailure(ctx context.Context, emailAddress, documentNumber string, failures []types.ValidationFailure) error
	SendTechnicalError(ctx context.Context, emailAddress, documentNumber string) error
}

// Deps wires the orchestrator to its collaborators.
type Deps struct {
	Docs       DocumentStore
	Errors     ErrorStore
	Overlay    Overlay
	RefData    refdata.Service
	RuleEngine ruleengine.Validator
	Flags      ruleengine.FlagSource
	Artifacts  artifact.Generator
	Notifier   Notifier
	Reporter   notify.Reporter
	Tasks      *tasks.Runner
}

// =============================================================================
// CONFIG
// =============================================================================

// Config holds the thresholds the orchestrator runs with.
type Config struct {
	// OnlineThreshold is the largest unique landing count validated synchronously.
	OnlineThreshold int
	// RefreshConcurrency bounds parallel landing refreshes.
	RefreshConcurrency int
	// MaxDaysInFuture bounds landing dates at pre-check.
	MaxDaysInFuture int
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// ConfigFrom builds a Config from the validation section of the service config.
func ConfigFrom(v config.ValidationConfig) Config {
	return Config{
		OnlineThreshold:    v.OnlineThreshold,
		RefreshConcurrency: v.RefreshConcurrency,
		MaxDaysInFuture:    v.MaxDaysInFuture,
	}
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Orchestrator drives a certificate from draft to completion.
type Orchestrator struct {
	cfg     Config
	deps    Deps
	checker *rules.Checker
}

// New returns an Orchestrator.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.RefreshConcurrency < 1 {
		cfg.RefreshConcurrency = 1
	}
	if cfg.MaxDaysInFuture == 0 {
		cfg.MaxDaysInFuture = rules.DefaultMaxDaysInFuture
	}
	if deps.Tasks == nil {
		deps.Tasks = tasks.NewRunner()
	}
	return &Orchestrator{cfg: cfg, deps: deps, checker: rules.NewChecker(deps.RefData)}
}
