package certificate

import (
	"context"
	"fmt"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/artifact"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/ruleengine"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// LandingKey identifies one vessel landing to refresh.
type LandingKey struct {
	PLN        string
	DateLanded string
}

// UniqueLandings lists the distinct (pln, dateLanded) pairs of a payload in first-seen order.
func UniqueLandings(p types.ExportPayload) []LandingKey {
	seen := make(map[LandingKey]bool)
	var out []LandingKey
	for _, l := range p.AllLandings() {
		k := LandingKey{PLN: l.Vessel.PLN, DateLanded: l.DateLanded}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Offline reports whether a payload is too large to validate synchronously.
func (o *Orchestrator) Offline(p types.ExportPayload) bool {
	return len(UniqueLandings(p)) > o.cfg.OnlineThreshold
}

// =============================================================================
// CREATE
// =============================================================================

// Create pre-checks a certificate and submits it. Small certificates are validated
// synchronously. Large ones are marked pending and validated in the background, with
// the verdict sent by email.
func (o *Orchestrator) Create(ctx context.Context, ref types.DocumentRef, email string) (*Outcome, error) {
	outcome, err := o.PreCheck(ctx, ref)
	if err != nil || outcome != nil {
		return outcome, err
	}

	payload, err := o.payload(ctx, ref)
	if err != nil {
		return nil, err
	}

	if o.Offline(payload) {
		if err := o.deps.Docs.UpdateCertificateStatus(ctx, ref, types.StatusPending); err != nil {
			return nil, err
		}
		logging.Audit().Log(logging.AuditEvent{
			EventType:      logging.AuditOfflineValidation,
			DocumentNumber: ref.DocumentNumber,
			UserPrincipal:  ref.UserPrincipal,
			Offline:        true,
			Success:        true,
		})
		o.deps.Tasks.Go(ctx, "offline submission "+ref.DocumentNumber, func(ctx context.Context) error {
			_, err := o.Submit(ctx, ref, email, true)
			return err
		})
		return &Outcome{Kind: OutcomePending, DocumentNumber: ref.DocumentNumber}, nil
	}

	if err := o.deps.Docs.UpdateCertificateStatus(ctx, ref, types.StatusValidating); err != nil {
		return nil, err
	}
	result, err := o.Submit(ctx, ref, email, false)
	if err != nil {
		return nil, err
	}
	if result.Passed() {
		return &Outcome{Kind: OutcomeComplete, DocumentNumber: ref.DocumentNumber, Result: result}, nil
	}

	// Online failures go straight back to the user as summary errors.
	failures := reportFailures(result.Report)
	if err := o.deps.Docs.UpdateCertificateStatus(ctx, ref, types.StatusDraft); err != nil {
		return nil, err
	}
	if err := o.deps.Errors.SetSummaryErrors(ctx, ref.DocumentNumber, failures); err != nil {
		return nil, err
	}
	return &Outcome{Kind: OutcomeFailed, DocumentNumber: ref.DocumentNumber, Failures: failures, Result: result}, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit validates a certificate against the rule engine and, when no blocking failure
// remains, generates it and marks it complete. Any fault on the way, from reading the
// document to generating the artifact, is recorded as a system failure and returned.
func (o *Orchestrator) Submit(ctx context.Context, ref types.DocumentRef, email string, offline bool) (*types.ExportCertificateResult, error) {
	ctx, span := tracer.Start(ctx, "certificate.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("document.number", ref.DocumentNumber), attribute.Bool("offline", offline))

	start := time.Now()
	doc := ref.DocumentNumber
	logging.Submission("Submitting %s (offline=%v)", doc, offline)

	// Every early return leaves the document in DRAFT, never VALIDATING or PENDING.
	fail := func(err error) (*types.ExportCertificateResult, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.systemFailure(ctx, ref, email, offline, err)
		return nil, err
	}

	if err := o.deps.Errors.Clear(ctx, doc); err != nil {
		return fail(fmt.Errorf("failed to clear previous errors: %w", err))
	}

	req, err := o.assemble(ctx, ref)
	if err != nil {
		return fail(err)
	}

	o.refresh(ctx, UniqueLandings(req.ExportPayload))

	resp, flags, err := o.validate(ctx, req)
	if err != nil {
		return fail(err)
	}

	result := types.ExportCertificateResult{
		DocumentNumber:    doc,
		Report:            ruleengine.FilterReport(resp.Report, flags),
		IsBlockingEnabled: flags.AnyBlocking(),
	}

	if len(result.Report) == 0 || !result.IsBlockingEnabled {
		uri, err := o.complete(ctx, ref, req, email)
		if err != nil {
			return fail(err)
		}
		result.URI = uri
	} else if offline {
		if err := o.deps.Docs.UpdateCertificateStatus(ctx, ref, types.StatusDraft); err != nil {
			logging.SubmissionError("Failed to revert %s to draft: %v", doc, err)
		}
		if err := o.deps.Errors.SetSummaryErrors(ctx, doc, reportFailures(result.Report)); err != nil {
			logging.SubmissionError("Failed to store summary errors for %s: %v", doc, err)
		}
	}

	o.cleanup(ctx, ref)

	final := result
	if result.Passed() {
		o.deps.Tasks.Go(ctx, "audit "+doc, func(context.Context) error {
			logging.Audit().Log(logging.AuditEvent{
				EventType:      logging.AuditCertificateCompleted,
				DocumentNumber: doc,
				UserPrincipal:  ref.UserPrincipal,
				Offline:        offline,
				Success:        true,
				Duration:       time.Since(start),
			})
			return nil
		})
	} else {
		logging.Audit().Log(logging.AuditEvent{
			EventType:      logging.AuditValidationFailed,
			DocumentNumber: doc,
			UserPrincipal:  ref.UserPrincipal,
			Offline:        offline,
			Duration:       time.Since(start),
			Fields:         map[string]interface{}{"failures": len(result.Report)},
		})
	}

	if offline {
		if final.Passed() {
			o.deps.Tasks.Go(ctx, "success email "+doc, func(ctx context.Context) error {
				return o.deps.Notifier.SendSuccess(ctx, email, doc, final.URI)
			})
		} else {
			failures := reportFailures(final.Report)
			o.deps.Tasks.Go(ctx, "failure email "+doc, func(ctx context.Context) error {
				return o.deps.Notifier.SendFailure(ctx, email, doc, failures)
			})
		}
	}

	logging.Submission("Submission of %s finished in %v (passed=%v)", doc, time.Since(start), result.Passed())
	return &result, nil
}

// assemble gathers the rule engine request. Absent sections are sent as empty objects.
func (o *Orchestrator) assemble(ctx context.Context, ref types.DocumentRef) (ruleengine.Request, error) {
	req := ruleengine.Request{DocumentNumber: ref.DocumentNumber}

	payload, err := o.payload(ctx, ref)
	if err != nil {
		return req, err
	}
	req.ExportPayload = payload

	exporter, err := o.deps.Docs.GetExporterDetails(ctx, ref)
	if err != nil {
		return req, fmt.Errorf("failed to read exporter: %w", err)
	}
	if exporter != nil {
		req.Exporter = *exporter
	}
	transport, err := o.deps.Docs.GetTransport(ctx, ref)
	if err != nil {
		return req, fmt.Errorf("failed to read transport: %w", err)
	}
	if transport != nil {
		req.Transport = *transport
	}
	conservation, err := o.deps.Docs.GetConservation(ctx, ref)
	if err != nil {
		return req, fmt.Errorf("failed to read conservation: %w", err)
	}
	if conservation != nil {
		req.Conservation = *conservation
	}
	return req, nil
}

// refresh re-fetches vessel landing data. Within the online threshold the calls fan out
// with bounded concurrency. Above it they run one at a time to spare the refresher.
// Refresh failures are logged; validation runs on whatever data is available.
func (o *Orchestrator) refresh(ctx context.Context, landings []LandingKey) {
	timer := logging.StartTimer(logging.CategorySubmission, "refresh landings")
	defer timer.Stop()

	refreshOne := func(k LandingKey) {
		if err := o.deps.RefData.RefreshLanding(ctx, k.PLN, k.DateLanded); err != nil {
			logging.Get(logging.CategorySubmission).Warn("Landing refresh failed for %s/%s: %v", k.PLN, k.DateLanded, err)
		}
	}

	if len(landings) > o.cfg.OnlineThreshold {
		logging.SubmissionDebug("Refreshing %d landings serially", len(landings))
		for _, k := range landings {
			refreshOne(k)
		}
		return
	}

	logging.SubmissionDebug("Refreshing %d landings in parallel", len(landings))
	var g errgroup.Group
	g.SetLimit(o.cfg.RefreshConcurrency)
	for _, k := range landings {
		k := k
		g.Go(func() error {
			refreshOne(k)
			return nil
		})
	}
	_ = g.Wait()
}

// validate calls the rule engine and snapshots the rule flags.
func (o *Orchestrator) validate(ctx context.Context, req ruleengine.Request) (*ruleengine.Response, ruleengine.Flags, error) {
	resp, err := o.deps.RuleEngine.ValidateOnline(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	flags, err := ruleengine.LoadFlags(ctx, o.deps.Flags)
	if err != nil {
		return nil, nil, err
	}
	return resp, flags, nil
}

// complete generates the certificate, marks the document complete and kicks off the
// downstream reports. Session state for the journey is dropped.
func (o *Orchestrator) complete(ctx context.Context, ref types.DocumentRef, req ruleengine.Request, email string) (string, error) {
	location, err := o.deps.Docs.GetExportLocation(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("failed to read export location: %w", err)
	}
	areq := artifact.Request{
		DocumentNumber: req.DocumentNumber,
		ExportPayload:  req.ExportPayload,
		Exporter:       req.Exporter,
		Transport:      req.Transport,
		Conservation:   req.Conservation,
	}
	if location != nil {
		areq.ExportLocation = *location
	}

	res, err := o.deps.Artifacts.Generate(ctx, areq)
	if err != nil {
		return "", err
	}
	if err := o.deps.Docs.CompleteDraft(ctx, ref.DocumentNumber, res.URI, email); err != nil {
		return "", fmt.Errorf("failed to complete draft: %w", err)
	}
	if err := o.deps.Overlay.ClearOverlay(ctx, ref); err != nil {
		logging.Get(logging.CategorySubmission).Warn("Failed to clear session for %s: %v", ref.DocumentNumber, err)
	}

	doc := ref.DocumentNumber
	result := types.ExportCertificateResult{DocumentNumber: doc, URI: res.URI, Report: []types.OnlineValidationReportItem{}}
	o.deps.Tasks.Go(ctx, "business continuity "+doc, func(ctx context.Context) error {
		return o.deps.Reporter.ReportBusinessContinuity(ctx, doc)
	})
	o.deps.Tasks.Go(ctx, "landings consolidation "+doc, func(ctx context.Context) error {
		return o.deps.Reporter.ReportLandingsConsolidation(ctx, doc)
	})
	o.deps.Tasks.Go(ctx, "data hub report "+doc, func(ctx context.Context) error {
		return o.deps.Reporter.ReportSubmission(ctx, result)
	})
	return res.URI, nil
}

// cleanup drops the cached draft view and the save-as-draft link. Failures are logged.
func (o *Orchestrator) cleanup(ctx context.Context, ref types.DocumentRef) {
	if err := o.deps.Docs.InvalidateDraftCache(ctx, ref); err != nil {
		logging.Get(logging.CategorySubmission).Warn("Failed to invalidate draft cache for %s: %v", ref.DocumentNumber, err)
	}
	if err := o.deps.Docs.DeleteDraftLink(ctx, ref); err != nil {
		logging.Get(logging.CategorySubmission).Warn("Failed to delete draft link for %s: %v", ref.DocumentNumber, err)
	}
}

// systemFailure reverts the document to draft and records cause against it. Offline
// submitters are told by email since nobody is waiting on the response.
func (o *Orchestrator) systemFailure(ctx context.Context, ref types.DocumentRef, email string, offline bool, cause error) {
	doc := ref.DocumentNumber
	logging.SubmissionError("System failure submitting %s: %+v", doc, cause)
	logging.Audit().SystemFailure(doc, cause)

	if err := o.deps.Docs.UpdateCertificateStatus(ctx, ref, types.StatusDraft); err != nil {
		logging.SubmissionError("Failed to revert %s to draft: %v", doc, err)
	}
	failure := types.SystemFailure{
		ID:             uuid.NewString(),
		DocumentNumber: doc,
		Message:        cause.Error(),
		OccurredAt:     o.cfg.now().UTC(),
	}
	if err := o.deps.Errors.SetSystemFailure(ctx, failure); err != nil {
		logging.SubmissionError("Failed to record system failure for %s: %v", doc, err)
	}

	o.cleanup(ctx, ref)

	if offline {
		o.deps.Tasks.Go(ctx, "technical error email "+doc, func(ctx context.Context) error {
			return o.deps.Notifier.SendTechnicalError(ctx, email, doc)
		})
	}
}
