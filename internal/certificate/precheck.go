package certificate

import (
	"context"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/rules"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// PreCheck returns nil when the certificate may be submitted. Otherwise it returns the
// first failing step: locked, rejected landings, or an invalid certificate.
func (o *Orchestrator) PreCheck(ctx context.Context, ref types.DocumentRef) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "certificate.PreCheck")
	defer span.End()
	span.SetAttributes(attribute.String("document.number", ref.DocumentNumber))

	status, err := o.deps.Docs.GetCertificateStatus(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	if status == types.StatusLocked {
		logging.Submission("Pre-check: %s is locked", ref.DocumentNumber)
		return &Outcome{Kind: OutcomeLocked, DocumentNumber: ref.DocumentNumber}, nil
	}

	payload, err := o.payload(ctx, ref)
	if err != nil {
		return nil, err
	}

	notFound := rules.VesselsNotFound(payload)
	badDates := rules.InvalidLandingDates(payload, o.cfg.now(), o.cfg.MaxDaysInFuture)
	if len(notFound) > 0 || len(badDates) > 0 {
		stored, err := o.deps.Errors.SummaryErrors(ctx, ref.DocumentNumber)
		if err != nil {
			return nil, err
		}
		merged := mergeFailures(stored, notFound, badDates)
		if err := o.deps.Errors.SetSummaryErrors(ctx, ref.DocumentNumber, merged); err != nil {
			return nil, err
		}
		logging.Audit().Log(logging.AuditEvent{
			EventType:      logging.AuditPreCheckRejected,
			DocumentNumber: ref.DocumentNumber,
			UserPrincipal:  ref.UserPrincipal,
			Fields:         map[string]interface{}{"vessels_not_found": len(notFound), "invalid_dates": len(badDates)},
		})
		return &Outcome{Kind: OutcomeRejected, DocumentNumber: ref.DocumentNumber, Failures: merged}, nil
	}

	vesselsOK, err := o.checker.VesselsValid(ctx, payload.AllLandings())
	if err != nil {
		return nil, fmt.Errorf("vessel validity check: %w", err)
	}
	productsOK, err := o.checker.ProductsValid(ctx, payload.Items)
	if err != nil {
		return nil, fmt.Errorf("product validity check: %w", err)
	}
	if !vesselsOK || !productsOK {
		option, err := o.deps.Docs.GetLandingsEntryOption(ctx, ref)
		if err != nil {
			return nil, err
		}
		logging.Submission("Pre-check: %s is invalid (vessels ok=%v, products ok=%v)", ref.DocumentNumber, vesselsOK, productsOK)
		return &Outcome{
			Kind:           OutcomeInvalid,
			DocumentNumber: ref.DocumentNumber,
			Redirect:       landingsPage(ref.DocumentNumber, option),
		}, nil
	}
	return nil, nil
}

// payload reads the persisted payload, defaulting to an empty one.
func (o *Orchestrator) payload(ctx context.Context, ref types.DocumentRef) (types.ExportPayload, error) {
	p, err := o.deps.Docs.GetExportPayload(ctx, ref)
	if err != nil {
		return types.ExportPayload{}, fmt.Errorf("failed to read payload: %w", err)
	}
	if p == nil {
		return types.ExportPayload{Items: []types.ProductLanded{}}, nil
	}
	return *p, nil
}
