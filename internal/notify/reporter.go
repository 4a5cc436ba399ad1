package notify

import (
	"context"
	"net/http"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/integration"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// Reporter feeds completed certificates to the downstream systems.
type Reporter interface {
	// ReportBusinessContinuity copies the certificate to the business continuity system.
	ReportBusinessContinuity(ctx context.Context, documentNumber string) error
	// ReportLandingsConsolidation asks for the certificate's landings to be consolidated.
	ReportLandingsConsolidation(ctx context.Context, documentNumber string) error
	// ReportSubmission sends the submission report to the data hub.
	ReportSubmission(ctx context.Context, result types.ExportCertificateResult) error
}

// ReportClient implements Reporter over HTTP.
type ReportClient struct {
	c *integration.Client
}

// NewReportClient returns a reporting client.
func NewReportClient(cfg config.ServiceIntegration) *ReportClient {
	return &ReportClient{c: integration.New("reporting", cfg, logging.CategoryNotify)}
}

// ReportBusinessContinuity implements Reporter.
func (r *ReportClient) ReportBusinessContinuity(ctx context.Context, documentNumber string) error {
	return r.c.Do(ctx, http.MethodPost, "/v1/business-continuity", map[string]string{"documentNumber": documentNumber}, nil)
}

// ReportLandingsConsolidation implements Reporter.
func (r *ReportClient) ReportLandingsConsolidation(ctx context.Context, documentNumber string) error {
	return r.c.Do(ctx, http.MethodPost, "/v1/landings/consolidate", map[string]string{"documentNumber": documentNumber}, nil)
}

// ReportSubmission implements Reporter.
func (r *ReportClient) ReportSubmission(ctx context.Context, result types.ExportCertificateResult) error {
	return r.c.Do(ctx, http.MethodPost, "/v1/data-hub/submitted", result, nil)
}
