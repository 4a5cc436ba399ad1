package certificate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/artifact"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/refdata"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/ruleengine"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/session"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// =============================================================================
// DOCUMENT STORE
// =============================================================================

type mockDocs struct {
	mu sync.Mutex

	status       types.DocumentStatus
	statuses     []types.DocumentStatus
	payload      *types.ExportPayload
	exporter     *types.ExporterDetails
	option       types.LandingsEntryOption
	completedURI string
	completedBy  string
	invalidated  int
	linkDeleted  int

	invalidateErr error
	deleteLinkErr error
	payloadErr    error
}

func (m *mockDocs) GetExportPayload(ctx context.Context, ref types.DocumentRef) (*types.ExportPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payloadErr != nil {
		return nil, m.payloadErr
	}
	if m.payload == nil {
		return nil, nil
	}
	p := m.payload.Clone()
	return &p, nil
}

func (m *mockDocs) GetExporterDetails(ctx context.Context, ref types.DocumentRef) (*types.ExporterDetails, error) {
	return m.exporter, nil
}

func (m *mockDocs) GetExportLocation(ctx context.Context, ref types.DocumentRef) (*types.ExportLocation, error) {
	return nil, nil
}

func (m *mockDocs) GetTransport(ctx context.Context, ref types.DocumentRef) (*types.Transport, error) {
	return nil, nil
}

func (m *mockDocs) GetConservation(ctx context.Context, ref types.DocumentRef) (*types.Conservation, error) {
	return nil, nil
}

func (m *mockDocs) GetLandingsEntryOption(ctx context.Context, ref types.DocumentRef) (types.LandingsEntryOption, error) {
	return m.option, nil
}

func (m *mockDocs) GetCertificateStatus(ctx context.Context, ref types.DocumentRef) (types.DocumentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

func (m *mockDocs) UpdateCertificateStatus(ctx context.Context, ref types.DocumentRef, status types.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
	m.statuses = append(m.statuses, status)
	return nil
}

func (m *mockDocs) InvalidateDraftCache(ctx context.Context, ref types.DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated++
	return m.invalidateErr
}

func (m *mockDocs) DeleteDraftLink(ctx context.Context, ref types.DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkDeleted++
	return m.deleteLinkErr
}

func (m *mockDocs) CompleteDraft(ctx context.Context, documentNumber, artifactURI, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = types.StatusComplete
	m.statuses = append(m.statuses, types.StatusComplete)
	m.completedURI = artifactURI
	m.completedBy = email
	return nil
}

func (m *mockDocs) currentStatus() types.DocumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// removeFailingStore breaks RemoveTag so clearing stored errors fails.
type removeFailingStore struct {
	session.Store
}

func (removeFailingStore) RemoveTag(ctx context.Context, key string) error {
	return errors.New("session store down")
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

type mockRefData struct {
	mu sync.Mutex

	licenceFn func(pln, date string) (bool, error)
	periods   []refdata.SeasonalPeriod

	// refresh bookkeeping
	refreshed   []string
	inFlight    int
	maxInFlight int

	// when > 0, each refresh waits until this many calls are in flight (or a timeout)
	barrier int
}

func (m *mockRefData) VesselLicenceValid(ctx context.Context, pln, dateLanded string) (bool, error) {
	if m.licenceFn != nil {
		return m.licenceFn(pln, dateLanded)
	}
	return true, nil
}

func (m *mockRefData) SeasonalFishPeriods(ctx context.Context) ([]refdata.SeasonalPeriod, error) {
	return m.periods, nil
}

func (m *mockRefData) GearTypeValid(ctx context.Context, category, gearType string) (bool, error) {
	return true, nil
}

func (m *mockRefData) RefreshLanding(ctx context.Context, pln, dateLanded string) error {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.refreshed = append(m.refreshed, pln+"/"+dateLanded)
	m.mu.Unlock()

	if m.barrier > 0 {
		m.waitForPeers()
	}

	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
	return nil
}

// waitForPeers blocks until barrier calls are in flight together or a timeout passes.
func (m *mockRefData) waitForPeers() {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		all := m.maxInFlight >= m.barrier
		m.mu.Unlock()
		if all {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// =============================================================================
// RULE ENGINE, FLAGS, ARTIFACTS
// =============================================================================

type mockRuleEngine struct {
	mu         sync.Mutex
	calls      int
	validateFn func(req ruleengine.Request) (*ruleengine.Response, error)
}

func (m *mockRuleEngine) ValidateOnline(ctx context.Context, req ruleengine.Request) (*ruleengine.Response, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.validateFn != nil {
		return m.validateFn(req)
	}
	return &ruleengine.Response{Report: []types.OnlineValidationReportItem{}}, nil
}

type mockFlags map[string]bool

func (m mockFlags) IsBlocking(ctx context.Context, rule string) (bool, error) {
	return m[rule], nil
}

type mockArtifacts struct {
	mu         sync.Mutex
	calls      int
	generateFn func(req artifact.Request) (*artifact.Result, error)
}

func (m *mockArtifacts) Generate(ctx context.Context, req artifact.Request) (*artifact.Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(req)
	}
	return &artifact.Result{URI: "blob://" + req.DocumentNumber + ".pdf"}, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

type mockNotifier struct {
	mu        sync.Mutex
	success   int
	failure   int
	technical int
	failures  []types.ValidationFailure
}

func (m *mockNotifier) SendSuccess(ctx context.Context, email, doc, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.success++
	return nil
}

func (m *mockNotifier) SendFailure(ctx context.Context, email, doc string, failures []types.ValidationFailure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure++
	m.failures = failures
	return nil
}

func (m *mockNotifier) SendTechnicalError(ctx context.Context, email, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.technical++
	return nil
}

type mockReporter struct {
	mu            sync.Mutex
	continuity    int
	consolidation int
	submissions   int
}

func (m *mockReporter) ReportBusinessContinuity(ctx context.Context, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.continuity++
	return nil
}

func (m *mockReporter) ReportLandingsConsolidation(ctx context.Context, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consolidation++
	return nil
}

func (m *mockReporter) ReportSubmission(ctx context.Context, result types.ExportCertificateResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions++
	return nil
}

type mockOverlay struct {
	mu      sync.Mutex
	cleared int
}

func (m *mockOverlay) ClearOverlay(ctx context.Context, ref types.DocumentRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	return nil
}
