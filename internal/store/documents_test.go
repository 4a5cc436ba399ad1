package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var testRef = types.DocumentRef{UserPrincipal: "user-1", DocumentNumber: "GBR-2024-CC-0001", ContactID: "contact-1"}

func TestSQLiteStore_DraftLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetCertificateStatus(ctx, testRef)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.CreateDraft(ctx, testRef))
	require.NoError(t, s.CreateDraft(ctx, testRef)) // idempotent

	status, err := s.GetCertificateStatus(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, status)

	require.NoError(t, s.UpdateCertificateStatus(ctx, testRef, types.StatusValidating))
	status, _ = s.GetCertificateStatus(ctx, testRef)
	assert.Equal(t, types.StatusValidating, status)

	require.NoError(t, s.CompleteDraft(ctx, testRef.DocumentNumber, "blob://certs/GBR-2024-CC-0001.pdf", "a@b.com"))
	status, _ = s.GetCertificateStatus(ctx, testRef)
	assert.Equal(t, types.StatusComplete, status)

	uri, err := s.GetArtifactURI(ctx, testRef.DocumentNumber)
	require.NoError(t, err)
	assert.Equal(t, "blob://certs/GBR-2024-CC-0001.pdf", uri)

	err = s.CompleteDraft(ctx, "missing", "x", "y")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_StatusIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateDraft(ctx, testRef))

	other := testRef
	other.UserPrincipal = "intruder"
	_, err := s.GetCertificateStatus(ctx, other)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.UpdateCertificateStatus(ctx, other, types.StatusVoid), ErrNotFound))
}

func TestSQLiteStore_ExportPayload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateDraft(ctx, testRef))

	got, err := s.GetExportPayload(ctx, testRef)
	require.NoError(t, err)
	assert.Nil(t, got)

	payload := types.ExportPayload{Items: []types.ProductLanded{{
		Product: types.Product{ID: "p1", SpeciesCode: "COD"},
		Landings: []types.LandingStatus{
			{Model: types.Landing{ID: "l1", ExportWeight: 10}},
			{Model: types.Landing{ID: "l2", ExportWeight: 20}},
		},
	}}}
	require.NoError(t, s.UpsertExportPayload(ctx, testRef, payload))

	got, err = s.GetExportPayload(ctx, testRef)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, payload, *got)

	cached, err := s.DraftViewCached(ctx, testRef.DocumentNumber)
	require.NoError(t, err)
	assert.True(t, cached)

	require.NoError(t, s.InvalidateDraftCache(ctx, testRef))
	cached, _ = s.DraftViewCached(ctx, testRef.DocumentNumber)
	assert.False(t, cached)
}

func TestSQLiteStore_Sections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateDraft(ctx, testRef))

	exporter, err := s.GetExporterDetails(ctx, testRef)
	require.NoError(t, err)
	assert.Nil(t, exporter)

	require.NoError(t, s.SaveExporterDetails(ctx, testRef, types.ExporterDetails{ExporterCompanyName: "Fish Co"}))
	require.NoError(t, s.SaveTransport(ctx, testRef, types.Transport{Vehicle: "truck"}))
	require.NoError(t, s.SaveConservation(ctx, testRef, types.Conservation{CaughtUnder: "UK Fisheries Policy"}))
	require.NoError(t, s.SaveExportLocation(ctx, testRef, types.ExportLocation{ExportedFrom: "United Kingdom"}))

	exporter, err = s.GetExporterDetails(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, "Fish Co", exporter.ExporterCompanyName)

	transport, err := s.GetTransport(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, "truck", transport.Vehicle)

	conservation, err := s.GetConservation(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, "UK Fisheries Policy", conservation.CaughtUnder)

	location, err := s.GetExportLocation(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, "United Kingdom", location.ExportedFrom)
}

func TestSQLiteStore_LandingsEntryOption(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreateDraft(ctx, testRef))

	option, err := s.GetLandingsEntryOption(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, types.LandingsEntryOption(""), option)

	require.NoError(t, s.UpsertLandingsEntryOption(ctx, testRef, types.EntryDirectLanding))
	option, err = s.GetLandingsEntryOption(ctx, testRef)
	require.NoError(t, err)
	assert.Equal(t, types.EntryDirectLanding, option)
}

func TestSQLiteStore_DraftLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	link, err := s.GetDraftLink(ctx, testRef)
	require.NoError(t, err)
	assert.Empty(t, link)

	require.NoError(t, s.SaveDraftLink(ctx, testRef, "/create-catch-certificate/GBR-2024-CC-0001/check-your-information"))
	link, _ = s.GetDraftLink(ctx, testRef)
	assert.Contains(t, link, "check-your-information")

	require.NoError(t, s.DeleteDraftLink(ctx, testRef))
	link, _ = s.GetDraftLink(ctx, testRef)
	assert.Empty(t, link)
}

func TestFlagStore(t *testing.T) {
	ctx := context.Background()
	flags := NewFlagStore(newTestStore(t), map[string]bool{types.Rule3C: true, types.Rule4A: false})

	blocking, err := flags.IsBlocking(ctx, types.Rule3C)
	require.NoError(t, err)
	assert.True(t, blocking)

	blocking, _ = flags.IsBlocking(ctx, types.Rule4A)
	assert.False(t, blocking)

	blocking, _ = flags.IsBlocking(ctx, "unknown")
	assert.False(t, blocking)

	require.NoError(t, flags.SetBlocking(ctx, types.Rule3C, false))
	require.NoError(t, flags.SetBlocking(ctx, types.Rule4A, true))

	blocking, _ = flags.IsBlocking(ctx, types.Rule3C)
	assert.False(t, blocking)
	blocking, _ = flags.IsBlocking(ctx, types.Rule4A)
	assert.True(t, blocking)
}
