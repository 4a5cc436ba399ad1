package payload

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/session"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDocs struct {
	payload  *types.ExportPayload
	option   types.LandingsEntryOption
	upserts  int
	failNext error
}

func (m *memDocs) GetExportPayload(ctx context.Context, ref types.DocumentRef) (*types.ExportPayload, error) {
	if m.payload == nil {
		return nil, nil
	}
	p := m.payload.Clone()
	return &p, nil
}

func (m *memDocs) UpsertExportPayload(ctx context.Context, ref types.DocumentRef, p types.ExportPayload) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.upserts++
	c := p.Clone()
	m.payload = &c
	return nil
}

func (m *memDocs) GetLandingsEntryOption(ctx context.Context, ref types.DocumentRef) (types.LandingsEntryOption, error) {
	return m.option, nil
}

func (m *memDocs) UpsertLandingsEntryOption(ctx context.Context, ref types.DocumentRef, o types.LandingsEntryOption) error {
	m.option = o
	return nil
}

// failingSession fails WriteAllFor after `allow` successful writes.
type failingSession struct {
	*session.MemoryStore
	allow  int
	writes int
}

func (f *failingSession) WriteAllFor(ctx context.Context, user, scope, key string, fields map[string][]byte) error {
	if f.writes >= f.allow {
		return errors.New("session unavailable")
	}
	f.writes++
	return f.MemoryStore.WriteAllFor(ctx, user, scope, key, fields)
}

var ref = types.DocumentRef{UserPrincipal: "user-1", DocumentNumber: "DOC-1", ContactID: "contact-1"}

func landing(id string, weight float64) types.Landing {
	return types.Landing{ID: id, DateLanded: "2024-01-01", ExportWeight: types.Weight(weight), Vessel: types.Vessel{PLN: "WIN 1", VesselName: "Ocean"}}
}

func seeded() *memDocs {
	return &memDocs{payload: &types.ExportPayload{Items: []types.ProductLanded{{
		Product: types.Product{ID: "p1", SpeciesCode: "COD"},
		Landings: []types.LandingStatus{
			{Model: landing("l1", 10)},
			{Model: landing("l2", 20)},
		},
	}}}}
}

func writeOverlay(t *testing.T, s session.Store, entries ...types.SessionLanding) {
	t.Helper()
	fields := map[string][]byte{}
	for _, e := range entries {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		fields[e.ID] = data
	}
	require.NoError(t, s.WriteAllFor(context.Background(), ref.UserPrincipal, ref.ContactID, session.OverlayKey(ref.DocumentNumber), fields))
}

// =============================================================================
// GET
// =============================================================================

func TestGet_EmptyDocumentHasNonNilItems(t *testing.T) {
	svc := NewService(&memDocs{}, session.NewMemoryStore())
	got, err := svc.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
}

func TestGet_NoOverlayReturnsPersistedUnchanged(t *testing.T) {
	docs := seeded()
	svc := NewService(docs, session.NewMemoryStore())

	got, err := svc.Get(context.Background(), ref)
	require.NoError(t, err)
	if diff := cmp.Diff(*docs.payload, got); diff != "" {
		t.Errorf("Get() mismatch (-persisted +got):\n%s", diff)
	}
}

func TestGet_OverlayWithErrorReplacesModel(t *testing.T) {
	docs := seeded()
	sessions := session.NewMemoryStore()
	bad := landing("l1", -5)
	writeOverlay(t, sessions, types.SessionLanding{
		ID: "l1", Model: &bad, EditMode: true, Error: "invalid",
		Errors: types.FieldErrors{"exportWeight": "ccAddLandingExportWeightPositive"},
	})

	got, err := NewService(docs, sessions).Get(context.Background(), ref)
	require.NoError(t, err)

	want := docs.payload.Clone()
	want.Items[0].Landings[0] = types.LandingStatus{
		Model: bad, EditMode: true, Error: "invalid",
		Errors: types.FieldErrors{"exportWeight": "ccAddLandingExportWeightPositive"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_OverlayWithoutErrorOnlyAugments(t *testing.T) {
	docs := seeded()
	sessions := session.NewMemoryStore()
	stale := landing("l2", 999)
	snapshot := landing("l2", 15)
	writeOverlay(t, sessions, types.SessionLanding{ID: "l2", Model: &stale, EditMode: true, ModelCopy: &snapshot})

	got, err := NewService(docs, sessions).Get(context.Background(), ref)
	require.NoError(t, err)

	l2 := got.Items[0].Landings[1]
	assert.Equal(t, types.Weight(20), l2.Model.ExportWeight)
	assert.True(t, l2.EditMode)
	require.NotNil(t, l2.ModelCopy)
	assert.Equal(t, types.Weight(15), l2.ModelCopy.ExportWeight)
}

func TestMerge_DoesNotAliasInputs(t *testing.T) {
	persisted := seeded().payload
	snapshot := landing("l1", 1)
	overlay := map[string]types.SessionLanding{"l1": {ID: "l1", ModelCopy: &snapshot}}

	got := Merge(*persisted, overlay)
	got.Items[0].Landings[0].Model.ExportWeight = 1234
	got.Items[0].Landings[0].ModelCopy.ExportWeight = 4321

	assert.Equal(t, types.Weight(10), persisted.Items[0].Landings[0].Model.ExportWeight)
	assert.Nil(t, persisted.Items[0].Landings[0].ModelCopy)
	assert.Equal(t, types.Weight(1), snapshot.ExportWeight)
}

// =============================================================================
// SAVE
// =============================================================================

func TestSave_WritesOverlayThenStrippedPayload(t *testing.T) {
	docs := &memDocs{}
	sessions := session.NewMemoryStore()
	svc := NewService(docs, sessions)

	p := seeded().payload.Clone()
	p.Items[0].Landings[0].AddMode = true
	p.Items[0].Landings[0].Error = "invalid"
	require.NoError(t, svc.Save(context.Background(), p, ref))

	fields, err := sessions.ReadAllFor(context.Background(), ref.UserPrincipal, ref.ContactID, session.OverlayKey(ref.DocumentNumber))
	require.NoError(t, err)
	assert.Len(t, fields, 2)

	require.NotNil(t, docs.payload)
	assert.False(t, docs.payload.Items[0].Landings[0].AddMode)
	assert.Empty(t, docs.payload.Items[0].Landings[0].Error)

	got, err := svc.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, got.Items[0].Landings[0].AddMode)
	assert.Equal(t, "invalid", got.Items[0].Landings[0].Error)
}

func TestSave_OverlayFailureSkipsPayloadWrite(t *testing.T) {
	docs := &memDocs{}
	sessions := &failingSession{MemoryStore: session.NewMemoryStore(), allow: 1}
	svc := NewService(docs, sessions)

	err := svc.Save(context.Background(), seeded().payload.Clone(), ref)
	require.Error(t, err)
	assert.Equal(t, 1, sessions.writes)
	assert.Zero(t, docs.upserts)
	assert.Nil(t, docs.payload)
}

// =============================================================================
// UPSERT LANDING
// =============================================================================

func TestUpsertLanding_AppendsNewLanding(t *testing.T) {
	docs := seeded()
	docs.payload.Errors = types.FieldErrors{"products": "stale"}
	svc := NewService(docs, session.NewMemoryStore())

	got, err := svc.UpsertLanding(context.Background(), "p1", types.LandingStatus{Model: landing("l3", 30)}, ref)
	require.NoError(t, err)
	require.Len(t, got.Items[0].Landings, 3)
	assert.Equal(t, "l3", got.Items[0].Landings[2].Model.ID)
	assert.Nil(t, got.Errors)
	assert.Len(t, docs.payload.Items[0].Landings, 3)
}

func TestUpsertLanding_ReplacesPlaceholder(t *testing.T) {
	docs := seeded()
	docs.payload.Items[0].Landings = append(docs.payload.Items[0].Landings, types.LandingStatus{Model: types.Landing{}})
	svc := NewService(docs, session.NewMemoryStore())

	got, err := svc.UpsertLanding(context.Background(), "p1", types.LandingStatus{Model: landing("l3", 30)}, ref)
	require.NoError(t, err)
	require.Len(t, got.Items[0].Landings, 3)
	assert.Equal(t, "l3", got.Items[0].Landings[2].Model.ID)
}

func TestUpsertLanding_ReplacesExistingPreservingSubmissions(t *testing.T) {
	docs := seeded()
	docs.payload.Items[0].Landings[1].Model.NumberOfSubmissions = 4
	svc := NewService(docs, session.NewMemoryStore())

	updated := landing("l2", 25)
	updated.NumberOfSubmissions = 0
	got, err := svc.UpsertLanding(context.Background(), "p1", types.LandingStatus{
		Model: updated, Error: "invalid", Errors: types.FieldErrors{"dateLanded": "x"},
	}, ref)
	require.NoError(t, err)

	l2 := got.Items[0].Landings[1]
	assert.Equal(t, types.Weight(25), l2.Model.ExportWeight)
	assert.Equal(t, 4, l2.Model.NumberOfSubmissions)
	assert.True(t, l2.EditMode)
	assert.Equal(t, "invalid", l2.Error)

	got, err = svc.UpsertLanding(context.Background(), "p1", types.LandingStatus{Model: landing("l2", 26)}, ref)
	require.NoError(t, err)
	assert.False(t, got.Items[0].Landings[1].EditMode)
	assert.Equal(t, 4, got.Items[0].Landings[1].Model.NumberOfSubmissions)
}

func TestUpsertLanding_Errors(t *testing.T) {
	docs := seeded()
	docs.payload.Items[0].Landings[0].Model.Vessel.VesselOverriddenByAdmin = true
	svc := NewService(docs, session.NewMemoryStore())
	ctx := context.Background()

	_, err := svc.UpsertLanding(ctx, "p1", types.LandingStatus{Model: landing("l1", 1)}, ref)
	assert.ErrorIs(t, err, ErrVesselOverriddenByAdmin)

	admin := landing("l9", 1)
	admin.Vessel.VesselOverriddenByAdmin = true
	_, err = svc.UpsertLanding(ctx, "p1", types.LandingStatus{Model: admin}, ref)
	assert.ErrorIs(t, err, ErrVesselOverriddenByAdmin)

	_, err = svc.UpsertLanding(ctx, "missing", types.LandingStatus{Model: landing("l3", 1)}, ref)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

// =============================================================================
// LANDINGS ENTRY OPTION
// =============================================================================

func TestLandingsEntryOption(t *testing.T) {
	ctx := context.Background()
	docs := seeded()
	sessions := session.NewMemoryStore()
	svc := NewService(docs, sessions)

	got, err := svc.GetLandingsType(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = svc.AddLandingsEntryOption(ctx, ref, "carrierPigeon")
	assert.ErrorIs(t, err, ErrInvalidEntryOption)

	got, err = svc.AddLandingsEntryOption(ctx, ref, types.EntryManual)
	require.NoError(t, err)
	assert.Equal(t, types.EntryManual, got)

	got, err = svc.AddLandingsEntryOption(ctx, ref, types.EntryUpload)
	require.NoError(t, err)
	assert.Equal(t, types.EntryManual, got, "first choice sticks")

	writeOverlay(t, sessions, types.SessionLanding{ID: "l1", AddMode: true})
	require.NoError(t, svc.ConfirmLandingsType(ctx, ref, types.EntryDirectLanding))

	got, _ = svc.GetLandingsType(ctx, ref)
	assert.Equal(t, types.EntryDirectLanding, got)
	require.Len(t, docs.payload.Items, 1)
	assert.Empty(t, docs.payload.Items[0].Landings)

	fields, err := sessions.ReadAllFor(ctx, ref.UserPrincipal, ref.ContactID, session.OverlayKey(ref.DocumentNumber))
	require.NoError(t, err)
	assert.Empty(t, fields)
}
