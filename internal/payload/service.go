// Package payload reads and writes a certificate's export payload together with the
// unsaved per-landing edit state held in the session store.
//
// The persisted payload only carries landing models. Add/edit mode, the restore
// snapshot and unresolved field errors live in the overlay until the journey completes.
package payload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/session"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

var (
	// ErrVesselOverriddenByAdmin is returned when an upsert touches an admin-overridden landing.
	ErrVesselOverriddenByAdmin = errors.New("landing vessel has been overridden by an administrator")
	// ErrProductNotFound is returned when an upsert names a product not on the certificate.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidEntryOption is returned for an unknown landings entry option.
	ErrInvalidEntryOption = errors.New("invalid landings entry option")
)

// DocumentStore is the persisted side of the payload.
type DocumentStore interface {
	GetExportPayload(ctx context.Context, ref types.DocumentRef) (*types.ExportPayload, error)
	UpsertExportPayload(ctx context.Context, ref types.DocumentRef, payload types.ExportPayload) error
	GetLandingsEntryOption(ctx context.Context, ref types.DocumentRef) (types.LandingsEntryOption, error)
	UpsertLandingsEntryOption(ctx context.Context, ref types.DocumentRef, option types.LandingsEntryOption) error
}

// Service merges persisted payloads with the session overlay.
type Service struct {
	docs    DocumentStore
	session session.Store
}

// NewService returns a Service.
func NewService(docs DocumentStore, sessions session.Store) *Service {
	return &Service{docs: docs, session: sessions}
}

// =============================================================================
// READ
// =============================================================================

// Get returns the persisted payload with the overlay applied. Items is never nil.
func (s *Service) Get(ctx context.Context, ref types.DocumentRef) (types.ExportPayload, error) {
	persisted, err := s.docs.GetExportPayload(ctx, ref)
	if err != nil {
		return types.ExportPayload{}, fmt.Errorf("failed to read payload %s: %w", ref.DocumentNumber, err)
	}
	var base types.ExportPayload
	if persisted != nil {
		base = *persisted
	}

	overlay, err := s.readOverlay(ctx, ref)
	if err != nil {
		return types.ExportPayload{}, err
	}
	return Merge(base, overlay), nil
}

func (s *Service) readOverlay(ctx context.Context, ref types.DocumentRef) (map[string]types.SessionLanding, error) {
	fields, err := s.session.ReadAllFor(ctx, ref.UserPrincipal, ref.ContactID, session.OverlayKey(ref.DocumentNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay %s: %w", ref.DocumentNumber, err)
	}
	overlay := make(map[string]types.SessionLanding, len(fields))
	for id, raw := range fields {
		var entry types.SessionLanding
		if err := json.Unmarshal(raw, &entry); err != nil {
			logging.Get(logging.CategoryOverlay).Warn("Dropping unreadable overlay entry %s/%s: %v", ref.DocumentNumber, id, err)
			continue
		}
		overlay[id] = entry
	}
	return overlay, nil
}

// Merge applies overlay entries to a copy of persisted. Neither input is modified.
// The persisted model wins unless the overlay carries an error, in which case the
// overlay's unsaved model is shown back to the user.
func Merge(persisted types.ExportPayload, overlay map[string]types.SessionLanding) types.ExportPayload {
	out := persisted.Clone()
	if out.Items == nil {
		out.Items = []types.ProductLanded{}
	}
	if len(overlay) == 0 {
		return out
	}
	for i := range out.Items {
		for j := range out.Items[i].Landings {
			l := &out.Items[i].Landings[j]
			entry, ok := overlay[l.Model.ID]
			if !ok || l.Model.ID == "" {
				continue
			}
			if entry.Error != "" {
				if entry.Model != nil {
					l.Model = entry.Model.Clone()
				}
				l.Error = entry.Error
				l.Errors = entry.Errors.Clone()
			}
			l.AddMode = entry.AddMode
			l.EditMode = entry.EditMode
			if entry.ModelCopy != nil {
				c := entry.ModelCopy.Clone()
				l.ModelCopy = &c
			}
		}
	}
	return out
}

// =============================================================================
// WRITE
// =============================================================================

// Save writes one overlay entry per landing, in order, then persists the payload.
// An overlay write failure stops before the payload is touched.
func (s *Service) Save(ctx context.Context, payload types.ExportPayload, ref types.DocumentRef) error {
	timer := logging.StartTimer(logging.CategoryOverlay, "Save "+ref.DocumentNumber)
	defer timer.Stop()

	key := session.OverlayKey(ref.DocumentNumber)
	for _, item := range payload.Items {
		for _, l := range item.Landings {
			if l.Model.ID == "" {
				continue
			}
			data, err := json.Marshal(toSessionLanding(l))
			if err != nil {
				return fmt.Errorf("failed to encode overlay entry %s: %w", l.Model.ID, err)
			}
			if err := s.session.WriteAllFor(ctx, ref.UserPrincipal, ref.ContactID, key, map[string][]byte{l.Model.ID: data}); err != nil {
				return fmt.Errorf("failed to write overlay entry %s: %w", l.Model.ID, err)
			}
		}
	}

	if err := s.docs.UpsertExportPayload(ctx, ref, stripTransient(payload)); err != nil {
		return fmt.Errorf("failed to persist payload %s: %w", ref.DocumentNumber, err)
	}
	logging.OverlayDebug("Saved payload %s (%d products)", ref.DocumentNumber, len(payload.Items))
	return nil
}

func toSessionLanding(l types.LandingStatus) types.SessionLanding {
	model := l.Model.Clone()
	entry := types.SessionLanding{
		ID:       l.Model.ID,
		Model:    &model,
		AddMode:  l.AddMode,
		EditMode: l.EditMode,
		Error:    l.Error,
		Errors:   l.Errors.Clone(),
	}
	if l.ModelCopy != nil {
		c := l.ModelCopy.Clone()
		entry.ModelCopy = &c
	}
	return entry
}

func stripTransient(p types.ExportPayload) types.ExportPayload {
	out := p.Clone()
	for i := range out.Items {
		for j := range out.Items[i].Landings {
			out.Items[i].Landings[j] = types.LandingStatus{Model: out.Items[i].Landings[j].Model}
		}
	}
	return out
}

// UpsertLanding adds or replaces one landing of a product and saves the payload.
// A new landing first takes the place of an id-less placeholder, otherwise it is appended.
// An existing landing keeps its submission counter. Payload-level field errors are cleared.
func (s *Service) UpsertLanding(ctx context.Context, productID string, landing types.LandingStatus, ref types.DocumentRef) (types.ExportPayload, error) {
	if landing.Model.Vessel.VesselOverriddenByAdmin {
		return types.ExportPayload{}, ErrVesselOverriddenByAdmin
	}

	payload, err := s.Get(ctx, ref)
	if err != nil {
		return types.ExportPayload{}, err
	}

	idx := -1
	for i, item := range payload.Items {
		if item.Product.ID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return types.ExportPayload{}, fmt.Errorf("%s: %w", productID, ErrProductNotFound)
	}
	product := &payload.Items[idx]

	incoming := landing.Clone()
	incoming.EditMode = incoming.Error != ""

	matched := -1
	if incoming.Model.ID != "" {
		for i, existing := range product.Landings {
			if existing.Model.ID == incoming.Model.ID {
				matched = i
				break
			}
		}
	}

	switch {
	case matched >= 0:
		existing := &product.Landings[matched]
		if existing.Model.Vessel.VesselOverriddenByAdmin {
			return types.ExportPayload{}, ErrVesselOverriddenByAdmin
		}
		incoming.Model.NumberOfSubmissions = existing.Model.NumberOfSubmissions
		existing.Model = incoming.Model
		existing.Error = incoming.Error
		existing.Errors = incoming.Errors
		existing.EditMode = incoming.EditMode
	default:
		placeholder := -1
		for i, existing := range product.Landings {
			if existing.Model.ID == "" {
				placeholder = i
				break
			}
		}
		if placeholder >= 0 {
			product.Landings[placeholder] = incoming
		} else {
			product.Landings = append(product.Landings, incoming)
		}
	}

	payload.Errors = nil
	if err := s.Save(ctx, payload, ref); err != nil {
		return types.ExportPayload{}, err
	}
	logging.Overlay("Upserted landing %s on product %s of %s", incoming.Model.ID, productID, ref.DocumentNumber)
	return payload, nil
}

// ClearOverlay drops the overlay of a document.
func (s *Service) ClearOverlay(ctx context.Context, ref types.DocumentRef) error {
	key := session.ScopedKey(ref.UserPrincipal, ref.ContactID, session.OverlayKey(ref.DocumentNumber))
	return s.session.RemoveTag(ctx, key)
}
