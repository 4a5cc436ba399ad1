package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// =============================================================================
// DOCUMENT LIFECYCLE
// =============================================================================

// CreateDraft inserts a new draft document. Creating an existing document is a no-op.
func (s *SQLiteStore) CreateDraft(ctx context.Context, ref types.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (document_number, user_principal, contact_id, status)
		 VALUES (?, ?, ?, ?)`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID, string(types.StatusDraft),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create draft %s: %v", ref.DocumentNumber, err)
		return fmt.Errorf("failed to create draft: %w", err)
	}
	logging.StoreDebug("Draft created: %s", ref.DocumentNumber)
	return nil
}

// GetCertificateStatus returns the status of a document.
func (s *SQLiteStore) GetCertificateStatus(ctx context.Context, ref types.DocumentRef) (types.DocumentStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM documents WHERE document_number = ? AND user_principal = ? AND contact_id = ?`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", ref.DocumentNumber, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status: %w", err)
	}
	return types.DocumentStatus(status), nil
}

// UpdateCertificateStatus sets the status of a document.
func (s *SQLiteStore) UpdateCertificateStatus(ctx context.Context, ref types.DocumentRef, status types.DocumentStatus) error {
	return s.updateDocument(ctx, ref, "status = ?", string(status))
}

// CompleteDraft marks a document complete and records the generated artifact.
func (s *SQLiteStore) CompleteDraft(ctx context.Context, documentNumber, artifactURI, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET status = ?, artifact_uri = ?, completed_by = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE document_number = ?`,
		string(types.StatusComplete), artifactURI, email, time.Now().UTC(), documentNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to complete draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", documentNumber, ErrNotFound)
	}
	logging.Store("Document %s completed (artifact %s)", documentNumber, artifactURI)
	return nil
}

// GetArtifactURI returns the artifact recorded by CompleteDraft, if any.
func (s *SQLiteStore) GetArtifactURI(ctx context.Context, documentNumber string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var uri string
	err := s.db.QueryRowContext(ctx,
		`SELECT artifact_uri FROM documents WHERE document_number = ?`, documentNumber,
	).Scan(&uri)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", documentNumber, ErrNotFound)
	}
	return uri, err
}

// =============================================================================
// EXPORT PAYLOAD AND SECTIONS
// =============================================================================

// GetExportPayload returns the persisted payload, or nil when none has been saved.
func (s *SQLiteStore) GetExportPayload(ctx context.Context, ref types.DocumentRef) (*types.ExportPayload, error) {
	var p types.ExportPayload
	found, err := s.readJSON(ctx, ref, "export_payload", &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// UpsertExportPayload replaces the persisted payload and refreshes the draft view.
func (s *SQLiteStore) UpsertExportPayload(ctx context.Context, ref types.DocumentRef, payload types.ExportPayload) error {
	if err := s.writeJSON(ctx, ref, "export_payload", payload); err != nil {
		return err
	}

	landings := 0
	for _, item := range payload.Items {
		landings += len(item.Landings)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_views (document_number, user_principal, contact_id, products, landings, cached_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(document_number) DO UPDATE SET products = excluded.products,
		   landings = excluded.landings, cached_at = excluded.cached_at`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID, len(payload.Items), landings,
	)
	if err != nil {
		return fmt.Errorf("failed to refresh draft view: %w", err)
	}
	return nil
}

// GetExporterDetails returns the exporter block, or nil when absent.
func (s *SQLiteStore) GetExporterDetails(ctx context.Context, ref types.DocumentRef) (*types.ExporterDetails, error) {
	var v types.ExporterDetails
	found, err := s.readJSON(ctx, ref, "exporter", &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

// SaveExporterDetails stores the exporter block.
func (s *SQLiteStore) SaveExporterDetails(ctx context.Context, ref types.DocumentRef, v types.ExporterDetails) error {
	return s.writeJSON(ctx, ref, "exporter", v)
}

// GetExportLocation returns the export location, or nil when absent.
func (s *SQLiteStore) GetExportLocation(ctx context.Context, ref types.DocumentRef) (*types.ExportLocation, error) {
	var v types.ExportLocation
	found, err := s.readJSON(ctx, ref, "export_location", &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

// SaveExportLocation stores the export location.
func (s *SQLiteStore) SaveExportLocation(ctx context.Context, ref types.DocumentRef, v types.ExportLocation) error {
	return s.writeJSON(ctx, ref, "export_location", v)
}

// GetTransport returns the transport block, or nil when absent.
func (s *SQLiteStore) GetTransport(ctx context.Context, ref types.DocumentRef) (*types.Transport, error) {
	var v types.Transport
	found, err := s.readJSON(ctx, ref, "transport", &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

// SaveTransport stores the transport block.
func (s *SQLiteStore) SaveTransport(ctx context.Context, ref types.DocumentRef, v types.Transport) error {
	return s.writeJSON(ctx, ref, "transport", v)
}

// GetConservation returns the conservation block, or nil when absent.
func (s *SQLiteStore) GetConservation(ctx context.Context, ref types.DocumentRef) (*types.Conservation, error) {
	var v types.Conservation
	found, err := s.readJSON(ctx, ref, "conservation", &v)
	if err != nil || !found {
		return nil, err
	}
	return &v, nil
}

// SaveConservation stores the conservation block.
func (s *SQLiteStore) SaveConservation(ctx context.Context, ref types.DocumentRef, v types.Conservation) error {
	return s.writeJSON(ctx, ref, "conservation", v)
}

// =============================================================================
// LANDINGS ENTRY MODE
// =============================================================================

// GetLandingsEntryOption returns the chosen entry mode, or "" when none was chosen.
func (s *SQLiteStore) GetLandingsEntryOption(ctx context.Context, ref types.DocumentRef) (types.LandingsEntryOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var option string
	err := s.db.QueryRowContext(ctx,
		`SELECT landings_entry_option FROM documents WHERE document_number = ? AND user_principal = ? AND contact_id = ?`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID,
	).Scan(&option)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", ref.DocumentNumber, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read landings entry option: %w", err)
	}
	return types.LandingsEntryOption(option), nil
}

// UpsertLandingsEntryOption stores the entry mode.
func (s *SQLiteStore) UpsertLandingsEntryOption(ctx context.Context, ref types.DocumentRef, option types.LandingsEntryOption) error {
	return s.updateDocument(ctx, ref, "landings_entry_option = ?", string(option))
}

// =============================================================================
// DRAFT VIEW AND LINKS
// =============================================================================

// InvalidateDraftCache drops the cached dashboard view of a draft.
func (s *SQLiteStore) InvalidateDraftCache(ctx context.Context, ref types.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM draft_views WHERE document_number = ? AND user_principal = ? AND contact_id = ?`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID,
	)
	if err != nil {
		return fmt.Errorf("failed to invalidate draft cache: %w", err)
	}
	return nil
}

// DraftViewCached reports whether a dashboard view exists for the draft.
func (s *SQLiteStore) DraftViewCached(ctx context.Context, documentNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM draft_views WHERE document_number = ?`, documentNumber,
	).Scan(&n)
	return n > 0, err
}

// SaveDraftLink records the save-as-draft link of a document.
func (s *SQLiteStore) SaveDraftLink(ctx context.Context, ref types.DocumentRef, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_links (document_number, user_principal, contact_id, link) VALUES (?, ?, ?, ?)
		 ON CONFLICT(document_number) DO UPDATE SET link = excluded.link`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID, link,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft link: %w", err)
	}
	return nil
}

// GetDraftLink returns the save-as-draft link, or "" when none exists.
func (s *SQLiteStore) GetDraftLink(ctx context.Context, ref types.DocumentRef) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var link string
	err := s.db.QueryRowContext(ctx,
		`SELECT link FROM draft_links WHERE document_number = ? AND user_principal = ? AND contact_id = ?`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID,
	).Scan(&link)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return link, err
}

// DeleteDraftLink removes the save-as-draft link of a document.
func (s *SQLiteStore) DeleteDraftLink(ctx context.Context, ref types.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM draft_links WHERE document_number = ? AND user_principal = ? AND contact_id = ?`,
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete draft link: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *SQLiteStore) readJSON(ctx context.Context, ref types.DocumentRef, column string, dest interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT "+column+" FROM documents WHERE document_number = ? AND user_principal = ? AND contact_id = ?",
		ref.DocumentNumber, ref.UserPrincipal, ref.ContactID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", column, err)
	}
	if !raw.Valid || raw.String == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw.String), dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", column, err)
	}
	return true, nil
}

func (s *SQLiteStore) writeJSON(ctx context.Context, ref types.DocumentRef, column string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", column, err)
	}
	return s.updateDocument(ctx, ref, column+" = ?", string(data))
}

// updateDocument applies a single-column update to an owned document.
func (s *SQLiteStore) updateDocument(ctx context.Context, ref types.DocumentRef, set string, arg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET "+set+", updated_at = CURRENT_TIMESTAMP WHERE document_number = ? AND user_principal = ? AND contact_id = ?",
		arg, ref.DocumentNumber, ref.UserPrincipal, ref.ContactID,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to update %s: %v", ref.DocumentNumber, err)
		return fmt.Errorf("failed to update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", ref.DocumentNumber, ErrNotFound)
	}
	return nil
}
