package payload

import (
	"context"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// GetLandingsType returns how the exporter chose to enter landings, or "" if undecided.
func (s *Service) GetLandingsType(ctx context.Context, ref types.DocumentRef) (types.LandingsEntryOption, error) {
	return s.docs.GetLandingsEntryOption(ctx, ref)
}

// AddLandingsEntryOption records option unless a mode was already chosen, and returns
// the mode in effect.
func (s *Service) AddLandingsEntryOption(ctx context.Context, ref types.DocumentRef, option types.LandingsEntryOption) (types.LandingsEntryOption, error) {
	if !option.Valid() {
		return "", fmt.Errorf("%q: %w", option, ErrInvalidEntryOption)
	}
	current, err := s.docs.GetLandingsEntryOption(ctx, ref)
	if err != nil {
		return "", err
	}
	if current != "" {
		return current, nil
	}
	if err := s.docs.UpsertLandingsEntryOption(ctx, ref, option); err != nil {
		return "", err
	}
	return option, nil
}

// ConfirmLandingsType switches the entry mode. Switching to a different mode discards the
// landings already entered and the overlay; products are kept.
func (s *Service) ConfirmLandingsType(ctx context.Context, ref types.DocumentRef, option types.LandingsEntryOption) error {
	if !option.Valid() {
		return fmt.Errorf("%q: %w", option, ErrInvalidEntryOption)
	}
	current, err := s.docs.GetLandingsEntryOption(ctx, ref)
	if err != nil {
		return err
	}
	if current == option {
		return nil
	}

	persisted, err := s.docs.GetExportPayload(ctx, ref)
	if err != nil {
		return err
	}
	if persisted != nil {
		cleared := persisted.Clone()
		for i := range cleared.Items {
			cleared.Items[i].Landings = nil
		}
		cleared.Error = ""
		cleared.Errors = nil
		if err := s.docs.UpsertExportPayload(ctx, ref, cleared); err != nil {
			return err
		}
	}
	if err := s.ClearOverlay(ctx, ref); err != nil {
		return err
	}
	if err := s.docs.UpsertLandingsEntryOption(ctx, ref, option); err != nil {
		return err
	}

	logging.Audit().Log(logging.AuditEvent{
		EventType:      logging.AuditLandingsEntryConfirmed,
		DocumentNumber: ref.DocumentNumber,
		UserPrincipal:  ref.UserPrincipal,
		Success:        true,
		Fields:         map[string]interface{}{"from": string(current), "to": string(option)},
	})
	return nil
}
