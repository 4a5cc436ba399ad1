package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// ErrorStore reads and writes the per-document failure lists kept in the session store.
type ErrorStore struct {
	store Store
}

// NewErrorStore wraps s.
func NewErrorStore(s Store) *ErrorStore {
	return &ErrorStore{store: s}
}

// SummaryErrors returns the blocking failures stored for a document.
func (e *ErrorStore) SummaryErrors(ctx context.Context, documentNumber string) ([]types.ValidationFailure, error) {
	data, err := e.store.Read(ctx, SummaryErrorsKey(documentNumber))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var failures []types.ValidationFailure
	if err := json.Unmarshal(data, &failures); err != nil {
		return nil, fmt.Errorf("failed to decode summary errors for %s: %w", documentNumber, err)
	}
	return failures, nil
}

// SetSummaryErrors replaces the blocking failures of a document.
func (e *ErrorStore) SetSummaryErrors(ctx context.Context, documentNumber string, failures []types.ValidationFailure) error {
	if failures == nil {
		failures = []types.ValidationFailure{}
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to encode summary errors: %w", err)
	}
	return e.store.WriteAll(ctx, SummaryErrorsKey(documentNumber), data)
}

// SystemFailure returns the last recorded system failure of a document, if any.
func (e *ErrorStore) SystemFailure(ctx context.Context, documentNumber string) (*types.SystemFailure, error) {
	data, err := e.store.Read(ctx, SystemErrorKey(documentNumber))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var failure types.SystemFailure
	if err := json.Unmarshal(data, &failure); err != nil {
		return nil, fmt.Errorf("failed to decode system failure for %s: %w", documentNumber, err)
	}
	return &failure, nil
}

// SetSystemFailure records a system failure against its document.
func (e *ErrorStore) SetSystemFailure(ctx context.Context, failure types.SystemFailure) error {
	data, err := json.Marshal(failure)
	if err != nil {
		return fmt.Errorf("failed to encode system failure: %w", err)
	}
	return e.store.WriteAll(ctx, SystemErrorKey(failure.DocumentNumber), data)
}

// Clear removes both the summary errors and the system failure of a document.
func (e *ErrorStore) Clear(ctx context.Context, documentNumber string) error {
	if err := e.store.RemoveTag(ctx, SummaryErrorsKey(documentNumber)); err != nil {
		return err
	}
	return e.store.RemoveTag(ctx, SystemErrorKey(documentNumber))
}
