// Package landings validates candidate landings before they are added to a certificate.
package landings

import (
	"context"
	"fmt"
	"math"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// MaxExportWeight is the ceiling on a document's total export weight. A total equal to
// the ceiling is rejected.
const MaxExportWeight = 10_000_000

// PayloadSource reads the persisted payload of a document.
type PayloadSource interface {
	GetExportPayload(ctx context.Context, ref types.DocumentRef) (*types.ExportPayload, error)
}

// Totals breaks down an aggregate weight computation.
type Totals struct {
	CurrentTotal  float64 `json:"currentTotal"`
	Subtracted    float64 `json:"subtracted"`
	Added         float64 `json:"added"`
	AdjustedTotal float64 `json:"adjustedTotal"`
	Limit         float64 `json:"limit"`
}

// WeightFailure is a rejected aggregate weight.
type WeightFailure struct {
	Totals
}

func (f *WeightFailure) Error() string {
	return fmt.Sprintf("total export weight %.2f must be less than %.0f", f.AdjustedTotal, f.Limit)
}

func weight(w types.Weight) float64 {
	f := float64(w)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// AdjustedTotal computes the document total after replacing or adding candidates.
// Persisted landings sharing an id with a candidate are subtracted so edits are not
// counted twice.
func AdjustedTotal(persisted types.ExportPayload, candidates []types.Landing) Totals {
	replaced := make(map[string]bool, len(candidates))
	var t Totals
	for _, c := range candidates {
		if c.ID != "" {
			replaced[c.ID] = true
		}
		t.Added += weight(c.ExportWeight)
	}
	for _, l := range persisted.AllLandings() {
		w := weight(l.ExportWeight)
		t.CurrentTotal += w
		if l.ID != "" && replaced[l.ID] {
			t.Subtracted += w
		}
	}
	t.AdjustedTotal = t.CurrentTotal - t.Subtracted + t.Added
	t.Limit = MaxExportWeight
	return t
}

// WeightGuard rejects landings that would take a document over MaxExportWeight.
type WeightGuard struct {
	payloads PayloadSource
}

// NewWeightGuard returns a WeightGuard reading persisted payloads from payloads.
func NewWeightGuard(payloads PayloadSource) *WeightGuard {
	return &WeightGuard{payloads: payloads}
}

// ValidateAggregateExportWeight returns nil unless ref is complete and the adjusted total
// reaches MaxExportWeight.
func (g *WeightGuard) ValidateAggregateExportWeight(ctx context.Context, candidates []types.Landing, ref types.DocumentRef) (*WeightFailure, error) {
	if !ref.Complete() {
		return nil, nil
	}
	persisted, err := g.payloads.GetExportPayload(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload for weight check: %w", err)
	}
	var current types.ExportPayload
	if persisted != nil {
		current = *persisted
	}

	total := AdjustedTotal(current, candidates)
	if total.AdjustedTotal >= MaxExportWeight {
		logging.Validation("Aggregate weight %.2f rejected for %s", total.AdjustedTotal, ref.DocumentNumber)
		return &WeightFailure{Totals: total}, nil
	}
	return nil, nil
}
