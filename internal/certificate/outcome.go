package certificate

import (
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// OutcomeKind classifies the result of a pre-check or a create request.
type OutcomeKind string

const (
	// OutcomeLocked means the document cannot be edited or submitted.
	OutcomeLocked OutcomeKind = "locked"
	// OutcomeRejected means landings failed the vessel or date pre-checks.
	OutcomeRejected OutcomeKind = "rejected"
	// OutcomeInvalid means the user must return to landing entry.
	OutcomeInvalid OutcomeKind = "invalid"
	// OutcomePending means validation continues offline.
	OutcomePending OutcomeKind = "pending"
	// OutcomeComplete means the certificate was generated.
	OutcomeComplete OutcomeKind = "complete"
	// OutcomeFailed means blocking rule failures were found.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the single typed result the HTTP boundary turns into JSON or a redirect.
type Outcome struct {
	Kind           OutcomeKind                    `json:"status"`
	DocumentNumber string                         `json:"documentNumber"`
	Failures       []types.ValidationFailure      `json:"failures,omitempty"`
	Redirect       string                         `json:"redirect,omitempty"`
	Result         *types.ExportCertificateResult `json:"result,omitempty"`
}

// landingsPage is where an invalid certificate sends the user back to.
func landingsPage(documentNumber string, option types.LandingsEntryOption) string {
	page := "add-landings"
	switch option {
	case types.EntryDirectLanding:
		page = "direct-landing"
	case types.EntryUpload:
		page = "upload-file"
	}
	return fmt.Sprintf("/create-catch-certificate/%s/%s", documentNumber, page)
}

func reportFailures(report []types.OnlineValidationReportItem) []types.ValidationFailure {
	out := make([]types.ValidationFailure, 0, len(report))
	for _, item := range report {
		out = append(out, item.ToFailure())
	}
	return out
}

// mergeFailures appends add to existing, skipping exact duplicates.
func mergeFailures(existing []types.ValidationFailure, add ...[]types.ValidationFailure) []types.ValidationFailure {
	seen := make(map[string]bool)
	out := make([]types.ValidationFailure, 0, len(existing))
	push := func(f types.ValidationFailure) {
		k := fmt.Sprintf("%s|%s|%s|%s|%s|%v", f.Species, f.State, f.Presentation, f.Date, f.Vessel, f.Rules)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, f)
	}
	for _, f := range existing {
		push(f)
	}
	for _, list := range add {
		for _, f := range list {
			push(f)
		}
	}
	return out
}
