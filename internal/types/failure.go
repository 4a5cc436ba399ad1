package types

import "time"

// Rule names reported by the rule engine.
const (
	Rule3C              = "3C"
	Rule3D              = "3D"
	Rule4A              = "4A"
	RuleNoDataSubmitted = "noDataSubmitted"
	RuleNoLicenceHolder = "noLicenceHolder"

	// Pre-submission rules raised locally before the rule engine runs.
	RuleVesselNotFound     = "vesselNotFound"
	RuleInvalidLandingDate = "invalidLandingDate"
)

// ValidationFailure records a regulatory rule violation against a landing.
type ValidationFailure struct {
	Species      string   `json:"species"`
	State        string   `json:"state"`
	Presentation string   `json:"presentation"`
	Date         string   `json:"date"`
	Vessel       string   `json:"vessel"`
	Rules        []string `json:"rules"`
}

// SystemFailure records a processing fault tied to a document.
type SystemFailure struct {
	ID             string    `json:"id"`
	DocumentNumber string    `json:"documentNumber"`
	Message        string    `json:"message"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// OnlineValidationReportItem is one row of the rule engine report.
type OnlineValidationReportItem struct {
	Species      string   `json:"species"`
	Presentation string   `json:"presentation"`
	State        string   `json:"state"`
	Date         string   `json:"date"`
	Vessel       string   `json:"vessel"`
	Failures     []string `json:"failures"`
}

// ToFailure converts a report row into a summary failure.
func (r OnlineValidationReportItem) ToFailure() ValidationFailure {
	return ValidationFailure{
		Species:      r.Species,
		State:        r.State,
		Presentation: r.Presentation,
		Date:         r.Date,
		Vessel:       r.Vessel,
		Rules:        append([]string(nil), r.Failures...),
	}
}

// ExportCertificateResult is the outcome of one submission attempt.
type ExportCertificateResult struct {
	DocumentNumber    string                       `json:"documentNumber"`
	URI               string                       `json:"uri,omitempty"`
	Report            []OnlineValidationReportItem `json:"report"`
	IsBlockingEnabled bool                         `json:"isBlockingEnabled"`
}

// Passed reports whether the certificate was generated.
func (r ExportCertificateResult) Passed() bool {
	return r.URI != ""
}
