// Package types provides the shared data model for export certificates.
// This package exists to break import cycles between the payload, landings and certificate
// packages. Types in this package should be foundational data structures with no complex
// dependencies.
package types

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format of landing dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DOCUMENT REFERENCES
// =============================================================================

// DocumentRef identifies a certificate for one user and contact.
// Every store and session lookup is keyed on it.
type DocumentRef struct {
	UserPrincipal  string `json:"userPrincipal"`
	DocumentNumber string `json:"documentNumber"`
	ContactID      string `json:"contactId"`
}

// Complete reports whether the reference carries the full context needed for
// lookups against persisted data.
func (r DocumentRef) Complete() bool {
	return r.UserPrincipal != "" && r.DocumentNumber != "" && r.ContactID != ""
}

// DocumentStatus is the lifecycle state of a certificate.
type DocumentStatus string

const (
	StatusDraft      DocumentStatus = "DRAFT"
	StatusPending    DocumentStatus = "PENDING"
	StatusValidating DocumentStatus = "VALIDATING"
	StatusComplete   DocumentStatus = "COMPLETE"
	StatusLocked     DocumentStatus = "LOCKED"
	StatusVoid       DocumentStatus = "VOID"
)

// LandingsEntryOption is how the exporter chose to enter landings.
type LandingsEntryOption string

const (
	EntryManual        LandingsEntryOption = "manualEntry"
	EntryDirectLanding LandingsEntryOption = "directLanding"
	EntryUpload        LandingsEntryOption = "uploadEntry"
)

// Valid reports whether o is a known entry option.
func (o LandingsEntryOption) Valid() bool {
	switch o {
	case EntryManual, EntryDirectLanding, EntryUpload:
		return true
	}
	return false
}

// =============================================================================
// EXPORT PAYLOAD
// =============================================================================

// FieldErrors maps a field name to a short, localizable message key.
type FieldErrors map[string]string

// Clone returns a copy of e, or nil if e is empty.
func (e FieldErrors) Clone() FieldErrors {
	if len(e) == 0 {
		return nil
	}
	out := make(FieldErrors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ExportPayload is the ordered list of landed products on a certificate.
type ExportPayload struct {
	Items  []ProductLanded `json:"items"`
	Error  string          `json:"error,omitempty"`
	Errors FieldErrors     `json:"errors,omitempty"`
}

// Clone deep-copies the payload so callers can modify the result freely.
func (p ExportPayload) Clone() ExportPayload {
	out := ExportPayload{
		Items:  make([]ProductLanded, len(p.Items)),
		Error:  p.Error,
		Errors: p.Errors.Clone(),
	}
	for i, item := range p.Items {
		out.Items[i] = item.Clone()
	}
	return out
}

// AllLandings flattens the landings of every product.
func (p ExportPayload) AllLandings() []Landing {
	var out []Landing
	for _, item := range p.Items {
		for _, l := range item.Landings {
			out = append(out, l.Model)
		}
	}
	return out
}

// Product describes what was caught and how it is presented.
type Product struct {
	ID                string `json:"id"`
	CommodityCode     string `json:"commodityCode"`
	SpeciesCode       string `json:"speciesCode"`
	SpeciesLabel      string `json:"species"`
	StateCode         string `json:"stateCode"`
	StateLabel        string `json:"stateLabel"`
	PresentationCode  string `json:"presentationCode"`
	PresentationLabel string `json:"presentationLabel"`
	ScientificName    string `json:"scientificName,omitempty"`
}

// ProductLanded is a product and the landings declared against it.
type ProductLanded struct {
	Product  Product         `json:"product"`
	Landings []LandingStatus `json:"landings"`
}

// Clone deep-copies the product and its landings.
func (p ProductLanded) Clone() ProductLanded {
	out := ProductLanded{Product: p.Product}
	if p.Landings != nil {
		out.Landings = make([]LandingStatus, len(p.Landings))
		for i, l := range p.Landings {
			out.Landings[i] = l.Clone()
		}
	}
	return out
}

// LandingStatus wraps a landing with the transient UI state used while editing.
type LandingStatus struct {
	Model     Landing     `json:"model"`
	AddMode   bool        `json:"addMode,omitempty"`
	EditMode  bool        `json:"editMode,omitempty"`
	Error     string      `json:"error,omitempty"`
	Errors    FieldErrors `json:"errors,omitempty"`
	ModelCopy *Landing    `json:"modelCopy,omitempty"`
}

// Clone deep-copies the landing status.
func (l LandingStatus) Clone() LandingStatus {
	out := l
	out.Model = l.Model.Clone()
	out.Errors = l.Errors.Clone()
	if l.ModelCopy != nil {
		c := l.ModelCopy.Clone()
		out.ModelCopy = &c
	}
	return out
}

// Landing is one declared catch event.
type Landing struct {
	ID                     string   `json:"id"`
	Vessel                 Vessel   `json:"vessel"`
	DateLanded             string   `json:"dateLanded"`
	StartDate              string   `json:"startDate,omitempty"`
	ExportWeight           Weight   `json:"exportWeight"`
	FaoArea                string   `json:"faoArea"`
	GearCategory           string   `json:"gearCategory,omitempty"`
	GearType               string   `json:"gearType,omitempty"`
	HighSeasArea           string   `json:"highSeasArea,omitempty"`
	ExclusiveEconomicZones []string `json:"exclusiveEconomicZones,omitempty"`
	NumberOfSubmissions    int      `json:"numberOfSubmissions,omitempty"`
}

// Clone deep-copies the landing.
func (l Landing) Clone() Landing {
	out := l
	if l.ExclusiveEconomicZones != nil {
		out.ExclusiveEconomicZones = append([]string(nil), l.ExclusiveEconomicZones...)
	}
	return out
}

// LandedOn parses DateLanded. ok is false for empty or malformed dates.
func (l Landing) LandedOn() (time.Time, bool) {
	return ParseDate(l.DateLanded)
}

// StartedOn parses StartDate. ok is false for empty or malformed dates.
func (l Landing) StartedOn() (time.Time, bool) {
	return ParseDate(l.StartDate)
}

// Vessel is the vessel reference of a landing.
type Vessel struct {
	PLN                     string `json:"pln"`
	VesselName              string `json:"vesselName"`
	LicenceNumber           string `json:"licenceNumber,omitempty"`
	HomePort                string `json:"homePort,omitempty"`
	FlagState               string `json:"flag,omitempty"`
	VesselNotFound          bool   `json:"vesselNotFound,omitempty"`
	VesselOverriddenByAdmin bool   `json:"vesselOverriddenByAdmin,omitempty"`
}

// ParseDate parses a landing date, accepting a bare date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// Weight is an export weight. Values that are not numeric decode to zero.
type Weight float64

// UnmarshalJSON accepts numbers and numeric strings; anything else becomes 0.
func (w *Weight) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*w = Weight(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*w = Weight(f)
			return nil
		}
	}
	*w = 0
	return nil
}

// =============================================================================
// SESSION OVERLAY
// =============================================================================

// SessionLanding is the unsaved edit state of one landing held in the session store.
type SessionLanding struct {
	ID        string      `json:"id"`
	Model     *Landing    `json:"model,omitempty"`
	AddMode   bool        `json:"addMode,omitempty"`
	EditMode  bool        `json:"editMode,omitempty"`
	Error     string      `json:"error,omitempty"`
	Errors    FieldErrors `json:"errors,omitempty"`
	ModelCopy *Landing    `json:"modelCopy,omitempty"`
}

// =============================================================================
// EXPORTER, TRANSPORT, LOCATION, CONSERVATION
// =============================================================================

// ExporterDetails is the exporter block of a certificate.
type ExporterDetails struct {
	ContactID           string `json:"contactId,omitempty"`
	AccountID           string `json:"accountId,omitempty"`
	ExporterFullName    string `json:"exporterFullName,omitempty"`
	ExporterCompanyName string `json:"exporterCompanyName,omitempty"`
	AddressOne          string `json:"addressOne,omitempty"`
	TownCity            string `json:"townCity,omitempty"`
	Postcode            string `json:"postcode,omitempty"`
}

// ExportLocation is where the consignment leaves from and goes to.
type ExportLocation struct {
	ExportedFrom string `json:"exportedFrom,omitempty"`
	ExportedTo   struct {
		OfficialCountryName string `json:"officialCountryName,omitempty"`
		IsoCodeAlpha2       string `json:"isoCodeAlpha2,omitempty"`
	} `json:"exportedTo"`
}

// Transport is the transport leg of a certificate.
type Transport struct {
	Vehicle              string `json:"vehicle,omitempty"`
	ExportedFrom         string `json:"exportedFrom,omitempty"`
	ExportedTo           string `json:"exportedTo,omitempty"`
	DeparturePlace       string `json:"departurePlace,omitempty"`
	NationalityOfVehicle string `json:"nationalityOfVehicle,omitempty"`
	RegistrationNumber   string `json:"registrationNumber,omitempty"`
	FlightNumber         string `json:"flightNumber,omitempty"`
	ContainerNumber      string `json:"containerNumber,omitempty"`
	VesselName           string `json:"vesselName,omitempty"`
	FlagState            string `json:"flagState,omitempty"`
}

// Conservation is the conservation-management block of a certificate.
type Conservation struct {
	CaughtUnder           string `json:"caughtUnder,omitempty"`
	ConservationReference string `json:"conservationReference,omitempty"`
	OtherWaters           string `json:"otherWaters,omitempty"`
}
