// Package rules holds the vessel and product predicates shared by the landing validator
// and the submission pre-check.
package rules

import (
	"context"
	"strings"
	"time"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/refdata"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// DefaultMaxDaysInFuture is how far ahead a landing date may be.
const DefaultMaxDaysInFuture = 3

// =============================================================================
// PURE CHECKS
// =============================================================================

// VesselsNotFound lists landings whose vessel could not be matched to the register.
func VesselsNotFound(payload types.ExportPayload) []types.ValidationFailure {
	var out []types.ValidationFailure
	for _, item := range payload.Items {
		for _, l := range item.Landings {
			if l.Model.Vessel.VesselNotFound {
				out = append(out, failureFor(item.Product, l.Model, types.RuleVesselNotFound))
			}
		}
	}
	return out
}

// InvalidLandingDates lists landings dated more than maxDays days after now.
func InvalidLandingDates(payload types.ExportPayload, now time.Time, maxDays int) []types.ValidationFailure {
	y, m, d := now.UTC().Date()
	limit := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, maxDays)

	var out []types.ValidationFailure
	for _, item := range payload.Items {
		for _, l := range item.Landings {
			landed, ok := l.Model.LandedOn()
			if ok && landed.After(limit) {
				out = append(out, failureFor(item.Product, l.Model, types.RuleInvalidLandingDate))
			}
		}
	}
	return out
}

// InSeasonalRestriction reports whether date falls inside the period, bounds inclusive.
// A period with an unparseable bound restricts nothing.
func InSeasonalRestriction(period refdata.SeasonalPeriod, date time.Time) bool {
	from, ok := types.ParseDate(period.ValidFrom)
	if !ok {
		return false
	}
	to, ok := types.ParseDate(period.ValidTo)
	if !ok {
		return false
	}
	return !date.Before(from) && !date.After(to)
}

// Restricted reports whether species may not be landed on date under any of periods.
func Restricted(periods []refdata.SeasonalPeriod, species string, date time.Time) bool {
	for _, p := range periods {
		if strings.EqualFold(p.Species, species) && InSeasonalRestriction(p, date) {
			return true
		}
	}
	return false
}

func failureFor(p types.Product, l types.Landing, rule string) types.ValidationFailure {
	vessel := l.Vessel.VesselName
	if l.Vessel.PLN != "" {
		vessel += " (" + l.Vessel.PLN + ")"
	}
	return types.ValidationFailure{
		Species:      p.SpeciesLabel,
		State:        p.StateLabel,
		Presentation: p.PresentationLabel,
		Date:         l.DateLanded,
		Vessel:       vessel,
		Rules:        []string{rule},
	}
}

// =============================================================================
// REFERENCE-DATA CHECKS
// =============================================================================

// Checker runs the rule checks that need reference data.
type Checker struct {
	ref refdata.Service
}

// NewChecker returns a Checker.
func NewChecker(ref refdata.Service) *Checker {
	return &Checker{ref: ref}
}

// VesselLicensed reports whether the landing's vessel was licensed on the landing date.
// Admin-overridden vessels and landings with no date are accepted.
func (c *Checker) VesselLicensed(ctx context.Context, l types.Landing) (bool, error) {
	if l.Vessel.VesselOverriddenByAdmin || l.Vessel.PLN == "" || l.DateLanded == "" {
		return true, nil
	}
	return c.ref.VesselLicenceValid(ctx, l.Vessel.PLN, l.DateLanded)
}

// VesselsValid reports whether every landing's vessel was licensed on its landing date.
func (c *Checker) VesselsValid(ctx context.Context, landings []types.Landing) (bool, error) {
	for _, l := range landings {
		ok, err := c.VesselLicensed(ctx, l)
		if err != nil {
			return false, err
		}
		if !ok {
			logging.ValidationDebug("Vessel %s has no licence on %s", l.Vessel.PLN, l.DateLanded)
			return false, nil
		}
	}
	return true, nil
}

// ProductsValid reports whether no landing falls inside a seasonal restriction for its species.
func (c *Checker) ProductsValid(ctx context.Context, items []types.ProductLanded) (bool, error) {
	periods, err := c.ref.SeasonalFishPeriods(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		for _, l := range item.Landings {
			if landed, ok := l.Model.LandedOn(); ok && Restricted(periods, item.Product.SpeciesCode, landed) {
				logging.ValidationDebug("Product %s is restricted on %s", item.Product.SpeciesCode, l.Model.DateLanded)
				return false, nil
			}
		}
	}
	return true, nil
}
