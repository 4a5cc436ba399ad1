package landings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/refdata"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/rules"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"

	"golang.org/x/sync/errgroup"
)

// Field error keys. Callers localize them.
const (
	KeyNoValidLicence      = "ccAddLandingDateLandedNoValidLicence"
	KeyTotalWeightLessThan = "ccAddLandingTotalExportWeightLessThan"
	KeySeasonalRestriction = "ccAddLandingSeasonalFishRestriction"
	KeyGearTypeInvalid     = "ccAddLandingGearTypeInvalid"
	invalidError           = "invalid"
	fieldDateLanded        = "dateLanded"
	fieldStartDate         = "startDate"
	fieldExportWeight      = "exportWeight"
	fieldGearType          = "gearType"
)

// ValidationError is a user-correctable rejection with one message key per field.
type ValidationError struct {
	Message string            `json:"error"`
	Errors  types.FieldErrors `json:"errors"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(fields, ", "))
}

// Validator runs every landing check and merges the field errors into one verdict.
type Validator struct {
	checker *rules.Checker
	ref     refdata.Service
	guard   *WeightGuard
}

// NewValidator returns a Validator.
func NewValidator(ref refdata.Service, payloads PayloadSource) *Validator {
	return &Validator{
		checker: rules.NewChecker(ref),
		ref:     ref,
		guard:   NewWeightGuard(payloads),
	}
}

// ValidateLanding checks candidate landings. It returns nil when every check passes.
// All checks run even after one fails so the caller sees every violated field at once.
// ref may be zero, in which case the aggregate weight check is skipped.
func (v *Validator) ValidateLanding(ctx context.Context, items []types.ProductLanded, ref types.DocumentRef) (*ValidationError, error) {
	timer := logging.StartTimer(logging.CategoryValidation, "ValidateLanding")
	defer timer.Stop()

	var candidates []types.Landing
	for _, item := range items {
		for _, l := range item.Landings {
			candidates = append(candidates, l.Model)
		}
	}

	errs := types.FieldErrors{}

	// Vessel licence on the landing date
	for _, l := range candidates {
		ok, err := v.checker.VesselLicensed(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("vessel check: %w", err)
		}
		if !ok {
			errs[fieldDateLanded] = KeyNoValidLicence
			break
		}
	}

	// Aggregate export weight
	failure, err := v.guard.ValidateAggregateExportWeight(ctx, candidates, ref)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		errs[fieldExportWeight] = KeyTotalWeightLessThan
	}

	// Seasonal restrictions
	periods, err := v.ref.SeasonalFishPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("seasonal periods: %w", err)
	}
	seasonal, scanned := seasonalErrors(items, periods)
	logging.ValidationDebug("Seasonal check scanned %d landings against %d periods", scanned, len(periods))
	for field, key := range seasonal {
		errs[field] = key
	}

	// Gear types
	if !v.gearTypesValid(ctx, candidates) {
		errs[fieldGearType] = KeyGearTypeInvalid
	}

	if len(errs) == 0 {
		return nil, nil
	}
	logging.ValidationDebug("Landing validation failed: %v", errs)
	return &ValidationError{Message: invalidError, Errors: errs}, nil
}

// seasonalErrors marks startDate and dateLanded for landings inside a restricted period.
// startDate is checked before dateLanded and the scan stops once both are marked.
// scanned is the number of landings examined.
func seasonalErrors(items []types.ProductLanded, periods []refdata.SeasonalPeriod) (errs types.FieldErrors, scanned int) {
	errs = types.FieldErrors{}
	if len(periods) == 0 {
		return errs, 0
	}
	for _, item := range items {
		species := item.Product.SpeciesCode
		for _, l := range item.Landings {
			scanned++
			if started, ok := l.Model.StartedOn(); ok && rules.Restricted(periods, species, started) {
				errs[fieldStartDate] = KeySeasonalRestriction
			}
			if landed, ok := l.Model.LandedOn(); ok && rules.Restricted(periods, species, landed) {
				errs[fieldDateLanded] = KeySeasonalRestriction
			}
			if errs[fieldStartDate] != "" && errs[fieldDateLanded] != "" {
				return errs, scanned
			}
		}
	}
	return errs, scanned
}

// gearTypesValid checks every landing with a gear category concurrently. A failed or
// erroring check makes the whole set invalid without cancelling its siblings.
func (v *Validator) gearTypesValid(ctx context.Context, candidates []types.Landing) bool {
	var invalid atomic.Bool
	var g errgroup.Group
	for _, l := range candidates {
		if l.GearCategory == "" {
			continue
		}
		l := l
		g.Go(func() error {
			ok, err := v.ref.GearTypeValid(ctx, l.GearCategory, l.GearType)
			if err != nil {
				logging.Get(logging.CategoryValidation).Warn("Gear type check failed for %s/%s: %v", l.GearCategory, l.GearType, err)
				invalid.Store(true)
				return nil
			}
			if !ok {
				invalid.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()
	return !invalid.Load()
}
