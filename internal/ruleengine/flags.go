package ruleengine

import (
	"context"
	"fmt"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

// FlagSource resolves the blocking state of one rule.
type FlagSource interface {
	IsBlocking(ctx context.Context, rule string) (bool, error)
}

// SwitchableRules are the rules whose blocking state is controlled by a feature flag.
var SwitchableRules = []string{types.Rule3C, types.Rule3D, types.Rule4A}

// AlwaysBlockingRules block completion regardless of flags.
var AlwaysBlockingRules = []string{types.RuleNoDataSubmitted, types.RuleNoLicenceHolder}

// Flags is a snapshot of which rules are blocking.
type Flags map[string]bool

// LoadFlags snapshots the blocking state of every known rule.
func LoadFlags(ctx context.Context, src FlagSource) (Flags, error) {
	flags := make(Flags, len(SwitchableRules)+len(AlwaysBlockingRules))
	for _, rule := range SwitchableRules {
		blocking, err := src.IsBlocking(ctx, rule)
		if err != nil {
			return nil, fmt.Errorf("failed to load flag %s: %w", rule, err)
		}
		flags[rule] = blocking
	}
	for _, rule := range AlwaysBlockingRules {
		flags[rule] = true
	}
	return flags, nil
}

// Blocking reports whether rule is blocking.
func (f Flags) Blocking(rule string) bool {
	return f[rule]
}

// AnyBlocking reports whether at least one rule is blocking.
func (f Flags) AnyBlocking() bool {
	for _, blocking := range f {
		if blocking {
			return true
		}
	}
	return false
}

// FilterReport keeps only report rows with at least one blocking failure, and within each
// row only the blocking failures. The input is not modified.
func FilterReport(report []types.OnlineValidationReportItem, flags Flags) []types.OnlineValidationReportItem {
	out := make([]types.OnlineValidationReportItem, 0, len(report))
	for _, item := range report {
		var failures []string
		for _, rule := range item.Failures {
			if flags.Blocking(rule) {
				failures = append(failures, rule)
			}
		}
		if len(failures) == 0 {
			continue
		}
		kept := item
		kept.Failures = failures
		out = append(out, kept)
	}
	return out
}
