package healing

import (
	"sort"

	"mercator-hq/warden/pkg/config"
)

// Issue statuses that remediation acts on.
const (
	IssueNoData = "no_data"
	IssueStale  = "stale"
	IssueDown   = "down"
)

// Issue is one unhealthy item found by detection.
type Issue struct {
	// ID keys the ledger: a signal name or a failure point id.
	ID string `json:"id"`

	// Status is "no_data", "stale" or "down".
	Status string `json:"status"`

	// Tier orders remediation: core, computed, auxiliary, other.
	Tier string `json:"tier"`

	// CheckID is the failure point annotated with the outcome.
	CheckID string `json:"check_id"`

	// Strategy names the remediation: recompute, refetch or restart.
	Strategy string `json:"strategy"`

	// Target is the endpoint for refetch or the unit for restart.
	Target string `json:"target,omitempty"`

	Params   map[string]string `json:"params,omitempty"`
	Entities []string          `json:"entities,omitempty"`
}

// Actionable reports whether the issue status is one remediation handles.
func (i Issue) Actionable() bool {
	switch i.Status {
	case IssueNoData, IssueStale, IssueDown:
		return true
	default:
		return false
	}
}

var tierRank = map[string]int{
	config.TierCore:      0,
	config.TierComputed:  1,
	config.TierAuxiliary: 2,
	config.TierOther:     3,
}

func rank(tier string) int {
	if r, found := tierRank[tier]; found {
		return r
	}
	return len(tierRank)
}

// Prioritize drops non-actionable issues and sorts the rest by tier, then
// by id.
func Prioritize(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, is := range issues {
		if is.Actionable() {
			out = append(out, is)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i].Tier), rank(out[j].Tier)
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
