package monitor

import (
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/failpoint"
	"mercator-hq/warden/pkg/healing"
	"mercator-hq/warden/pkg/readiness"
)

// DeriveIssues turns a result set into remediation issues: tracked signals
// without data, a stale cache and stopped processes.
func DeriveIssues(cfg *config.Config, results []readiness.CheckResult) []healing.Issue {
	var issues []healing.Issue
	for _, r := range results {
		switch r.ID {
		case failpoint.IDSignalFreshness:
			names, _ := r.Details["no_data"].([]string)
			for _, name := range names {
				issues = append(issues, signalIssue(cfg, name))
			}

		case failpoint.IDCacheFreshness:
			// A timed-out or aborted check says nothing about the cache.
			stale, _ := r.Details["stale"].(bool)
			if r.Status == readiness.StatusError && stale && r.Details["outcome"] != failpoint.OutcomeTimeout {
				issues = append(issues, healing.Issue{
					ID:       r.ID,
					Status:   healing.IssueStale,
					Tier:     config.TierCore,
					CheckID:  r.ID,
					Strategy: healing.StrategyRestart,
					Target:   cfg.Supervisor.IngestionUnit,
				})
			}

		case failpoint.IDIngestionProcess, failpoint.IDTradingProcess:
			if active, known := r.Details["active"].(bool); r.Status == readiness.StatusError && known && !active {
				unit, _ := r.Details["unit"].(string)
				issues = append(issues, healing.Issue{
					ID:       r.ID,
					Status:   healing.IssueDown,
					Tier:     config.TierCore,
					CheckID:  r.ID,
					Strategy: healing.StrategyRestart,
					Target:   unit,
				})
			}
		}
	}
	return issues
}

func signalIssue(cfg *config.Config, name string) healing.Issue {
	issue := healing.Issue{
		ID:       name,
		Status:   healing.IssueNoData,
		Tier:     config.DefaultSignalTier,
		CheckID:  failpoint.IDSignalFreshness,
		Strategy: healing.StrategyNone,
		Entities: cfg.Signals.Watchlist,
	}
	if spec, found := cfg.Signal(name); found {
		issue.Tier = spec.Tier
		issue.Strategy = spec.Strategy
		issue.Target = spec.Endpoint
		issue.Params = spec.Params
	}
	return issue
}

// annotations folds a remediation result into one outcome per failure
// point. A failure point succeeds only if every attempt for it succeeded.
func annotations(res healing.CycleResult) map[string]bool {
	out := make(map[string]bool)
	for _, o := range res.Outcomes {
		if o.Attempt == nil || o.Issue.CheckID == "" {
			continue
		}
		prev, seen := out[o.Issue.CheckID]
		out[o.Issue.CheckID] = o.Attempt.Success && (!seen || prev)
	}
	return out
}
