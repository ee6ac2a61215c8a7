package readiness

// Aggregate derives the readiness snapshot for a result set.
// The input order is preserved in FailurePoints.
func Aggregate(results []CheckResult) Snapshot {
	snap := Snapshot{
		Readiness:     LevelReady,
		TotalChecked:  len(results),
		FailurePoints: make([]CheckResult, len(results)),
	}
	copy(snap.FailurePoints, results)

	for _, r := range results {
		switch r.Status {
		case StatusError:
			snap.CriticalCount++
		case StatusWarn:
			snap.WarningCount++
		}
	}

	switch {
	case snap.CriticalCount > 0:
		snap.Readiness = LevelBlocked
	case snap.WarningCount > 0:
		snap.Readiness = LevelDegraded
	}

	return snap
}

// Response builds the dashboard payload for the snapshot.
func (s Snapshot) Response() Response {
	resp := Response{
		Readiness:     s.Readiness,
		Color:         s.Readiness.Color(),
		CriticalCount: s.CriticalCount,
		WarningCount:  s.WarningCount,
		TotalChecked:  s.TotalChecked,
		FailurePoints: s.FailurePoints,
		CriticalFPs:   []string{},
		WarningFPs:    []string{},
	}
	if resp.FailurePoints == nil {
		resp.FailurePoints = []CheckResult{}
	}

	for _, fp := range s.FailurePoints {
		switch fp.Status {
		case StatusError:
			resp.CriticalFPs = append(resp.CriticalFPs, fp.ID)
		case StatusWarn:
			resp.WarningFPs = append(resp.WarningFPs, fp.ID)
		}
	}

	return resp
}

// Find returns the failure point with the given id.
func (s Snapshot) Find(id string) (CheckResult, bool) {
	for _, fp := range s.FailurePoints {
		if fp.ID == id {
			return fp, true
		}
	}
	return CheckResult{}, false
}
