package plan

import (
	"tourplan/internal/model"
)

// Scorer assigns a priority score to a pending leave request. Higher scores
// should be granted first.
type Scorer func(model.LeaveRequest) float64

// ScoringWeights parameterize DefaultScorer.
type ScoringWeights struct {
	Seniority float64 `yaml:"seniority"` // per year of seniority
	LeadTime  float64 `yaml:"leadTime"`  // per week of notice before the leave starts
	Length    float64 `yaml:"length"`    // penalty per week of requested leave
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Seniority: 1.0, LeadTime: 0.5, Length: 0.25}
}

// DefaultScorer is a deterministic fairness heuristic: seniority and early
// submission raise the score, long requests lower it.
func DefaultScorer(w ScoringWeights) Scorer {
	return func(r model.LeaveRequest) float64 {
		leadWeeks := 0.0
		if !r.SubmittedAt.IsZero() && r.StartDate.After(r.SubmittedAt) {
			leadWeeks = r.StartDate.Sub(r.SubmittedAt).Hours() / (24 * 7)
		}
		lengthWeeks := (r.EndDate.Sub(r.StartDate).Hours()/24 + 1) / 7
		return w.Seniority*r.SeniorityYears + w.LeadTime*leadWeeks - w.Length*lengthWeeks
	}
}

type capKey struct {
	week        int
	zone, skill string
}

// SimulateCampaign recomputes impact, delta and priority score for every
// pending request against the weekly capacity ceilings. For each pending
// request the delta is the minimum, over the ISO weeks of its span that have
// a capacity record, of capacity minus already-accepted overlapping requests
// minus one (the slot the request itself would take). Weeks with no capacity
// record carry no constraint. Settled requests come back with their
// simulation fields cleared, never recomputed. The input slice is not
// mutated.
func SimulateCampaign(requests []model.LeaveRequest, needs []model.CapacityNeed, score Scorer) []model.LeaveRequest {
	if score == nil {
		score = DefaultScorer(DefaultScoringWeights())
	}
	ceilings := map[capKey]int{}
	for _, n := range needs {
		ceilings[capKey{n.Week, n.Zone, n.Skill}] = n.Capacity
	}
	out := make([]model.LeaveRequest, len(requests))
	for i, r := range requests {
		rc := r
		rc.Impact, rc.Delta, rc.PriorityScore = nil, nil, nil
		if r.Status != model.LeavePending {
			out[i] = rc
			continue
		}
		minDelta, constrained := 0, false
		for _, w := range WeekSpan(r.StartDate, r.EndDate) {
			capacity, ok := ceilings[capKey{w, r.Zone, r.Skill}]
			if !ok {
				continue
			}
			d := capacity - validatedCount(requests, r, w) - 1
			if !constrained || d < minDelta {
				minDelta = d
				constrained = true
			}
		}
		if constrained {
			delta := minDelta
			impact := classifyDelta(delta)
			rc.Delta = &delta
			rc.Impact = &impact
		} else {
			// No capacity record anywhere in the span: unconstrained.
			impact := model.ImpactOK
			rc.Impact = &impact
		}
		s := score(rc)
		rc.PriorityScore = &s
		out[i] = rc
	}
	return out
}

// validatedCount counts accepted requests, other than r, for the same
// zone/skill whose span covers week w.
func validatedCount(requests []model.LeaveRequest, r model.LeaveRequest, w int) int {
	n := 0
	for _, o := range requests {
		if o.ID == r.ID || o.Status != model.LeaveAccepted {
			continue
		}
		if o.Zone != r.Zone || o.Skill != r.Skill {
			continue
		}
		for _, ow := range WeekSpan(o.StartDate, o.EndDate) {
			if ow == w {
				n++
				break
			}
		}
	}
	return n
}

func classifyDelta(delta int) model.Impact {
	switch {
	case delta < 0:
		return model.ImpactKO
	case delta <= 2:
		return model.ImpactTight
	default:
		return model.ImpactOK
	}
}
