package schedule

import "fmt"

// Candidate is a member being scored for a possible assignment. It is
// ephemeral: recomputed from stores on each scoring call, never persisted.
type Candidate struct {
	MemberID       int64   `json:"member_id"`
	OpenChores     int     `json:"open_chores"`
	CompletionRate float64 `json:"completion_rate"`
	Conflicts      int     `json:"conflicts"`
}

const (
	baseScore          = 100.0
	conflictPenalty    = 30.0
	workloadPenaltyCap = 30.0
	workloadPenalty    = 5.0
	completionWeight   = 20.0
)

// Score rates a candidate: base 100, minus 30 per same-day conflict, minus
// 5 per open chore (capped at 30), plus (completionRate - 0.5) * 20, with a
// floor of 0 and no upper bound.
func Score(c Candidate) int {
	workload := float64(c.OpenChores) * workloadPenalty
	if workload > workloadPenaltyCap {
		workload = workloadPenaltyCap
	}

	s := baseScore
	s -= float64(c.Conflicts) * conflictPenalty
	s -= workload
	s += (c.CompletionRate - 0.5) * completionWeight

	if s < 0 {
		return 0
	}
	return int(s)
}

// SelectBest returns the highest-scoring candidate. Ties break toward the
// lowest member id so repeated calls are deterministic.
func SelectBest(candidates []Candidate) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("select best: %w", ErrNoActiveMembers)
	}

	best := candidates[0]
	bestScore := Score(best)
	for _, c := range candidates[1:] {
		s := Score(c)
		if s > bestScore || (s == bestScore && c.MemberID < best.MemberID) {
			best = c
			bestScore = s
		}
	}
	return best, nil
}
