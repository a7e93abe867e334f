package services

import (
	"github.com/jwebster45206/mystery-engine/pkg/scoring"
)

// scorePayload mirrors scoring.Result with optional fields so presence
// can be checked after decoding. A remote score is only trusted when
// every field arrived; anything less collapses to "absent" and the
// deterministic scorer takes over.
type scorePayload struct {
	Score   *int    `json:"score"`
	Grade   *string `json:"grade"`
	Matches *struct {
		Killer *bool `json:"killer"`
		Motive *bool `json:"motive"`
		Method *bool `json:"method"`
		Trick  *bool `json:"trick"`
	} `json:"matches"`
	Feedback        *string   `json:"feedback"`
	Contradictions  *[]string `json:"contradictions"`
	WeaknessesTop3  *[]string `json:"weaknesses_top3"`
	SolutionSummary *string   `json:"solution_summary"`
}

func (p *scorePayload) complete() bool {
	if p.Score == nil || p.Grade == nil || p.Feedback == nil ||
		p.Contradictions == nil || p.WeaknessesTop3 == nil || p.SolutionSummary == nil {
		return false
	}
	m := p.Matches
	return m != nil && m.Killer != nil && m.Motive != nil && m.Method != nil && m.Trick != nil
}

// decodeScorePayload parses a remote scoring response. It returns nil for
// malformed or incomplete payloads; that is not an error, just an absent
// result.
func decodeScorePayload(raw string) *scoring.Result {
	var payload scorePayload
	if err := extractJSON(raw, &payload); err != nil {
		return nil
	}
	if !payload.complete() {
		return nil
	}

	return &scoring.Result{
		Score: *payload.Score,
		Grade: *payload.Grade,
		Matches: scoring.Matches{
			Killer: *payload.Matches.Killer,
			Motive: *payload.Matches.Motive,
			Method: *payload.Matches.Method,
			Trick:  *payload.Matches.Trick,
		},
		Feedback:        *payload.Feedback,
		Contradictions:  *payload.Contradictions,
		WeaknessesTop3:  *payload.WeaknessesTop3,
		SolutionSummary: *payload.SolutionSummary,
	}
}
