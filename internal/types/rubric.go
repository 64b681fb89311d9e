package types

// RubricResult is the structured evaluation the scoring model returns for
// one call. The five main sections are scored 0-10, the bonus section 0-5.
type RubricResult struct {
	Greeting            int    `json:"greeting"`
	GreetingComment     string `json:"greeting_comment"`
	Needs               int    `json:"needs"`
	NeedsComment        string `json:"needs_comment"`
	Presentation        int    `json:"presentation"`
	PresentationComment string `json:"presentation_comment"`
	Objection           int    `json:"objection"`
	ObjectionComment    string `json:"objection_comment"`
	Closing             int    `json:"closing"`
	ClosingComment      string `json:"closing_comment"`
	Bonus               int    `json:"bonus"`
	BonusComment        string `json:"bonus_comment"`
	Summary             string `json:"summary"`
	Recommendation      string `json:"recommendation"`
}

// AggregateScore derives the overall 0-10 score from the sub-scores:
// the five main sections averaged onto a 10-point scale, plus 0.2 per
// bonus point, capped at 10. The aggregate is always recomputed, never
// stored as ground truth.
func (r *RubricResult) AggregateScore() float64 {
	totalMain := r.Greeting + r.Needs + r.Presentation + r.Objection + r.Closing
	score := float64(totalMain) / 50.0 * 10.0
	score += float64(r.Bonus) * 0.2
	if score > 10.0 {
		score = 10.0
	}
	return score
}

// SentimentSummary carries the speech-analysis signals the scoring prompt
// embeds alongside the transcript.
type SentimentSummary struct {
	Operator      string `json:"operator"`
	Client        string `json:"client"`
	Interruptions int    `json:"interruptions"`
}
