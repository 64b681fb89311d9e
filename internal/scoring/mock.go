package scoring

import (
	"context"
	"fmt"

	"call-audit-go/internal/types"
)

// MockScorer returns a fixed evaluation without calling the model.
// Used by mock runs and tests.
type MockScorer struct{}

func (MockScorer) ScoreCall(ctx context.Context, transcript string, sentiment types.SentimentSummary) (*types.RubricResult, error) {
	return &types.RubricResult{
		Greeting:            8,
		GreetingComment:     "Named the clinic and introduced themselves; did not ask how to help.",
		Needs:               7,
		NeedsComment:        "Asked two clarifying questions, confirmed cycle day.",
		Presentation:        9,
		PresentationComment: "Offered two slots and stated the price clearly.",
		Objection:           10,
		ObjectionComment:    "No objections raised.",
		Closing:             6,
		ClosingComment:      "Summarized the booking but skipped the marketing question.",
		Bonus:               3,
		BonusComment:        "Friendly tone, led the conversation.",
		Summary:             "Solid call overall; booking completed, closing checklist incomplete.",
		Recommendation:      "Always ask how the client heard about the clinic before saying goodbye.",
	}, nil
}

func (MockScorer) OperatorSummary(ctx context.Context, operator string, recommendations []string) (string, error) {
	if len(recommendations) == 0 {
		return "Not enough data for analysis", nil
	}
	return fmt.Sprintf("%s handles calls confidently and closes bookings reliably. "+
		"The recurring growth area across %d calls is the closing checklist, in particular the marketing question. "+
		"Recommended action: add the closing script to the pre-call checklist for two weeks.",
		operator, len(recommendations)), nil
}
