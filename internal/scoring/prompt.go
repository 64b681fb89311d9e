package scoring

import (
	"fmt"
	"strings"

	"call-audit-go/internal/types"
)

const systemPrompt = "You are a strict but fair quality controller. Respond with JSON only."

// buildRubricPrompt embeds the transcript and the three sentiment signals
// into the checklist prompt the model scores against.
func buildRubricPrompt(rubric []Section, transcript string, sentiment types.SentimentSummary) string {
	var b strings.Builder

	b.WriteString("You are a quality-control expert at the L7 Mammology Center.\n")
	b.WriteString("Your task is to analyze the call transcript and evaluate the operator against a STRICT checklist.\n\n")

	b.WriteString("CALL TRANSCRIPT:\n")
	b.WriteString(transcript)
	b.WriteString("\n\n")

	b.WriteString("EMOTION ANALYSIS DATA (speech analytics):\n")
	fmt.Fprintf(&b, "- Operator tone: %s\n", sentiment.Operator)
	fmt.Fprintf(&b, "- Client tone: %s\n", sentiment.Client)
	fmt.Fprintf(&b, "- Interruptions: %d\n\n", sentiment.Interruptions)

	b.WriteString("EVALUATION CRITERIA (maximum 10 points per section, bonus section excepted):\n\n")
	for i, section := range rubric {
		fmt.Fprintf(&b, "%d. %s (0-%d points)\n", i+1, section.Title, section.Max)
		for _, c := range section.Criteria {
			fmt.Fprintf(&b, "   - %s\n", c)
		}
		b.WriteString("\n")
	}

	b.WriteString("RESPONSE FORMAT (JSON):\n{\n")
	for _, section := range rubric {
		fmt.Fprintf(&b, "  %q: score (0-%d),\n", section.Key, section.Max)
		fmt.Fprintf(&b, "  %q: \"what was done / not done\",\n", section.Key+"_comment")
	}
	b.WriteString("  \"summary\": \"Short call summary (strengths/weaknesses)\",\n")
	b.WriteString("  \"recommendation\": \"One main recommendation for the operator\"\n}")

	return b.String()
}

// buildOperatorSummaryPrompt asks for one paragraph condensing the
// per-call recommendations an operator accumulated over the period.
func buildOperatorSummaryPrompt(operator string, recommendations []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an HR specialist at a medical clinic. Below is a list of recommendations for operator %s across %d calls over the last two weeks.\n\n", operator, len(recommendations))
	b.WriteString("PER-CALL RECOMMENDATIONS:\n")
	for i, rec := range recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}
	b.WriteString("\nTASK:\n")
	b.WriteString("Condense these recommendations into one coherent paragraph (3-5 sentences) for the final report.\n\n")
	b.WriteString("Highlight:\n")
	b.WriteString("- The operator's main strengths\n")
	b.WriteString("- The main growth areas (whatever repeats most often)\n")
	b.WriteString("- Concrete actions to improve\n\n")
	b.WriteString("Write professionally but warmly. No JSON, plain text only.")

	return b.String()
}
