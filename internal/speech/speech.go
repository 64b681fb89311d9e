package speech

import (
	"context"

	"call-audit-go/internal/types"
)

// Result is what the speech-analysis service produces for one recording.
type Result struct {
	Transcript string                 `json:"transcript"`
	Sentiment  types.SentimentSummary `json:"sentiment"`
}

// Analyzer converts an audio file on disk into a transcript plus
// sentiment/interruption statistics.
type Analyzer interface {
	Analyze(ctx context.Context, audioPath string) (*Result, error)
}

// MockAnalyzer returns a deterministic transcript without touching the
// network or the file at audioPath. Used by mock runs and tests.
type MockAnalyzer struct{}

func (MockAnalyzer) Analyze(ctx context.Context, audioPath string) (*Result, error) {
	return &Result{
		Transcript: "Operator: Good afternoon, L7 Mammology Center, Anna speaking, how can I help you?\n" +
			"Client: Hello, I would like to book an ultrasound appointment.\n" +
			"Operator: Of course. May I ask your age and the day of your cycle?\n" +
			"Client: I am 34, day eight.\n" +
			"Operator: Perfect. I can offer Tuesday 10:00 or Thursday 16:30, the exam is 2500 rubles.\n" +
			"Client: Thursday works. Thank you.\n" +
			"Operator: Booked for Thursday 16:30. May I ask how you heard about us? Have a good day!",
		Sentiment: types.SentimentSummary{
			Operator:      "positive",
			Client:        "neutral",
			Interruptions: 1,
		},
	}, nil
}
