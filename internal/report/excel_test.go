package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"call-audit-go/internal/logger"
	"call-audit-go/internal/scoring"
	"call-audit-go/internal/types"
)

func processedCall(id, operator string, greeting int, recommendation string) *types.CallRecord {
	return &types.CallRecord{
		ID:       id,
		Date:     time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		Operator: operator,
		Duration: 185,
		Status:   types.StatusProcessed,
		Analysis: &types.RubricResult{
			Greeting: greeting, Needs: 7, Presentation: 9, Objection: 6, Closing: 8, Bonus: 3,
			Summary:        "summary text",
			Recommendation: recommendation,
		},
	}
}

func TestGenerateWritesBothSheets(t *testing.T) {
	calls := []*types.CallRecord{
		processedCall("c1", "Anna", 8, "ask the marketing question"),
		processedCall("c2", "Anna", 6, "ask the marketing question"),
		processedCall("c3", "Boris", 9, "offer two slots"),
		{ID: "skip", Operator: "Anna", Status: types.StatusFailed}, // not rendered
	}

	r := NewReporter(logger.New())
	path, err := r.Generate(context.Background(), calls, scoring.MockScorer{}, t.TempDir())
	require.NoError(t, err)
	require.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(detailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + 3 processed calls
	assert.Equal(t, "Anna", rows[1][0])
	assert.Equal(t, "3:05", rows[1][2])
	assert.Equal(t, "8", rows[1][3])

	sumRows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, sumRows, 3) // header + two operators
	assert.Equal(t, "Anna", sumRows[1][0])
	assert.Equal(t, "2", sumRows[1][1])
	assert.Equal(t, "ask the marketing question", sumRows[1][4])
	assert.NotEmpty(t, sumRows[1][5])
}

func TestGenerateFailsWithoutProcessedCalls(t *testing.T) {
	r := NewReporter(logger.New())
	_, err := r.Generate(context.Background(), []*types.CallRecord{
		{ID: "n1", Status: types.StatusNew},
	}, scoring.MockScorer{}, t.TempDir())
	assert.Error(t, err)
}

func TestTierFor(t *testing.T) {
	assert.Equal(t, "Gold", tierFor(8.6))
	assert.Equal(t, "Silver", tierFor(8.5))
	assert.Equal(t, "Silver", tierFor(7.0))
	assert.Equal(t, "Bronze", tierFor(6.99))
}

func TestTopRecommendation(t *testing.T) {
	assert.Equal(t, "No data", topRecommendation(nil))
	assert.Equal(t, "a", topRecommendation([]string{"a"}))
	assert.Equal(t, "b", topRecommendation([]string{"a", "b", "b"}))
	// ties keep first occurrence
	assert.Equal(t, "a", topRecommendation([]string{"a", "b"}))
}

func TestMailerConfigured(t *testing.T) {
	m := NewMailer(configWith("", "", ""), logger.New())
	assert.False(t, m.Configured())

	m = NewMailer(configWith("user", "pass", "qa@example.com"), logger.New())
	assert.True(t, m.Configured())
}
