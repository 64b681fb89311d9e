package report

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"call-audit-go/internal/logger"
	"call-audit-go/internal/types"
)

const (
	detailSheet  = "Detail"
	summarySheet = "Summary"
)

// SummaryGenerator produces the per-operator paragraph for the summary
// sheet. The scoring client implements it; mock runs use the mock scorer.
type SummaryGenerator interface {
	OperatorSummary(ctx context.Context, operator string, recommendations []string) (string, error)
}

// Reporter renders processed calls into the two-sheet Excel report.
type Reporter struct {
	log *logger.Logger
}

func NewReporter(log *logger.Logger) *Reporter {
	return &Reporter{log: log}
}

type operatorGroup struct {
	name            string
	calls           []*types.CallRecord
	recommendations []string
}

// Generate writes Report_DD.MM.YY.xlsx into outDir and returns its path.
// Only PROCESSED calls (the ones carrying an analysis) are rendered.
func (r *Reporter) Generate(ctx context.Context, calls []*types.CallRecord, gen SummaryGenerator, outDir string) (string, error) {
	var processed []*types.CallRecord
	for _, c := range calls {
		if c.Status == types.StatusProcessed && c.Analysis != nil {
			processed = append(processed, c)
		}
	}
	if len(processed) == 0 {
		return "", fmt.Errorf("no processed calls to report")
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", detailSheet)
	if _, err := f.NewSheet(summarySheet); err != nil {
		return "", fmt.Errorf("create summary sheet: %w", err)
	}

	if err := r.writeDetail(f, processed); err != nil {
		return "", err
	}
	if err := r.writeSummary(ctx, f, processed, gen); err != nil {
		return "", err
	}

	name := fmt.Sprintf("Report_%s.xlsx", time.Now().Format("02.01.06"))
	path := filepath.Join(outDir, name)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	r.log.WithField("path", path).Info("report generated")
	return path, nil
}

func (r *Reporter) writeDetail(f *excelize.File, calls []*types.CallRecord) error {
	header := []any{
		"Operator", "Date", "Duration",
		"Greeting", "Needs", "Presentation", "Objection", "Closing", "Bonus",
		"Score", "Summary", "Recommendation",
	}
	if err := f.SetSheetRow(detailSheet, "A1", &header); err != nil {
		return fmt.Errorf("write detail header: %w", err)
	}

	for i, call := range calls {
		ai := call.Analysis
		row := []any{
			call.Operator,
			call.Date.Format("02.01.2006 15:04"),
			fmt.Sprintf("%d:%02d", call.Duration/60, call.Duration%60),
			ai.Greeting, ai.Needs, ai.Presentation, ai.Objection, ai.Closing, ai.Bonus,
			fmt.Sprintf("%.1f", ai.AggregateScore()),
			ai.Summary,
			ai.Recommendation,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(detailSheet, cell, &row); err != nil {
			return fmt.Errorf("write detail row %d: %w", i+2, err)
		}
	}

	widths := map[string]float64{
		"A": 25, "B": 18, "C": 10,
		"D": 10, "E": 10, "F": 12, "G": 10, "H": 10, "I": 8,
		"J": 8, "K": 50, "L": 50,
	}
	for col, w := range widths {
		if err := f.SetColWidth(detailSheet, col, col, w); err != nil {
			return fmt.Errorf("set detail widths: %w", err)
		}
	}
	return nil
}

func (r *Reporter) writeSummary(ctx context.Context, f *excelize.File, calls []*types.CallRecord, gen SummaryGenerator) error {
	groups := map[string]*operatorGroup{}
	var order []string
	for _, call := range calls {
		g, ok := groups[call.Operator]
		if !ok {
			g = &operatorGroup{name: call.Operator}
			groups[call.Operator] = g
			order = append(order, call.Operator)
		}
		g.calls = append(g.calls, call)
		if call.Analysis.Recommendation != "" {
			g.recommendations = append(g.recommendations, call.Analysis.Recommendation)
		}
	}
	sort.Strings(order)

	header := []any{"Operator", "Calls", "Avg score", "Tier", "Frequent issue", "Period summary"}
	if err := f.SetSheetRow(summarySheet, "A1", &header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}

	for i, name := range order {
		g := groups[name]
		avg := averageScore(g.calls)
		tier := tierFor(avg)

		paragraph, err := gen.OperatorSummary(ctx, name, g.recommendations)
		if err != nil {
			r.log.WithField("operator", name).WithError(err).Warn("operator summary generation failed")
			paragraph = "Summary unavailable"
		}

		row := []any{
			name,
			len(g.calls),
			fmt.Sprintf("%.2f", avg),
			tier,
			topRecommendation(g.recommendations),
			paragraph,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+2, err)
		}
	}

	widths := map[string]float64{"A": 25, "B": 8, "C": 10, "D": 10, "E": 50, "F": 70}
	for col, w := range widths {
		if err := f.SetColWidth(summarySheet, col, col, w); err != nil {
			return fmt.Errorf("set summary widths: %w", err)
		}
	}
	return nil
}

func averageScore(calls []*types.CallRecord) float64 {
	if len(calls) == 0 {
		return 0
	}
	var sum float64
	for _, c := range calls {
		sum += c.Analysis.AggregateScore()
	}
	return sum / float64(len(calls))
}

// tierFor labels an operator's period average: Gold above 8.5, Silver
// from 7 up, Bronze below.
func tierFor(avg float64) string {
	switch {
	case avg > 8.5:
		return "Gold"
	case avg >= 7:
		return "Silver"
	default:
		return "Bronze"
	}
}

// topRecommendation returns the most frequent recommendation, ties
// broken by first occurrence.
func topRecommendation(recs []string) string {
	if len(recs) == 0 {
		return "No data"
	}
	counts := map[string]int{}
	best := recs[0]
	for _, rec := range recs {
		counts[rec]++
		if counts[rec] > counts[best] {
			best = rec
		}
	}
	return best
}
