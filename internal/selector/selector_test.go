package selector

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-audit-go/internal/logger"
	"call-audit-go/internal/store"
	"call-audit-go/internal/types"
)

// fakeStore is an in-memory CallStore for selector tests.
type fakeStore struct {
	calls []*types.CallRecord
}

func (f *fakeStore) Find(_ context.Context, filter store.Filter) ([]*types.CallRecord, error) {
	var out []*types.CallRecord
	for _, c := range f.calls {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && c.Date.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && c.Date.After(filter.To) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeStore) Upsert(_ context.Context, call *types.CallRecord) error {
	for i, c := range f.calls {
		if c.ID == call.ID {
			f.calls[i] = call
			return nil
		}
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, id string) (bool, error) {
	for _, c := range f.calls {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

var window = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func call(id, operator string, dayOffset int, durationSec int) *types.CallRecord {
	return &types.CallRecord{
		ID:       id,
		Date:     window.AddDate(0, 0, dayOffset),
		Operator: operator,
		Duration: durationSec,
		AudioURL: "https://pbx.example/rec/" + id,
		Status:   types.StatusNew,
	}
}

func newSelector(st store.CallStore) *Selector {
	return New(st, 2000, 0.9, logger.New())
}

func TestSelectBalancedEmptyWindow(t *testing.T) {
	sel := newSelector(&fakeStore{})
	got, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 100)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelectBalancedTakesEverythingBelowTarget(t *testing.T) {
	st := &fakeStore{calls: []*types.CallRecord{
		call("a1", "anna", 1, 120),
		call("a2", "anna", 2, 180),
		call("b1", "boris", 1, 60),
	}}
	sel := newSelector(st)

	// 100 minutes across 2 operators = 50 per operator, far above the
	// few minutes available: every record must be selected.
	got, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 100)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSelectBalancedOvershootsAtMostOnceThenStops(t *testing.T) {
	// One operator, target 10 minutes. Calls of 6 min each: the check
	// happens before adding, so the second call is still taken (6 < 10)
	// and the third is not (12 >= 10).
	st := &fakeStore{calls: []*types.CallRecord{
		call("c1", "anna", 1, 360),
		call("c2", "anna", 2, 360),
		call("c3", "anna", 3, 360),
	}}
	sel := newSelector(st)

	got, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c2", got[1].ID)
}

func TestSelectBalancedIncludesOversizedCallWhenBelowTarget(t *testing.T) {
	// A single call longer than the whole per-operator budget is still
	// taken because the running total (0) is below target at check time.
	st := &fakeStore{calls: []*types.CallRecord{
		call("big", "anna", 1, 3600), // 60 minutes
		call("next", "anna", 2, 60),
	}}
	sel := newSelector(st)

	got, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "big", got[0].ID)
}

func TestSelectBalancedOrdersByOperatorThenDate(t *testing.T) {
	st := &fakeStore{calls: []*types.CallRecord{
		call("a1", "anna", 1, 60),
		call("b1", "boris", 2, 60),
		call("a2", "anna", 3, 60),
		call("b2", "boris", 4, 60),
	}}
	sel := newSelector(st)

	got, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 2000)
	require.NoError(t, err)
	require.Len(t, got, 4)

	var ids []string
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	// anna encountered first (oldest call), grouped before boris,
	// chronological within each group
	assert.Equal(t, []string{"a1", "a2", "b1", "b2"}, ids)
}

func TestSelectBalancedIsIdempotent(t *testing.T) {
	st := &fakeStore{calls: []*types.CallRecord{
		call("a1", "anna", 1, 300),
		call("b1", "boris", 2, 300),
		call("a2", "anna", 3, 300),
	}}
	sel := newSelector(st)

	first, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 8)
	require.NoError(t, err)
	second, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 8)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, types.StatusNew, first[i].Status)
	}
}

func TestSelectBalancedUsesDefaultTarget(t *testing.T) {
	st := &fakeStore{calls: []*types.CallRecord{
		call("a1", "anna", 1, 60),
	}}
	sel := New(st, 1, 0.9, logger.New()) // default target: 1 minute

	got, err := sel.SelectBalanced(context.Background(), window, window.AddDate(0, 0, 14), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestResolvePeriodFirstHalf(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	start, end := ResolvePeriod(PeriodFirstHalf, now)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 3, 15, 23, 59, 59, 0, time.UTC), end)
}

func TestResolvePeriodSecondHalf(t *testing.T) {
	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	start, end := ResolvePeriod(PeriodSecondHalf, now)
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), end)
}

func TestResolvePeriodAuto(t *testing.T) {
	start, _ := ResolvePeriod(PeriodAuto, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, start.Day())

	start, end := ResolvePeriod(PeriodAuto, time.Date(2026, 5, 16, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 16, start.Day())
	assert.Equal(t, 31, end.Day())
}

func TestResolvePeriodDecemberRollover(t *testing.T) {
	now := time.Date(2026, 12, 20, 0, 0, 0, 0, time.UTC)
	_, end := ResolvePeriod(PeriodSecondHalf, now)
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), end)
}
