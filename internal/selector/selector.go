package selector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"call-audit-go/internal/logger"
	"call-audit-go/internal/store"
	"call-audit-go/internal/types"
)

// Selector picks a load-balanced subset of unprocessed calls for analysis.
// It only reads from the store; selection never mutates record state, so
// re-running on the same window returns the same set.
type Selector struct {
	store              store.CallStore
	defaultTarget      int
	shortfallThreshold float64
	log                *logger.Logger
}

func New(st store.CallStore, defaultTargetMinutes int, shortfallThreshold float64, log *logger.Logger) *Selector {
	return &Selector{
		store:              st,
		defaultTarget:      defaultTargetMinutes,
		shortfallThreshold: shortfallThreshold,
		log:                log,
	}
}

// SelectBalanced returns NEW calls from [start, end] so that minutes of
// audio are spread evenly across operators, up to targetMinutes in total.
// targetMinutes <= 0 uses the configured default.
//
// Per operator the calls are taken oldest-first, and the accumulation
// check happens before each call is added: an operator whose running
// total is still below target takes the next call even when that call
// alone overshoots the per-operator budget. Greedy first-fit, not a
// knapsack.
func (s *Selector) SelectBalanced(ctx context.Context, start, end time.Time, targetMinutes int) ([]*types.CallRecord, error) {
	if targetMinutes <= 0 {
		targetMinutes = s.defaultTarget
	}

	all, err := s.store.Find(ctx, store.Filter{
		Status: types.StatusNew,
		From:   start,
		To:     end,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch NEW calls: %w", err)
	}

	if len(all) == 0 {
		s.log.WithFields(logrus.Fields{
			"start": start.Format("2006-01-02"),
			"end":   end.Format("2006-01-02"),
		}).Warn("no calls found for period")
		return []*types.CallRecord{}, nil
	}

	// Group by operator, keeping first-encounter order.
	byOperator := map[string][]*types.CallRecord{}
	var operators []string
	for _, call := range all {
		if _, ok := byOperator[call.Operator]; !ok {
			operators = append(operators, call.Operator)
		}
		byOperator[call.Operator] = append(byOperator[call.Operator], call)
	}

	targetPerOperator := float64(targetMinutes) / float64(len(operators))
	s.log.WithFields(logrus.Fields{
		"operators":           len(operators),
		"target_minutes":      targetMinutes,
		"target_per_operator": fmt.Sprintf("%.0f", targetPerOperator),
	}).Info("selecting balanced calls")

	var selected []*types.CallRecord
	var totalMinutes float64
	for _, op := range operators {
		calls := byOperator[op]
		sort.SliceStable(calls, func(i, j int) bool { return calls[i].Date.Before(calls[j].Date) })

		var opMinutes float64
		var opSelected []*types.CallRecord
		for _, call := range calls {
			if opMinutes >= targetPerOperator {
				break
			}
			opSelected = append(opSelected, call)
			opMinutes += call.Minutes()
		}

		selected = append(selected, opSelected...)
		totalMinutes += opMinutes
		s.log.WithFields(logrus.Fields{
			"operator": op,
			"calls":    len(opSelected),
			"minutes":  fmt.Sprintf("%.1f", opMinutes),
		}).Info("operator selection done")
	}

	s.log.WithFields(logrus.Fields{
		"calls":   len(selected),
		"minutes": fmt.Sprintf("%.1f", totalMinutes),
	}).Info("selection complete")

	if totalMinutes < float64(targetMinutes)*s.shortfallThreshold {
		s.log.WithFields(logrus.Fields{
			"selected_minutes": fmt.Sprintf("%.0f", totalMinutes),
			"target_minutes":   targetMinutes,
		}).Warn("selected minutes below target, call pool for the period may be too small")
	}

	return selected, nil
}
