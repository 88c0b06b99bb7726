// Package monitoring watches pipeline run health and raises webhook alerts.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/store"
)

// maxRunsScanned bounds one collection pass.
const maxRunsScanned = 1000

// Snapshot holds a point-in-time view of run health.
type Snapshot struct {
	RunsTotal    int                   `json:"runs_total"`
	RunsComplete int                   `json:"runs_complete"`
	RunsFailed   int                   `json:"runs_failed"`
	RunsInFlight int                   `json:"runs_in_flight"`
	RunsStuck    int                   `json:"runs_stuck"`
	FailRate     float64               `json:"fail_rate"`
	FailedByKind map[model.RunKind]int `json:"failed_by_kind,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the part of the store the collector reads.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
}

// Collector gathers run health from the store.
type Collector struct {
	runs       RunLister
	stuckAfter time.Duration
	now        func() time.Time
}

// NewCollector creates a collector. Runs that are not finished and have not
// moved for stuckAfter count as stuck; zero disables the check.
func NewCollector(runs RunLister, stuckAfter time.Duration) *Collector {
	return &Collector{runs: runs, stuckAfter: stuckAfter, now: time.Now}
}

// Collect summarizes the runs created within the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	// ListRuns is newest first, so the window ends at the first older run.
	runs, err := c.runs.ListRuns(ctx, store.RunFilter{Limit: maxRunsScanned})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			break
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
			if snap.FailedByKind == nil {
				snap.FailedByKind = make(map[model.RunKind]int)
			}
			snap.FailedByKind[r.Kind]++
		default:
			snap.RunsInFlight++
			if c.stuckAfter > 0 && now.Sub(r.UpdatedAt) > c.stuckAfter {
				snap.RunsStuck++
			}
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	return snap, nil
}
