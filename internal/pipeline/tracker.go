package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/persona-cli/internal/metrics"
	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/store"
)

// tracker records one run and its phases. Store failures while tracking are
// logged and never fail the pipeline itself.
type tracker struct {
	store   store.Store
	metrics *metrics.Metrics
	run     *model.Run
	log     *zap.Logger

	mu     sync.Mutex
	result model.RunResult
}

func (s *Service) startRun(ctx context.Context, personID string, kind model.RunKind) (*tracker, error) {
	run, err := s.store.CreateRun(ctx, personID, kind)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(
		zap.String("person_id", personID),
		zap.String("run_id", run.ID),
		zap.String("kind", string(kind)),
	)
	log.Info("pipeline: run started")
	return &tracker{store: s.store, metrics: s.metrics, run: run, log: log}, nil
}

func (t *tracker) setStatus(ctx context.Context, status model.RunStatus) {
	if err := t.store.UpdateRunStatus(ctx, t.run.ID, status); err != nil {
		t.log.Warn("pipeline: failed to update status", zap.String("status", string(status)), zap.Error(err))
	}
}

// phase runs fn as the named phase, moving the run to status first.
func (t *tracker) phase(ctx context.Context, name string, status model.RunStatus, fn func() (*model.PhaseResult, error)) error {
	t.setStatus(ctx, status)

	phase, phaseErr := t.store.CreatePhase(ctx, t.run.ID, name)
	if phaseErr != nil {
		t.log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
	}

	start := time.Now()
	phaseResult, fnErr := fn()
	elapsed := time.Since(start)

	if phaseResult == nil {
		phaseResult = &model.PhaseResult{}
	}
	phaseResult.Name = name
	phaseResult.Duration = elapsed.Milliseconds()

	if fnErr != nil {
		phaseResult.Status = model.PhaseStatusFailed
		phaseResult.Error = fnErr.Error()
		t.log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", phaseResult.Duration),
			zap.Error(fnErr),
		)
	} else {
		phaseResult.Status = model.PhaseStatusComplete
		t.log.Info("pipeline: phase complete",
			zap.String("phase", name),
			zap.Int64("duration_ms", phaseResult.Duration),
		)
	}
	t.metrics.ObservePhase(name, string(phaseResult.Status), elapsed)

	if phase != nil {
		if err := t.store.CompletePhase(ctx, phase.ID, phaseResult); err != nil {
			t.log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
		}
	}

	t.mu.Lock()
	t.result.Phases = append(t.result.Phases, *phaseResult)
	t.mu.Unlock()
	return fnErr
}

// finish stores the run result. A non-nil err marks the run failed.
func (t *tracker) finish(ctx context.Context, err error) {
	t.mu.Lock()
	result := t.result
	t.mu.Unlock()

	if err != nil {
		result.Error = err.Error()
	}
	if updErr := t.store.UpdateRunResult(ctx, t.run.ID, &result); updErr != nil {
		t.log.Warn("pipeline: failed to store run result", zap.Error(updErr))
	}
	if err != nil {
		t.log.Warn("pipeline: run failed", zap.Error(err))
		return
	}
	t.log.Info("pipeline: run complete", zap.Int("phases", len(result.Phases)))
}
