package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farxc/movimento_flat/internal/logger"
	"github.com/farxc/movimento_flat/internal/pipeline/caster"
	"github.com/farxc/movimento_flat/internal/pipeline/decoder"
	"github.com/farxc/movimento_flat/internal/pipeline/types"
	"github.com/farxc/movimento_flat/internal/store"
	"github.com/google/uuid"
)

type Fetcher interface {
	Fetch(ctx context.Context, src types.Source, filename string) ([]byte, error)
}

// EvictionResult is the outcome of evicting one cached table before a run.
type EvictionResult struct {
	Table string
	Err   error
}

type Report struct {
	RunID     uuid.UUID
	Stages    []*Stage
	Counts    map[string]int64
	Evictions []EvictionResult
}

func (r *Report) add(id int64, name string) *Stage {
	st := &Stage{ID: id, Name: name, State: StatePending}
	r.Stages = append(r.Stages, st)
	return st
}

// Stage returns the first stage recorded with id, or nil.
func (r *Report) Stage(id int64) *Stage {
	for _, st := range r.Stages {
		if st.ID == id {
			return st
		}
	}
	return nil
}

type Runner struct {
	storage   *store.Storage
	fetcher   Fetcher
	source    types.Source
	entities  []types.Entity
	appLogger *logger.Logger
	now       func() time.Time
}

func NewRunner(storage *store.Storage, fetcher Fetcher, source types.Source, appLogger *logger.Logger) *Runner {
	return &Runner{
		storage:   storage,
		fetcher:   fetcher,
		source:    source,
		entities:  Entities,
		appLogger: appLogger,
		now:       time.Now,
	}
}

// Run executes every stage in order and stops at the first failure. The
// report is returned in both cases.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	const component = "Runner"
	report := &Report{RunID: uuid.New(), Counts: make(map[string]int64)}
	r.appLogger.Info(component, "Starting run: runID=%s source=%s/%s@%s", report.RunID, r.source.Owner, r.source.Repo, r.source.Branch)

	routine, err := r.setup(ctx, report)
	if err != nil {
		r.appLogger.Error(component, "Run failed: runID=%s err=%v", report.RunID, err)
		return report, err
	}

	steps := []struct {
		id   int64
		name string
		fn   func(ctx context.Context, report *Report) (*int64, error)
	}{
		{2, StageBootstrap, func(context.Context, *Report) (*int64, error) { return nil, nil }},
		{3, StageCreate, r.createTables},
		{4, StageLoad, r.load},
	}
	for _, step := range steps {
		if err := r.runStage(ctx, report, step.id, step.name, step.fn); err != nil {
			r.appLogger.Error(component, "Run failed: runID=%s err=%v", report.RunID, err)
			return report, err
		}
	}

	if err := r.validate(ctx, report); err != nil {
		r.appLogger.Error(component, "Run failed: runID=%s err=%v", report.RunID, err)
		return report, err
	}

	if err := r.runStage(ctx, report, 6, StageFlatten, r.flatten); err != nil {
		r.appLogger.Error(component, "Run failed: runID=%s err=%v", report.RunID, err)
		return report, err
	}

	end := r.now()
	if err := r.storage.Log.Finish(ctx, routine.ID, end, nil); err != nil {
		err = routine.fail(err)
		r.appLogger.Error(component, "Run failed: runID=%s err=%v", report.RunID, err)
		return report, err
	}
	if err := routine.succeed(end, nil); err != nil {
		return report, err
	}

	r.appLogger.Info(component, "Run complete: runID=%s flatRows=%d elapsed=%s",
		report.RunID, report.Counts[store.FlatTable], end.Sub(routine.StartedAt))
	return report, nil
}

// setup recreates the log table, opens the routine row and evicts cached
// entity tables. The routine stage stays RUNNING until the run ends.
func (r *Runner) setup(ctx context.Context, report *Report) (*Stage, error) {
	const component = "Runner-Setup"
	routine := report.add(1, StageRoutine)
	start := r.now()
	if err := routine.begin(start); err != nil {
		return routine, err
	}

	if err := r.storage.Log.Recreate(ctx); err != nil {
		return routine, routine.fail(err)
	}
	if err := r.storage.Log.Start(ctx, routine.ID, routine.Name, start); err != nil {
		return routine, routine.fail(err)
	}

	for _, e := range r.entities {
		err := r.storage.Tables.Uncache(ctx, e.Table)
		report.Evictions = append(report.Evictions, EvictionResult{Table: e.Table, Err: err})
		if err != nil {
			var ce *types.CacheEvictionError
			if !errors.As(err, &ce) {
				return routine, routine.fail(err)
			}
			r.appLogger.Warn(component, "Cache eviction skipped: table=%s err=%v", e.Table, err)
		}
	}
	return routine, nil
}

func (r *Runner) runStage(ctx context.Context, report *Report, id int64, name string, fn func(context.Context, *Report) (*int64, error)) error {
	const component = "Runner-Stage"
	st := report.add(id, name)
	start := r.now()
	if err := st.begin(start); err != nil {
		return err
	}
	r.appLogger.Info(component, "Stage started: id=%d name=%q", id, name)

	if err := r.storage.Log.Start(ctx, id, name, start); err != nil {
		return st.fail(err)
	}

	rows, err := fn(ctx, report)
	if err != nil {
		return st.fail(err)
	}

	end := r.now()
	if err := r.storage.Log.Finish(ctx, id, end, rows); err != nil {
		return st.fail(err)
	}
	if err := st.succeed(end, rows); err != nil {
		return err
	}
	r.appLogger.Info(component, "Stage finished: id=%d name=%q elapsed=%s", id, name, end.Sub(start))
	return nil
}

func (r *Runner) createTables(ctx context.Context, _ *Report) (*int64, error) {
	for _, e := range r.entities {
		if err := r.storage.Tables.CreateIfAbsent(ctx, e.Table, e.Schema); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// load prepares every entity before touching any table, so a failed
// download leaves all tables as they were.
func (r *Runner) load(ctx context.Context, report *Report) (*int64, error) {
	const component = "Runner-Load"
	prepared := make([]*types.Dataset, len(r.entities))

	for i, e := range r.entities {
		payload, err := r.fetcher.Fetch(ctx, r.source, e.File)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Table, err)
		}

		df, enc, err := decoder.DecodeWithEncoding(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Table, err)
		}

		ds, err := caster.Cast(df, e.Schema.CastMap())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Table, err)
		}
		r.appLogger.Debug(component, "Prepared entity: table=%s file=%s encoding=%s rows=%d",
			e.Table, e.File, enc, ds.Len())
		prepared[i] = ds
	}

	for i, e := range r.entities {
		n, err := r.storage.Tables.Overwrite(ctx, e.Table, prepared[i])
		if err != nil {
			return nil, err
		}
		r.appLogger.Info(component, "Table overwritten: table=%s rows=%d", e.Table, n)
	}
	return nil, nil
}

// validate writes one completed log row per entity table with its row count.
func (r *Runner) validate(ctx context.Context, report *Report) error {
	const component = "Runner-Validate"
	for _, e := range r.entities {
		st := report.add(5, StageValidate+e.Table)
		at := r.now()
		if err := st.begin(at); err != nil {
			return err
		}

		n, err := r.storage.Tables.Count(ctx, e.Table)
		if err != nil {
			return st.fail(err)
		}

		entry := store.LogEntry{
			ID:         st.ID,
			Stage:      st.Name,
			StartedAt:  store.NullTime{Time: at, Valid: true},
			FinishedAt: store.NullTime{Time: at, Valid: true},
			Status:     store.StatusOK,
			RowCount:   n,
		}
		if err := r.storage.Log.Record(ctx, entry); err != nil {
			return st.fail(err)
		}
		if err := st.succeed(at, &n); err != nil {
			return err
		}
		report.Counts[e.Table] = n
		r.appLogger.Info(component, "Table validated: table=%s rows=%d", e.Table, n)
	}
	return nil
}

func (r *Runner) flatten(ctx context.Context, report *Report) (*int64, error) {
	if err := r.storage.Tables.DropIfExists(ctx, store.FlatTable); err != nil {
		return nil, err
	}
	n, err := r.storage.Tables.CreateAs(ctx, store.FlatTable, FlatPlan)
	if err != nil {
		return nil, err
	}
	report.Counts[store.FlatTable] = n
	return &n, nil
}
