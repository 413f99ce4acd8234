package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"minutebook/activity"
	"minutebook/calllog"
	"minutebook/timeline"
	"minutebook/workbook"
)

var ErrAlreadyMerged = errors.New("source already merged into workbook")

type Stage string

const (
	StageLoadSource   Stage = "load-source"
	StageLoadWorkbook Stage = "load-workbook"
	StageDispatch     Stage = "dispatch"
	StageSave         Stage = "save"
)

// mergeState is everything one merge carries from stage to stage.
type mergeState struct {
	source      string
	fingerprint string
	load        func(ctx context.Context) (batch, error)

	batch  batch
	book   *workbook.Workbook
	report timeline.Report
	saved  bool
}

// batch is what one source yields: the events read from it and how they are
// written into the workbook's sheets.
type batch struct {
	events  int
	skipped int
	invalid int
	write   func(sheets []*timeline.Sheet, exclude []string) timeline.Report
}

type stageFunc func(ctx context.Context, st *mergeState) error

type MergeResult struct {
	RunID   string
	Source  string
	Events  int // calls or activity entries read
	Skipped int
	Invalid int
	Saved   bool
	Report  timeline.Report
}

// Merge merges a call-log file into the configured workbook.
func (a *App) Merge(ctx context.Context, path string, force bool) (MergeResult, error) {
	fp, err := Fingerprint(path)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to read call log: %w", err)
	}

	opts := a.cfg.CallLogOptions()
	st := &mergeState{
		source:      path,
		fingerprint: fp,
		load: func(context.Context) (batch, error) {
			res, err := calllog.ReadFile(path, opts)
			if err != nil {
				return batch{}, err
			}
			// PBX exports carry each employee's local time
			return a.callBatch(res, a.cfg.Offsets()), nil
		},
	}
	return a.runMerge(ctx, st, force)
}

// MergeActivity writes a PC-activity export of program and site usage into
// the configured workbook.
func (a *App) MergeActivity(ctx context.Context, path string, force bool) (MergeResult, error) {
	fp, err := Fingerprint(path)
	if err != nil {
		return MergeResult{}, fmt.Errorf("failed to read activity export: %w", err)
	}

	opts := a.cfg.ActivityOptions()
	st := &mergeState{
		source:      path,
		fingerprint: fp,
		load: func(context.Context) (batch, error) {
			res, err := activity.ReadFile(path, opts)
			if err != nil {
				return batch{}, err
			}
			return batch{
				events:  len(res.Entries),
				skipped: res.Skipped,
				invalid: res.Invalid,
				write: func(sheets []*timeline.Sheet, exclude []string) timeline.Report {
					return activity.Fill(sheets, res.Entries, activity.FillOptions{Exclude: exclude})
				},
			}, nil
		},
	}
	return a.runMerge(ctx, st, force)
}

// callBatch dispatches calls to the sheets named after their employees,
// shifting them by offsets first.
func (a *App) callBatch(res calllog.Result, offsets map[string]time.Duration) batch {
	return batch{
		events:  len(res.Calls),
		skipped: res.Skipped,
		invalid: res.Invalid,
		write: func(sheets []*timeline.Sheet, exclude []string) timeline.Report {
			return timeline.Dispatch(sheets, res.Calls, timeline.DispatchOptions{
				LabelHeader: a.cfg.LabelHeader,
				Exclude:     exclude,
				Offsets:     offsets,
			})
		},
	}
}

// runMerge runs the stages in order, checking ctx before each one, and
// records the run whatever the outcome.
func (a *App) runMerge(ctx context.Context, st *mergeState, force bool) (MergeResult, error) {
	if !force {
		merged, err := a.repo.HasMerged(st.fingerprint, a.cfg.Workbook)
		if err != nil {
			return MergeResult{}, fmt.Errorf("failed to check run history: %w", err)
		}
		if merged {
			return MergeResult{}, fmt.Errorf("%w: %s", ErrAlreadyMerged, st.source)
		}
	}

	run := &Run{
		ID:          uuid.NewString(),
		Source:      st.source,
		Fingerprint: st.fingerprint,
		Workbook:    a.cfg.Workbook,
		Status:      RunRunning,
		StartedAt:   time.Now(),
	}
	if err := a.repo.CreateRun(run); err != nil {
		return MergeResult{}, fmt.Errorf("failed to record run: %w", err)
	}

	stages := []struct {
		name Stage
		fn   stageFunc
	}{
		{StageLoadSource, a.loadSource},
		{StageLoadWorkbook, a.loadWorkbook},
		{StageDispatch, a.dispatch},
		{StageSave, a.save},
	}

	var err error
	for _, s := range stages {
		if err = ctx.Err(); err != nil {
			err = fmt.Errorf("merge stopped before %s: %w", s.name, err)
			break
		}
		if err = s.fn(ctx, st); err != nil {
			err = fmt.Errorf("%s: %w", s.name, err)
			break
		}
	}

	if st.book != nil {
		st.book.Close()
	}
	a.finishRun(run, st, err)

	res := MergeResult{
		RunID:   run.ID,
		Source:  st.source,
		Events:  st.batch.events,
		Skipped: st.batch.skipped,
		Invalid: st.batch.invalid,
		Saved:   st.saved,
		Report:  st.report,
	}
	return res, err
}

func (a *App) loadSource(ctx context.Context, st *mergeState) error {
	res, err := st.load(ctx)
	if err != nil {
		return err
	}
	st.batch = res
	return nil
}

func (a *App) loadWorkbook(_ context.Context, st *mergeState) error {
	book, err := workbook.Open(a.cfg.Workbook)
	if err != nil {
		return err
	}
	st.book = book
	return nil
}

func (a *App) dispatch(_ context.Context, st *mergeState) error {
	exclude := append(append([]string(nil), a.cfg.ExcludeSheets...), st.book.SummarySheets()...)
	st.report = st.batch.write(st.book.Sheets, exclude)
	return nil
}

func (a *App) save(_ context.Context, st *mergeState) error {
	if st.report.TotalInserted() == 0 {
		log.Printf("no rows inserted from %s, workbook left unchanged", st.source)
		return nil
	}
	if err := st.book.Save(a.cfg.Workbook); err != nil {
		return err
	}
	st.saved = true
	return nil
}

func (a *App) finishRun(run *Run, st *mergeState, err error) {
	run.FinishedAt = time.Now()
	run.Calls = st.batch.events
	run.Inserted = st.report.TotalInserted()
	run.Dropped = st.report.TotalDropped()

	switch {
	case err == nil:
		run.Status = RunSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		run.Status = RunCancelled
		run.Error = err.Error()
	default:
		run.Status = RunFailed
		run.Error = err.Error()
	}

	// rows only count once they are on disk
	if st.saved {
		for name, n := range st.report.Inserted {
			run.Details = append(run.Details, RunDetail{Name: name, Kind: DetailInserted, Count: n})
		}
	} else {
		run.Inserted = 0
	}
	for name, n := range st.report.Dropped {
		run.Details = append(run.Details, RunDetail{Name: name, Kind: DetailDropped, Count: n})
	}
	for name, e := range st.report.Failed {
		run.Details = append(run.Details, RunDetail{Name: name, Kind: DetailFailed, Message: e.Error()})
	}

	if ferr := a.repo.FinishRun(run); ferr != nil {
		log.Printf("failed to record run %s: %v", run.ID, ferr)
	}
}
