// Package engine implements the judgement orchestration engine: it fans a
// validated row list out across a bounded pool of workers, invokes the
// lookup service with bounded retries for transient failures, honors
// cooperative cancellation, and reports progress and results through an
// ordered per-run event stream.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wehubfusion/Minos/pkg/lookup"
	"github.com/wehubfusion/Minos/pkg/row"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// MinParallelism and MaxParallelism bound the worker pool size.
	MinParallelism = 1
	MaxParallelism = 8

	defaultRetryLimit    = 3
	defaultStreakLimit   = 3
	defaultResetInterval = 10
	defaultTransientWait = 250 * time.Millisecond
	defaultHeuristicWait = 300 * time.Millisecond
)

// Note strings attached to rows the engine fails itself.
const (
	noteInputDefectPrefix  = "入力不備: "
	noteRuntimeErrorPrefix = "実行時エラー: "
	noteRetriesExhausted   = "通信エラー: リトライ上限に達しました"
	noteStopped            = "停止要求により中断されました"
)

// Config holds configuration for the judgement engine.
type Config struct {
	// Service is the lookup collaborator. Required.
	Service lookup.Service

	// Logger is the zap logger instance. Required.
	Logger *zap.Logger

	// RetryPatterns overrides the transient-failure signature table.
	// Empty means DefaultRetryPatterns.
	RetryPatterns []string

	// RetryLimit is the maximum number of lookup attempts per row.
	// Defaults to 3.
	RetryLimit int

	// StreakLimit gates heuristic retries: once this many consecutive
	// heuristically-retryable failures accumulate pool-wide, mapped
	// failures are accepted as final instead of retried. Defaults to 3.
	StreakLimit int

	// ResetInterval triggers a best-effort session reset after every Nth
	// consecutive heuristic failure (single-worker pools only).
	// Defaults to 10.
	ResetInterval int

	// TransientWait is the base backoff for transient driver errors; the
	// engine waits TransientWait×attempt before retrying. Defaults to 250ms.
	TransientWait time.Duration

	// HeuristicWait is the base backoff for heuristically-retryable mapped
	// failures; the engine waits HeuristicWait×attempt. Defaults to 300ms.
	HeuristicWait time.Duration
}

// RunRequest describes one run: the full ordered row list, the requested
// scope, and the worker pool size.
type RunRequest struct {
	// Rows is the full ordered row list. Judgements are written back into
	// these rows; event consumers receive clones.
	Rows []*row.Row

	// Scope selects the rows to process.
	Scope RunScope

	// TargetLine is the chosen line for ScopeSingleLine / ScopeFromLine.
	// Zero means no line was chosen.
	TargetLine int

	// Parallelism is the requested worker count, clamped to [1, 8].
	Parallelism int

	// RunID identifies the run in logs, traces, and archives. Generated
	// when empty.
	RunID string
}

// Engine orchestrates judgement runs against the lookup service.
type Engine struct {
	service    lookup.Service
	logger     *zap.Logger
	classifier *RetryClassifier
	tracer     trace.Tracer

	retryLimit    int
	streakLimit   int
	resetInterval int
	transientWait time.Duration
	heuristicWait time.Duration

	mu      sync.Mutex
	running bool
	token   *Token
	stopRun context.CancelFunc
}

// runState is the cross-worker mutable state of one run. The failed-line
// accumulator, processed counter, and retry-streak counter are only touched
// under mu; RowUpdated/Progress pairs are emitted under the same mutex so
// the consumer never observes a row half-updated.
type runState struct {
	mu        sync.Mutex
	events    chan Event
	total     int
	processed int
	failed    []int
	streak    int
	parallel  int
}

// New creates a judgement engine.
func New(config Config) (*Engine, error) {
	if config.Service == nil {
		return nil, errors.New("lookup service cannot be nil")
	}
	if config.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.RetryLimit <= 0 {
		config.RetryLimit = defaultRetryLimit
	}
	if config.StreakLimit <= 0 {
		config.StreakLimit = defaultStreakLimit
	}
	if config.ResetInterval <= 0 {
		config.ResetInterval = defaultResetInterval
	}
	if config.TransientWait <= 0 {
		config.TransientWait = defaultTransientWait
	}
	if config.HeuristicWait <= 0 {
		config.HeuristicWait = defaultHeuristicWait
	}

	return &Engine{
		service:       config.Service,
		logger:        config.Logger,
		classifier:    NewRetryClassifier(config.RetryPatterns),
		tracer:        otel.Tracer("minos/engine"),
		retryLimit:    config.RetryLimit,
		streakLimit:   config.StreakLimit,
		resetInterval: config.ResetInterval,
		transientWait: config.TransientWait,
		heuristicWait: config.HeuristicWait,
		token:         NewToken(),
	}, nil
}

// Run starts a judgement run and returns its event stream. The stream
// carries one RowUpdated and one Progress event per processed row, worker
// logs, and exactly one final Done event, after which the channel is
// closed. The channel is created fresh per run; nothing leaks across runs.
//
// Run returns an error without starting anything when the request is
// invalid or a run is already in progress.
func (e *Engine) Run(ctx context.Context, req RunRequest) (<-chan Event, error) {
	if len(req.Rows) == 0 {
		return nil, errors.New("no rows to process")
	}

	selected, err := ResolveScope(derefRows(req.Rows), req.Scope, req.TargetLine)
	if err != nil {
		return nil, err
	}

	tasks := selectRows(req.Rows, selected)
	if len(tasks) == 0 {
		return nil, errors.New("run scope selected no rows")
	}

	parallel := clampParallelism(req.Parallelism)

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, errors.New("a run is already in progress")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.stopRun = cancel
	e.mu.Unlock()

	// Both cancellation signals are cleared at run start so a stop request
	// from a previous run cannot leak in.
	e.token.Reset()
	e.service.ClearCancel()

	st := &runState{
		// Two events per row plus worker logs; sized so workers never block
		// on a slow consumer mid-row. Done is last regardless because it is
		// sent after the pool joins.
		events:   make(chan Event, 2*len(tasks)+parallel*e.retryLimit+16),
		total:    len(tasks),
		parallel: parallel,
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	queue := newTaskQueue(tasks)

	go e.run(runCtx, cancel, st, queue, runID)

	return st.events, nil
}

// Stop requests cancellation of the current run: workers stop pulling new
// tasks, the collaborator's cancel flag is raised so in-flight lookups
// abort, and the retry backoff in progress is cut short. Idempotent.
func (e *Engine) Stop() {
	e.token.Cancel()
	e.service.RequestCancel()

	e.mu.Lock()
	cancel := e.stopRun
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// run drives one judgement run to its Done event.
func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, st *runState, queue *taskQueue, runID string) {
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "engine.Run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.rows", st.total),
			attribute.Int("run.parallelism", st.parallel),
		))
	defer span.End()

	logger := e.logger.With(zap.String("runID", runID))
	logger.Info("judgement run started",
		zap.Int("rows", st.total),
		zap.Int("parallelism", st.parallel))

	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < st.parallel; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			e.worker(ctx, st, queue, workerID, logger)
		}(i)
	}
	wg.Wait()

	// Cancelling the context passed to Run counts the same as Stop: workers
	// stop pulling and the run reports itself cancelled.
	cancelled := e.token.Cancelled() || ctx.Err() != nil

	st.mu.Lock()
	failed := append([]int(nil), st.failed...)
	st.mu.Unlock()
	sort.Ints(failed)

	span.SetAttributes(
		attribute.Int("run.failed", len(failed)),
		attribute.Bool("run.cancelled", cancelled),
	)
	if cancelled {
		span.SetStatus(codes.Error, "run cancelled")
	} else {
		span.SetStatus(codes.Ok, "run completed")
	}

	logger.Info("judgement run finished",
		zap.Int("processed", st.processedCount()),
		zap.Int("failed", len(failed)),
		zap.Bool("cancelled", cancelled),
		zap.Duration("elapsed", time.Since(start)))

	// Clear both signals again on the way out so the next run starts clean.
	// Run state is released before Done so a consumer that drains the stream
	// can start the next run immediately.
	e.token.Reset()
	e.service.ClearCancel()

	e.mu.Lock()
	e.running = false
	e.stopRun = nil
	e.mu.Unlock()

	st.events <- Done{FailedLines: failed, Cancelled: cancelled}
	close(st.events)
}

// worker pulls rows until the queue drains or cancellation is requested.
// An in-flight row always runs to its own completion or its own
// cancellation check; only new pickups stop immediately.
func (e *Engine) worker(ctx context.Context, st *runState, queue *taskQueue, workerID int, logger *zap.Logger) {
	logger.Debug("worker started", zap.Int("workerID", workerID))
	defer logger.Debug("worker stopped", zap.Int("workerID", workerID))

	for {
		if e.token.Cancelled() || ctx.Err() != nil {
			return
		}
		r, ok := queue.TryNext()
		if !ok {
			return
		}
		e.processRow(ctx, st, workerID, r, logger)
	}
}

// processRow drives one row to a terminal judgement and publishes its
// RowUpdated/Progress pair.
func (e *Engine) processRow(ctx context.Context, st *runState, workerID int, r *row.Row, logger *zap.Logger) {
	ctx, span := e.tracer.Start(ctx, "engine.processRow",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.Int("row.line", r.LineNumber),
		))
	defer span.End()

	if r.Status != row.StatusOk {
		// Input defects are terminal; no lookup is attempted and the path
		// is never retried.
		r.Judgement = row.JudgementFailed
		r.Note = noteInputDefectPrefix + string(r.Status)
		span.SetStatus(codes.Error, "input defect")
		e.finalizeRow(st, workerID, r)
		return
	}

	st.events <- WorkerLog{
		WorkerID: workerID,
		Message:  fmt.Sprintf("%d行目を判定中: %s %s", r.LineNumber, r.PostalCode, r.Address),
	}

	judgement, note := e.judgeWithRetries(ctx, st, workerID, r, logger)
	r.Judgement = judgement
	r.Note = note

	span.SetAttributes(attribute.String("row.judgement", string(judgement)))
	if judgement == row.JudgementFailed {
		span.SetStatus(codes.Error, note)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	e.finalizeRow(st, workerID, r)
}

// judgeWithRetries runs the bounded attempt loop for one Ok row.
func (e *Engine) judgeWithRetries(ctx context.Context, st *runState, workerID int, r *row.Row, logger *zap.Logger) (row.Judgement, string) {
	onProgress := func(message string) {
		st.events <- WorkerLog{
			WorkerID: workerID,
			Message:  fmt.Sprintf("%d行目: %s", r.LineNumber, message),
		}
	}

	for attempt := 1; attempt <= e.retryLimit; attempt++ {
		result, err := e.service.Lookup(ctx, r.PostalCode, r.Address, onProgress)

		if err != nil {
			switch {
			case lookup.IsCancelled(err) || errors.Is(err, context.Canceled):
				// The collaborator aborted on our cancellation request; the
				// attempt loop ends immediately.
				return row.JudgementStopped, noteStopped

			case lookup.IsTransient(err):
				logger.Warn("transient driver error",
					zap.Int("workerID", workerID),
					zap.Int("line", r.LineNumber),
					zap.Int("attempt", attempt),
					zap.Error(err))

				if attempt == e.retryLimit {
					return row.JudgementFailed, noteRetriesExhausted
				}

				st.events <- WorkerLog{
					WorkerID: workerID,
					Message:  fmt.Sprintf("%d行目: 通信エラーのため再試行します (%d/%d)", r.LineNumber, attempt, e.retryLimit),
				}
				e.maybeResetSession(ctx, st, logger)
				if !e.wait(ctx, time.Duration(attempt)*e.transientWait) {
					return row.JudgementStopped, noteStopped
				}
				continue

			default:
				// Generic runtime errors are terminal; the message is the note.
				logger.Error("lookup failed",
					zap.Int("workerID", workerID),
					zap.Int("line", r.LineNumber),
					zap.Error(err))
				return row.JudgementFailed, noteRuntimeErrorPrefix + err.Error()
			}
		}

		judgement := MapResult(result)
		note := ExtractNote(result)

		if judgement == row.JudgementFailed &&
			attempt < e.retryLimit &&
			e.classifier.Retryable(note) &&
			st.streakBelow(e.streakLimit) {

			logger.Warn("retryable judgement failure",
				zap.Int("workerID", workerID),
				zap.Int("line", r.LineNumber),
				zap.Int("attempt", attempt),
				zap.String("note", note))
			st.events <- WorkerLog{
				WorkerID: workerID,
				Message:  fmt.Sprintf("%d行目: 判定失敗のため再試行します (%d/%d)", r.LineNumber, attempt, e.retryLimit),
			}
			e.maybeResetSession(ctx, st, logger)
			if !e.wait(ctx, time.Duration(attempt)*e.heuristicWait) {
				return row.JudgementStopped, noteStopped
			}
			continue
		}

		return judgement, note
	}

	// Unreachable: the loop always returns from its last attempt.
	return row.JudgementFailed, noteRetriesExhausted
}

// finalizeRow updates the shared accumulators and emits the row's event
// pair. The pair is sent under the run mutex so it is atomic from the
// consumer's point of view.
func (e *Engine) finalizeRow(st *runState, workerID int, r *row.Row) {
	heuristicFailure := r.Judgement == row.JudgementFailed && e.classifier.Retryable(r.Note)

	st.mu.Lock()
	if r.Judgement == row.JudgementFailed {
		st.failed = append(st.failed, r.LineNumber)
	}
	if heuristicFailure {
		st.streak++
		if st.streak%e.resetInterval == 0 && st.parallel == 1 {
			// Every Nth consecutive transient-looking failure, ask the
			// collaborator to rebuild its session. Best effort.
			go e.resetSession(context.Background(), e.logger)
		}
	} else {
		st.streak = 0
	}
	st.processed++
	st.events <- RowUpdated{Row: r.Clone()}
	st.events <- Progress{Current: st.processed, Total: st.total}
	st.mu.Unlock()
}

// maybeResetSession resets the collaborator session before a retry, but
// only for single-worker pools: a concurrent reset would kill sibling
// workers' live sessions.
func (e *Engine) maybeResetSession(ctx context.Context, st *runState, logger *zap.Logger) {
	if st.parallel != 1 {
		return
	}
	e.resetSession(ctx, logger)
}

func (e *Engine) resetSession(ctx context.Context, logger *zap.Logger) {
	if err := e.service.ResetSession(ctx); err != nil {
		logger.Warn("session reset failed", zap.Error(err))
	}
}

// wait sleeps for the given backoff, returning false when the run was
// cancelled before the wait elapsed.
func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (st *runState) streakBelow(limit int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.streak < limit
}

func (st *runState) processedCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.processed
}

// clampParallelism bounds the requested worker count to [1, 8].
func clampParallelism(p int) int {
	if p < MinParallelism {
		return MinParallelism
	}
	if p > MaxParallelism {
		return MaxParallelism
	}
	return p
}

// selectRows picks the rows in scope, preserving row order. A nil set
// means no filter. Blank rows are never selected: they carry no record to
// judge and stay NotRun, keeping their line number in the dataset.
func selectRows(rows []*row.Row, selected map[int]struct{}) []*row.Row {
	picked := make([]*row.Row, 0, len(rows))
	for _, r := range rows {
		if r.Status == row.StatusBlank {
			continue
		}
		if selected != nil {
			if _, ok := selected[r.LineNumber]; !ok {
				continue
			}
		}
		picked = append(picked, r)
	}
	return picked
}

func derefRows(rows []*row.Row) []row.Row {
	out := make([]row.Row, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out
}
