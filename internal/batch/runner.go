package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sessionreel/internal/fileutil"
	"sessionreel/internal/ledger"
	"sessionreel/internal/logging"
	"sessionreel/internal/planner"
	"sessionreel/internal/publish"
	"sessionreel/internal/render"
	"sessionreel/internal/services"
	"sessionreel/internal/session"
	"sessionreel/internal/source"
)

// Ledger persists run history and answers dedup lookups.
type Ledger interface {
	BeginRun(ctx context.Context, runID, targetID string) error
	FinishRun(ctx context.Context, runID string, summary map[string]int) error
	Record(ctx context.Context, entry ledger.Entry) error
	Published(ctx context.Context, jobID, mode, destination string) (bool, error)
}

// Options wires the collaborators a Runner drives. Engine defaults to
// Renderer.Engine. Ledger is optional.
type Options struct {
	Source     source.Source
	Engine     render.Engine
	Normalizer *session.Normalizer
	Planner    *planner.Planner
	Renderer   *render.Adapter
	Router     *publish.Router
	Ledger     Ledger
	Logger     *slog.Logger

	TargetID           string
	Workers            int
	SkipPublished      bool
	DeleteAfterPublish bool
	DryRun             bool

	// NewRunID overrides uuid generation in tests.
	NewRunID func() string
	Now      func() time.Time
}

// Runner executes batch runs.
type Runner struct {
	opts    Options
	logger  *slog.Logger
	outputs keyedMutex
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	if opts.Source == nil {
		return nil, errors.New("batch: source is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("batch: renderer is required")
	}
	if opts.Engine == nil {
		opts.Engine = opts.Renderer.Engine
	}
	if opts.Engine == nil {
		return nil, errors.New("batch: render engine is required")
	}
	if opts.Router == nil && !opts.DryRun {
		return nil, errors.New("batch: publish router is required")
	}
	if opts.Normalizer == nil {
		opts.Normalizer = &session.Normalizer{Columns: session.DefaultColumns()}
	}
	if opts.Planner == nil {
		opts.Planner = &planner.Planner{Now: opts.Now}
	}
	if opts.TargetID == "" {
		return nil, errors.New("batch: target id is required")
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "batch")}, nil
}

// Run performs setup, fetches rows once, and processes every row. The error
// is non-nil only for setup failures (wrapping ErrSetup) or cancellation;
// per-row failures live in the report.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{RunID: r.opts.NewRunID(), TargetID: r.opts.TargetID, StartedAt: r.opts.Now()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)

	target, err := r.setup(ctx)
	if err != nil {
		return r.abort(logger, report, err)
	}
	report.Target = target
	logger.Info("render target selected",
		logging.String("target_id", target.ID),
		logging.Int("duration_in_frames", target.DurationInFrames),
	)

	rows, err := r.opts.Source.Fetch(ctx)
	if err != nil {
		return r.abort(logger, report, fmt.Errorf("%w: fetch rows: %w", ErrSetup, err))
	}
	if len(rows) == 0 {
		logger.Info("source returned no rows; nothing to do")
		report.FinishedAt = r.opts.Now()
		return report, nil
	}

	if r.opts.Ledger != nil && !r.opts.DryRun {
		if err := r.opts.Ledger.BeginRun(ctx, report.RunID, target.ID); err != nil {
			logging.WarnWithContext(logger, "ledger run start not recorded", "ledger_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions and disk space"),
				logging.String(logging.FieldImpact, "run history and dedup may be incomplete"),
			)
		}
	}

	logger.Info("batch started", logging.Int("rows", len(rows)), logging.Int("workers", max(r.opts.Workers, 1)))
	report.Entries = make([]Entry, len(rows))
	processOrdered(ctx, len(rows), r.opts.Workers, func(ctx context.Context, i int) {
		report.Entries[i] = r.processRow(ctx, i, rows[i], target)
	})
	report.FinishedAt = r.opts.Now()

	summary := report.Summary()
	attrs := []logging.Attr{logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt))}
	for _, status := range Statuses {
		if n := summary[string(status)]; n > 0 {
			attrs = append(attrs, logging.Int(string(status), n))
		}
	}
	logger.Info("batch finished", logging.Args(attrs...)...)

	if r.opts.Ledger != nil && !r.opts.DryRun {
		if err := r.opts.Ledger.FinishRun(context.WithoutCancel(ctx), report.RunID, summary); err != nil {
			logging.WarnWithContext(logger, "ledger run summary not recorded", "ledger_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "history shows the run as unfinished"),
			)
		}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) setup(ctx context.Context) (render.Target, error) {
	if auth, ok := r.opts.Source.(source.Authenticator); ok {
		if err := auth.Authenticate(ctx); err != nil {
			return render.Target{}, fmt.Errorf("%w: authenticate source: %w", ErrSetup, err)
		}
	}
	if !r.opts.DryRun && r.opts.Router != nil {
		if checker, ok := r.opts.Router.Uploader.(publish.Checker); ok {
			if err := checker.Check(ctx); err != nil {
				return render.Target{}, fmt.Errorf("%w: check publisher: %w", ErrSetup, err)
			}
		}
	}
	targets, err := r.opts.Engine.Compositions(ctx)
	if err != nil {
		return render.Target{}, fmt.Errorf("%w: discover targets: %w", ErrSetup, err)
	}
	if len(targets) == 0 {
		return render.Target{}, fmt.Errorf("%w: discover targets: %w", ErrSetup,
			services.Wrap(services.ErrConfiguration, "render", "discover", "no render targets found", nil))
	}
	target, err := render.SelectTarget(targets, r.opts.TargetID)
	if err != nil {
		return render.Target{}, fmt.Errorf("%w: select target: %w", ErrSetup,
			services.Wrap(services.ErrConfiguration, "render", "select", "", err))
	}
	return target, nil
}

func (r *Runner) abort(logger *slog.Logger, report Report, err error) (Report, error) {
	report.Fatal = true
	report.FatalErr = err
	report.FinishedAt = r.opts.Now()
	logging.ErrorWithContext(logger, "batch aborted during setup", "setup_failed",
		logging.Error(err),
		logging.String("error_kind", services.Classify(err)),
		logging.String(logging.FieldErrorHint, "run 'sessionreel check' to verify credentials and renderer"),
	)
	return report, err
}

func (r *Runner) processRow(ctx context.Context, index int, row source.Row, target render.Target) Entry {
	started := time.Now()
	entry := r.runRow(ctx, index, row, target)
	entry.Duration = time.Since(started)
	r.record(ctx, entry)
	return entry
}

func (r *Runner) runRow(ctx context.Context, index int, row source.Row, target render.Target) Entry {
	position := index + 1
	rec, warnings, err := r.opts.Normalizer.Normalize(position, row)
	entry := Entry{Row: position, Warnings: warnings}
	ctx = services.WithRow(ctx, position)
	logger := logging.WithContext(ctx, r.logger)

	if ctxErr := ctx.Err(); ctxErr != nil {
		entry.Status = StatusCancelled
		entry.Err = ctxErr
		entry.Title = rec.Title
		return entry
	}
	if err != nil {
		entry.Status = StatusRejectedRecord
		entry.Err = err
		logging.WarnWithContext(logger, "row rejected", "record_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fill in the title column for this row"),
			logging.String(logging.FieldImpact, "row skipped; no render or publish attempted"),
		)
		return entry
	}
	for _, warning := range warnings {
		logging.WarnWithContext(logger, "record normalized with warnings", string(warning.Kind),
			logging.String("title", rec.Title),
			logging.String("detail", warning.Detail),
			logging.String(logging.FieldErrorHint, "check the day and start columns"),
			logging.String(logging.FieldImpact, "session timestamp set to the current time"),
		)
	}

	job := r.opts.Planner.Plan(rec, target)
	entry.JobID = job.ID
	entry.Title = job.Title
	entry.Mode = job.Mode
	entry.ModeReason = job.ModeReason
	entry.RoutingKey = job.RoutingKey
	ctx = services.WithJobID(ctx, job.ID)
	logger = logging.WithContext(ctx, r.logger)
	logger.Info("job planned", logging.Args(logging.DecisionAttrs("render_mode", string(job.Mode), job.ModeReason)...)...)

	if r.opts.DryRun {
		entry.Status = StatusPlanned
		entry.OutputPath = r.opts.Renderer.OutputPath(job)
		if r.opts.Router != nil {
			entry.Destination, entry.Fallback = r.opts.Router.Resolve(job.RoutingKey)
		}
		return entry
	}

	if r.opts.SkipPublished && r.opts.Ledger != nil {
		dest, fallback := r.opts.Router.Resolve(job.RoutingKey)
		done, err := r.opts.Ledger.Published(ctx, job.ID, string(job.Mode), dest)
		switch {
		case err != nil:
			logging.WarnWithContext(logger, "ledger lookup failed; rendering anyway", "ledger_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "job may be published twice"),
			)
		case done:
			entry.Status = StatusSkippedPublished
			entry.Destination = dest
			entry.Fallback = fallback
			logger.Info("job already published; skipping",
				logging.Args(logging.DecisionAttrs("dedup", "skip", "ledger_hit")...)...)
			return entry
		}
	}

	unlock := r.outputs.Lock(job.ID)
	defer unlock()

	result, err := r.opts.Renderer.Render(ctx, job, target)
	if err != nil {
		entry.Err = err
		entry.Status = StatusRenderFailed
		if ctx.Err() != nil {
			entry.Status = StatusCancelled
		}
		logging.ErrorWithContext(logger, "render failed", "render_failed",
			logging.Error(err),
			logging.String("error_kind", services.Classify(err)),
			logging.String(logging.FieldErrorHint, "inspect the renderer output above; publish was skipped"),
		)
		return entry
	}
	entry.OutputPath = result.OutputPath
	logger.Info("job rendered", logging.String("output", result.OutputPath))

	outcome := r.opts.Router.Publish(ctx, result, job.RoutingKey)
	entry.Destination = outcome.Destination
	entry.Fallback = outcome.Fallback
	if !outcome.OK() {
		entry.Err = outcome.Err
		entry.Status = StatusPublishFailed
		if ctx.Err() != nil {
			entry.Status = StatusCancelled
		}
		logging.ErrorWithContext(logger, "publish failed", "publish_failed",
			logging.Error(outcome.Err),
			logging.String("error_kind", services.Classify(outcome.Err)),
			logging.String("destination", outcome.Destination),
			logging.String("output", result.OutputPath),
			logging.String(logging.FieldErrorHint, "the rendered file was kept; rerun to retry the upload"),
		)
		return entry
	}
	entry.Status = StatusPublished
	entry.Remote = outcome.Remote

	if r.opts.DeleteAfterPublish {
		if err := fileutil.RemoveIfExists(result.OutputPath); err != nil {
			logging.WarnWithContext(logger, "failed to remove published artifact", "cleanup_failed",
				logging.Error(err),
				logging.String("output", result.OutputPath),
				logging.String(logging.FieldImpact, "local artifact left on disk"),
			)
		}
	}
	return entry
}

// record writes the terminal entry once. It ignores batch cancellation so a
// cancelled job still gets an unambiguous row.
func (r *Runner) record(ctx context.Context, entry Entry) {
	if r.opts.Ledger == nil || r.opts.DryRun {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	row := ledger.Entry{
		RunID:       runID,
		Row:         entry.Row,
		JobID:       entry.JobID,
		Title:       entry.Title,
		Mode:        string(entry.Mode),
		Status:      string(entry.Status),
		OutputPath:  entry.OutputPath,
		Destination: entry.Destination,
		RemoteID:    entry.Remote.ID,
		RemoteLink:  entry.Remote.Link,
		ErrorKind:   services.Classify(entry.Err),
		RecordedAt:  r.opts.Now(),
	}
	if entry.Err != nil {
		row.ErrorMessage = entry.Err.Error()
	}
	if err := r.opts.Ledger.Record(context.WithoutCancel(ctx), row); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "ledger entry not recorded", "ledger_write_failed",
			logging.Error(err),
			logging.Int(logging.FieldRow, entry.Row),
			logging.String(logging.FieldImpact, "outcome missing from history"),
		)
	}
}
