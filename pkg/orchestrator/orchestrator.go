// Package orchestrator processes many repositories concurrently and folds
// their results into one grouped changelog and one snapshot.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/vberset/resume/pkg/changelog"
	"github.com/vberset/resume/pkg/observability"
	"github.com/vberset/resume/pkg/progress"
	"github.com/vberset/resume/pkg/project"
	"github.com/vberset/resume/pkg/snapshot"
)

var (
	// ErrPartialRun is returned alongside a usable Result when some
	// repositories failed under the keep-going policy.
	ErrPartialRun = errors.New("some repositories failed")
	// ErrNoOpener is returned when Options.Open is unset.
	ErrNoOpener = errors.New("no repository opener configured")
)

// Opener binds a project to a repository.
type Opener func(ctx context.Context, p project.Project) (*project.Workspace, error)

// CacheOpener opens projects from clones kept in cache.
func CacheOpener(cache *project.Cache, opts project.Options) Opener {
	return func(ctx context.Context, p project.Project) (*project.Workspace, error) {
		return project.Acquire(ctx, p, cache, opts)
	}
}

// StandaloneOpener opens projects in place, reading their origin as a local
// path.
func StandaloneOpener(opts project.Options) Opener {
	return func(_ context.Context, p project.Project) (*project.Workspace, error) {
		return project.Standalone(string(p.Origin), p.Branches, p.Team, opts)
	}
}

// Options configures a run.
type Options struct {
	// Workers bounds concurrent repositories. Zero means runtime.NumCPU().
	Workers int
	// KeepGoing reports failures after processing every repository instead
	// of cancelling the run at the first one.
	KeepGoing bool
	// Fields orders the grouping levels.
	Fields []changelog.Field
	// Open acquires the repository of a project.
	Open Opener
	// Renderer draws progress. Nil discards it.
	Renderer progress.Renderer
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  *observability.RunMetrics
}

// Result is the outcome of a run.
type Result struct {
	// Changelog holds every entry, fed in configured project order.
	Changelog *changelog.Grouper
	// Snapshot records the walked heads. Under keep-going, failed
	// repositories keep the heads of the previous snapshot.
	Snapshot snapshot.Snapshot
	// Repositories holds the successful results in configured order.
	Repositories []project.Result
	// Failed lists the projects that failed, in configured order.
	Failed []project.Project
	// Scanned counts commits read across all repositories.
	Scanned int
}

type outcome struct {
	result project.Result
	err    error
}

// Run processes projects on a bounded pool. With the default fail-fast
// policy the first failure cancels the others and Run returns only that
// error. previous may be nil.
func Run(ctx context.Context, projects []project.Project, previous *snapshot.Snapshot, opts Options) (Result, error) {
	opts = opts.withDefaults()

	if opts.Open == nil {
		return Result{}, ErrNoOpener
	}

	if previous == nil {
		previous = &snapshot.Snapshot{}
	}

	ctx, span := opts.Tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.Int("projects", len(projects)),
		attribute.Int("workers", opts.Workers),
		attribute.Bool("keep_going", opts.KeepGoing),
	))
	defer span.End()

	start := time.Now()

	outcomes, err := process(ctx, projects, previous, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Result{}, err
	}

	result, err := assemble(projects, previous, outcomes, opts.Fields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Result{}, err
	}

	opts.Logger.InfoContext(ctx, "run finished",
		"repositories", len(result.Repositories),
		"failed", len(result.Failed),
		"commits", humanize.Comma(int64(result.Scanned)),
		"entries", humanize.Comma(int64(result.Changelog.Count())),
		"elapsed", time.Since(start).Round(time.Millisecond).String())

	if len(result.Failed) == 0 {
		return result, nil
	}

	var merr *multierror.Error

	for i, o := range outcomes {
		if o.err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", projects[i].Name, o.err))
		}
	}

	err = fmt.Errorf("%w: %d of %d: %w", ErrPartialRun, len(result.Failed), len(projects), merr.ErrorOrNil())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return result, err
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}

	if o.Renderer == nil {
		o.Renderer = progress.NewLogRenderer(nil)
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	if o.Tracer == nil {
		o.Tracer = nooptrace.NewTracerProvider().Tracer("resume")
	}

	return o
}

// process runs one task per project. Every task registers its progress
// handle before doing anything else, so the coordinator always receives
// exactly len(projects) registrations unless the run is cancelled.
func process(ctx context.Context, projects []project.Project, previous *snapshot.Snapshot, opts Options) ([]outcome, error) {
	outcomes := make([]outcome, len(projects))

	var (
		group    *errgroup.Group
		groupCtx = ctx
	)

	if opts.KeepGoing {
		group = &errgroup.Group{}
	} else {
		group, groupCtx = errgroup.WithContext(ctx)
	}

	group.SetLimit(opts.Workers)

	coordinator := progress.NewCoordinator(opts.Renderer, len(projects))
	coordinator.Start(groupCtx)

	for i, p := range projects {
		group.Go(func() error {
			handle := coordinator.Register(groupCtx, i, p.Name)

			result, err := runOne(groupCtx, p, previous, handle, opts)
			outcomes[i] = outcome{result: result, err: err}

			if err != nil && !opts.KeepGoing {
				return fmt.Errorf("%s: %w", p.Name, err)
			}

			return nil
		})
	}

	err := group.Wait()

	coordinator.Wait()

	if err != nil {
		return nil, err
	}

	return outcomes, nil
}

func runOne(ctx context.Context, p project.Project, previous *snapshot.Snapshot, handle progress.Handle, opts Options) (result project.Result, err error) {
	start := time.Now()
	ctx = observability.ContextWithAttrs(ctx, slog.String("project", p.Name))

	defer func() {
		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError

			handle.Abort(err)
			opts.Logger.WarnContext(ctx, "repository failed", "origin", p.Origin, "error", err)
		} else {
			handle.Done()
		}

		opts.Metrics.RecordRepository(ctx, observability.RepositoryStats{
			Status:   status,
			Scanned:  result.Scanned,
			Entries:  len(result.Entries),
			Duration: time.Since(start),
		})
	}()

	handle.SetStatus("opening")

	ws, err := opts.Open(ctx, p)
	if err != nil {
		return project.Result{}, err
	}
	defer ws.Close()

	heads, _ := previous.Repository(p.Origin)

	return ws.Changelog(ctx, heads, handle)
}

// assemble groups entries and builds the snapshot in configured project
// order, independent of completion order.
func assemble(projects []project.Project, previous *snapshot.Snapshot, outcomes []outcome, fields []changelog.Field) (Result, error) {
	result := Result{Changelog: changelog.NewGrouper(fields...)}
	builder := snapshot.NewBuilder()

	for i, o := range outcomes {
		if o.err != nil {
			result.Failed = append(result.Failed, projects[i])

			if heads, ok := previous.Repository(projects[i].Origin); ok {
				builder.Add(projects[i].Origin, heads)
			}

			continue
		}

		err := result.Changelog.InsertAll(o.result.Entries)
		if err != nil {
			return Result{}, err
		}

		builder.Add(projects[i].Origin, o.result.Heads)

		result.Repositories = append(result.Repositories, o.result)
		result.Scanned += o.result.Scanned
	}

	result.Snapshot = builder.Build()

	return result, nil
}
