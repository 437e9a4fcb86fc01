// Package project runs the per-repository changelog protocol: acquire a
// clone, bring every tracked branch up to date and walk each branch while
// chaining sentinels so that no commit is reported twice.
package project

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/vberset/resume/pkg/changelog"
	"github.com/vberset/resume/pkg/gitlib"
	"github.com/vberset/resume/pkg/persist"
	"github.com/vberset/resume/pkg/progress"
	"github.com/vberset/resume/pkg/snapshot"
)

// Project is one tracked repository.
type Project struct {
	Name     string
	Origin   snapshot.RepositoryOrigin
	Branches []snapshot.BranchName
	// Team, when set, keeps only entries carrying a matching team trailer.
	Team string
}

// Options carries the collaborators of a Workspace.
type Options struct {
	Credentials gitlib.Credentials
	Logger      *slog.Logger
	Tracer      trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}

	if o.Tracer == nil {
		o.Tracer = nooptrace.NewTracerProvider().Tracer("resume")
	}

	return o
}

// Workspace is a project bound to an opened repository.
type Workspace struct {
	project Project
	repo    *gitlib.Repository
	fetch   bool
	opts    Options
}

// Acquire opens the cached clone of p, cloning it first when the cache has
// none. Branches are fetched from the origin before being walked.
func Acquire(ctx context.Context, p Project, cache *Cache, opts Options) (*Workspace, error) {
	opts = opts.withDefaults()
	path := cache.PathFor(p.Origin)

	// Local origins never authenticate.
	if !gitlib.IsRemoteURI(string(p.Origin)) {
		opts.Credentials = gitlib.Credentials{}
	}

	repo, err := gitlib.OpenRepository(path)
	if errors.Is(err, gitlib.ErrRepositoryNotFound) {
		err = cache.ensureRoot()
		if err != nil {
			return nil, err
		}

		opts.Logger.InfoContext(ctx, "cloning", "project", p.Name, "origin", p.Origin, "path", path)

		repo, err = gitlib.CloneBare(ctx, string(p.Origin), path, opts.Credentials)
	}

	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", p.Name, err)
	}

	return &Workspace{project: p, repo: repo, fetch: true, opts: opts}, nil
}

// Standalone opens the repository at path in place. Branches are read as
// they are, nothing is fetched. The project is named after the folder.
func Standalone(path string, branches []snapshot.BranchName, team string, opts Options) (*Workspace, error) {
	abs, err := filepath.Abs(gitlib.TrimPathSeparator(path))
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %w", persist.ErrIO, path, err)
	}

	_, err = os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", persist.ErrIO, err)
	}

	repo, err := gitlib.OpenRepository(abs)
	if err != nil {
		return nil, err
	}

	p := Project{
		Name:     filepath.Base(abs),
		Origin:   snapshot.RepositoryOrigin(abs),
		Branches: slices.Clone(branches),
		Team:     team,
	}

	return &Workspace{project: p, repo: repo, opts: opts.withDefaults()}, nil
}

// Project returns the project description.
func (w *Workspace) Project() Project {
	return w.project
}

// Close releases the repository.
func (w *Workspace) Close() {
	w.repo.Free()
}

// Result is the outcome of one repository.
type Result struct {
	Project Project
	// Entries are in branch order, then walk order.
	Entries []changelog.Entry
	// Heads records the head of every branch as it was walked.
	Heads snapshot.RepositorySnapshot
	// Sentinels is the final sentinel set, a superset of the previous heads.
	Sentinels gitlib.HashSet
	// Scanned counts commits read over all branches.
	Scanned int
}

// Changelog walks every branch in configured order. The sentinel set starts
// with the heads recorded in previous and only grows: after each branch it
// gains that branch's merge commits and head. A missing branch aborts the
// whole repository.
func (w *Workspace) Changelog(ctx context.Context, previous snapshot.RepositorySnapshot, handle progress.Handle) (Result, error) {
	ctx, span := w.opts.Tracer.Start(ctx, "project.changelog", trace.WithAttributes(
		attribute.String("project", w.project.Name),
		attribute.String("origin", string(w.project.Origin)),
	))
	defer span.End()

	result, err := w.changelog(ctx, previous, handle)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return Result{}, err
	}

	span.SetAttributes(attribute.Int("commits", result.Scanned), attribute.Int("entries", len(result.Entries)))

	return result, nil
}

func (w *Workspace) changelog(ctx context.Context, previous snapshot.RepositorySnapshot, handle progress.Handle) (Result, error) {
	sentinels, err := previous.Heads()
	if err != nil {
		return Result{}, fmt.Errorf("%s: previous snapshot: %w", w.project.Name, err)
	}

	result := Result{
		Project: w.project,
		Heads:   make(snapshot.RepositorySnapshot, len(w.project.Branches)),
	}

	for _, branch := range w.project.Branches {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return Result{}, fmt.Errorf("%s: %w", w.project.Name, ctxErr)
		}

		head, err := w.resolve(ctx, branch, handle)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", w.project.Name, err)
		}

		handle.SetStatus("walking " + string(branch))

		extraction, err := w.walk(ctx, branch, head, sentinels, handle)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", w.project.Name, err)
		}

		w.opts.Logger.DebugContext(ctx, "branch walked",
			"project", w.project.Name, "branch", branch, "head", head.String(),
			"commits", extraction.Scanned, "entries", len(extraction.Entries),
			"sentinels", len(extraction.Sentinels))

		result.Entries = append(result.Entries, extraction.Entries...)
		result.Scanned += extraction.Scanned
		result.Heads[branch] = snapshot.CommitHashFrom(head)

		sentinels.Merge(extraction.Sentinels)
		sentinels.Add(head)
	}

	result.Sentinels = sentinels

	return result, nil
}

func (w *Workspace) resolve(ctx context.Context, branch snapshot.BranchName, handle progress.Handle) (gitlib.Hash, error) {
	if !w.fetch {
		return w.repo.FindBranch(string(branch))
	}

	handle.SetStatus("fetching " + string(branch))

	return w.repo.FetchBranch(ctx, string(branch), w.opts.Credentials)
}

func (w *Workspace) walk(
	ctx context.Context,
	branch snapshot.BranchName,
	head gitlib.Hash,
	sentinels gitlib.HashSet,
	handle progress.Handle,
) (changelog.Extraction, error) {
	_, span := w.opts.Tracer.Start(ctx, "project.walk", trace.WithAttributes(attribute.String("branch", string(branch))))
	defer span.End()

	walk, err := w.repo.WalkFrom(head, sentinels, w.opts.Logger)
	if err != nil {
		return changelog.Extraction{}, err
	}
	defer walk.Free()

	return changelog.ExtractEntries(w.project.Origin, branch, counted(ctx, walk.Commits(), handle), w.project.Team)
}

// counted reports every commit to handle and stops with ctx's error once ctx
// is cancelled.
func counted(ctx context.Context, commits iter.Seq2[gitlib.CommitInfo, error], handle progress.Handle) iter.Seq2[gitlib.CommitInfo, error] {
	return func(yield func(gitlib.CommitInfo, error) bool) {
		for commit, err := range commits {
			if err == nil {
				err = ctx.Err()
			}

			if err != nil {
				yield(nil, err)

				return
			}

			handle.Increment(1)

			if !yield(commit, nil) {
				return
			}
		}
	}
}
