package gitlib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	git2go "github.com/libgit2/git2go/v34"
)

// Sentinel errors for repository access.
var (
	// ErrRepositoryNotFound is returned when no repository exists at a path.
	ErrRepositoryNotFound = errors.New("repository not found")
	// ErrBranchNotFound is returned when a branch exists neither locally nor
	// as a remote-tracking branch.
	ErrBranchNotFound = errors.New("branch not found")
)

// DefaultRemote is the remote name used for clones and fetches.
const DefaultRemote = "origin"

// Repository wraps a libgit2 repository.
type Repository struct {
	repo *git2go.Repository
	path string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
		return nil, fmt.Errorf("open repository %s: %w: %w", path, ErrRepositoryNotFound, err)
	}

	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// CloneBare clones origin into path as a bare repository.
func CloneBare(ctx context.Context, origin, path string, creds Credentials) (*Repository, error) {
	err := ctx.Err()
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", origin, err)
	}

	repo, err := git2go.Clone(origin, path, &git2go.CloneOptions{
		Bare:         true,
		FetchOptions: creds.fetchOptions(),
	})
	if err != nil {
		return nil, fmt.Errorf("clone %s into %s: %w", origin, path, err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Path returns the repository path.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// LookupCommit returns the commit with the given hash.
func (r *Repository) LookupCommit(hash Hash) (*Commit, error) {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return nil, fmt.Errorf("lookup commit %s: %w", hash, err)
	}

	return &Commit{commit: commit}, nil
}

// HasCommit reports whether the object database holds the given commit.
func (r *Repository) HasCommit(hash Hash) bool {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return false
	}

	commit.Free()

	return true
}

// FindBranch resolves a branch name to its head commit, trying the local
// branch first and then the remote-tracking branch of DefaultRemote.
func (r *Repository) FindBranch(name string) (Hash, error) {
	branch, err := r.repo.LookupBranch(name, git2go.BranchLocal)
	if err == nil {
		defer branch.Free()

		return HashFromOid(branch.Target()), nil
	}

	if !git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
		return Hash{}, fmt.Errorf("lookup branch %s: %w", name, err)
	}

	branch, err = r.repo.LookupBranch(DefaultRemote+"/"+name, git2go.BranchRemote)
	if err == nil {
		defer branch.Free()

		return HashFromOid(branch.Target()), nil
	}

	if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
		return Hash{}, fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}

	return Hash{}, fmt.Errorf("lookup branch %s/%s: %w", DefaultRemote, name, err)
}

// FetchBranch fetches one branch from DefaultRemote straight into the local
// branch of the same name, creating it when absent, and returns its new head.
func (r *Repository) FetchBranch(ctx context.Context, name string, creds Credentials) (Hash, error) {
	err := ctx.Err()
	if err != nil {
		return Hash{}, fmt.Errorf("fetch %s: %w", name, err)
	}

	remote, err := r.repo.Remotes.Lookup(DefaultRemote)
	if err != nil {
		return Hash{}, fmt.Errorf("lookup remote %s: %w", DefaultRemote, err)
	}
	defer remote.Free()

	opts := creds.fetchOptions()
	refspec := fmt.Sprintf("+refs/heads/%[1]s:refs/heads/%[1]s", name)

	err = remote.Fetch([]string{refspec}, &opts, "")
	if err != nil {
		return Hash{}, fmt.Errorf("fetch %s from %s: %w", name, DefaultRemote, err)
	}

	return r.FindBranch(name)
}

// WalkFrom creates a topologically sorted walker starting at head that
// excludes every commit reachable from a hidden id. Hidden ids missing from
// the object database are skipped: a recorded head may have been rewritten
// away upstream since it was recorded.
func (r *Repository) WalkFrom(head Hash, hidden HashSet, logger *slog.Logger) (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	rw := &RevWalk{walk: walk, repo: r}
	rw.Sorting(git2go.SortTopological)

	err = rw.Push(head)
	if err != nil {
		rw.Free()

		return nil, err
	}

	for _, h := range hidden.Sorted() {
		if !r.HasCommit(h) {
			logger.Debug("skipping unknown sentinel", "commit", h.String(), "repository", r.path)

			continue
		}

		err = rw.Hide(h)
		if err != nil {
			rw.Free()

			return nil, err
		}
	}

	return rw, nil
}
