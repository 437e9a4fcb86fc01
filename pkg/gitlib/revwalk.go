package gitlib

import (
	"fmt"
	"iter"

	git2go "github.com/libgit2/git2go/v34"
)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	err := w.walk.Push(hash.ToOid())
	if err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	return nil
}

// Hide marks a commit and all its ancestors as uninteresting.
func (w *RevWalk) Hide(hash Hash) error {
	err := w.walk.Hide(hash.ToOid())
	if err != nil {
		return fmt.Errorf("hide %s from revwalk: %w", hash, err)
	}

	return nil
}

// Sorting sets the sorting mode for the walker.
func (w *RevWalk) Sorting(mode git2go.SortType) {
	w.walk.Sorting(mode)
}

// Next returns the next commit hash in the walk. It returns ok=false once
// the walk is exhausted.
func (w *RevWalk) Next() (Hash, bool, error) {
	oid := new(git2go.Oid)

	nextErr := w.walk.Next(oid)
	if git2go.IsErrorCode(nextErr, git2go.ErrorCodeIterOver) {
		return Hash{}, false, nil
	}

	if nextErr != nil {
		return Hash{}, false, fmt.Errorf("revwalk next: %w", nextErr)
	}

	return HashFromOid(oid), true, nil
}

// Commits lazily yields the commits of the walk in walk order. Each commit
// is freed once the loop body returns, so callers must copy what they keep.
func (w *RevWalk) Commits() iter.Seq2[CommitInfo, error] {
	return func(yield func(CommitInfo, error) bool) {
		for {
			hash, ok, err := w.Next()
			if err != nil {
				yield(nil, err)

				return
			}

			if !ok {
				return
			}

			commit, err := w.repo.LookupCommit(hash)
			if err != nil {
				yield(nil, err)

				return
			}

			more := yield(commit, nil)
			commit.Free()

			if !more {
				return
			}
		}
	}
}

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
