package gitlib

import (
	git2go "github.com/libgit2/git2go/v34"
)

// CommitInfo is the part of a commit the changelog extraction reads.
// It is satisfied by *Commit and by TestCommit.
type CommitInfo interface {
	Hash() Hash
	Message() string
	NumParents() int
}

// Commit wraps a libgit2 commit. Callers own it and must Free it.
type Commit struct {
	commit *git2go.Commit
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Message returns the raw commit message, trailers included.
func (c *Commit) Message() string {
	return c.commit.Message()
}

// NumParents returns the number of parents; more than one marks a merge.
func (c *Commit) NumParents() int {
	return int(c.commit.ParentCount()) //nolint:gosec // a commit never has MaxInt parents.
}

// IsMerge reports whether c joins two or more lines of history.
func IsMerge(c CommitInfo) bool {
	return c.NumParents() > 1
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}
