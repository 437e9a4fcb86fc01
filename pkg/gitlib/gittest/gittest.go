// Package gittest builds throwaway git repositories for tests.
package gittest

import (
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"

	"github.com/vberset/resume/pkg/gitlib"
)

// epoch anchors commit timestamps so walks over fixtures are reproducible.
var epoch = time.Date(2021, time.March, 1, 12, 0, 0, 0, time.UTC)

// Repo is a repository created inside a test's temporary directory.
// Every commit shares the empty tree; only messages and parents differ.
type Repo struct {
	t      testing.TB
	Path   string
	Native *git2go.Repository
	tree   *git2go.Tree
	seq    int
}

// New initializes a non-bare repository whose HEAD points at branch.
func New(t testing.TB, branch string) *Repo {
	t.Helper()

	dir := t.TempDir()

	native, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	builder, err := native.TreeBuilder()
	require.NoError(t, err)

	defer builder.Free()

	treeID, err := builder.Write()
	require.NoError(t, err)

	tree, err := native.LookupTree(treeID)
	require.NoError(t, err)

	err = native.SetHead("refs/heads/" + branch)
	require.NoError(t, err)

	r := &Repo{t: t, Path: dir, Native: native, tree: tree}

	t.Cleanup(func() {
		r.tree.Free()
		r.Native.Free()
	})

	return r
}

// Commit records a commit with the given parents and moves branch to it.
// Without parents the commit is a root commit.
func (r *Repo) Commit(branch, message string, parents ...gitlib.Hash) gitlib.Hash {
	r.t.Helper()

	r.seq++

	sig := &git2go.Signature{
		Name:  "Test User",
		Email: "test@example.com",
		When:  epoch.Add(time.Duration(r.seq) * time.Minute),
	}

	nativeParents := make([]*git2go.Commit, 0, len(parents))

	for _, p := range parents {
		parent, err := r.Native.LookupCommit(p.ToOid())
		require.NoError(r.t, err)

		nativeParents = append(nativeParents, parent)
	}

	oid, err := r.Native.CreateCommit("", sig, sig, message, r.tree, nativeParents...)
	require.NoError(r.t, err)

	for _, parent := range nativeParents {
		parent.Free()
	}

	hash := gitlib.HashFromOid(oid)
	r.SetBranch(branch, hash)

	return hash
}

// Append commits on top of the current tip of branch.
func (r *Repo) Append(branch, message string) gitlib.Hash {
	r.t.Helper()

	ref, err := r.Native.References.Lookup("refs/heads/" + branch)
	if git2go.IsErrorCode(err, git2go.ErrorCodeNotFound) {
		return r.Commit(branch, message)
	}

	require.NoError(r.t, err)

	defer ref.Free()

	return r.Commit(branch, message, gitlib.HashFromOid(ref.Target()))
}

// SetBranch points branch at hash, creating it when needed.
func (r *Repo) SetBranch(branch string, hash gitlib.Hash) {
	r.t.Helper()

	ref, err := r.Native.References.Create("refs/heads/"+branch, hash.ToOid(), true, "")
	require.NoError(r.t, err)

	ref.Free()
}

// Tip returns the commit branch points at.
func (r *Repo) Tip(branch string) gitlib.Hash {
	r.t.Helper()

	ref, err := r.Native.References.Lookup("refs/heads/" + branch)
	require.NoError(r.t, err)

	defer ref.Free()

	return gitlib.HashFromOid(ref.Target())
}
