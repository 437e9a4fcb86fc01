package changelog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vberset/resume/pkg/conventional"
)

func TestGrouper_InconsistentTree(t *testing.T) {
	t.Parallel()

	e := Entry{Message: conventional.Message{Type: conventional.TypeFeature}}

	g := NewGrouper(FieldCommitType)
	g.root = &Leaf{}
	require.ErrorIs(t, g.Insert(e), ErrInvalidIndex)

	g = NewGrouper(FieldCommitType, FieldScope)
	index := newIndex()
	index.add("feat", &Leaf{})
	g.root = index
	require.ErrorIs(t, g.Insert(e), ErrInvalidIndex)

	g = NewGrouper(FieldCommitType)
	index = newIndex()
	index.add("feat", newIndex())
	g.root = index
	require.ErrorIs(t, g.Insert(e), ErrInvalidIndex)
	require.Zero(t, g.Count())
}
