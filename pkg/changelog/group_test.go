package changelog_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vberset/resume/pkg/changelog"
	"github.com/vberset/resume/pkg/conventional"
)

func entry(typ conventional.Type, scope, summary string) changelog.Entry {
	return changelog.Entry{
		Origin: "repo",
		Branch: "master",
		Message: conventional.Message{
			Type:    typ,
			Scope:   scope,
			Summary: summary,
		},
	}
}

func summariesOf(t *testing.T, node changelog.Node) []string {
	t.Helper()

	leaf, ok := node.(*changelog.Leaf)
	require.True(t, ok, "expected a leaf, got %T", node)

	out := make([]string, 0, leaf.Len())
	for _, e := range leaf.Entries() {
		out = append(out, e.Message.Summary)
	}

	return out
}

func TestGrouper_ByCommitType(t *testing.T) {
	t.Parallel()

	g := changelog.NewGrouper(changelog.FieldCommitType)
	require.NoError(t, g.InsertAll([]changelog.Entry{
		entry(conventional.TypeFeature, "", "a"),
		entry(conventional.TypeBugFix, "", "b"),
		entry(conventional.TypeFeature, "", "c"),
	}))

	root, ok := g.Root().(*changelog.Index)
	require.True(t, ok)

	assert.Equal(t, []string{"feat", "fix"}, root.Keys())
	assert.Equal(t, 3, g.Count())

	feat, ok := root.Child("feat")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, summariesOf(t, feat))

	fix, ok := root.Child("fix")
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, summariesOf(t, fix))

	_, ok = root.Child("docs")
	assert.False(t, ok)
}

func TestGrouper_NoFields(t *testing.T) {
	t.Parallel()

	g := changelog.NewGrouper()
	require.NoError(t, g.Insert(entry(conventional.TypeFeature, "", "one")))
	require.NoError(t, g.Insert(entry(conventional.TypeBugFix, "", "two")))

	assert.Equal(t, []string{"one", "two"}, summariesOf(t, g.Root()))
}

func TestGrouper_Nested(t *testing.T) {
	t.Parallel()

	g := changelog.NewGrouper(changelog.FieldScope, changelog.FieldCommitType)
	require.NoError(t, g.InsertAll([]changelog.Entry{
		entry(conventional.TypeBugFix, "ui", "1"),
		entry(conventional.TypeFeature, "", "2"),
		entry(conventional.TypeFeature, "ui", "3"),
		entry(conventional.TypeBugFix, "ui", "4"),
	}))

	root, ok := g.Root().(*changelog.Index)
	require.True(t, ok)
	assert.Equal(t, []string{"ui", ""}, root.Keys())

	uiNode, _ := root.Child("ui")
	ui, ok := uiNode.(*changelog.Index)
	require.True(t, ok)
	assert.Equal(t, []string{"fix", "feat"}, ui.Keys())

	fix, _ := ui.Child("fix")
	assert.Equal(t, []string{"1", "4"}, summariesOf(t, fix))

	unscopedNode, _ := root.Child("")
	unscoped, ok := unscopedNode.(*changelog.Index)
	require.True(t, ok)
	assert.Equal(t, 1, unscoped.Len())
}

func TestGrouper_EveryEntryInExactlyOneLeaf(t *testing.T) {
	t.Parallel()

	entries := []changelog.Entry{
		entry(conventional.TypeFeature, "a", "1"),
		entry(conventional.TypeFeature, "b", "2"),
		entry(conventional.TypeBugFix, "a", "3"),
		entry(conventional.TypeDocumentation, "", "4"),
		entry(conventional.TypeFeature, "a", "5"),
	}

	g := changelog.NewGrouper(changelog.FieldCommitType, changelog.FieldScope, changelog.FieldBreaking)
	require.NoError(t, g.InsertAll(entries))

	var walk func(node changelog.Node) []string

	walk = func(node changelog.Node) []string {
		switch n := node.(type) {
		case *changelog.Leaf:
			return summariesOf(t, n)
		case *changelog.Index:
			var out []string
			for _, key := range n.Keys() {
				child, _ := n.Child(key)
				out = append(out, walk(child)...)
			}

			return out
		}

		return nil
	}

	assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5"}, walk(g.Root()))
}

func TestGrouper_YAMLKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	g := changelog.NewGrouper(changelog.FieldCommitType)
	require.NoError(t, g.InsertAll([]changelog.Entry{
		entry(conventional.TypeRefactoring, "", "r"),
		entry(conventional.TypeBuild, "", "b"),
	}))

	var buf bytes.Buffer

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	require.NoError(t, enc.Encode(g.Root()))
	require.NoError(t, enc.Close())

	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("refactor:")), bytes.Index(buf.Bytes(), []byte("build:")), out)
	assert.Contains(t, out, "summary: r")
}

func TestGrouper_JSONKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	g := changelog.NewGrouper(changelog.FieldScope)
	require.NoError(t, g.InsertAll([]changelog.Entry{
		entry(conventional.TypeFeature, "zeta", "z"),
		entry(conventional.TypeFeature, "alpha", "a"),
	}))

	data, err := json.Marshal(g.Root())
	require.NoError(t, err)

	assert.Less(t, bytes.Index(data, []byte(`"zeta"`)), bytes.Index(data, []byte(`"alpha"`)))

	var decoded map[string][]changelog.Entry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "z", decoded["zeta"][0].Message.Summary)
}

func TestGrouper_EmptyLeafEncodesAsList(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(changelog.NewGrouper().Root())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}
