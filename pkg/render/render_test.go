package render_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vberset/resume/pkg/changelog"
	"github.com/vberset/resume/pkg/conventional"
	"github.com/vberset/resume/pkg/render"
)

func sample(t *testing.T, fields ...changelog.Field) *changelog.Grouper {
	t.Helper()

	g := changelog.NewGrouper(fields...)
	require.NoError(t, g.InsertAll([]changelog.Entry{
		{Origin: "api", Branch: "master", Commit: "c1", Message: conventional.Message{Type: "feat", Summary: "pagination"}},
		{Origin: "api", Branch: "master", Commit: "c2", Message: conventional.Message{Type: "fix", Scope: "db", Summary: "leak"}},
		{Origin: "web", Branch: "master", Commit: "c3", Message: conventional.Message{Type: "feat", Breaking: true, Summary: "new router"}},
		{Origin: "web", Branch: "master", Commit: "c4", Message: conventional.Message{Type: "chore", Summary: "bump deps"}},
	}))

	return g
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]render.Format{"yaml": render.FormatYAML, "JSON": render.FormatJSON, " text ": render.FormatText} {
		got, err := render.ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := render.ParseFormat("xml")
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}

func TestWrite_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, sample(t, changelog.FieldCommitType), render.FormatText, render.Options{}))

	want := "✨ New Features\n\n" +
		" - pagination\n" +
		" - 💥 new router\n\n" +
		"🐛 Bug Fixes\n\n" +
		" - db: leak\n\n" +
		"chore\n\n" +
		" - bump deps\n\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_TextNested(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, sample(t, changelog.FieldOrigin, changelog.FieldScope), render.FormatText, render.Options{}))

	want := "api\n\n" +
		"  (none)\n\n" +
		"   - pagination\n\n" +
		"  db\n\n" +
		"   - db: leak\n\n" +
		"web\n\n" +
		"  (none)\n\n" +
		"   - 💥 new router\n" +
		"   - bump deps\n\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_TextColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, sample(t, changelog.FieldCommitType), render.FormatText, render.Options{Color: true}))

	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWrite_TextEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, changelog.NewGrouper(), render.FormatText, render.Options{}))
	assert.Empty(t, buf.String())
}

func TestWrite_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, sample(t, changelog.FieldOrigin), render.FormatJSON, render.Options{}))

	var decoded map[string][]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	require.Len(t, decoded["api"], 2)
	assert.Equal(t, "c1", decoded["api"][0]["commit"])
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(`"api"`)), bytes.Index(buf.Bytes(), []byte(`"web"`)))
}

func TestWrite_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, sample(t), render.FormatYAML, render.Options{}))

	out := buf.String()
	assert.Contains(t, out, "summary: pagination")
	assert.Contains(t, out, "origin: web")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("pagination")), bytes.Index(buf.Bytes(), []byte("bump deps")))
}

func TestWrite_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := render.Write(&bytes.Buffer{}, changelog.NewGrouper(), render.Format("xml"), render.Options{})
	require.ErrorIs(t, err, render.ErrUnknownFormat)
}
