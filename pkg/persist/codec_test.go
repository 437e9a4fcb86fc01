package persist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testState is a struct for round-trip codec testing.
type testState struct {
	Name   string         `json:"name"   yaml:"name"`
	Count  int            `json:"count"  yaml:"count"`
	Values map[string]int `json:"values" yaml:"values"`
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, codec := range []Codec{NewJSONCodec(), NewYAMLCodec(), &JSONCodec{}} {
		t.Run(codec.Extension(), func(t *testing.T) {
			t.Parallel()

			original := testState{
				Name:   "test",
				Count:  42,
				Values: map[string]int{"a": 1, "b": 2},
			}

			var buf bytes.Buffer

			require.NoError(t, codec.Encode(&buf, original))

			var decoded testState

			require.NoError(t, codec.Decode(&buf, &decoded))
			assert.Equal(t, original, decoded)
		})
	}
}

func TestJSONCodec_CompactNoIndent(t *testing.T) {
	t.Parallel()

	codec := &JSONCodec{Indent: ""}

	var buf bytes.Buffer

	require.NoError(t, codec.Encode(&buf, testState{Name: "a<b", Count: 1}))

	output := strings.TrimSpace(buf.String())
	assert.NotContains(t, output, "\n")
	assert.Contains(t, output, "a<b")
}

func TestYAMLCodec_Indent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, NewYAMLCodec().Encode(&buf, testState{Name: "x", Values: map[string]int{"k": 1}}))

	assert.Equal(t, "name: x\ncount: 0\nvalues:\n  k: 1\n", buf.String())
}

func TestYAMLCodec_DecodeEmptyDocument(t *testing.T) {
	t.Parallel()

	state := testState{Name: "kept"}

	require.NoError(t, NewYAMLCodec().Decode(strings.NewReader(""), &state))
	assert.Equal(t, "kept", state.Name)
}

func TestYAMLCodec_DecodeMalformed(t *testing.T) {
	t.Parallel()

	var state testState

	err := NewYAMLCodec().Decode(strings.NewReader("name: [unterminated"), &state)
	assert.Error(t, err)
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".json", CodecFor("state.JSON").Extension())
	assert.Equal(t, ".yaml", CodecFor("state.yml").Extension())
	assert.Equal(t, ".yaml", CodecFor("state").Extension())
}
