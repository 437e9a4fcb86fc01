// Package render writes grouped changelogs as YAML, JSON or a text report.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/vberset/resume/pkg/changelog"
	"github.com/vberset/resume/pkg/conventional"
	"github.com/vberset/resume/pkg/persist"
)

// ErrUnknownFormat is returned for an unsupported output format name.
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat resolves a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatYAML, FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Options tunes the text report.
type Options struct {
	// Color enables ANSI colors in the text report.
	Color bool
}

// Write renders the changelog held by g.
func Write(w io.Writer, g *changelog.Grouper, format Format, opts Options) error {
	switch format {
	case FormatYAML:
		return persist.NewYAMLCodec().Encode(w, g.Root())
	case FormatJSON:
		return persist.NewJSONCodec().Encode(w, g.Root())
	case FormatText:
		return writeText(w, g, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

var typeHeadings = map[conventional.Type]string{
	conventional.TypeFeature:       "✨ New Features",
	conventional.TypeBugFix:        "🐛 Bug Fixes",
	conventional.TypePerformance:   "⚡ Performance",
	conventional.TypeDocumentation: "📝 Documentation",
}

const (
	breakingMark = "💥 "
	emptyKey     = "(none)"
	indentUnit   = "  "
)

type textWriter struct {
	w        io.Writer
	fields   []changelog.Field
	heading  *color.Color
	breaking *color.Color
	err      error
}

func writeText(w io.Writer, g *changelog.Grouper, opts Options) error {
	tw := &textWriter{
		w:        w,
		fields:   g.Fields(),
		heading:  color.New(color.Bold),
		breaking: color.New(color.FgRed, color.Bold),
	}

	if opts.Color {
		tw.heading.EnableColor()
		tw.breaking.EnableColor()
	} else {
		tw.heading.DisableColor()
		tw.breaking.DisableColor()
	}

	if g.Count() == 0 {
		return nil
	}

	tw.node(g.Root(), 0)

	return tw.err
}

func (tw *textWriter) node(n changelog.Node, depth int) {
	switch n := n.(type) {
	case *changelog.Leaf:
		for _, e := range n.Entries() {
			tw.entry(e, depth)
		}

		tw.printf("\n")
	case *changelog.Index:
		for _, key := range n.Keys() {
			child, _ := n.Child(key)

			tw.printf("%s%s\n\n", strings.Repeat(indentUnit, depth), tw.heading.Sprint(tw.title(depth, key)))
			tw.node(child, depth+1)
		}
	}
}

func (tw *textWriter) title(depth int, key string) string {
	if tw.fields[depth] == changelog.FieldCommitType {
		if heading, ok := typeHeadings[conventional.Type(key)]; ok {
			return heading
		}
	}

	if key == "" {
		return emptyKey
	}

	return key
}

// entry prints e aligned with the heading of its leaf.
func (tw *textWriter) entry(e changelog.Entry, depth int) {
	mark := ""
	if e.Message.Breaking {
		mark = tw.breaking.Sprint(breakingMark)
	}

	summary := e.Message.Summary
	if e.Message.Scope != "" {
		summary = e.Message.Scope + ": " + summary
	}

	tw.printf("%s - %s%s\n", strings.Repeat(indentUnit, max(depth-1, 0)), mark, summary)
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}

	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}
