// Package conventional parses commit messages that follow the Conventional
// Commits convention: a "type(scope)!: summary" headline, an optional body
// separated by a blank line and an optional block of "Key: value" trailers.
package conventional

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParse is returned when a message does not follow the convention.
var ErrParse = errors.New("not a conventional commit message")

// Type is the commit type of a headline. Unknown types are kept verbatim.
type Type string

// Well-known commit types.
const (
	TypeBuild         Type = "build"
	TypeCI            Type = "ci"
	TypeDocumentation Type = "docs"
	TypeFeature       Type = "feat"
	TypeBugFix        Type = "fix"
	TypePerformance   Type = "perf"
	TypeRefactoring   Type = "refactor"
	TypeStyle         Type = "style"
	TypeTest          Type = "test"
)

var knownTypes = map[Type]struct{}{
	TypeBuild: {}, TypeCI: {}, TypeDocumentation: {}, TypeFeature: {}, TypeBugFix: {},
	TypePerformance: {}, TypeRefactoring: {}, TypeStyle: {}, TypeTest: {},
}

// IsKnown reports whether t is one of the well-known types rather than other(t).
func (t Type) IsKnown() bool {
	_, ok := knownTypes[t]

	return ok
}

// String returns the type as written in the headline.
func (t Type) String() string {
	return string(t)
}

// Trailer is one "Key: value" line of the trailer block.
type Trailer struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Message is a parsed conventional commit message. Scope and Body are empty
// when absent.
type Message struct {
	Type     Type      `json:"type"               yaml:"type"`
	Scope    string    `json:"scope,omitempty"    yaml:"scope,omitempty"`
	Breaking bool      `json:"breaking"           yaml:"breaking"`
	Summary  string    `json:"summary"            yaml:"summary"`
	Body     string    `json:"body,omitempty"     yaml:"body,omitempty"`
	Trailers []Trailer `json:"trailers,omitempty" yaml:"trailers,omitempty"`
}

// Trailer returns the value of the first trailer whose key is exactly key.
func (m Message) Trailer(key string) (string, bool) {
	for _, tr := range m.Trailers {
		if tr.Key == key {
			return tr.Value, true
		}
	}

	return "", false
}

// HasTrailer reports whether some trailer has exactly the given key and value.
func (m Message) HasTrailer(key, value string) bool {
	for _, tr := range m.Trailers {
		if tr.Key == key && tr.Value == value {
			return true
		}
	}

	return false
}

var (
	headlinePattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9_-]*)(?:\(([^()\s][^()]*)\))?(!)?: (\S.*)$`)
	trailerPattern  = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9-]*): (.*)$`)
)

// Parse parses a raw commit message.
func Parse(raw string) (Message, error) {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	headline, rest, _ := strings.Cut(text, "\n")

	match := headlinePattern.FindStringSubmatch(strings.TrimRight(headline, " \t"))
	if match == nil {
		return Message{}, fmt.Errorf("%w: headline %q does not match type(scope)!: summary", ErrParse, headline)
	}

	msg := Message{
		Type:     Type(match[1]),
		Scope:    strings.TrimSpace(match[2]),
		Breaking: match[3] != "",
		Summary:  match[4],
	}

	if strings.TrimSpace(rest) == "" {
		return msg, nil
	}

	firstLine, _, _ := strings.Cut(rest, "\n")
	if strings.TrimSpace(firstLine) != "" {
		return Message{}, fmt.Errorf("%w: headline must be followed by a blank line", ErrParse)
	}

	body, trailers := splitTrailers(rest)
	msg.Body = strings.TrimSpace(body)
	msg.Trailers = trailers

	return msg, nil
}

// splitTrailers separates the last paragraph of text when every one of its
// lines is a trailer. The returned body keeps its inner blank lines.
func splitTrailers(text string) (string, []Trailer) {
	trimmed := strings.TrimRight(text, " \t\n")

	start := strings.LastIndex(trimmed, "\n\n")
	paragraph := trimmed[start+1:]

	if start < 0 {
		paragraph = trimmed
	}

	lines := strings.Split(strings.TrimLeft(paragraph, "\n"), "\n")
	trailers := make([]Trailer, 0, len(lines))

	for _, line := range lines {
		match := trailerPattern.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			return trimmed, nil
		}

		trailers = append(trailers, Trailer{
			Key:   match[1],
			Value: strings.TrimSpace(match[2]),
		})
	}

	if start < 0 {
		return "", trailers
	}

	return trimmed[:start], trailers
}
