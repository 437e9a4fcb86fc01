package changelog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSelector is returned for an unknown grouping field name.
var ErrInvalidSelector = errors.New("invalid grouping field")

// Field names a grouping key extracted from an entry.
type Field string

// Supported grouping fields.
const (
	FieldScope      Field = "scope"
	FieldBranch     Field = "branch"
	FieldOrigin     Field = "origin"
	FieldCommitType Field = "commit-type"
	FieldBreaking   Field = "breaking"
	FieldTeam       Field = "team"
)

// Keys produced by FieldBreaking.
const (
	KeyBreaking    = "breaking"
	KeyNonBreaking = "non-breaking"
)

// fieldAliases maps accepted spellings to their field.
var fieldAliases = map[string]Field{
	"scope":       FieldScope,
	"branch":      FieldBranch,
	"origin":      FieldOrigin,
	"repository":  FieldOrigin,
	"commit-type": FieldCommitType,
	"type":        FieldCommitType,
	"breaking":    FieldBreaking,
	"team":        FieldTeam,
}

// ParseField resolves a user supplied field name.
func ParseField(name string) (Field, error) {
	field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrInvalidSelector, name, strings.Join(FieldNames(), ", "))
	}

	return field, nil
}

// ParseFields resolves an ordered list of field names.
func ParseFields(names []string) ([]Field, error) {
	fields := make([]Field, 0, len(names))

	for _, name := range names {
		field, err := ParseField(name)
		if err != nil {
			return nil, err
		}

		fields = append(fields, field)
	}

	return fields, nil
}

// FieldNames lists the canonical field names.
func FieldNames() []string {
	return []string{
		string(FieldScope), string(FieldBranch), string(FieldOrigin),
		string(FieldCommitType), string(FieldBreaking), string(FieldTeam),
	}
}

// Key extracts the grouping key of e. Absent values key as "".
func (f Field) Key(e Entry) string {
	switch f {
	case FieldScope:
		return e.Message.Scope
	case FieldBranch:
		return string(e.Branch)
	case FieldOrigin:
		return string(e.Origin)
	case FieldCommitType:
		return e.Message.Type.String()
	case FieldBreaking:
		if e.Message.Breaking {
			return KeyBreaking
		}

		return KeyNonBreaking
	case FieldTeam:
		team, _ := e.Message.Trailer(TeamTrailer)

		return team
	default:
		panic("changelog: unknown field " + string(f))
	}
}
