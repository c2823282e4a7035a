package lobster

import (
	"fmt"
	"strings"
)

// Schema selects which record kind a run produces. One schema per artifact.
type Schema string

const (
	SchemaRequirement    Schema = "requirement"
	SchemaImplementation Schema = "implementation"
	SchemaActivity       Schema = "activity"
)

// ParseSchema accepts the schema name case-insensitively.
func ParseSchema(s string) (Schema, error) {
	switch Schema(strings.ToLower(s)) {
	case SchemaRequirement:
		return SchemaRequirement, nil
	case SchemaImplementation:
		return SchemaImplementation, nil
	case SchemaActivity:
		return SchemaActivity, nil
	default:
		return "", fmt.Errorf("unsupported schema %q: must be requirement, implementation or activity", s)
	}
}

// Namespace is the tag namespace for items of this schema.
func (s Schema) Namespace() string {
	switch s {
	case SchemaImplementation:
		return "imp"
	case SchemaActivity:
		return "act"
	default:
		return "req"
	}
}

// Name is the schema identifier written into the artifact envelope.
func (s Schema) Name() string {
	switch s {
	case SchemaImplementation:
		return "lobster-imp-trace"
	case SchemaActivity:
		return "lobster-act-trace"
	default:
		return "lobster-req-trace"
	}
}

// FormatVersion is the interchange-format version for this schema.
func (s Schema) FormatVersion() int {
	if s == SchemaRequirement {
		return 4
	}
	return 3
}
