package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// Config is the decoded, validated set of host-visible configuration
// values, ready to consult without touching CUE again.
type Config struct {
	GoalsAutoComplete        bool
	SearchDuplicateThreshold float64
	SearchRelatedThreshold   float64
	DurableAppend            bool
}

// rawConfig mirrors schema.cue's nesting for decoding; Config flattens
// it into the shape the rest of the engine actually consults.
type rawConfig struct {
	Goals struct {
		AutoComplete bool `json:"auto_complete"`
	} `json:"goals"`
	Search struct {
		DuplicateThreshold float64 `json:"duplicate_threshold"`
		RelatedThreshold   float64 `json:"related_threshold"`
	} `json:"search"`
	DurableAppend bool `json:"durable_append"`
}

// Default returns the configuration produced by the schema's own
// defaults, with no overlay applied.
func Default() (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return decode(schema)
}

// Load reads the CUE overlay file at path, unifies it against the
// schema, and decodes the result. A missing file is not an error: it
// is treated as an empty overlay, so Load(missingPath) behaves like
// Default.
func Load(path string) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return decode(schema)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	overlay := ctx.CompileBytes(data, cue.Filename(path))
	if err := overlay.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	merged := schema.Unify(overlay)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return decode(merged)
}

func decode(v cue.Value) (*Config, error) {
	var raw rawConfig
	if err := v.Decode(&raw); err != nil {
		return nil, formatCUEError(err)
	}
	if raw.Search.DuplicateThreshold < 0 || raw.Search.DuplicateThreshold > 1 {
		return nil, &CompileError{Field: "search.duplicate_threshold", Message: "must be between 0 and 1"}
	}
	if raw.Search.RelatedThreshold < 0 || raw.Search.RelatedThreshold > 1 {
		return nil, &CompileError{Field: "search.related_threshold", Message: "must be between 0 and 1"}
	}
	return &Config{
		GoalsAutoComplete:        raw.Goals.AutoComplete,
		SearchDuplicateThreshold: raw.Search.DuplicateThreshold,
		SearchRelatedThreshold:   raw.Search.RelatedThreshold,
		DurableAppend:            raw.DurableAppend,
	}, nil
}

// CompileError reports a configuration problem with an optional source
// position, in the same shape internal/compiler uses for CUE errors.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
