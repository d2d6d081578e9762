// Package style defines the pluggable frame transform interface and
// the built-in styles. The pipeline core treats styles as opaque: it
// resolves one by name from a registry and calls Apply, never
// special-casing a concrete style.
package style

import (
	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// Style transforms one frame given a parameter map, returning a frame
// of the same resolution and pixel format. Apply must not mutate the
// input frame.
type Style interface {
	// Name returns the registry key for this style
	Name() string

	// Apply transforms a single frame. On error the caller keeps the
	// input frame, so a failing style never blanks the stream.
	Apply(f *frame.Frame, params Params) (*frame.Frame, error)

	// ParamSpecs describes the tunable parameters. Consumed only by
	// control clients to build UI; the pipeline ignores it.
	ParamSpecs() []ParamSpec
}

// Config selects a style plus its parameter values. A config is
// replaced as a whole unit (last writer wins, no partial application).
type Config struct {
	Style   string `json:"style" yaml:"style"`
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
	Params  Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// Identity is the name of the built-in no-op style. The pipeline
// defaults to it so a running pipeline always has a valid config.
const Identity = "identity"

// IdentityConfig returns the default pass-through style config.
func IdentityConfig() Config {
	return Config{Style: Identity, Params: Params{}}
}

// ParamType enumerates the value types a style parameter may have.
type ParamType string

const (
	ParamFloat  ParamType = "float"
	ParamInt    ParamType = "int"
	ParamBool   ParamType = "bool"
	ParamString ParamType = "string"
)

// ParamSpec describes one tunable parameter for control clients.
type ParamSpec struct {
	Name    string    `json:"name"`
	Label   string    `json:"label"`
	Type    ParamType `json:"type"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Step    float64   `json:"step,omitempty"`
	Default any       `json:"default,omitempty"`
	Choices []string  `json:"choices,omitempty"`
}
