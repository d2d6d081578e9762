package style

import (
	"github.com/bryanchriswhite/stylecam/internal/frame"
)

// IdentityStyle passes frames through untouched. It is the default
// style of a freshly started pipeline.
type IdentityStyle struct{}

func (s *IdentityStyle) Name() string { return Identity }

func (s *IdentityStyle) Apply(f *frame.Frame, _ Params) (*frame.Frame, error) {
	return f, nil
}

func (s *IdentityStyle) ParamSpecs() []ParamSpec { return nil }
