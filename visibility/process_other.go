//go:build !unix

package visibility

import (
	"context"
	"errors"
	"os"
)

// ErrUnsupported is returned by ProcessSignalSource.Watch on platforms
// without user-defined signals.
var ErrUnsupported = errors.New("visibility: process signals are not supported on this platform")

// ProcessSignalSource is unavailable on this platform.
type ProcessSignalSource struct {
	Visible os.Signal
	Hidden  os.Signal
}

// NewProcessSignalSource returns a source whose Watch always fails.
func NewProcessSignalSource() *ProcessSignalSource {
	return &ProcessSignalSource{}
}

// Watch implements Source.
func (p *ProcessSignalSource) Watch(context.Context, func(visible bool)) error {
	return ErrUnsupported
}
