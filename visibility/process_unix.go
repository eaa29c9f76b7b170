//go:build unix

package visibility

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ProcessSignalSource maps process signals to visibility: SIGUSR1 reports
// visible and SIGUSR2 reports hidden. It lets a supervisor tell a
// long-running client that its consumer is back in the foreground.
type ProcessSignalSource struct {
	Visible os.Signal
	Hidden  os.Signal
}

// NewProcessSignalSource returns a source using SIGUSR1 and SIGUSR2.
func NewProcessSignalSource() *ProcessSignalSource {
	return &ProcessSignalSource{Visible: syscall.SIGUSR1, Hidden: syscall.SIGUSR2}
}

// Watch implements Source.
func (p *ProcessSignalSource) Watch(ctx context.Context, onChange func(visible bool)) error {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, p.Visible, p.Hidden)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-ch:
			onChange(sig == p.Visible)
		}
	}
}
