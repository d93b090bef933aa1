package listen

import (
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// ErrNotConfigured is returned by Start when no listener command is set.
var ErrNotConfigured = errors.New("listen: no listener command configured")

// Process owns the external transcriber process handle. It replaces the
// ambient listener global the assistant used to keep: exactly one owner,
// explicit Start/Stop lifecycle.
type Process struct {
	argv []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewProcess creates a handle for the configured transcriber command.
// An empty argv is valid and means the listener is disabled.
func NewProcess(argv []string) *Process {
	return &Process{argv: argv}
}

// Running reports whether the transcriber process is currently started.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// Start launches the transcriber. Starting an already-running process is a
// no-op.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return nil
	}
	if len(p.argv) == 0 {
		return ErrNotConfigured
	}

	cmd := exec.Command(p.argv[0], p.argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("listen: start transcriber: %w", err)
	}
	p.cmd = cmd

	// Reap the child when it exits on its own so Stop stays accurate.
	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
	}()
	return nil
}

// Stop terminates the transcriber if it is running. Stopping a stopped
// process is a no-op.
func (p *Process) Stop() {
	p.mu.Lock()
	cmd := p.cmd
	p.cmd = nil
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
