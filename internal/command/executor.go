package command

import (
	"context"
	"fmt"
	"os/exec"
)

// ExecutorConfig maps each action to the argv that performs it. Commands are
// argv slices, never shell strings. The browser URL is appended to
// BrowserCmd at execution time.
type ExecutorConfig struct {
	BrowserURL  string
	BrowserCmd  []string
	CloseWindow []string
	LaunchApp   []string
	SwitchApp   []string
	LockScreen  []string
}

// OSExecutor launches external processes for each action kind. Launched
// programs are not waited on; the assistant only cares that they started.
type OSExecutor struct {
	cfg ExecutorConfig

	// start launches an argv without waiting for it. Tests swap this out
	// to record launches.
	start func(ctx context.Context, argv []string) error
}

// NewOSExecutor creates an executor over the configured action commands.
func NewOSExecutor(cfg ExecutorConfig) *OSExecutor {
	return &OSExecutor{cfg: cfg, start: startProcess}
}

// Execute launches the configured command for the action kind. It returns
// an error when the action has no configured command or its process fails
// to start.
func (e *OSExecutor) Execute(ctx context.Context, kind ActionKind) error {
	var argv []string
	switch kind {
	case ActionOpenBrowser:
		argv = append(append([]string{}, e.cfg.BrowserCmd...), e.cfg.BrowserURL)
	case ActionCloseWindow:
		argv = e.cfg.CloseWindow
	case ActionLaunchApp:
		argv = e.cfg.LaunchApp
	case ActionSwitchApp:
		argv = e.cfg.SwitchApp
	case ActionLockScreen:
		argv = e.cfg.LockScreen
	default:
		return fmt.Errorf("no executable action for %s", kind)
	}
	if len(argv) == 0 {
		return fmt.Errorf("no command configured for %s", kind)
	}
	return e.start(ctx, argv)
}

// startProcess starts an argv and releases it. The child must outlive the
// turn that launched it, so the context deliberately does not bind the
// process lifetime; it only gates whether the launch happens at all.
func startProcess(ctx context.Context, argv []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
