// Package gitsync publishes memory changes to a git remote. Synchronization
// is strictly best-effort: a failed sync is logged and the next changed turn
// simply tries again. Nothing in the conversation loop ever waits on a
// successful push.
package gitsync

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"github.com/kairovault/mantis/internal/memory"
)

// Synchronizer is the capability interface for publishing the vault.
type Synchronizer interface {
	// Sync stages, commits and pushes the vault. Each stage runs only if
	// the previous one succeeded.
	Sync(ctx context.Context) error
}

// Outcome reports what a MaybeSync call did.
type Outcome int

const (
	// Skipped means the fingerprints were equal; nothing ran.
	Skipped Outcome = iota
	// Synced means the full stage/commit/push sequence succeeded.
	Synced
	// Failed means a stage failed; the error was logged, not returned.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Synced:
		return "synced"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Trigger decides whether a memory change warrants a sync.
type Trigger struct {
	sync Synchronizer
}

// NewTrigger wraps a Synchronizer with change detection.
func NewTrigger(sync Synchronizer) *Trigger {
	return &Trigger{sync: sync}
}

// MaybeSync fires the synchronizer when the conversation log fingerprint
// changed across an append. Failures are contained here: they are logged and
// surfaced only through the Outcome, never as an error, so a broken remote
// can never block conversation turns.
func (t *Trigger) MaybeSync(ctx context.Context, before, after memory.Fingerprint) Outcome {
	if before.Equal(after) {
		return Skipped
	}
	if err := t.sync.Sync(ctx); err != nil {
		log.Printf("gitsync: memory sync failed: %v", err)
		return Failed
	}
	return Synced
}

// runner executes one external command in a working directory. Tests swap
// this out to record invocations.
type runner func(ctx context.Context, dir string, name string, args ...string) error

// Git synchronizes the vault with `git add . && git commit && git push`.
type Git struct {
	root    string // vault root, the fixed git working directory
	remote  string
	branch  string
	message string
	run     runner
}

// GitConfig holds the fixed repository coordinates for a Git synchronizer.
type GitConfig struct {
	Root    string // working directory containing the .git repository
	Remote  string // push target remote, e.g. "origin"
	Branch  string // push target branch, e.g. "main"
	Message string // commit message used for every sync commit
}

// NewGit creates a git-backed synchronizer rooted at the vault directory.
func NewGit(cfg GitConfig) *Git {
	return &Git{
		root:    cfg.Root,
		remote:  cfg.Remote,
		branch:  cfg.Branch,
		message: cfg.Message,
		run:     runGit,
	}
}

// Sync runs the three-stage publish sequence. The first failing stage aborts
// the remaining ones for this invocation.
func (g *Git) Sync(ctx context.Context) error {
	stages := [][]string{
		{"add", "."},
		{"commit", "-m", g.message},
		{"push", g.remote, g.branch},
	}
	for _, args := range stages {
		if err := g.run(ctx, g.root, "git", args...); err != nil {
			return fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
	}
	return nil
}

// runGit executes a git command, capturing stderr for the error message.
func runGit(ctx context.Context, dir string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
