// Package speech renders replies as audio through an external synthesizer.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Speaker is the capability interface for speaking a reply aloud. Speaking
// is best-effort: the session logs failures and the turn continues, since
// the exchange already succeeded by the time it is spoken.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Piper speaks through the piper text-to-speech binary. The call blocks
// until synthesis finishes, matching the strictly sequential turn model.
type Piper struct {
	path  string // piper executable
	model string // voice model name
}

// NewPiper creates a Piper speaker for the given executable and voice model.
func NewPiper(path, model string) *Piper {
	return &Piper{path: path, model: model}
}

// Speak invokes piper with the reply text. Empty text is a no-op.
func (p *Piper) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, p.path, "--model", p.model, "--text", text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Null is a Speaker that does nothing, for headless sessions and tests.
type Null struct{}

// Speak discards the text.
func (Null) Speak(context.Context, string) error { return nil }
