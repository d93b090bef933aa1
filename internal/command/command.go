// Package command turns free-form model replies into system actions. A reply
// opts in by carrying the literal COMMAND: marker; the text after the marker
// is the directive, matched against a fixed, ordered phrase table.
package command

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Marker is the literal token a reply must contain for the text after it to
// be treated as a directive.
const Marker = "COMMAND:"

// ExtractDirective returns the trimmed text following the first command
// marker in the reply. The second result is false when no marker is present.
func ExtractDirective(reply string) (string, bool) {
	_, after, found := strings.Cut(reply, Marker)
	if !found {
		return "", false
	}
	return strings.TrimSpace(after), true
}

// ActionKind identifies one of the closed set of dispatchable actions.
type ActionKind int

const (
	// ActionUnrecognized is the fallback for directives matching no phrase.
	// It is a normal, reported outcome, not an error.
	ActionUnrecognized ActionKind = iota
	ActionOpenBrowser
	ActionCloseWindow
	ActionLaunchApp
	ActionSwitchApp
	ActionLockScreen
)

func (k ActionKind) String() string {
	switch k {
	case ActionOpenBrowser:
		return "open-browser"
	case ActionCloseWindow:
		return "close-window"
	case ActionLaunchApp:
		return "launch-app"
	case ActionSwitchApp:
		return "switch-app"
	case ActionLockScreen:
		return "lock-screen"
	case ActionUnrecognized:
		return "unrecognized"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// matchTable is the ordered phrase table. Matching is case-insensitive
// substring containment and the first match wins, so an earlier entry
// shadows any overlapping later one. The current phrases happen not to
// overlap; the order is still part of the contract.
var matchTable = []struct {
	phrase string
	kind   ActionKind
}{
	{"open browser", ActionOpenBrowser},
	{"close window", ActionCloseWindow},
	{"open obs", ActionLaunchApp},
	{"switch to overwatch", ActionSwitchApp},
	{"lock screen", ActionLockScreen},
}

// Resolve maps a directive to an action kind by ordered substring match.
func Resolve(directive string) ActionKind {
	lowered := strings.ToLower(directive)
	for _, entry := range matchTable {
		if strings.Contains(lowered, entry.phrase) {
			return entry.kind
		}
	}
	return ActionUnrecognized
}

// Executor is the capability interface that performs the external side
// effect for an action. Implementations perform exactly one side effect per
// call and no retries.
type Executor interface {
	Execute(ctx context.Context, kind ActionKind) error
}

// Dispatcher resolves directives and hands them to an Executor. Launch
// failures are logged and reported through the return value, never raised:
// by the time a directive is dispatched the conversational exchange has
// already succeeded and been persisted.
type Dispatcher struct {
	exec Executor
}

// NewDispatcher creates a dispatcher over the given executor.
func NewDispatcher(exec Executor) *Dispatcher {
	return &Dispatcher{exec: exec}
}

// Dispatch resolves and executes a directive, returning the resolved kind
// and whether the side effect launched cleanly. Unrecognized directives
// report false without invoking the executor.
func (d *Dispatcher) Dispatch(ctx context.Context, directive string) (ActionKind, bool) {
	kind := Resolve(directive)
	if kind == ActionUnrecognized {
		log.Printf("command: no known command matched for: %s", directive)
		return kind, false
	}
	if err := d.exec.Execute(ctx, kind); err != nil {
		log.Printf("command: %s failed: %v", kind, err)
		return kind, false
	}
	return kind, true
}
