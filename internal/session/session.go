// Package session orchestrates conversation turns. A turn moves through a
// fixed pipeline: compose the prompt from persisted memory, query the model,
// speak and persist the reply, maybe sync, maybe dispatch an embedded
// command. Only a failure to obtain the reply aborts a turn; everything
// after the reply is best-effort and reported rather than raised.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kairovault/mantis/internal/command"
	"github.com/kairovault/mantis/internal/gitsync"
	"github.com/kairovault/mantis/internal/history"
	"github.com/kairovault/mantis/internal/llm"
	"github.com/kairovault/mantis/internal/memory"
	"github.com/kairovault/mantis/internal/prompt"
	"github.com/kairovault/mantis/internal/speech"
	"github.com/kairovault/mantis/pkg/types"
)

// ErrBusy is returned when a turn is submitted while another is in flight.
// Turns are strictly sequential; submissions are rejected, never queued.
var ErrBusy = errors.New("session: a turn is already in flight")

// Turn is the outcome of one completed conversation turn.
type Turn struct {
	Exchange types.Exchange

	// Sync reports what the sync trigger did after the append.
	Sync gitsync.Outcome

	// Dispatched is true when the reply carried a command marker.
	Dispatched bool

	// Action is the resolved action kind when Dispatched is true.
	Action command.ActionKind

	// ActionOK is true when the action's side effect launched cleanly.
	ActionOK bool
}

// Options wires a Session's collaborators. Store, Model and Trigger are
// required; Speaker defaults to the silent speaker and Index to no indexing.
type Options struct {
	SystemPrompt string
	Store        *memory.Store
	Model        llm.TextGenerator
	Trigger      *gitsync.Trigger
	Dispatcher   *command.Dispatcher
	Speaker      speech.Speaker
	Index        *history.Index
}

// Session owns the turn pipeline and the single-turn-at-a-time policy.
type Session struct {
	systemPrompt string
	store        *memory.Store
	model        llm.TextGenerator
	trigger      *gitsync.Trigger
	dispatcher   *command.Dispatcher
	speaker      speech.Speaker
	index        *history.Index

	// mu serializes turns. Submissions that find it held are rejected.
	mu sync.Mutex
}

// New creates a session from the given options.
func New(opts Options) *Session {
	speaker := opts.Speaker
	if speaker == nil {
		speaker = speech.Null{}
	}
	return &Session{
		systemPrompt: opts.SystemPrompt,
		store:        opts.Store,
		model:        opts.Model,
		trigger:      opts.Trigger,
		dispatcher:   opts.Dispatcher,
		speaker:      speaker,
		index:        opts.Index,
	}
}

// RunTurn processes one user input through the full pipeline and blocks
// until the turn completes. It returns ErrBusy when a turn is already in
// flight, and otherwise only fails when no reply could be obtained.
func (s *Session) RunTurn(ctx context.Context, input string) (*Turn, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()
	return s.runTurn(ctx, input)
}

// TrySubmit offers an input to the session without blocking the caller. It
// reports false when a turn is in flight. On acceptance the turn runs in
// the background and its outcome is delivered to done (which may be nil).
// This is the entry point for the listener boundary.
func (s *Session) TrySubmit(ctx context.Context, input string, done func(*Turn, error)) bool {
	if !s.mu.TryLock() {
		return false
	}
	go func() {
		defer s.mu.Unlock()
		turn, err := s.runTurn(ctx, input)
		if done != nil {
			done(turn, err)
		}
	}()
	return true
}

// runTurn is the turn pipeline. The caller holds s.mu.
//
// Idle -> Composing -> Querying -> Replied -> Persisting -> (Syncing)?
// -> (Dispatching)? -> Idle. A query failure drops straight back to Idle;
// no partial state survives it.
func (s *Session) runTurn(ctx context.Context, input string) (*Turn, error) {
	// Composing: the prompt is rebuilt from persisted memory every turn.
	memoryContext, err := s.store.LoadContext()
	if err != nil {
		return nil, fmt.Errorf("session: load memory: %w", err)
	}
	envelope := prompt.Compose(s.systemPrompt, memoryContext, input)

	// Querying: the only failure that aborts the turn. Without a reply
	// there is nothing to speak or persist.
	reply, err := s.model.Complete(ctx, envelope)
	if err != nil {
		return nil, fmt.Errorf("session: query model: %w", err)
	}

	turn := &Turn{
		Exchange: types.Exchange{
			ID:        uuid.NewString(),
			CreatedAt: time.Now().UTC(),
			UserInput: input,
			Reply:     reply,
		},
	}

	// Replied: speaking is best-effort and blocks for its full duration.
	if err := s.speaker.Speak(ctx, reply); err != nil {
		log.Printf("session: speech failed: %v", err)
	}

	// Persisting: the exchange is appended between two fingerprints so the
	// sync trigger can tell whether the log actually changed.
	before := s.fingerprint()
	if err := s.store.AppendExchange(input, reply); err != nil {
		log.Printf("session: persist exchange failed: %v", err)
	}
	after := s.fingerprint()

	// Syncing: fires only on change, failures stay inside the trigger.
	turn.Sync = s.trigger.MaybeSync(ctx, before, after)

	if directive, found := command.ExtractDirective(reply); found {
		turn.Exchange.Directive = directive
		// Dispatching: the exchange already succeeded, so a failed or
		// unrecognized action never fails the turn.
		turn.Dispatched = true
		turn.Action, turn.ActionOK = s.dispatcher.Dispatch(ctx, directive)
	}

	// The index is derived state; losing a row is only worth a log line.
	if s.index != nil {
		if err := s.index.Record(ctx, turn.Exchange); err != nil {
			log.Printf("session: history index: %v", err)
		}
	}

	return turn, nil
}

// fingerprint hashes the conversation log, treating an unreadable log as
// absent. Fingerprints only gate synchronization, so degrading to the
// absent sentinel is safe: at worst a sync fires that finds nothing new.
func (s *Session) fingerprint() memory.Fingerprint {
	fp, err := s.store.Fingerprint()
	if err != nil {
		log.Printf("session: fingerprint: %v", err)
		return memory.Fingerprint{}
	}
	return fp
}
