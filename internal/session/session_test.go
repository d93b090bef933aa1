package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairovault/mantis/internal/command"
	"github.com/kairovault/mantis/internal/gitsync"
	"github.com/kairovault/mantis/internal/llm"
	"github.com/kairovault/mantis/internal/memory"
)

// fakeModel returns a scripted reply and records the prompts it saw.
type fakeModel struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	block   chan struct{} // when set, Complete waits until closed
}

func (f *fakeModel) Complete(_ context.Context, p string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.reply, f.err
}

func (f *fakeModel) GetModel() string { return "fake" }

// countingSync counts Sync invocations and can be made to fail.
type countingSync struct {
	calls int
	err   error
}

func (c *countingSync) Sync(context.Context) error {
	c.calls++
	return c.err
}

// recordingExecutor records executed action kinds.
type recordingExecutor struct {
	kinds []command.ActionKind
}

func (r *recordingExecutor) Execute(_ context.Context, kind command.ActionKind) error {
	r.kinds = append(r.kinds, kind)
	return nil
}

// failingSpeaker always fails.
type failingSpeaker struct{}

func (failingSpeaker) Speak(context.Context, string) error {
	return errors.New("voice box broken")
}

type fixture struct {
	session *Session
	model   *fakeModel
	sync    *countingSync
	exec    *recordingExecutor
	logPath string
}

func newFixture(t *testing.T, model *fakeModel) *fixture {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "conversation.log")
	store := memory.NewStore(memory.Config{
		CorePath: filepath.Join(dir, "core_memory.txt"),
		LogPath:  logPath,
	})
	cs := &countingSync{}
	exec := &recordingExecutor{}
	return &fixture{
		session: New(Options{
			SystemPrompt: "You are Mantis.",
			Store:        store,
			Model:        model,
			Trigger:      gitsync.NewTrigger(cs),
			Dispatcher:   command.NewDispatcher(exec),
		}),
		model:   model,
		sync:    cs,
		exec:    exec,
		logPath: logPath,
	}
}

func TestRunTurn_EndToEnd(t *testing.T) {
	model := &fakeModel{reply: "Hi there. COMMAND: open browser"}
	f := newFixture(t, model)

	turn, err := f.session.RunTurn(context.Background(), "hello")
	require.NoError(t, err)

	// The envelope ends with the speaker cue for the new input.
	require.Len(t, model.prompts, 1)
	assert.True(t, strings.HasSuffix(model.prompts[0], "\nUser: hello\nMantis:"),
		"prompt must end with the new input and the Mantis: cue")
	assert.True(t, strings.HasPrefix(model.prompts[0], "You are Mantis."))

	// The log gained exactly one record with both lines.
	data, err := os.ReadFile(f.logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "User: hello")
	assert.Contains(t, string(data), "Mantis: Hi there. COMMAND: open browser")

	// The directive resolved and executed, and the change synced once.
	assert.True(t, turn.Dispatched)
	assert.Equal(t, command.ActionOpenBrowser, turn.Action)
	assert.True(t, turn.ActionOK)
	assert.Equal(t, []command.ActionKind{command.ActionOpenBrowser}, f.exec.kinds)
	assert.Equal(t, gitsync.Synced, turn.Sync)
	assert.Equal(t, 1, f.sync.calls, "sync must fire exactly once per changed turn")
	assert.Equal(t, "open browser", turn.Exchange.Directive)
}

func TestRunTurn_ModelFailureAbortsCleanly(t *testing.T) {
	model := &fakeModel{err: llm.ErrModelUnavailable}
	f := newFixture(t, model)

	_, err := f.session.RunTurn(context.Background(), "hello")
	require.ErrorIs(t, err, llm.ErrModelUnavailable)

	_, statErr := os.Stat(f.logPath)
	assert.True(t, os.IsNotExist(statErr), "no append may happen on a failed turn")
	assert.Equal(t, 0, f.sync.calls, "no sync may happen on a failed turn")
}

func TestRunTurn_IdenticalTurnsEachAppendAndSync(t *testing.T) {
	model := &fakeModel{reply: "the same reply"}
	f := newFixture(t, model)

	_, err := f.session.RunTurn(context.Background(), "again")
	require.NoError(t, err)
	_, err = f.session.RunTurn(context.Background(), "again")
	require.NoError(t, err)

	data, readErr := os.ReadFile(f.logPath)
	require.NoError(t, readErr)
	assert.Equal(t, 2, strings.Count(string(data), "Mantis: the same reply"))
	assert.Equal(t, 2, f.sync.calls,
		"each append changes the log, so each turn syncs")
}

func TestRunTurn_NoMarkerMeansNoDispatch(t *testing.T) {
	model := &fakeModel{reply: "just words"}
	f := newFixture(t, model)

	turn, err := f.session.RunTurn(context.Background(), "hello")
	require.NoError(t, err)

	assert.False(t, turn.Dispatched)
	assert.Empty(t, f.exec.kinds)
}

func TestRunTurn_SyncFailureDoesNotFailTurn(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	f := newFixture(t, model)
	f.sync.err = errors.New("remote is gone")

	turn, err := f.session.RunTurn(context.Background(), "hello")
	require.NoError(t, err, "a failed sync must never block the turn")
	assert.Equal(t, gitsync.Failed, turn.Sync)

	// The next changed turn simply tries again.
	_, err = f.session.RunTurn(context.Background(), "hello again")
	require.NoError(t, err)
	assert.Equal(t, 2, f.sync.calls)
}

func TestRunTurn_SpeakerFailureDoesNotFailTurn(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	f := newFixture(t, model)
	f.session.speaker = failingSpeaker{}

	_, err := f.session.RunTurn(context.Background(), "hello")
	assert.NoError(t, err)
}

func TestTrySubmit_RejectsWhileTurnInFlight(t *testing.T) {
	model := &fakeModel{reply: "ok", block: make(chan struct{})}
	f := newFixture(t, model)

	done := make(chan struct{})
	accepted := f.session.TrySubmit(context.Background(), "first",
		func(*Turn, error) { close(done) })
	require.True(t, accepted)

	// Wait until the first turn reaches the model, then try to submit.
	require.Eventually(t, func() bool {
		model.mu.Lock()
		defer model.mu.Unlock()
		return len(model.prompts) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, f.session.TrySubmit(context.Background(), "second", nil),
		"a second submission must be rejected, not queued")
	_, err := f.session.RunTurn(context.Background(), "third")
	assert.ErrorIs(t, err, ErrBusy)

	close(model.block)
	<-done

	// Once idle, submissions are accepted again.
	_, err = f.session.RunTurn(context.Background(), "fourth")
	assert.NoError(t, err)
}

func TestRun_ExitWords(t *testing.T) {
	for _, word := range []string{"exit", "quit", "EXIT", "Quit"} {
		t.Run(word, func(t *testing.T) {
			model := &fakeModel{reply: "ok"}
			f := newFixture(t, model)

			var out strings.Builder
			err := f.session.Run(context.Background(), strings.NewReader(word+"\n"), &out)
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Mantis resting.")
			assert.Empty(t, model.prompts, "exit words must not become turns")
		})
	}
}

func TestRun_TurnTranscript(t *testing.T) {
	model := &fakeModel{reply: "Hello yourself."}
	f := newFixture(t, model)

	var out strings.Builder
	err := f.session.Run(context.Background(), strings.NewReader("hi\nexit\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Mantis: Hello yourself.")
}

func TestRun_ModelFailureIsReportedToTranscript(t *testing.T) {
	model := &fakeModel{err: llm.ErrModelUnavailable}
	f := newFixture(t, model)

	var out strings.Builder
	err := f.session.Run(context.Background(), strings.NewReader("hi\nexit\n"), &out)
	require.NoError(t, err, "a failed turn must not end the session")
	assert.Contains(t, out.String(), "something went wrong")
}
