package listen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReceivesTranscript(t *testing.T) {
	dir := t.TempDir()
	received := make(chan string, 1)

	w := NewWatcher(dir, func(text string) { received <- text })
	require.NoError(t, w.Start())
	defer w.Stop()

	// Give fsnotify a moment to register
	time.Sleep(50 * time.Millisecond)

	writer := NewTranscriptWriter(dir)
	require.NoError(t, writer.Write("open the pod bay doors\n"))

	select {
	case text := <-received:
		assert.Equal(t, "open the pod bay doors", text, "transcript text must be trimmed")
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for transcript")
	}
}

func TestWatcherDrainsExisting(t *testing.T) {
	dir := t.TempDir()

	// Write transcripts BEFORE starting the watcher
	writer := NewTranscriptWriter(dir)
	require.NoError(t, writer.Write("first"))
	time.Sleep(time.Millisecond) // distinct timestamps in file names
	require.NoError(t, writer.Write("second"))

	received := make(chan string, 10)
	w := NewWatcher(dir, func(text string) { received <- text })
	require.NoError(t, w.Start())
	defer w.Stop()

	got := []string{<-received, <-received}
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestWatcherSkipsEmptyTranscripts(t *testing.T) {
	dir := t.TempDir()
	received := make(chan string, 1)

	writer := NewTranscriptWriter(dir)
	require.NoError(t, writer.Write("   \n"))

	w := NewWatcher(dir, func(text string) { received <- text })
	require.NoError(t, w.Start())
	defer w.Stop()

	select {
	case text := <-received:
		t.Fatalf("empty transcript must be dropped, got %q", text)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGateRejectsWhileTurnInFlight(t *testing.T) {
	busy := false
	var accepted []string
	gate := NewGate(func(text string) bool {
		if busy {
			return false
		}
		accepted = append(accepted, text)
		return true
	}, 100, 100)

	assert.True(t, gate.Offer("hello"))
	busy = true
	assert.False(t, gate.Offer("dropped"))
	busy = false
	assert.True(t, gate.Offer("world"))

	assert.Equal(t, []string{"hello", "world"}, accepted)
}

func TestGateRateLimitsBursts(t *testing.T) {
	var accepted int
	gate := NewGate(func(string) bool {
		accepted++
		return true
	}, 1, 2)

	// Burst of 5: only the burst allowance passes, the rest are dropped.
	for i := 0; i < 5; i++ {
		gate.Offer("transcript")
	}
	assert.Equal(t, 2, accepted)
}

func TestProcessLifecycle(t *testing.T) {
	p := NewProcess([]string{"sleep", "60"})

	require.NoError(t, p.Start())
	assert.True(t, p.Running())
	require.NoError(t, p.Start(), "double start must be a no-op")

	p.Stop()
	assert.Eventually(t, func() bool { return !p.Running() },
		2*time.Second, 10*time.Millisecond)
	p.Stop() // idempotent
}

func TestProcessStartWithoutCommand(t *testing.T) {
	p := NewProcess(nil)
	assert.ErrorIs(t, p.Start(), ErrNotConfigured)
	assert.False(t, p.Running())
}
