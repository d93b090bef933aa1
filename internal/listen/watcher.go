// Package listen connects the optional voice-listener collaborator to the
// conversation loop. The listener is a separate process that drops
// transcript files into a shared directory; this package watches that
// directory and feeds the transcripts through an intake gate that enforces
// the one-turn-at-a-time policy.
package listen

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const transcriptExt = ".transcript"

// TranscriptWriter drops transcript files into the shared events directory.
// It is used by the listener side of the boundary.
type TranscriptWriter struct {
	dir string
}

// NewTranscriptWriter creates a writer that emits transcripts to dir.
func NewTranscriptWriter(dir string) *TranscriptWriter {
	return &TranscriptWriter{dir: dir}
}

// Write emits one transcript file. Safe to call concurrently; the
// nanosecond timestamp in the name keeps files distinct and ordered.
func (w *TranscriptWriter) Write(text string) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("listen: mkdir %s: %w", w.dir, err)
	}
	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), transcriptExt)
	return os.WriteFile(filepath.Join(w.dir, name), []byte(text), 0o600)
}

// Watcher watches the events directory and hands each transcript's text to
// a callback. Files are consumed: read once, then deleted.
type Watcher struct {
	dir      string
	callback func(text string)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a watcher over dir. The callback receives the trimmed
// transcript text.
func NewWatcher(dir string, callback func(text string)) *Watcher {
	return &Watcher{
		dir:      dir,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching. It drains any transcript files that accumulated
// while no session was running, then watches for new ones. Call Stop to
// clean up.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return err
	}

	w.drainExisting()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return err
	}
	w.watcher = fsw

	go w.loop()
	return nil
}

// Stop shuts down the watcher. Safe to call only after a successful Start.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&fsnotify.Create != 0 && strings.HasSuffix(evt.Name, transcriptExt) {
				w.processFile(evt.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("listen: watcher error: %v", err)
		}
	}
}

func (w *Watcher) drainExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), transcriptExt) {
			w.processFile(filepath.Join(w.dir, entry.Name()))
		}
	}
}

func (w *Watcher) processFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // already consumed
	}
	_ = os.Remove(path)

	text := strings.TrimSpace(string(data))
	if text != "" && w.callback != nil {
		w.callback(text)
	}
}
