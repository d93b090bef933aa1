// cmd/mantis is the conversational session loop. It reads lines from stdin,
// runs each through the turn pipeline (compose from memory, query Ollama,
// speak, persist, maybe sync, maybe dispatch) and prints the transcript to
// stdout.
//
// Startup sequence:
//  1. Resolve configuration: defaults, mantis.yaml, MANTIS_* env vars.
//  2. Open the memory store over the vault's text artifacts.
//  3. Open the history index (best-effort; the session runs without it).
//  4. Wire the Ollama client, git sync trigger, dispatcher and speaker.
//  5. Start the transcript watcher, and the transcriber when -listen is set.
//  6. Run the REPL until exit/quit or a shutdown signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kairovault/mantis/internal/command"
	"github.com/kairovault/mantis/internal/config"
	"github.com/kairovault/mantis/internal/gitsync"
	"github.com/kairovault/mantis/internal/history"
	"github.com/kairovault/mantis/internal/listen"
	"github.com/kairovault/mantis/internal/llm"
	"github.com/kairovault/mantis/internal/memory"
	"github.com/kairovault/mantis/internal/session"
	"github.com/kairovault/mantis/internal/speech"
)

func main() {
	// The transcript owns stdout; everything else goes to stderr.
	log.SetOutput(os.Stderr)
	log.SetPrefix("mantis: ")
	log.SetFlags(log.LstdFlags)

	startListener := flag.Bool("listen", false, "start the voice transcriber process")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.Vault.Root, "memory"), 0o700); err != nil {
		log.Fatalf("failed to create vault at %q: %v", cfg.Vault.Root, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	store := memory.NewStore(memory.Config{
		CorePath: cfg.Vault.CoreMemory,
		LogPath:  cfg.Vault.Conversation,
	})

	var index *history.Index
	if idx, err := history.Open(cfg.Vault.HistoryDB); err != nil {
		log.Printf("history index disabled: %v", err)
	} else {
		index = idx
		defer index.Close()
	}

	var speaker speech.Speaker = speech.Null{}
	if cfg.Voice.Enabled {
		speaker = speech.NewPiper(cfg.Voice.PiperPath, cfg.Voice.Model)
	}

	var trigger *gitsync.Trigger
	if cfg.Sync.Enabled {
		trigger = gitsync.NewTrigger(gitsync.NewGit(gitsync.GitConfig{
			Root:    cfg.Vault.Root,
			Remote:  cfg.Sync.Remote,
			Branch:  cfg.Sync.Branch,
			Message: cfg.Sync.Message,
		}))
	} else {
		trigger = gitsync.NewTrigger(noopSync{})
	}

	sess := session.New(session.Options{
		SystemPrompt: cfg.Vault.SystemPrompt,
		Store:        store,
		Model: llm.NewOllamaClient(llm.OllamaConfig{
			BaseURL: cfg.Model.OllamaURL,
			Model:   cfg.Model.Name,
			Timeout: cfg.Model.Timeout,
		}),
		Trigger: trigger,
		Dispatcher: command.NewDispatcher(command.NewOSExecutor(command.ExecutorConfig{
			BrowserURL:  cfg.Actions.BrowserURL,
			BrowserCmd:  cfg.Actions.BrowserCmd,
			CloseWindow: cfg.Actions.CloseWindow,
			LaunchApp:   cfg.Actions.LaunchApp,
			SwitchApp:   cfg.Actions.SwitchApp,
			LockScreen:  cfg.Actions.LockScreen,
		})),
		Speaker: speaker,
		Index:   index,
	})

	// Listener boundary: transcripts flow through the gate, which rejects
	// while a turn is in flight instead of queueing.
	gate := listen.NewGate(func(text string) bool {
		fmt.Printf("\nYou (voice): %s\n", text)
		return sess.TrySubmit(ctx, text, func(turn *session.Turn, err error) {
			if err != nil {
				log.Printf("voice turn failed: %v", err)
				return
			}
			sess.Render(turn, os.Stdout)
		})
	}, cfg.Listener.RatePerSec, cfg.Listener.Burst)

	watcher := listen.NewWatcher(cfg.Listener.EventsDir, func(text string) {
		gate.Offer(text)
	})
	if err := watcher.Start(); err != nil {
		log.Printf("transcript watcher disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	transcriber := listen.NewProcess(cfg.Listener.Command)
	if *startListener {
		if err := transcriber.Start(); err != nil {
			log.Printf("transcriber not started: %v", err)
		}
	}
	defer transcriber.Stop()

	if err := sess.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("session ended with error: %v", err)
	}
}

// noopSync stands in when synchronization is disabled by configuration.
type noopSync struct{}

func (noopSync) Sync(context.Context) error { return nil }
