// cmd/mantis-listen bridges a transcription source to the running session.
// It reads one utterance per line from stdin and drops each as a transcript
// file into the shared events directory, where the session's watcher picks
// it up. Point a speech-to-text pipeline's output at this process to give
// the assistant ears.
package main

import (
	"bufio"
	"log"
	"os"
	"strings"

	"github.com/kairovault/mantis/internal/config"
	"github.com/kairovault/mantis/internal/listen"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("mantis-listen: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	writer := listen.NewTranscriptWriter(cfg.Listener.EventsDir)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := writer.Write(text); err != nil {
			log.Printf("failed to write transcript: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("stdin read failed: %v", err)
	}
}
