// cmd/mantis-push manually publishes the vault to its git remote, outside
// of any conversation turn. Useful after editing the core memory by hand.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kairovault/mantis/internal/config"
	"github.com/kairovault/mantis/internal/gitsync"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("mantis-push: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	git := gitsync.NewGit(gitsync.GitConfig{
		Root:    cfg.Vault.Root,
		Remote:  cfg.Sync.Remote,
		Branch:  cfg.Sync.Branch,
		Message: "Manual sync trigger",
	})
	if err := git.Sync(ctx); err != nil {
		log.Fatalf("push failed: %v", err)
	}
	log.Println("manual push complete")
}
