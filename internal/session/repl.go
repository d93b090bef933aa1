package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kairovault/mantis/internal/gitsync"
)

// Run drives the textual REPL: one line is one turn, except for the exit
// words and the local /recall and /stats commands, which are answered from
// the history index without touching the model.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Mantis online. Memory rooted.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "You: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			fmt.Fprintln(out, "Mantis resting.")
			return nil
		}

		if strings.HasPrefix(line, "/") {
			s.runLocal(ctx, line, out)
			continue
		}

		turn, err := s.RunTurn(ctx, line)
		if err != nil {
			s.reportTurnError(err, out)
			continue
		}
		s.Render(turn, out)
	}
	return scanner.Err()
}

// Render writes a completed turn to the transcript.
func (s *Session) Render(turn *Turn, out io.Writer) {
	fmt.Fprintf(out, "Mantis: %s\n\n", turn.Exchange.Reply)
	if turn.Sync == gitsync.Synced {
		fmt.Fprintln(out, "Mantis: Memory synced.")
	}
	if turn.Dispatched && !turn.ActionOK {
		fmt.Fprintf(out, "Mantis: no action taken for: %s\n", turn.Exchange.Directive)
	}
}

func (s *Session) reportTurnError(err error, out io.Writer) {
	if errors.Is(err, ErrBusy) {
		fmt.Fprintln(out, "Mantis: one moment, still finishing the last turn.")
		return
	}
	fmt.Fprintf(out, "Mantis: something went wrong: %v\n", err)
}

// runLocal serves slash commands from the history index.
func (s *Session) runLocal(ctx context.Context, line string, out io.Writer) {
	if s.index == nil {
		fmt.Fprintln(out, "Mantis: history index is not enabled.")
		return
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/recall":
		n := 5
		if len(fields) > 1 {
			if parsed, err := strconv.Atoi(fields[1]); err == nil && parsed > 0 {
				n = parsed
			}
		}
		exchanges, err := s.index.Recent(ctx, n)
		if err != nil {
			fmt.Fprintf(out, "Mantis: recall failed: %v\n", err)
			return
		}
		if len(exchanges) == 0 {
			fmt.Fprintln(out, "Mantis: nothing to recall yet.")
			return
		}
		for _, ex := range exchanges {
			fmt.Fprintf(out, "[%s] You: %s\n", ex.CreatedAt.Format("2006-01-02 15:04"), ex.UserInput)
			fmt.Fprintf(out, "[%s] Mantis: %s\n", ex.CreatedAt.Format("2006-01-02 15:04"), ex.Reply)
		}
	case "/stats":
		stats, err := s.index.Stats(ctx)
		if err != nil {
			fmt.Fprintf(out, "Mantis: stats failed: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Mantis: %d exchanges remembered, %d carried commands.\n",
			stats.Exchanges, stats.Directives)
		if !stats.First.IsZero() {
			fmt.Fprintf(out, "Mantis: first on %s, last on %s.\n",
				stats.First.Format("2006-01-02"), stats.Last.Format("2006-01-02"))
		}
	default:
		fmt.Fprintf(out, "Mantis: unknown command %s (try /recall or /stats).\n", fields[0])
	}
}
