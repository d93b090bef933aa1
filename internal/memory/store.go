// Package memory owns the two durable memory artifacts of the assistant:
// the core memory blob and the append-only conversation log. No other
// component touches these files directly.
package memory

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrArtifactUnreadable marks a memory file that exists but cannot be read.
// A missing artifact is never an error; it reads as empty.
var ErrArtifactUnreadable = errors.New("memory artifact unreadable")

// Fingerprint is a content hash of the conversation log, used only to decide
// whether persisted state changed. The zero value is the "absent" sentinel,
// distinct from the hash of an empty file.
type Fingerprint struct {
	sum     [sha256.Size]byte
	present bool
}

// Equal reports whether two fingerprints describe identical log content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.present == other.present && f.sum == other.sum
}

// Present reports whether the log artifact existed when the fingerprint
// was taken.
func (f Fingerprint) Present() bool { return f.present }

// Config holds the artifact paths for a Store.
type Config struct {
	CorePath string // core memory file; read-only, absence is valid
	LogPath  string // conversation log file; append-only, created on demand
}

// Store reads and appends the memory artifacts. It performs no locking of
// its own: the session processes turns strictly sequentially, so the store
// never sees concurrent writers.
type Store struct {
	corePath string
	logPath  string
}

// NewStore creates a store over the configured artifact paths.
func NewStore(cfg Config) *Store {
	return &Store{corePath: cfg.CorePath, logPath: cfg.LogPath}
}

// LoadContext returns the core memory concatenated with the conversation
// log, separated by a blank line. Either artifact may be absent, in which
// case it contributes an empty string. An artifact that exists but cannot
// be read fails the load with ErrArtifactUnreadable.
func (s *Store) LoadContext() (string, error) {
	core, err := readOptional(s.corePath)
	if err != nil {
		return "", err
	}
	convo, err := readOptional(s.logPath)
	if err != nil {
		return "", err
	}
	return core + "\n\n" + convo, nil
}

// AppendExchange appends one exchange record to the conversation log,
// creating the file if it does not exist. The record format is fixed:
// a leading blank line, then "User: <input>" and "Mantis: <reply>" lines.
// Records are never rewritten or deleted.
func (s *Store) AppendExchange(userInput, reply string) error {
	if err := os.MkdirAll(filepath.Dir(s.logPath), 0o700); err != nil {
		return fmt.Errorf("memory: create log directory: %w", err)
	}
	f, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("memory: open conversation log: %w", err)
	}
	record := fmt.Sprintf("\nUser: %s\nMantis: %s\n", userInput, strings.TrimSpace(reply))
	if _, err := f.WriteString(record); err != nil {
		_ = f.Close()
		return fmt.Errorf("memory: append exchange: %w", err)
	}
	return f.Close()
}

// Fingerprint hashes the current conversation log content. When the log does
// not exist it returns the absent sentinel (zero Fingerprint), so that the
// very first append registers as a change even if it writes nothing new.
func (s *Store) Fingerprint() (Fingerprint, error) {
	data, err := os.ReadFile(s.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Fingerprint{}, nil
		}
		return Fingerprint{}, fmt.Errorf("%w: %s: %v", ErrArtifactUnreadable, s.logPath, err)
	}
	return Fingerprint{sum: sha256.Sum256(data), present: true}, nil
}

// readOptional reads a file, treating absence as empty content.
func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %s: %v", ErrArtifactUnreadable, path, err)
	}
	return string(data), nil
}
