package memory

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(Config{
		CorePath: filepath.Join(dir, "core_memory.txt"),
		LogPath:  filepath.Join(dir, "conversation.log"),
	})
}

func TestLoadContext_MissingArtifactsAreEmpty(t *testing.T) {
	s := newTestStore(t)

	ctxText, err := s.LoadContext()
	require.NoError(t, err, "missing artifacts must not be an error")
	assert.Equal(t, "\n\n", ctxText)
}

func TestLoadContext_ConcatenatesCoreThenLog(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.corePath, []byte("I am Mantis."), 0o600))
	require.NoError(t, s.AppendExchange("hello", "hi"))

	ctxText, err := s.LoadContext()
	require.NoError(t, err)

	coreIdx := indexOf(t, ctxText, "I am Mantis.")
	userIdx := indexOf(t, ctxText, "User: hello")
	assert.Less(t, coreIdx, userIdx, "core memory must precede conversation log")
}

func TestAppendExchange_RecordFormat(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendExchange("hello", "  Hi there.  \n"))

	data, err := os.ReadFile(s.logPath)
	require.NoError(t, err)
	assert.Equal(t, "\nUser: hello\nMantis: Hi there.\n", string(data),
		"reply must be trimmed, record must start with a blank line")
}

func TestAppendExchange_OrderingInvariant(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendExchange("first", "one"))
	require.NoError(t, s.AppendExchange("second", "two"))

	ctxText, err := s.LoadContext()
	require.NoError(t, err)
	assert.Less(t, indexOf(t, ctxText, "User: first"), indexOf(t, ctxText, "User: second"),
		"records must appear in append order")
}

func TestAppendExchange_NoDeduplication(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AppendExchange("again", "same reply"))
	require.NoError(t, s.AppendExchange("again", "same reply"))

	data, err := os.ReadFile(s.logPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "Mantis: same reply"),
		"identical consecutive exchanges must each append")
}

func TestFingerprint_AbsentSentinelDistinctFromEmpty(t *testing.T) {
	s := newTestStore(t)

	absent, err := s.Fingerprint()
	require.NoError(t, err)
	assert.False(t, absent.Present())

	require.NoError(t, os.WriteFile(s.logPath, nil, 0o600))
	empty, err := s.Fingerprint()
	require.NoError(t, err)
	assert.True(t, empty.Present())
	assert.False(t, absent.Equal(empty),
		"absent sentinel must differ from the hash of an empty log")
}

func TestFingerprint_ChangesOnAppendOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AppendExchange("hello", "hi"))

	before, err := s.Fingerprint()
	require.NoError(t, err)
	again, err := s.Fingerprint()
	require.NoError(t, err)
	assert.True(t, before.Equal(again), "fingerprint must be deterministic")

	require.NoError(t, s.AppendExchange("more", "words"))
	after, err := s.Fingerprint()
	require.NoError(t, err)
	assert.False(t, before.Equal(after), "append must change the fingerprint")
}

func TestLoadContext_UnreadableArtifactFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.corePath, []byte("secret"), 0o000))

	_, err := s.LoadContext()
	assert.ErrorIs(t, err, ErrArtifactUnreadable)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, idx, 0, "expected %q in %q", needle, haystack)
	return idx
}
