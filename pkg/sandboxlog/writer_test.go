package sandboxlog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedTime() time.Time {
	return time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
}

func testState(convID string, chat, run int) State {
	return State{
		ConvID:          convID,
		ChatSessionID:   "S1",
		EnabledRound:    chat,
		SandboxRunRound: run,
		SandboxID:       "sb1",
		CodeToExecute:   "print('hi')",
		SandboxOutput:   "hi",
		Status:          StatusCompleted,
	}
}

func TestFileNameRoundTrip(t *testing.T) {
	name := FileName("abc123", 2, 3)
	require.Equal(t, "sandbox-logs-abc123-2-3.json", name)

	convID, chat, run, ok := ParseFileName(name)
	require.True(t, ok)
	require.Equal(t, "abc123", convID)
	require.Equal(t, 2, chat)
	require.Equal(t, 3, run)
}

func TestParseFileNameRejects(t *testing.T) {
	bad := []string{
		"sandbox-logs-abc.json",       // missing rounds
		"sandbox-logs-abc-0-1.json",   // rounds start at 1
		"sandbox-logs-abc-1-0.json",   // rounds start at 1
		"sandbox-logs-abc-1-x.json",   // non-numeric
		"sandbox-logs--1-1.json",      // empty conv id
		"conv-log-abc.json",           // wrong prefix
		"sandbox-logs-abc-1-1.yaml",   // wrong suffix
		"sandbox-logs-a-b-c-1-1.json", // dashes in id never happen
	}
	for _, name := range bad {
		if _, _, _, ok := ParseFileName(name); ok {
			t.Fatalf("ParseFileName(%q) accepted a malformed name", name)
		}
	}
}

func TestWriteProducesOneDocumentPerAttempt(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	path, err := w.Write(testState("CA", 1, 1), nil)
	require.NoError(t, err)
	require.Equal(t, FilePath(dir, "2026_08_31", "CA", 1, 1), path)

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "CA", doc.SandboxState.ConvID)
	require.Equal(t, StatusCompleted, doc.SandboxState.Status)
	require.NotNil(t, doc.UserInteractionRecords)
	require.Empty(t, doc.UserInteractionRecords, "nil interactions must serialise as an empty array")
}

func TestWriteIdenticalPayloadIsByteStable(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	st := testState("CA", 1, 1)
	interactions := []map[string]any{{"type": "click", "x": 10.0}}

	path, err := w.Write(st, interactions)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = w.Write(st, interactions)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	require.Equal(t, first, second, "re-running an identical attempt must leave identical bytes")
}

func TestWriteReplacesWholeDocument(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	st := testState("CA", 1, 1)
	_, err := w.Write(st, []map[string]any{{"type": "click"}, {"type": "scroll"}})
	require.NoError(t, err)

	st.SandboxOutput = "updated"
	path, err := w.Write(st, nil)
	require.NoError(t, err)

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "updated", doc.SandboxState.SandboxOutput)
	require.Empty(t, doc.UserInteractionRecords, "stale interactions must not survive an overwrite")
}

func TestWriteNewRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	_, err := w.WriteNew(testState("CA", 1, 1), nil)
	require.NoError(t, err)

	_, err = w.WriteNew(testState("CA", 1, 1), nil)
	require.True(t, errors.Is(err, ErrRoundDesync), "got %v", err)

	// Distinct keys are unaffected.
	_, err = w.WriteNew(testState("CA", 1, 2), nil)
	require.NoError(t, err)
	_, err = w.WriteNew(testState("CA", 2, 1), nil)
	require.NoError(t, err)
}

func TestWriteValidatesKey(t *testing.T) {
	w := NewWriter(t.TempDir())
	w.nowFn = fixedTime

	_, err := w.Write(testState("", 1, 1), nil)
	require.Error(t, err)

	_, err = w.Write(testState("CA", 0, 1), nil)
	require.Error(t, err)

	_, err = w.Write(testState("CA", 1, 0), nil)
	require.Error(t, err)
}

func TestCancelledRunStillWritesDocument(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	st := testState("CA", 1, 1)
	st.Status = StatusCancelled
	st.SandboxOutput = ""

	path, err := w.Write(st, nil)
	require.NoError(t, err)

	doc, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, doc.SandboxState.Status)
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	w.nowFn = fixedTime

	_, err := w.Write(testState("CA", 1, 1), nil)
	require.NoError(t, err)

	leftovers, err := filepath.Glob(filepath.Join(dir, "2026_08_31", DirName, "*.tmp-*"))
	require.NoError(t, err)
	require.Empty(t, leftovers)
}
