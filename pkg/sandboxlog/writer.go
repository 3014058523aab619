package sandboxlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DirName is the per-date subdirectory holding sandbox logs.
const DirName = "sandbox_logs"

const filePrefix = "sandbox-logs-"

// ErrRoundDesync reports that the write target for a supposedly fresh run
// round already exists on disk: the in-memory counter has fallen behind the
// filesystem. Callers recover by rescanning (ScanRounds), resuming counters
// at max+1 and claiming a new round.
var ErrRoundDesync = errors.New("sandboxlog: run round already on disk")

// FileName encodes the attempt key into the filename. The correlation index
// and counter recovery both parse this format, so it must never change
// without migrating historical data.
func FileName(convID string, chatRound, runRound int) string {
	return fmt.Sprintf("%s%s-%d-%d.json", filePrefix, convID, chatRound, runRound)
}

// FilePath builds the document path for one attempt within a date partition.
func FilePath(baseDir, date, convID string, chatRound, runRound int) string {
	return filepath.Join(baseDir, date, DirName, FileName(convID, chatRound, runRound))
}

// GlobPattern matches every attempt of one conversation within a date
// partition, both round numbers wild.
func GlobPattern(baseDir, date, convID string) string {
	return filepath.Join(baseDir, date, DirName, filePrefix+convID+"-*-*.json")
}

// ParseFileName recovers the attempt key from a sandbox log filename.
func ParseFileName(name string) (convID string, chatRound, runRound int, ok bool) {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
		return "", 0, 0, false
	}
	body := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".json")
	// Identifiers are dash-free, so the last two segments are the rounds.
	parts := strings.Split(body, "-")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, false
	}
	chat, err := strconv.Atoi(parts[1])
	if err != nil || chat < 1 {
		return "", 0, 0, false
	}
	run, err := strconv.Atoi(parts[2])
	if err != nil || run < 1 {
		return "", 0, 0, false
	}
	return parts[0], chat, run, true
}

// Writer persists one JSON document per execution attempt. Unlike the
// conversation log this store is last-write-wins per key and errors are
// returned to the caller: sandbox logs are the primary provenance record for
// later dataset construction, so the caller decides whether to retry or
// surface the failure.
type Writer struct {
	baseDir string
	nowFn   func() time.Time
}

// NewWriter constructs a sandbox log writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	if baseDir == "" {
		baseDir = "logs"
	}
	return &Writer{baseDir: baseDir, nowFn: time.Now}
}

// BaseDir returns the log root the writer was configured with.
func (w *Writer) BaseDir() string { return w.baseDir }

// Write creates or fully replaces the document for the attempt keyed by
// state. The document is staged in a temporary file and renamed into place,
// so readers observe either the previous complete document or the new one,
// never a partial write. Re-running an identical key (an internal retry)
// replaces the prior document; a genuinely new attempt must claim a fresh
// run round first so it lands in a new file.
func (w *Writer) Write(state State, interactions []map[string]any) (string, error) {
	return w.write(state, interactions, true)
}

// WriteNew behaves like Write but refuses to clobber an existing document,
// returning ErrRoundDesync instead. Use it when the run round was just
// claimed from the counter and no file should exist yet.
func (w *Writer) WriteNew(state State, interactions []map[string]any) (string, error) {
	return w.write(state, interactions, false)
}

func (w *Writer) write(state State, interactions []map[string]any, overwrite bool) (string, error) {
	if state.ConvID == "" {
		return "", errors.New("sandboxlog: state has no conv_id")
	}
	if state.EnabledRound < 1 || state.SandboxRunRound < 1 {
		return "", fmt.Errorf("sandboxlog: invalid round key (%d, %d)", state.EnabledRound, state.SandboxRunRound)
	}
	if interactions == nil {
		interactions = []map[string]any{}
	}
	path := FilePath(w.baseDir, DatePartition(w.nowFn()), state.ConvID, state.EnabledRound, state.SandboxRunRound)
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s", ErrRoundDesync, filepath.Base(path))
		} else if !os.IsNotExist(err) {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(Document{SandboxState: state, UserInteractionRecords: interactions}, "", "  ")
	if err != nil {
		return "", err
	}

	// Stage and rename so a crash mid-write leaves the previous complete
	// document untouched.
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", err
	}
	return path, nil
}

// DatePartition formats the UTC calendar date used to partition log files.
func DatePartition(t time.Time) string {
	return t.UTC().Format("2006_01_02")
}

// ReadFile parses one sandbox log document.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &doc, nil
}
