package convlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"swearena-api/pkg/arena"
)

// DirName is the per-date subdirectory holding conversation logs.
const DirName = "conv_logs"

// DatePartition formats the UTC calendar date used to partition log files.
func DatePartition(t time.Time) string {
	return t.UTC().Format("2006_01_02")
}

// FilePath builds the conversation log path for a session. The layout is
//
//	{base}/{YYYY_MM_DD}/conv_logs/{chat_mode}/conv-log-{chat_session_id}.json
//
// and is load-bearing: the correlation index locates files by reconstructing
// it, so it must never change without migrating historical data.
func FilePath(baseDir, date string, mode arena.ChatMode, sessionID string) string {
	return filepath.Join(baseDir, date, DirName, string(mode), fmt.Sprintf("conv-log-%s.json", sessionID))
}

// Writer appends conversation events as JSON lines, one file per battle
// session, shared by both model slots. Logging here is best-effort: a failed
// append is reported through logx and dropped so the user-facing action that
// triggered it never blocks on the log pipeline.
type Writer struct {
	baseDir string
	nowFn   func() time.Time
}

// NewWriter constructs a conversation log writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	if baseDir == "" {
		baseDir = "logs"
	}
	return &Writer{baseDir: baseDir, nowFn: time.Now}
}

// BaseDir returns the log root the writer was configured with.
func (w *Writer) BaseDir() string { return w.baseDir }

// Append writes one record to the session's log file, creating the date and
// mode directories on first use. Each line lands in a single O_APPEND write,
// so concurrent appends from the two model slots interleave at line
// granularity and never tear. Existing lines are never rewritten or
// reordered.
func (w *Writer) Append(mode arena.ChatMode, rec Record) {
	if rec.Tstamp == 0 {
		rec.Tstamp = Timestamp(w.nowFn())
	}
	if err := w.append(mode, rec); err != nil {
		logx.Slowf("convlog: drop %s event session=%s conv=%s: %v",
			rec.Type, rec.State.ChatSessionID, rec.State.ConvID, err)
	}
}

func (w *Writer) append(mode arena.ChatMode, rec Record) error {
	if rec.State.ChatSessionID == "" {
		return fmt.Errorf("record has no chat_session_id")
	}
	path := FilePath(w.baseDir, DatePartition(w.nowFn()), mode, rec.State.ChatSessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	// One Write call per line keeps O_APPEND atomic at line granularity.
	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}
