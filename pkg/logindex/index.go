// Package logindex joins conversation and sandbox logs by filename alone.
// It performs no writes and keeps no persistent structure: correctness rests
// entirely on the filename encoding owned by the writer packages.
package logindex

import (
	"path/filepath"
	"sort"

	"swearena-api/pkg/arena"
	"swearena-api/pkg/convlog"
	"swearena-api/pkg/sandboxlog"
)

// ConvLogPath locates a session's conversation log directly; no directory
// scan is needed because the session identifier is embedded in the filename.
func ConvLogPath(baseDir, date string, mode arena.ChatMode, sessionID string) string {
	return convlog.FilePath(baseDir, date, mode, sessionID)
}

// RunRef points at one sandbox execution attempt, with its key parsed out of
// the filename.
type RunRef struct {
	Path      string
	ConvID    string
	ChatRound int
	RunRound  int
}

// Runs finds every sandbox execution recorded for a conversation in a date
// partition, ordered by (chat_round, sandbox_run_round). The returned cursor
// is finite and restartable.
func Runs(baseDir, date, convID string) (*RunCursor, error) {
	matches, err := filepath.Glob(sandboxlog.GlobPattern(baseDir, date, convID))
	if err != nil {
		return nil, err
	}
	refs := make([]RunRef, 0, len(matches))
	for _, path := range matches {
		id, chat, run, ok := sandboxlog.ParseFileName(path)
		if !ok || id != convID {
			continue
		}
		refs = append(refs, RunRef{Path: path, ConvID: id, ChatRound: chat, RunRound: run})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ChatRound != refs[j].ChatRound {
			return refs[i].ChatRound < refs[j].ChatRound
		}
		return refs[i].RunRound < refs[j].RunRound
	})
	return &RunCursor{refs: refs}, nil
}

// RunCursor walks an ordered set of run references.
type RunCursor struct {
	refs []RunRef
	pos  int
}

// Next returns the following reference, or false once exhausted.
func (c *RunCursor) Next() (RunRef, bool) {
	if c.pos >= len(c.refs) {
		return RunRef{}, false
	}
	ref := c.refs[c.pos]
	c.pos++
	return ref, true
}

// Reset rewinds the cursor to the first reference.
func (c *RunCursor) Reset() { c.pos = 0 }

// Len reports how many references the cursor holds.
func (c *RunCursor) Len() int { return len(c.refs) }

// Collect drains the cursor from its current position into a slice.
func (c *RunCursor) Collect() []RunRef {
	out := make([]RunRef, 0, len(c.refs)-c.pos)
	for {
		ref, ok := c.Next()
		if !ok {
			return out
		}
		out = append(out, ref)
	}
}
