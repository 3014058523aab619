// Package dataset turns one date partition of arena logs into an export
// bundle for downstream analysis. It joins conversation logs with sandbox
// runs purely through the correlation index; nothing here writes back into
// the log tree.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"swearena-api/pkg/arena"
	"swearena-api/pkg/convlog"
	"swearena-api/pkg/logindex"
	"swearena-api/pkg/sandboxlog"
)

// RunSummary condenses one sandbox execution attempt.
type RunSummary struct {
	ChatRound int    `json:"chat_round" msgpack:"chat_round"`
	RunRound  int    `json:"run_round" msgpack:"run_round"`
	SandboxID string `json:"sandbox_id" msgpack:"sandbox_id"`
	Status    string `json:"status" msgpack:"status"`
	HasStderr bool   `json:"has_stderr" msgpack:"has_stderr"`
}

// ConversationExport is one model slot's view of a battle.
type ConversationExport struct {
	ChatSessionID string          `json:"chat_session_id" msgpack:"chat_session_id"`
	ConvID        string          `json:"conv_id" msgpack:"conv_id"`
	Model         string          `json:"model" msgpack:"model"`
	Mode          string          `json:"mode" msgpack:"mode"`
	ChatEvents    int             `json:"chat_events" msgpack:"chat_events"`
	Votes         map[string]int  `json:"votes" msgpack:"votes"`
	Transcript    []arena.Message `json:"transcript" msgpack:"transcript"`
	SandboxRuns   []RunSummary    `json:"sandbox_runs" msgpack:"sandbox_runs"`
}

// Bundle is everything exported for one date.
type Bundle struct {
	Date          string               `json:"date" msgpack:"date"`
	Conversations []ConversationExport `json:"conversations" msgpack:"conversations"`
	ModelCounts   map[string]int       `json:"model_counts" msgpack:"model_counts"`
}

// Build reads every conversation log under the given modes for one date and
// joins each conversation with its sandbox runs. Unreadable sandbox documents
// are skipped with a warning; the conversation data still exports.
func Build(baseDir, date string, modes []arena.ChatMode) (*Bundle, error) {
	bundle := &Bundle{Date: date, ModelCounts: make(map[string]int)}
	for _, mode := range modes {
		matches, err := filepath.Glob(convlog.GlobPattern(baseDir, date, mode))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)
		for _, path := range matches {
			if _, ok := convlog.ParseFileName(path); !ok {
				continue
			}
			records, err := convlog.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("dataset: %w", err)
			}
			exports, err := exportConversations(baseDir, date, mode, records)
			if err != nil {
				return nil, err
			}
			for _, exp := range exports {
				bundle.Conversations = append(bundle.Conversations, exp)
				bundle.ModelCounts[exp.Model] += exp.ChatEvents
			}
		}
	}
	return bundle, nil
}

func exportConversations(baseDir, date string, mode arena.ChatMode, records []convlog.Record) ([]ConversationExport, error) {
	convlog.SortByTstamp(records)
	byConv := make(map[string]*ConversationExport)
	var order []string
	for _, rec := range records {
		convID := rec.State.ConvID
		exp, ok := byConv[convID]
		if !ok {
			exp = &ConversationExport{
				ChatSessionID: rec.State.ChatSessionID,
				ConvID:        convID,
				Mode:          string(mode),
				Votes:         make(map[string]int),
			}
			byConv[convID] = exp
			order = append(order, convID)
		}
		if rec.Model != "" {
			exp.Model = rec.Model
		}
		if rec.Type == convlog.EventChat {
			exp.ChatEvents++
		} else {
			exp.Votes[string(rec.Type)]++
		}
		// Snapshots are prefix-complete, so the latest one is the transcript.
		exp.Transcript = rec.State.Messages
	}

	out := make([]ConversationExport, 0, len(order))
	for _, convID := range order {
		exp := byConv[convID]
		runs, err := logindex.Runs(baseDir, date, convID)
		if err != nil {
			return nil, err
		}
		for {
			ref, ok := runs.Next()
			if !ok {
				break
			}
			doc, err := sandboxlog.ReadFile(ref.Path)
			if err != nil {
				logx.Slowf("dataset: skip unreadable sandbox doc %s: %v", ref.Path, err)
				continue
			}
			exp.SandboxRuns = append(exp.SandboxRuns, RunSummary{
				ChatRound: ref.ChatRound,
				RunRound:  ref.RunRound,
				SandboxID: doc.SandboxState.SandboxID,
				Status:    string(doc.SandboxState.Status),
				HasStderr: doc.SandboxState.SandboxError != "",
			})
		}
		out = append(out, *exp)
	}
	return out, nil
}

// Encode serialises a bundle with msgpack for compact transfer.
func Encode(bundle *Bundle) ([]byte, error) {
	if bundle == nil {
		return nil, fmt.Errorf("dataset: nil bundle")
	}
	return msgpack.Marshal(bundle)
}

// Decode restores a bundle from its msgpack form.
func Decode(data []byte) (*Bundle, error) {
	var bundle Bundle
	if err := msgpack.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("dataset: decode: %w", err)
	}
	return &bundle, nil
}

// WriteFile encodes the bundle and writes it to path.
func WriteFile(bundle *Bundle, path string) error {
	data, err := Encode(bundle)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
