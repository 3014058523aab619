// Package battle glues the arena session state to the two log stores. The
// recorder owns the order of operations for every user-facing event: advance
// the right counter, append to the conversation log, write the sandbox
// document, then fan out to optional mirrors.
package battle

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"swearena-api/pkg/arena"
	"swearena-api/pkg/convlog"
	"swearena-api/pkg/sandboxlog"
)

// RunResult carries what the external sandbox collaborator reported for one
// execution attempt. Cancelled and failed runs still produce a result here so
// the attempt is recorded and the run-round sequence stays gapless.
type RunResult struct {
	SandboxID    string
	Code         string
	Output       string
	Stderr       string
	Status       sandboxlog.Status
	Interactions []map[string]any
}

// Recorder coordinates the conversation log (fire-and-forget) and the
// sandbox log (result-returning) for live sessions.
type Recorder struct {
	conv    *convlog.Writer
	sandbox *sandboxlog.Writer
	hooks   PersistenceService
	remote  RemoteLogger
	nowFn   func() time.Time
}

// RecorderOption customises Recorder construction.
type RecorderOption func(*Recorder)

// WithPersistence injects a database mirror for logged events.
func WithPersistence(svc PersistenceService) RecorderOption {
	return func(r *Recorder) {
		if svc != nil {
			r.hooks = svc
		}
	}
}

// WithRemoteLogger injects a remote storage uploader for conversation events.
func WithRemoteLogger(remote RemoteLogger) RecorderOption {
	return func(r *Recorder) {
		if remote != nil {
			r.remote = remote
		}
	}
}

// NewRecorder builds a recorder writing under logDir.
func NewRecorder(logDir string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		conv:    convlog.NewWriter(logDir),
		sandbox: sandboxlog.NewWriter(logDir),
		hooks:   newNoopPersistenceService(),
		remote:  noopRemoteLogger{},
		nowFn:   time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordChat logs a completed prompt cycle for one model slot. chatRound is
// the value the caller claimed from state.NextChatRound() when the prompt
// arrived. Conversation logging never fails the chat flow; mirror errors are
// logged and dropped.
func (r *Recorder) RecordChat(ctx context.Context, mode arena.ChatMode, state *arena.ModelState, chatRound int) {
	rec := convlog.Record{
		Tstamp: convlog.Timestamp(r.nowFn()),
		Type:   convlog.EventChat,
		Model:  state.ModelName(),
		State:  convlog.Snapshot(state),
	}
	r.append(ctx, mode, chatRound, rec)
}

// RecordVote logs a vote event carrying the full history of the model the
// vote concerns. Votes never advance the chat round; a vote arriving before
// any prompt cycle has no round to attach to and is dropped.
func (r *Recorder) RecordVote(ctx context.Context, mode arena.ChatMode, vote convlog.EventType, state *arena.ModelState) {
	round := state.CurrentChatRound()
	if round < 1 {
		logx.WithContext(ctx).Slowf("battle: drop %s before first prompt conv=%s", vote, state.ConvID())
		return
	}
	rec := convlog.Record{
		Tstamp: convlog.Timestamp(r.nowFn()),
		Type:   vote,
		Model:  state.ModelName(),
		State:  convlog.Snapshot(state),
	}
	r.append(ctx, mode, round, rec)
}

func (r *Recorder) append(ctx context.Context, mode arena.ChatMode, chatRound int, rec convlog.Record) {
	r.conv.Append(mode, rec)
	logHookError(ctx, r.hooks.RecordConversationEvent(ctx, ConversationEvent{
		Mode:      mode,
		ChatRound: chatRound,
		Record:    rec,
	}), "mirror conversation event")
	if err := r.remote.Log(ctx, rec); err != nil {
		logx.WithContext(ctx).Slowf("battle: remote log %s event session=%s: %v",
			rec.Type, rec.State.ChatSessionID, err)
	}
}

// RecordSandboxRun claims the next run round for chatRound, writes the
// attempt document and returns its path. If the claimed round's file already
// exists the counter has desynced from disk; the recorder rescans the
// partition, resumes at max+1 and retries once. Errors propagate: the caller
// owns user-visible messaging for lost provenance.
func (r *Recorder) RecordSandboxRun(ctx context.Context, state *arena.ModelState, chatRound int, result RunResult) (string, error) {
	path, st, interactions, err := r.writeRun(state, chatRound, result)
	if errors.Is(err, sandboxlog.ErrRoundDesync) {
		if err = r.recoverRounds(state); err != nil {
			return "", err
		}
		path, st, interactions, err = r.writeRun(state, chatRound, result)
	}
	if err != nil {
		return "", err
	}
	logHookError(ctx, r.hooks.RecordSandboxRun(ctx, SandboxRunEvent{
		State:        st,
		Interactions: interactions,
		Path:         path,
	}), "mirror sandbox run")
	return path, nil
}

// RewriteSandboxRun replaces the document for an already-claimed attempt key,
// last-write-wins. Used for internal retries after a transient write failure;
// a genuinely new attempt must go through RecordSandboxRun instead.
func (r *Recorder) RewriteSandboxRun(ctx context.Context, st sandboxlog.State, interactions []map[string]any) (string, error) {
	path, err := r.sandbox.Write(st, interactions)
	if err != nil {
		return "", err
	}
	logHookError(ctx, r.hooks.RecordSandboxRun(ctx, SandboxRunEvent{
		State:        st,
		Interactions: interactions,
		Path:         path,
	}), "mirror sandbox run")
	return path, nil
}

func (r *Recorder) writeRun(state *arena.ModelState, chatRound int, result RunResult) (string, sandboxlog.State, []map[string]any, error) {
	status := result.Status
	if status == "" {
		status = sandboxlog.StatusCompleted
	}
	st := sandboxlog.State{
		ConvID:          state.ConvID(),
		ChatSessionID:   state.SessionID(),
		EnabledRound:    chatRound,
		SandboxRunRound: state.NextSandboxRound(chatRound),
		SandboxID:       result.SandboxID,
		CodeToExecute:   result.Code,
		SandboxOutput:   result.Output,
		SandboxError:    result.Stderr,
		Status:          status,
	}
	path, err := r.sandbox.WriteNew(st, result.Interactions)
	return path, st, result.Interactions, err
}

func (r *Recorder) recoverRounds(state *arena.ModelState) error {
	date := sandboxlog.DatePartition(r.nowFn())
	scan, err := sandboxlog.ScanRounds(r.sandbox.BaseDir(), date, state.ConvID())
	if err != nil {
		return err
	}
	logx.Slowf("battle: round desync conv=%s, resuming from disk (max chat=%d)",
		state.ConvID(), scan.MaxChatRound)
	state.RecoverRounds(scan.MaxChatRound, scan.MaxRunByChat)
	return nil
}

// LogDir exposes the base directory used by both stores.
func (r *Recorder) LogDir() string { return r.conv.BaseDir() }
