package battle

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"swearena-api/pkg/arena"
	"swearena-api/pkg/convlog"
	"swearena-api/pkg/sandboxlog"
)

// ConversationEvent mirrors one conversation log line to optional stores.
type ConversationEvent struct {
	Mode      arena.ChatMode
	ChatRound int
	Record    convlog.Record
}

// SandboxRunEvent mirrors one sandbox log document to optional stores.
type SandboxRunEvent struct {
	State        sandboxlog.State
	Interactions []map[string]any
	Path         string
}

// PersistenceService receives the hooks the recorder emits after file writes
// succeed. Implementations mirror events into a database for analytics; the
// filesystem remains the source of truth.
type PersistenceService interface {
	RecordConversationEvent(ctx context.Context, event ConversationEvent) error
	RecordSandboxRun(ctx context.Context, event SandboxRunEvent) error
}

// RemoteLogger ships log payloads to remote storage, best-effort.
type RemoteLogger interface {
	Log(ctx context.Context, payload any) error
}

type noopPersistenceService struct{}

func (noopPersistenceService) RecordConversationEvent(ctx context.Context, event ConversationEvent) error {
	return nil
}

func (noopPersistenceService) RecordSandboxRun(ctx context.Context, event SandboxRunEvent) error {
	return nil
}

// newNoopPersistenceService guarantees the recorder always has a hook to call.
func newNoopPersistenceService() PersistenceService {
	return noopPersistenceService{}
}

type noopRemoteLogger struct{}

func (noopRemoteLogger) Log(ctx context.Context, payload any) error { return nil }

func logHookError(ctx context.Context, err error, msg string) {
	if err == nil {
		return
	}
	logx.WithContext(ctx).Errorf("battle: %s: %v", msg, err)
}
