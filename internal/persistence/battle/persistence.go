// Package battle mirrors arena log events into Postgres and Redis. The
// filesystem log tree stays the source of truth; this mirror exists for
// leaderboard queries and dataset joins that want SQL instead of a glob.
package battle

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/lib/pq"
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "swearena-api/internal/cache"
	"swearena-api/internal/model"
	battlepkg "swearena-api/pkg/battle"
	"swearena-api/pkg/convlog"
)

var _ battlepkg.PersistenceService = (*Service)(nil)

// Service wires the Postgres + Redis collaborators behind the recorder's
// persistence hooks.
type Service struct {
	sqlConn     sqlx.SqlConn
	eventsModel model.ConversationEventsModel
	runsModel   model.SandboxRunsModel
	cache       gocache.Cache
	ttl         cachekeys.TTLSet
}

// Config enumerates dependencies needed to mirror battle events.
type Config struct {
	SQLConn     sqlx.SqlConn
	EventsModel model.ConversationEventsModel
	RunsModel   model.SandboxRunsModel
	Cache       gocache.Cache
	TTL         cachekeys.TTLSet
}

// NewService returns a concrete mirror when mandatory dependencies are
// present, nil otherwise so callers fall back to the recorder's noop hook.
func NewService(cfg Config) battlepkg.PersistenceService {
	if cfg.SQLConn == nil {
		return nil
	}
	return &Service{
		sqlConn:     cfg.SQLConn,
		eventsModel: cfg.EventsModel,
		runsModel:   cfg.RunsModel,
		cache:       cfg.Cache,
		ttl:         cfg.TTL,
	}
}

// RecordConversationEvent appends one event row. Deployments that add a
// unique index on (conv_id, tstamp, event_type) get duplicate appends
// swallowed here instead of failing the hook.
func (s *Service) RecordConversationEvent(ctx context.Context, event battlepkg.ConversationEvent) error {
	if s == nil || s.eventsModel == nil {
		return nil
	}
	rec := event.Record
	if rec.State.ConvID == "" || rec.State.ChatSessionID == "" {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	modelName := sql.NullString{}
	if trimmed := strings.TrimSpace(rec.Model); trimmed != "" {
		modelName = sql.NullString{String: trimmed, Valid: true}
	}
	row := &model.ConversationEvents{
		ConvId:        rec.State.ConvID,
		ChatSessionId: rec.State.ChatSessionID,
		ChatMode:      string(event.Mode),
		EventType:     string(rec.Type),
		ModelName:     modelName,
		ChatRound:     int64(event.ChatRound),
		Tstamp:        rec.Tstamp,
		Payload:       string(payload),
	}
	if _, err := s.eventsModel.Insert(ctx, row); err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	s.cacheSessionSummary(ctx, event)
	if rec.Type != convlog.EventChat && modelName.Valid {
		s.refreshVoteCounts(ctx, modelName.String)
	}
	return nil
}

// RecordSandboxRun upserts the attempt row keyed by the same triple as the
// file store, last-write-wins.
func (s *Service) RecordSandboxRun(ctx context.Context, event battlepkg.SandboxRunEvent) error {
	if s == nil || s.runsModel == nil {
		return nil
	}
	st := event.State
	if st.ConvID == "" {
		return nil
	}
	doc, err := json.Marshal(map[string]any{
		"sandbox_state":            st,
		"user_interaction_records": event.Interactions,
	})
	if err != nil {
		return err
	}
	sandboxID := sql.NullString{}
	if strings.TrimSpace(st.SandboxID) != "" {
		sandboxID = sql.NullString{String: st.SandboxID, Valid: true}
	}
	row := &model.SandboxRuns{
		Id:            model.RunKey(st.ConvID, st.EnabledRound, st.SandboxRunRound),
		ConvId:        st.ConvID,
		ChatSessionId: st.ChatSessionID,
		ChatRound:     int64(st.EnabledRound),
		RunRound:      int64(st.SandboxRunRound),
		SandboxId:     sandboxID,
		Status:        string(st.Status),
		Path:          event.Path,
		Document:      string(doc),
	}
	if err := s.runsModel.Upsert(ctx, row); err != nil {
		return err
	}
	s.cacheConvRuns(ctx, st.ConvID)
	return nil
}

type sessionSummaryEntry struct {
	ChatSessionId string  `json:"chat_session_id"`
	ChatMode      string  `json:"chat_mode"`
	LastEventType string  `json:"last_event_type"`
	LastModel     string  `json:"last_model,omitempty"`
	LastChatRound int     `json:"last_chat_round"`
	LastTstamp    float64 `json:"last_tstamp"`
}

func (s *Service) cacheSessionSummary(ctx context.Context, event battlepkg.ConversationEvent) {
	if s.cache == nil {
		return
	}
	key := cachekeys.SessionSummaryKey(event.Record.State.ChatSessionID)
	entry := sessionSummaryEntry{
		ChatSessionId: event.Record.State.ChatSessionID,
		ChatMode:      string(event.Mode),
		LastEventType: string(event.Record.Type),
		LastModel:     event.Record.Model,
		LastChatRound: event.ChatRound,
		LastTstamp:    event.Record.Tstamp,
	}
	ttl := cachekeys.SessionSummaryTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, entry, ttl); err != nil {
		logx.WithContext(ctx).Errorf("battlepersist: set session summary key=%s err=%v", key, err)
	}
}

func (s *Service) cacheConvRuns(ctx context.Context, convID string) {
	if s.cache == nil || s.runsModel == nil {
		return
	}
	rows, err := s.runsModel.ListByConv(ctx, convID)
	if err != nil {
		logx.WithContext(ctx).Errorf("battlepersist: list runs conv=%s err=%v", convID, err)
		return
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Id)
	}
	key := cachekeys.ConvRunsKey(convID)
	ttl := cachekeys.ConvRunsTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, keys, ttl); err != nil {
		logx.WithContext(ctx).Errorf("battlepersist: set conv runs key=%s err=%v", key, err)
	}
}

func (s *Service) refreshVoteCounts(ctx context.Context, modelName string) {
	if s.cache == nil || s.eventsModel == nil {
		return
	}
	counts, err := s.eventsModel.VoteCounts(ctx, modelName)
	if err != nil {
		logx.WithContext(ctx).Errorf("battlepersist: vote counts model=%s err=%v", modelName, err)
		return
	}
	key := cachekeys.VoteCountKey(modelName)
	ttl := cachekeys.VoteCountTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, counts, ttl); err != nil {
		logx.WithContext(ctx).Errorf("battlepersist: set vote counts key=%s err=%v", key, err)
	}
}

func isUniqueViolation(err error) bool {
	pgErr, ok := err.(*pq.Error)
	return ok && pgErr.Code == "23505"
}
