package model

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlc"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ ConversationEventsModel = (*customConversationEventsModel)(nil)

// ConversationEvents mirrors one conversation log line. The table is
// append-only: rows are inserted in arrival order and never updated, matching
// the file store's contract.
type ConversationEvents struct {
	Id            int64          `db:"id"`
	ConvId        string         `db:"conv_id"`
	ChatSessionId string         `db:"chat_session_id"`
	ChatMode      string         `db:"chat_mode"`
	EventType     string         `db:"event_type"`
	ModelName     sql.NullString `db:"model_name"`
	ChatRound     int64          `db:"chat_round"`
	Tstamp        float64        `db:"tstamp"`
	Payload       string         `db:"payload"`
	CreatedAt     time.Time      `db:"created_at"`
}

type (
	// ConversationEventsModel is an interface to be customized, add more
	// methods here, and implement the added methods in
	// customConversationEventsModel.
	ConversationEventsModel interface {
		Insert(ctx context.Context, data *ConversationEvents) (sql.Result, error)
		LastByConv(ctx context.Context, convID string) (*ConversationEvents, error)
		CountBySession(ctx context.Context, sessionID string) (int64, error)
		VoteCounts(ctx context.Context, modelName string) (map[string]int64, error)
	}

	customConversationEventsModel struct {
		conn sqlx.SqlConn
	}
)

// NewConversationEventsModel returns a model for the database table.
func NewConversationEventsModel(conn sqlx.SqlConn) ConversationEventsModel {
	return &customConversationEventsModel{conn: conn}
}

func (m *customConversationEventsModel) Insert(ctx context.Context, data *ConversationEvents) (sql.Result, error) {
	const query = `
INSERT INTO public.conversation_events
    (conv_id, chat_session_id, chat_mode, event_type, model_name, chat_round, tstamp, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`
	return m.conn.ExecCtx(ctx, query,
		data.ConvId,
		data.ChatSessionId,
		data.ChatMode,
		data.EventType,
		data.ModelName,
		data.ChatRound,
		data.Tstamp,
		data.Payload,
	)
}

func (m *customConversationEventsModel) LastByConv(ctx context.Context, convID string) (*ConversationEvents, error) {
	const query = `
SELECT id, conv_id, chat_session_id, chat_mode, event_type, model_name, chat_round, tstamp, payload, created_at
FROM public.conversation_events
WHERE conv_id = $1
ORDER BY tstamp DESC, id DESC
LIMIT 1`
	var row ConversationEvents
	err := m.conn.QueryRowCtx(ctx, &row, query, convID)
	switch {
	case err == nil:
		return &row, nil
	case errors.Is(err, sqlc.ErrNotFound) || errors.Is(err, sqlx.ErrNotFound) || errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customConversationEventsModel) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM public.conversation_events WHERE chat_session_id = $1`
	var count int64
	if err := m.conn.QueryRowCtx(ctx, &count, query, sessionID); err != nil {
		return 0, err
	}
	return count, nil
}

func (m *customConversationEventsModel) VoteCounts(ctx context.Context, modelName string) (map[string]int64, error) {
	const query = `
SELECT event_type, COUNT(*) AS n
FROM public.conversation_events
WHERE model_name = $1 AND event_type <> 'chat'
GROUP BY event_type`
	var rows []struct {
		EventType string `db:"event_type"`
		N         int64  `db:"n"`
	}
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, modelName); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.EventType] = row.N
	}
	return out, nil
}
