package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlc"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ SandboxRunsModel = (*customSandboxRunsModel)(nil)

// SandboxRuns mirrors one sandbox log document. The primary key is the same
// triple that keys the file store, so re-recording an attempt replaces the
// row exactly like the file overwrite does.
type SandboxRuns struct {
	Id            string         `db:"id"` // conv_id|chat_round|run_round
	ConvId        string         `db:"conv_id"`
	ChatSessionId string         `db:"chat_session_id"`
	ChatRound     int64          `db:"chat_round"`
	RunRound      int64          `db:"run_round"`
	SandboxId     sql.NullString `db:"sandbox_id"`
	Status        string         `db:"status"`
	Path          string         `db:"path"`
	Document      string         `db:"document"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// RunKey builds the composite primary key for an attempt.
func RunKey(convID string, chatRound, runRound int) string {
	return fmt.Sprintf("%s|%d|%d", convID, chatRound, runRound)
}

type (
	// SandboxRunsModel is an interface to be customized, add more methods
	// here, and implement the added methods in customSandboxRunsModel.
	SandboxRunsModel interface {
		Upsert(ctx context.Context, data *SandboxRuns) error
		FindOne(ctx context.Context, id string) (*SandboxRuns, error)
		ListByConv(ctx context.Context, convID string) ([]SandboxRuns, error)
	}

	customSandboxRunsModel struct {
		conn sqlx.SqlConn
	}
)

// NewSandboxRunsModel returns a model for the database table.
func NewSandboxRunsModel(conn sqlx.SqlConn) SandboxRunsModel {
	return &customSandboxRunsModel{conn: conn}
}

func (m *customSandboxRunsModel) Upsert(ctx context.Context, data *SandboxRuns) error {
	const query = `
INSERT INTO public.sandbox_runs
    (id, conv_id, chat_session_id, chat_round, run_round, sandbox_id, status, path, document, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
ON CONFLICT (id) DO UPDATE SET
    sandbox_id = EXCLUDED.sandbox_id,
    status = EXCLUDED.status,
    path = EXCLUDED.path,
    document = EXCLUDED.document,
    updated_at = NOW()`
	_, err := m.conn.ExecCtx(ctx, query,
		data.Id,
		data.ConvId,
		data.ChatSessionId,
		data.ChatRound,
		data.RunRound,
		data.SandboxId,
		data.Status,
		data.Path,
		data.Document,
	)
	return err
}

func (m *customSandboxRunsModel) FindOne(ctx context.Context, id string) (*SandboxRuns, error) {
	const query = `
SELECT id, conv_id, chat_session_id, chat_round, run_round, sandbox_id, status, path, document, created_at, updated_at
FROM public.sandbox_runs
WHERE id = $1
LIMIT 1`
	var row SandboxRuns
	err := m.conn.QueryRowCtx(ctx, &row, query, id)
	switch {
	case err == nil:
		return &row, nil
	case errors.Is(err, sqlc.ErrNotFound) || errors.Is(err, sqlx.ErrNotFound) || errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *customSandboxRunsModel) ListByConv(ctx context.Context, convID string) ([]SandboxRuns, error) {
	const query = `
SELECT id, conv_id, chat_session_id, chat_round, run_round, sandbox_id, status, path, document, created_at, updated_at
FROM public.sandbox_runs
WHERE conv_id = $1
ORDER BY chat_round, run_round`
	var rows []SandboxRuns
	if err := m.conn.QueryRowsCtx(ctx, &rows, query, convID); err != nil {
		return nil, err
	}
	return rows, nil
}
