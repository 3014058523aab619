package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/rest/pathvar"

	"swearena-api/internal/config"
	"swearena-api/internal/svc"
	"swearena-api/pkg/convlog"
	"swearena-api/pkg/sandboxlog"
)

func testServiceContext(t *testing.T) *svc.ServiceContext {
	t.Helper()
	c := config.Config{LogDir: t.TempDir()}
	return svc.NewServiceContext(c)
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any, vars map[string]string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if len(vars) > 0 {
		req = pathvar.WithVars(req, vars)
	}
	w := httptest.NewRecorder()
	h(w, req)
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func TestBattleEndToEnd(t *testing.T) {
	ctx := testServiceContext(t)
	date := sandboxlog.DatePartition(time.Now())

	// Start a battle.
	var created CreateBattleResponse
	w := doJSON(t, CreateBattleHandler(ctx), http.MethodPost, "/v1/battles", CreateBattleRequest{
		Mode:   "battle_anony",
		ModelA: "model-a",
		ModelB: "model-b",
	}, nil, &created)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, created.Conversations, 2)
	require.NotEqual(t, created.Conversations[0].ConvID, created.Conversations[1].ConvID)

	vars := map[string]string{"session": created.ChatSessionID}
	convA := created.Conversations[0].ConvID

	// One prompt cycle with both replies.
	var chat ChatResponse
	w = doJSON(t, ChatHandler(ctx), http.MethodPost, "/v1/battles/x/chat", ChatRequest{
		Prompt: "write a sort",
		Replies: []ModelReply{
			{ConvID: convA, Content: "def sort(): ..."},
			{ConvID: created.Conversations[1].ConvID, Content: "fn sort() {}"},
		},
	}, vars, &chat)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, chat.Rounds, 2)
	require.Equal(t, 1, chat.Rounds[0].ChatRound)

	// Two sandbox runs against conversation A's round 1 code.
	for wantRun := 1; wantRun <= 2; wantRun++ {
		var run SandboxRunResponse
		w = doJSON(t, SandboxRunHandler(ctx), http.MethodPost, "/v1/battles/x/sandbox", SandboxRunRequest{
			ConvID:    convA,
			SandboxID: "sb1",
			Code:      fmt.Sprintf("attempt %d", wantRun),
			Output:    "ok",
		}, vars, &run)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Equal(t, 1, run.ChatRound)
		require.Equal(t, wantRun, run.RunRound)

		doc, err := sandboxlog.ReadFile(run.Path)
		require.NoError(t, err)
		require.Equal(t, sandboxlog.StatusCompleted, doc.SandboxState.Status)
		require.Equal(t, created.ChatSessionID, doc.SandboxState.ChatSessionID)
	}

	// A vote on conversation A.
	var vote VoteResponse
	w = doJSON(t, VoteHandler(ctx), http.MethodPost, "/v1/battles/x/vote", VoteRequest{
		VoteType: "leftvote",
		ConvID:   convA,
	}, vars, &vote)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, vote.Logged)

	// The correlation index lists both runs in order.
	var runs ListRunsResponse
	req := httptest.NewRequest(http.MethodGet, "/v1/logs/runs?conv_id="+convA, nil)
	rec := httptest.NewRecorder()
	ListRunsHandler(ctx)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Equal(t, date, runs.Date)
	require.Len(t, runs.Runs, 2)
	require.Equal(t, 1, runs.Runs[0].RunRound)
	require.Equal(t, 2, runs.Runs[1].RunRound)

	// The conversation log holds chat events for both slots plus the vote.
	records, err := convlog.ReadFile(convlog.FilePath(ctx.Config.LogDir, date, "battle_anony", created.ChatSessionID))
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, convlog.EventLeftVote, records[2].Type)

	// Close the battle; the session is gone but the files stay.
	var closed CloseBattleResponse
	w = doJSON(t, CloseBattleHandler(ctx), http.MethodDelete, "/v1/battles/x", nil, vars, &closed)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, closed.Closed)
	require.Equal(t, 0, ctx.Sessions.Len())

	records, err = convlog.ReadFile(convlog.FilePath(ctx.Config.LogDir, date, "battle_anony", created.ChatSessionID))
	require.NoError(t, err)
	require.Len(t, records, 3)
}

func TestChatRegenerateClaimsFreshRound(t *testing.T) {
	ctx := testServiceContext(t)

	var created CreateBattleResponse
	w := doJSON(t, CreateBattleHandler(ctx), http.MethodPost, "/v1/battles", CreateBattleRequest{
		Mode:   "single",
		ModelA: "model-a",
	}, nil, &created)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	vars := map[string]string{"session": created.ChatSessionID}
	conv := created.Conversations[0].ConvID

	var chat ChatResponse
	w = doJSON(t, ChatHandler(ctx), http.MethodPost, "/v1/battles/x/chat", ChatRequest{
		Prompt:  "q1",
		Replies: []ModelReply{{ConvID: conv, Content: "a1"}},
	}, vars, &chat)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 1, chat.Rounds[0].ChatRound)

	w = doJSON(t, ChatHandler(ctx), http.MethodPost, "/v1/battles/x/chat", ChatRequest{
		Prompt:     "q1 but better",
		Regenerate: true,
		Replies:    []ModelReply{{ConvID: conv, Content: "a1 v2"}},
	}, vars, &chat)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 2, chat.Rounds[0].ChatRound, "a regenerated exchange claims a fresh round")

	session, ok := ctx.Sessions.Get(created.ChatSessionID)
	require.True(t, ok)
	msgs := session.Models[0].Snapshot()
	require.Len(t, msgs, 3, "the dropped assistant reply must not linger")
	require.Equal(t, "q1 but better", msgs[1].Content())
	require.Equal(t, "a1 v2", msgs[2].Content())
}

func TestVoteRequiresAChatRound(t *testing.T) {
	ctx := testServiceContext(t)

	var created CreateBattleResponse
	w := doJSON(t, CreateBattleHandler(ctx), http.MethodPost, "/v1/battles", CreateBattleRequest{
		Mode:   "single",
		ModelA: "model-a",
	}, nil, &created)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	vars := map[string]string{"session": created.ChatSessionID}
	w = doJSON(t, VoteHandler(ctx), http.MethodPost, "/v1/battles/x/vote", VoteRequest{
		VoteType: "leftvote",
		ConvID:   created.Conversations[0].ConvID,
	}, vars, nil)
	require.NotEqual(t, http.StatusOK, w.Code, "no prompt cycle yet, nothing to vote on")
}

func TestSandboxRunRequiresAChatRound(t *testing.T) {
	ctx := testServiceContext(t)

	var created CreateBattleResponse
	w := doJSON(t, CreateBattleHandler(ctx), http.MethodPost, "/v1/battles", CreateBattleRequest{
		Mode:   "single",
		ModelA: "model-a",
	}, nil, &created)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	vars := map[string]string{"session": created.ChatSessionID}
	w = doJSON(t, SandboxRunHandler(ctx), http.MethodPost, "/v1/battles/x/sandbox", SandboxRunRequest{
		ConvID:    created.Conversations[0].ConvID,
		SandboxID: "sb1",
		Code:      "print(1)",
	}, vars, nil)
	require.NotEqual(t, http.StatusOK, w.Code, "no prompt cycle yet, nothing to attach the run to")
}

func TestHandlersRejectUnknownSession(t *testing.T) {
	ctx := testServiceContext(t)
	vars := map[string]string{"session": "nope"}

	w := doJSON(t, ChatHandler(ctx), http.MethodPost, "/v1/battles/x/chat", ChatRequest{
		Prompt:  "q",
		Replies: []ModelReply{{ConvID: "c", Content: "a"}},
	}, vars, nil)
	require.NotEqual(t, http.StatusOK, w.Code)

	w = doJSON(t, VoteHandler(ctx), http.MethodPost, "/v1/battles/x/vote", VoteRequest{
		VoteType: "leftvote",
		ConvID:   "c",
	}, vars, nil)
	require.NotEqual(t, http.StatusOK, w.Code)
}

func TestCreateBattleRequiresSecondModel(t *testing.T) {
	ctx := testServiceContext(t)
	w := doJSON(t, CreateBattleHandler(ctx), http.MethodPost, "/v1/battles", CreateBattleRequest{
		Mode:   "battle_named",
		ModelA: "model-a",
	}, nil, nil)
	require.NotEqual(t, http.StatusOK, w.Code)
}
