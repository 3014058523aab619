package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"swearena-api/internal/svc"
)

// ChatHandler logs one completed prompt cycle. The caller has already run the
// models; each reply slot names the conversation it belongs to. Every slot
// claims its own chat round, so the two sides of a battle advance
// independently when a reply is missing.
func ChatHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		session, ok := svcCtx.Sessions.Get(req.SessionID)
		if !ok {
			httpx.ErrorCtx(r.Context(), w, errors.New("unknown session"))
			return
		}
		if len(req.Replies) == 0 {
			httpx.ErrorCtx(r.Context(), w, errors.New("at least one reply is required"))
			return
		}

		var resp ChatResponse
		for _, reply := range req.Replies {
			state := session.ModelByConv(reply.ConvID)
			if state == nil {
				httpx.ErrorCtx(r.Context(), w, fmt.Errorf("conversation %s not in session", reply.ConvID))
				return
			}
			if req.Regenerate {
				state.TruncateForRegenerate()
			}
			round := state.NextChatRound()
			state.AppendUser(req.Prompt)
			state.AppendAssistant(reply.Content)
			svcCtx.Recorder.RecordChat(r.Context(), session.Mode, state, round)
			resp.Rounds = append(resp.Rounds, ChatRoundInfo{
				ConvID:    reply.ConvID,
				ChatRound: round,
			})
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
