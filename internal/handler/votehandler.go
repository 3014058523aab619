package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"swearena-api/internal/svc"
	"swearena-api/pkg/convlog"
)

// VoteHandler logs a vote event. The event carries the full transcript of the
// conversation it concerns; votes never advance round counters.
func VoteHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VoteRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		session, ok := svcCtx.Sessions.Get(req.SessionID)
		if !ok {
			httpx.ErrorCtx(r.Context(), w, errors.New("unknown session"))
			return
		}
		state := session.ModelByConv(req.ConvID)
		if state == nil {
			httpx.ErrorCtx(r.Context(), w, fmt.Errorf("conversation %s not in session", req.ConvID))
			return
		}
		if state.CurrentChatRound() < 1 {
			httpx.ErrorCtx(r.Context(), w, errors.New("no chat round to attach the vote to"))
			return
		}
		svcCtx.Recorder.RecordVote(r.Context(), session.Mode, convlog.EventType(req.VoteType), state)
		httpx.OkJsonCtx(r.Context(), w, VoteResponse{Logged: true})
	}
}
