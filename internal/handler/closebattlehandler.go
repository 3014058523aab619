package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"swearena-api/internal/svc"
)

// CloseBattleHandler drops the in-memory session. The log files stay; closing
// an unknown session is a no-op so retries are harmless.
func CloseBattleHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CloseBattleRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		svcCtx.Sessions.Remove(req.SessionID)
		httpx.OkJsonCtx(r.Context(), w, CloseBattleResponse{Closed: true})
	}
}
