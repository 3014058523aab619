package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zeromicro/go-zero/rest/httpx"

	"swearena-api/internal/svc"
	"swearena-api/pkg/arena"
)

// CreateBattleHandler starts a session: identifiers are minted here, once,
// and live until the user closes the battle.
func CreateBattleHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBattleRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		mode := arena.ChatMode(req.Mode)
		if strings.TrimSpace(req.ModelA) == "" {
			httpx.ErrorCtx(r.Context(), w, errors.New("model_a is required"))
			return
		}

		var session *arena.Session
		if mode == arena.ModeSingle {
			session = arena.NewSingleSession(req.ModelA)
		} else {
			if strings.TrimSpace(req.ModelB) == "" {
				httpx.ErrorCtx(r.Context(), w, errors.New("model_b is required in battle modes"))
				return
			}
			session = arena.NewBattleSession(mode, req.ModelA, req.ModelB)
		}
		svcCtx.Sessions.Put(session)

		resp := CreateBattleResponse{
			ChatSessionID: session.ID,
			Mode:          string(session.Mode),
		}
		for _, m := range session.Models {
			resp.Conversations = append(resp.Conversations, ConversationInfo{
				ConvID: m.ConvID(),
				Model:  m.ModelName(),
			})
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
