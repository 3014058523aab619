package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"swearena-api/internal/svc"
	"swearena-api/pkg/battle"
	"swearena-api/pkg/sandboxlog"
)

// SandboxRunHandler records one sandbox execution attempt. Unlike chat
// logging this path reports failures to the caller: an attempt whose document
// cannot be written has lost its provenance and the user should hear about it.
func SandboxRunHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SandboxRunRequest
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

		chatRound := req.ChatRound
		if chatRound == 0 {
			chatRound = state.CurrentChatRound()
		}
		if chatRound < 1 {
			httpx.ErrorCtx(r.Context(), w, errors.New("no chat round to attach the run to"))
			return
		}

		result := battle.RunResult{
			SandboxID:    req.SandboxID,
			Code:         req.Code,
			Output:       req.Output,
			Stderr:       req.Stderr,
			Status:       sandboxlog.Status(req.Status),
			Interactions: req.Interactions,
		}
		path, err := svcCtx.Recorder.RecordSandboxRun(r.Context(), state, chatRound, result)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		_, chat, run, ok := sandboxlog.ParseFileName(path)
		if !ok {
			httpx.ErrorCtx(r.Context(), w, fmt.Errorf("unparseable sandbox log path %s", path))
			return
		}
		httpx.OkJsonCtx(r.Context(), w, SandboxRunResponse{
			ChatRound: chat,
			RunRound:  run,
			Path:      path,
		})
	}
}
