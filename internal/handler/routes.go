package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"swearena-api/internal/svc"
)

// RegisterHandlers mounts the arena logging API.
func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	server.AddRoutes([]rest.Route{
		{
			Method:  http.MethodPost,
			Path:    "/v1/battles",
			Handler: CreateBattleHandler(svcCtx),
		},
		{
			Method:  http.MethodPost,
			Path:    "/v1/battles/:session/chat",
			Handler: ChatHandler(svcCtx),
		},
		{
			Method:  http.MethodPost,
			Path:    "/v1/battles/:session/vote",
			Handler: VoteHandler(svcCtx),
		},
		{
			Method:  http.MethodPost,
			Path:    "/v1/battles/:session/sandbox",
			Handler: SandboxRunHandler(svcCtx),
		},
		{
			Method:  http.MethodDelete,
			Path:    "/v1/battles/:session",
			Handler: CloseBattleHandler(svcCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/v1/logs/runs",
			Handler: ListRunsHandler(svcCtx),
		},
	})
}
