package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/zeromicro/go-zero/rest/httpx"

	"swearena-api/internal/svc"
	"swearena-api/pkg/logindex"
	"swearena-api/pkg/sandboxlog"
)

// ListRunsHandler enumerates the sandbox runs recorded for a conversation in
// one date partition, in (chat_round, sandbox_run_round) order. The answer
// comes entirely from filenames; no documents are opened.
func ListRunsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ListRunsRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		date := req.Date
		if date == "" {
			date = sandboxlog.DatePartition(time.Now())
		} else if _, err := time.Parse("2006_01_02", date); err != nil {
			httpx.ErrorCtx(r.Context(), w, fmt.Errorf("bad date %q, want YYYY_MM_DD", req.Date))
			return
		}

		cursor, err := logindex.Runs(svcCtx.Recorder.LogDir(), date, req.ConvID)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		resp := ListRunsResponse{
			ConvID: req.ConvID,
			Date:   date,
			Runs:   make([]RunInfo, 0, cursor.Len()),
		}
		for {
			ref, ok := cursor.Next()
			if !ok {
				break
			}
			resp.Runs = append(resp.Runs, RunInfo{
				ChatRound: ref.ChatRound,
				RunRound:  ref.RunRound,
				Path:      ref.Path,
			})
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
