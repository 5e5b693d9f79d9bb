package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/handaas/patent-bigdata-mcp/internal/domain/audit"
)

// CallLister reads the call audit trail. *audit.Recorder satisfies it.
type CallLister interface {
	List(ctx context.Context, limit int) ([]audit.CallRecord, error)
}

type CallHandler struct {
	calls  CallLister
	logger *slog.Logger
}

func NewCallHandler(calls CallLister, logger *slog.Logger) *CallHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CallHandler{calls: calls, logger: logger}
}

type callResponse struct {
	ID         string `json:"id"`
	Tool       string `json:"tool"`
	ProductID  string `json:"productId"`
	Outcome    string `json:"outcome"`
	Cause      string `json:"cause,omitempty"`
	DurationMS int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

// ListCalls handles GET /api/v1/calls?limit=N, newest first.
func (h *CallHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	records, err := h.calls.List(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("list calls", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list calls")
		return
	}

	out := make([]callResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, callResponse{
			ID:         rec.ID,
			Tool:       rec.Tool,
			ProductID:  rec.ProductID,
			Outcome:    rec.Outcome,
			Cause:      rec.Cause,
			DurationMS: rec.DurationMS(),
			CreatedAt:  rec.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	writeList(w, out)
}
