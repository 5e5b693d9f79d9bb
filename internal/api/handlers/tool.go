package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/handaas/patent-bigdata-mcp/internal/api/ctxkeys"
	"github.com/handaas/patent-bigdata-mcp/internal/domain/tool"
)

// ToolHandler lists the registered tools and invokes them without an MCP session.
type ToolHandler struct {
	registry *tool.ToolRegistry
	logger   *slog.Logger
}

func NewToolHandler(registry *tool.ToolRegistry, logger *slog.Logger) *ToolHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolHandler{registry: registry, logger: logger}
}

type toolResponse struct {
	Name        string             `json:"name"`
	ProductID   string             `json:"productId"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`
}

// ListTools handles GET /api/v1/tools.
func (h *ToolHandler) ListTools(w http.ResponseWriter, _ *http.Request) {
	defs := h.registry.List()
	out := make([]toolResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, toToolResponse(def))
	}
	writeList(w, out)
}

// GetTool handles GET /api/v1/tools/{name}.
func (h *ToolHandler) GetTool(w http.ResponseWriter, r *http.Request) {
	def, err := h.registry.Definition(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "tool not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]toolResponse{"data": toToolResponse(def)})
}

func toToolResponse(def tool.ToolDefinition) toolResponse {
	return toolResponse{
		Name:        def.Name,
		ProductID:   def.ProductID,
		Description: def.Description,
		InputSchema: def.InputSchema,
	}
}

// InvokeTool handles POST /api/v1/tools/{name}. The body is the tool's
// argument object; the response wraps the tool's result value in "data".
// Gateway failures are values, so they come back with status 200.
func (h *ToolHandler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.registry.Execute(r.Context(), name, json.RawMessage(body))
	switch {
	case errors.Is(err, tool.ErrToolExecutorNotRegistered):
		writeError(w, http.StatusNotFound, "tool not found")
		return
	case errors.Is(err, tool.ErrToolValidationFailed):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("invoke tool", "tool", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to invoke tool")
		return
	}

	h.logger.Info("tool invoked over rest", "tool", name, "subject", ctxkeys.String(r.Context(), ctxkeys.Subject))
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"data": result})
}
