package http

import (
	"encoding/json"
	"net/http"

	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// TariffsHandler serves the catalog. Gated like everything else: the
// pricing is for invited eyes only.
type TariffsHandler struct {
	Gate           *gate.Gate
	CatalogService *service.CatalogService
}

func (h *TariffsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	if _, err := h.Gate.Authenticate(ctx, req.InitData); err != nil {
		writeOutcome(w, err)
		return
	}

	tariffs, err := h.CatalogService.Tariffs(ctx)
	if err != nil {
		writeOutcome(w, err)
		return
	}

	out := make([]tariffResponse, 0, len(tariffs))
	for _, t := range tariffs {
		out = append(out, tariffOf(t))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
