package http

import (
	"encoding/json"
	"net/http"

	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// VPNHandler lists the caller's connection configs.
type VPNHandler struct {
	Gate       *gate.Gate
	VPNService *service.VPNService
}

func (h *VPNHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	id, err := h.Gate.Authenticate(ctx, req.InitData)
	if err != nil {
		writeOutcome(w, err)
		return
	}

	configs, err := h.VPNService.Connections(ctx, id)
	if err != nil {
		writeOutcome(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, configsOf(configs))
}
