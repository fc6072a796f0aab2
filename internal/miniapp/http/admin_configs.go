package http

import (
	"encoding/json"
	"net/http"

	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// AdminConfigsHandler manages connection configs on behalf of any
// account. Admin gated.
type AdminConfigsHandler struct {
	Gate       *gate.Gate
	VPNService *service.VPNService
}

func (h *AdminConfigsHandler) admin(w http.ResponseWriter, r *http.Request) (adminConfigRequest, bool) {
	var req adminConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return adminConfigRequest{}, false
	}

	id, err := h.Gate.Authenticate(r.Context(), req.InitData)
	if err != nil {
		writeOutcome(w, err)
		return adminConfigRequest{}, false
	}
	if err := h.Gate.RequireAdmin(id); err != nil {
		writeOutcome(w, err)
		return adminConfigRequest{}, false
	}

	return req, true
}

func (h *AdminConfigsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}

	config, err := h.VPNService.AddConfig(r.Context(), req.TgID, req.Title, req.ConfigText, req.ExpiresAt)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, configOf(config))
}

func (h *AdminConfigsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}

	err := h.VPNService.UpdateConfig(r.Context(), req.TgID, req.ConfigID, req.Title, req.ConfigText, req.Active)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminConfigsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}

	if err := h.VPNService.DeleteConfig(r.Context(), req.TgID, req.ConfigID); err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
