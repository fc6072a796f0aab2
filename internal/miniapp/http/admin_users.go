package http

import (
	"encoding/json"
	"net/http"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// AdminUsersHandler is the member management surface. Every method is
// admin gated; the target account is addressed by its platform id.
type AdminUsersHandler struct {
	Gate           *gate.Gate
	AccountService *service.AccountService
}

// admin decodes the shared request shape and runs the full admin gate.
func (h *AdminUsersHandler) admin(w http.ResponseWriter, r *http.Request) (adminUserRequest, bool) {
	var req adminUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return adminUserRequest{}, false
	}

	id, err := h.Gate.Authenticate(r.Context(), req.InitData)
	if err != nil {
		writeOutcome(w, err)
		return adminUserRequest{}, false
	}
	if err := h.Gate.RequireAdmin(id); err != nil {
		writeOutcome(w, err)
		return adminUserRequest{}, false
	}

	return req, true
}

func (h *AdminUsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.admin(w, r); !ok {
		return
	}

	accounts, err := h.AccountService.List(r.Context())
	if err != nil {
		writeOutcome(w, err)
		return
	}

	out := make([]userResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, userOf(a, nil))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AdminUsersHandler) HandleRole(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}

	if err := h.AccountService.SetRole(r.Context(), req.TgID, domain.Role(req.Role)); err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminUsersHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}
	if req.BalanceRub == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "balanceRub is required")
		return
	}

	if err := h.AccountService.SetBalance(r.Context(), req.TgID, *req.BalanceRub); err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminUsersHandler) HandleTariff(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}

	// A nil tariffId clears the assignment.
	if err := h.AccountService.SetTariff(r.Context(), req.TgID, req.TariffID); err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminUsersHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}
	if req.Active == nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "active is required")
		return
	}

	if err := h.AccountService.SetActive(r.Context(), req.TgID, *req.Active); err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AdminUsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.admin(w, r)
	if !ok {
		return
	}

	if err := h.AccountService.Delete(r.Context(), req.TgID); err != nil {
		writeOutcome(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
