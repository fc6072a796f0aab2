package http

import (
	"encoding/json"
	"net/http"

	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// UserHandler serves the caller's own profile with its tariff joined in.
type UserHandler struct {
	Gate           *gate.Gate
	AccountService *service.AccountService
}

func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	payload, err := h.AccountService.Payload(ctx, id)
	if err != nil {
		writeOutcome(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, userOf(payload.Account, payload.Tariff))
}
