package http

import (
	"encoding/json"
	"net/http"

	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// AuthHandler answers the webview's opening question: does the holder of
// this init payload get in, and as whom.
type AuthHandler struct {
	Gate *gate.Gate
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	httpx.WriteJSON(w, http.StatusOK, authResponse{OK: true, User: briefOf(id)})
}
