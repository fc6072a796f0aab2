package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// InviteIssueHandler mints invite codes. Admin only.
type InviteIssueHandler struct {
	Gate          *gate.Gate
	InviteService *service.InviteService
}

func (h *InviteIssueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req issueInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	id, err := h.Gate.Authenticate(ctx, req.InitData)
	if err != nil {
		writeOutcome(w, err)
		return
	}
	if err := h.Gate.RequireAdmin(id); err != nil {
		writeOutcome(w, err)
		return
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleUser
	}

	code, err := h.InviteService.Issue(ctx, id, role)
	if err != nil {
		writeOutcome(w, err)
		return
	}

	resp := issueInviteResponse{Code: code, Role: string(role)}
	if h.InviteService.TTL > 0 {
		// The stored expiry is not returned by Issue; recompute the hint
		// for the admin UI. Redemption checks the stored value.
		t := time.Now().UTC().Add(h.InviteService.TTL)
		resp.ExpiresAt = &t
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// InviteRedeemHandler is the one door that opens without an existing
// account: a verified stranger with a valid code becomes a member.
type InviteRedeemHandler struct {
	InviteService *service.InviteService
}

func (h *InviteRedeemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req redeemInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadJSON(w)
		return
	}

	account, err := h.InviteService.Redeem(ctx, req.InitData, req.Code)
	if err != nil {
		writeOutcome(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authResponse{OK: true, User: userBrief{
		TgID:      account.TelegramID,
		FirstName: account.FirstName,
		Username:  account.Username,
		Role:      string(account.Role),
	}})
}
