package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/pkg/httpx"
)

// Request bodies. The webview sends the raw init payload inside the
// JSON body on every call; there is no session to carry instead.

type authRequest struct {
	InitData string `json:"initData"`
}

type issueInviteRequest struct {
	InitData string `json:"initData"`
	Role     string `json:"role"`
}

type redeemInviteRequest struct {
	InitData string `json:"initData"`
	Code     string `json:"code"`
}

type adminUserRequest struct {
	InitData   string   `json:"initData"`
	TgID       int64    `json:"tgId"`
	Role       string   `json:"role,omitempty"`
	BalanceRub *float64 `json:"balanceRub,omitempty"`
	TariffID   *int64   `json:"tariffId,omitempty"`
	Active     *bool    `json:"active,omitempty"`
}

type adminConfigRequest struct {
	InitData   string     `json:"initData"`
	TgID       int64      `json:"tgId"`
	ConfigID   string     `json:"configId,omitempty"`
	Title      string     `json:"title,omitempty"`
	ConfigText string     `json:"config,omitempty"`
	Active     bool       `json:"active,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// Response bodies.

type userBrief struct {
	TgID      int64  `json:"tg_id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role"`
}

type authResponse struct {
	OK   bool      `json:"ok"`
	User userBrief `json:"user"`
}

type tariffResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Months   int     `json:"months"`
	PriceRub float64 `json:"price_rub"`
}

type userResponse struct {
	TgID       int64           `json:"tg_id"`
	FirstName  string          `json:"first_name"`
	Username   string          `json:"username,omitempty"`
	Role       string          `json:"role"`
	Active     bool            `json:"active"`
	BalanceRub float64         `json:"balance_rub"`
	Tariff     *tariffResponse `json:"tariff,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type configResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Config    string     `json:"config"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type issueInviteResponse struct {
	Code      string     `json:"code"`
	Role      string     `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func briefOf(id gate.Identity) userBrief {
	return userBrief{
		TgID:      id.TelegramID(),
		FirstName: id.FirstName(),
		Username:  id.Username(),
		Role:      string(id.Role()),
	}
}

func tariffOf(t domain.Tariff) tariffResponse {
	return tariffResponse{ID: t.ID, Name: t.Name, Months: t.Months, PriceRub: t.PriceRub}
}

func userOf(a domain.Account, tariff *domain.Tariff) userResponse {
	resp := userResponse{
		TgID:       a.TelegramID,
		FirstName:  a.FirstName,
		Username:   a.Username,
		Role:       string(a.Role),
		Active:     a.Active,
		BalanceRub: a.BalanceRub,
		CreatedAt:  a.CreatedAt,
	}
	if tariff != nil {
		t := tariffOf(*tariff)
		resp.Tariff = &t
	}
	return resp
}

func configOf(c domain.VPNConfig) configResponse {
	return configResponse{
		ID:        c.ID,
		Title:     c.Title,
		Config:    c.ConfigText,
		Active:    c.Active,
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	}
}

func configsOf(configs []domain.VPNConfig) []configResponse {
	out := make([]configResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, configOf(c))
	}
	return out
}

// writeOutcome maps domain errors onto the HTTP boundary. Anything not
// explicitly mapped is a 500 with no internal detail.
func writeOutcome(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gate.ErrUnauthenticated):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid init data")
	case errors.Is(err, gate.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "No access. Redeem an invite code first.")
	case errors.Is(err, service.ErrInvalidCode):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_code", "Invite code is invalid or already used")
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Unknown role")
	case errors.Is(err, service.ErrUnknownTariff):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Unknown tariff")
	case errors.Is(err, service.ErrNegativeBalance):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Balance cannot be negative")
	case errors.Is(err, service.ErrEmptyConfig):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Config title and text are required")
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Account not found")
	case errors.Is(err, service.ErrConfigNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "Config not found")
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Internal error")
	}
}

func writeBadJSON(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
}
