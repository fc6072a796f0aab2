package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/pkg/httpx"
	"github.com/nebulavpn/miniapp/pkg/metricsx"
	"github.com/nebulavpn/miniapp/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metricsx.Metrics

	store store.Store
	gate  *gate.Gate

	AccountService *service.AccountService
	InviteService  *service.InviteService
	CatalogService *service.CatalogService
	VPNService     *service.VPNService
}

func NewRouter(
	g *gate.Gate,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	metrics *metricsx.Metrics,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		metrics:      metrics,
		store:        st,
		gate:         g,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		metrics.HTTPMiddleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUser()
	r.registerInvites()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// The webview calls this on every open; lenient.
	r.Mux.Handle("POST /api/auth",
		httpx.Chain(&AuthHandler{Gate: r.gate},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerUser() {
	r.Mux.Handle("POST /api/user",
		httpx.Chain(&UserHandler{Gate: r.gate, AccountService: r.AccountService},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /api/vpn",
		httpx.Chain(&VPNHandler{Gate: r.gate, VPNService: r.VPNService},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /api/tariffs",
		httpx.Chain(&TariffsHandler{Gate: r.gate, CatalogService: r.CatalogService},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerInvites() {
	r.Mux.Handle("POST /api/invites",
		httpx.Chain(&InviteIssueHandler{Gate: r.gate, InviteService: r.InviteService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Strict: this is the only endpoint a stranger can poke, and codes
	// must not be guessable by volume.
	r.Mux.Handle("POST /api/invites/redeem",
		httpx.Chain(&InviteRedeemHandler{InviteService: r.InviteService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	users := &AdminUsersHandler{Gate: r.gate, AccountService: r.AccountService}
	configs := &AdminConfigsHandler{Gate: r.gate, VPNService: r.VPNService}

	moderate := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, httpx.RateLimitByIP(httpx.ModerateLimit))
	}

	r.Mux.Handle("POST /api/admin/users", moderate(users.HandleList))
	r.Mux.Handle("POST /api/admin/users/role", moderate(users.HandleRole))
	r.Mux.Handle("POST /api/admin/users/balance", moderate(users.HandleBalance))
	r.Mux.Handle("POST /api/admin/users/tariff", moderate(users.HandleTariff))
	r.Mux.Handle("POST /api/admin/users/active", moderate(users.HandleActive))
	r.Mux.Handle("POST /api/admin/users/delete", moderate(users.HandleDelete))

	r.Mux.Handle("POST /api/admin/configs/add", moderate(configs.HandleAdd))
	r.Mux.Handle("POST /api/admin/configs/update", moderate(configs.HandleUpdate))
	r.Mux.Handle("POST /api/admin/configs/delete", moderate(configs.HandleDelete))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
