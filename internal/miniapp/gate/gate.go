// Package gate is the single authorization checkpoint for every
// protected operation: it verifies the platform credential, resolves the
// bearer to an account and answers "who is this" and "are they allowed".
package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/pkg/initdata"
	"github.com/nebulavpn/miniapp/pkg/slogx"
)

var (
	// ErrUnauthenticated means no verifiable identity: bad or missing
	// signature, or a claim without an id. Terminal per request.
	ErrUnauthenticated = errors.New("gate: unauthenticated")

	// ErrForbidden means the credential is valid but the bearer has no
	// active account, or lacks the required role. The user-facing hint
	// is to redeem an invite code.
	ErrForbidden = errors.New("gate: forbidden")
)

// Config is the immutable verification configuration, constructed once
// at process start. Nothing here is read from ambient state at call
// time, so tests can run gates with distinct secrets side by side.
type Config struct {
	// Secret is the platform bot token the init payload is signed with.
	Secret []byte

	// InsecureSkipVerify skips only the signature comparison; identity
	// extraction and account gating still run. Development only.
	InsecureSkipVerify bool
}

type Gate struct {
	cfg Config
	st  store.Store
}

func New(cfg Config, st store.Store) *Gate {
	return &Gate{cfg: cfg, st: st}
}

// Identity is proof that a request passed the gate. It has no exported
// fields and no constructor outside this package, so a protected
// operation holding one knows verification and account resolution
// already happened.
type Identity struct {
	accountID  string
	telegramID int64
	role       domain.Role
	firstName  string
	username   string
}

func (id Identity) AccountID() string  { return id.accountID }
func (id Identity) TelegramID() int64  { return id.telegramID }
func (id Identity) Role() domain.Role  { return id.role }
func (id Identity) FirstName() string  { return id.firstName }
func (id Identity) Username() string   { return id.username }
func (id Identity) IsAdmin() bool      { return id.role == domain.RoleAdmin }

// VerifyClaim checks the payload signature and extracts a nonzero user
// claim without consulting the account store. The provisioning flow uses
// it directly: an invite redeemer has no account yet.
func (g *Gate) VerifyClaim(ctx context.Context, raw string) (initdata.UserClaim, error) {
	log := slogx.FromContext(ctx)

	var (
		fields initdata.Fields
		err    error
	)
	if g.cfg.InsecureSkipVerify {
		fields, err = initdata.Parse(raw)
	} else {
		fields, err = initdata.Verify(raw, g.cfg.Secret)
	}
	if err != nil {
		// Never log the received or computed hash.
		log.Warn("init payload rejected", slog.Any("error", err))
		return initdata.UserClaim{}, ErrUnauthenticated
	}

	claim, ok := fields.User()
	if !ok || claim.ID == 0 {
		log.Warn("init payload carries no usable identity claim")
		return initdata.UserClaim{}, ErrUnauthenticated
	}

	return claim, nil
}

// Authenticate runs the full gate: verify the payload, resolve the
// account, require it active, refresh its profile fields best-effort.
func (g *Gate) Authenticate(ctx context.Context, raw string) (Identity, error) {
	log := slogx.FromContext(ctx)

	claim, err := g.VerifyClaim(ctx, raw)
	if err != nil {
		return Identity{}, err
	}

	account, err := g.st.Accounts().GetByTelegramID(ctx, claim.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("verified identity has no account", slog.Int64("tg_id", claim.ID))
			return Identity{}, ErrForbidden
		}
		log.Error("failed to resolve account", slog.Any("error", err))
		return Identity{}, err
	}

	// Inactive accounts are retained but treated as nonexistent.
	if !account.Active {
		log.Info("inactive account rejected", slog.Int64("tg_id", claim.ID))
		return Identity{}, ErrForbidden
	}

	// Profile refresh is best-effort; the account is already confirmed
	// active, so a failure here must not block the request.
	if err := g.st.Accounts().TouchProfile(ctx, claim.ID, claim.FirstName, claim.Username); err != nil {
		log.Warn("profile refresh failed", slog.Int64("tg_id", claim.ID), slog.Any("error", err))
	}

	return Identity{
		accountID:  account.ID,
		telegramID: account.TelegramID,
		role:       account.Role,
		firstName:  claim.FirstName,
		username:   claim.Username,
	}, nil
}

// RequireAdmin gates admin-only operations on an already-authenticated
// identity.
func (g *Gate) RequireAdmin(id Identity) error {
	if !id.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
