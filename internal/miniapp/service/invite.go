package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/pkg/cryptox"
	"github.com/nebulavpn/miniapp/pkg/idx"
	"github.com/nebulavpn/miniapp/pkg/slogx"
)

var (
	// ErrInvalidCode covers unknown, already-used and expired codes
	// alike. The caller must not be able to tell them apart.
	ErrInvalidCode = errors.New("invalid invite code")

	ErrInvalidRole = errors.New("invalid role")
)

// issueAttempts bounds fingerprint-collision retries during minting. A
// collision on a fresh 128-bit token means something is badly wrong with
// the entropy source, so the bound exists to fail loudly, not to be hit.
const issueAttempts = 5

type InviteService struct {
	Store store.Store
	Gate  *gate.Gate

	// TTL applied to every minted code. Zero means codes never expire.
	TTL time.Duration
}

// Issue mints a new single-use invite code granting role. The raw code
// is returned exactly once; only its fingerprint is stored.
func (s *InviteService) Issue(ctx context.Context, creator gate.Identity, role domain.Role) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate the granted role.
	if !role.Valid() {
		log.Warn("invite mint with unknown role", slog.String("role", string(role)))
		return "", ErrInvalidRole
	}

	var expiresAt *time.Time
	if s.TTL > 0 {
		t := time.Now().UTC().Add(s.TTL)
		expiresAt = &t
	}

	// 2. Generate, fingerprint, store. Regenerate on the (theoretical)
	// fingerprint collision.
	for range issueAttempts {
		code, err := cryptox.GenerateToken(cryptox.TokenSize128)
		if err != nil {
			log.Error("failed to generate invite code", slog.Any("error", err))
			return "", err
		}

		invite := domain.Invite{
			ID:              idx.New().String(),
			CodeFingerprint: cryptox.FingerprintToken(code),
			Role:            role,
			CreatedBy:       creator.AccountID(),
			ExpiresAt:       expiresAt,
		}

		err = s.Store.Invites().Create(ctx, invite)
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("invite fingerprint collision, regenerating")
			continue
		}
		if err != nil {
			log.Error("failed to store invite", slog.Any("error", err))
			return "", err
		}

		log.Info("invite minted",
			slog.String("invite_id", invite.ID),
			slog.String("role", string(role)),
			slog.String("created_by", creator.AccountID()),
		)
		return code, nil
	}

	return "", errors.New("exhausted invite code generation attempts")
}

// Redeem is the provisioning flow: it verifies the redeemer's platform
// credential, consumes the code and creates (or reactivates) the account
// in one transaction. The redeemer needs no pre-existing account.
func (s *InviteService) Redeem(ctx context.Context, rawInitData, code string) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	// 1. The redeemer must still prove who they are, even without an
	// account. Propagates gate.ErrUnauthenticated.
	claim, err := s.Gate.VerifyClaim(ctx, rawInitData)
	if err != nil {
		return domain.Account{}, err
	}

	if code == "" {
		return domain.Account{}, ErrInvalidCode
	}

	// 2. Consume the code and upsert the account atomically. A busy
	// database gets one retry; a consumed code never does.
	fingerprint := cryptox.FingerprintToken(code)
	for attempt := 0; ; attempt++ {
		err = s.redeemOnce(ctx, fingerprint, claim.ID, claim.FirstName, claim.Username)
		if err == nil {
			break
		}
		if attempt == 0 && isBusy(err) {
			log.Warn("redemption hit a busy database, retrying once")
			continue
		}
		if errors.Is(err, ErrInvalidCode) {
			log.Warn("redemption with invalid code", slog.Int64("tg_id", claim.ID))
		} else {
			log.Error("redemption failed", slog.Any("error", err))
		}
		return domain.Account{}, err
	}

	account, err := s.Store.Accounts().GetByTelegramID(ctx, claim.ID)
	if err != nil {
		log.Error("failed to load provisioned account", slog.Any("error", err))
		return domain.Account{}, err
	}

	log.Info("account provisioned via invite",
		slog.Int64("tg_id", account.TelegramID),
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)
	return account, nil
}

func (s *InviteService) redeemOnce(ctx context.Context, fingerprint string, tgID int64, firstName, username string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		invite, err := tx.Invites().GetActiveByFingerprint(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		// The conditional flip is what serializes concurrent
		// redemptions of the same code: the loser lands here with
		// ErrNotFound and the whole transaction rolls back.
		if err := tx.Invites().MarkUsed(ctx, invite.ID, tgID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCode
			}
			return err
		}

		return tx.Accounts().Upsert(ctx, domain.Account{
			ID:         idx.New().String(),
			TelegramID: tgID,
			FirstName:  firstName,
			Username:   username,
			Role:       invite.Role,
			Active:     true,
		})
	})
}

// isBusy reports a transient sqlite write-contention error. The driver
// has no typed error for it, so this matches the message.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
