package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/pkg/slogx"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrUnknownTariff   = errors.New("unknown tariff")
	ErrNegativeBalance = errors.New("balance cannot be negative")
)

type AccountService struct {
	Store store.Store
}

// UserPayload is the caller's own account joined with its tariff, the
// shape the profile endpoint renders.
type UserPayload struct {
	Account domain.Account
	Tariff  *domain.Tariff
}

// Payload returns the authenticated caller's profile.
func (s *AccountService) Payload(ctx context.Context, id gate.Identity) (UserPayload, error) {
	log := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetByTelegramID(ctx, id.TelegramID())
	if err != nil {
		log.Error("failed to load own account", slog.Any("error", err))
		return UserPayload{}, err
	}

	payload := UserPayload{Account: account}
	if account.TariffID != nil {
		tariff, err := s.Store.Tariffs().GetByID(ctx, *account.TariffID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("failed to load tariff", slog.Any("error", err))
			return UserPayload{}, err
		}
		if err == nil {
			payload.Tariff = &tariff
		}
	}
	return payload, nil
}

// List returns every account, admins first. Admin only; the HTTP layer
// has already checked the caller's role.
func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.Store.Accounts().List(ctx)
}

func (s *AccountService) SetRole(ctx context.Context, tgID int64, role domain.Role) error {
	log := slogx.FromContext(ctx)

	if !role.Valid() {
		return ErrInvalidRole
	}
	if err := s.Store.Accounts().SetRole(ctx, tgID, role); err != nil {
		return mapAccountErr(err)
	}

	log.Info("account role changed", slog.Int64("tg_id", tgID), slog.String("role", string(role)))
	return nil
}

func (s *AccountService) SetBalance(ctx context.Context, tgID int64, balanceRub float64) error {
	if balanceRub < 0 {
		return ErrNegativeBalance
	}
	return mapAccountErr(s.Store.Accounts().SetBalance(ctx, tgID, balanceRub))
}

// SetTariff assigns a tariff from the catalog, or clears the assignment
// when tariffID is nil.
func (s *AccountService) SetTariff(ctx context.Context, tgID int64, tariffID *int64) error {
	if tariffID != nil {
		if _, err := s.Store.Tariffs().GetByID(ctx, *tariffID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownTariff
			}
			return err
		}
	}
	return mapAccountErr(s.Store.Accounts().SetTariff(ctx, tgID, tariffID))
}

// SetActive deactivates or reactivates an account. Deactivation is the
// reversible ban: the row and its balance survive, the gate stops
// letting the holder in.
func (s *AccountService) SetActive(ctx context.Context, tgID int64, active bool) error {
	log := slogx.FromContext(ctx)

	if err := s.Store.Accounts().SetActive(ctx, tgID, active); err != nil {
		return mapAccountErr(err)
	}

	log.Info("account active flag changed", slog.Int64("tg_id", tgID), slog.Bool("active", active))
	return nil
}

// Delete removes the account and, via cascade, its configs.
func (s *AccountService) Delete(ctx context.Context, tgID int64) error {
	log := slogx.FromContext(ctx)

	if err := s.Store.Accounts().Delete(ctx, tgID); err != nil {
		return mapAccountErr(err)
	}

	log.Info("account deleted", slog.Int64("tg_id", tgID))
	return nil
}

func mapAccountErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	return err
}
