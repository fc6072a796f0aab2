package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/pkg/idx"
	"github.com/nebulavpn/miniapp/pkg/slogx"
)

// BootstrapService seeds the first admin account from configuration so
// a fresh deployment has someone who can mint invites.
type BootstrapService struct {
	Store store.Store

	// AdminTgID is the platform id of the seed admin. Zero disables
	// seeding entirely.
	AdminTgID     int64
	AdminName     string
	AdminUsername string

	// Starting balance and tariff for the seed admin. TariffID nil
	// leaves the account without a tariff.
	AdminBalanceRub float64
	AdminTariffID   *int64
}

// Seed creates the configured admin account if it does not exist yet.
// Idempotent: an existing account is left exactly as it is, whatever
// role or state an operator has since given it.
func (s *BootstrapService) Seed(ctx context.Context) error {
	log := slogx.FromContext(ctx)

	if s.AdminTgID == 0 {
		log.Debug("admin seeding disabled")
		return nil
	}

	_, err := s.Store.Accounts().GetByTelegramID(ctx, s.AdminTgID)
	if err == nil {
		log.Debug("seed admin already present", slog.Int64("tg_id", s.AdminTgID))
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	name := s.AdminName
	if name == "" {
		name = "Admin"
	}

	err = s.Store.Accounts().Create(ctx, domain.Account{
		ID:         idx.New().String(),
		TelegramID: s.AdminTgID,
		FirstName:  name,
		Username:   s.AdminUsername,
		Role:       domain.RoleAdmin,
		Active:     true,
		BalanceRub: s.AdminBalanceRub,
		TariffID:   s.AdminTariffID,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		// Raced with another replica seeding the same admin.
		return nil
	}
	if err != nil {
		log.Error("failed to seed admin account", slog.Any("error", err))
		return err
	}

	log.Info("seed admin created", slog.Int64("tg_id", s.AdminTgID))
	return nil
}
