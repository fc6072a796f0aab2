package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/pkg/idx"
	"github.com/nebulavpn/miniapp/pkg/slogx"
)

var (
	ErrConfigNotFound = errors.New("config not found")
	ErrEmptyConfig    = errors.New("config title and text are required")
)

// VPNService serves each account's connection configs and lets admins
// manage them on behalf of any account.
type VPNService struct {
	Store store.Store
}

// Connections returns the caller's own configs, newest first.
func (s *VPNService) Connections(ctx context.Context, id gate.Identity) ([]domain.VPNConfig, error) {
	return s.Store.Configs().ListByAccount(ctx, id.AccountID())
}

// AddConfig attaches a new config to the account identified by tgID.
// Admin only.
func (s *VPNService) AddConfig(ctx context.Context, tgID int64, title, configText string, expiresAt *time.Time) (domain.VPNConfig, error) {
	log := slogx.FromContext(ctx)

	if title == "" || configText == "" {
		return domain.VPNConfig{}, ErrEmptyConfig
	}

	account, err := s.Store.Accounts().GetByTelegramID(ctx, tgID)
	if err != nil {
		return domain.VPNConfig{}, mapAccountErr(err)
	}

	config := domain.VPNConfig{
		ID:         idx.New().String(),
		AccountID:  account.ID,
		Title:      title,
		ConfigText: configText,
		Active:     true,
		ExpiresAt:  expiresAt,
	}
	if err := s.Store.Configs().Create(ctx, config); err != nil {
		log.Error("failed to create config", slog.Any("error", err))
		return domain.VPNConfig{}, err
	}

	log.Info("config added",
		slog.String("config_id", config.ID),
		slog.Int64("tg_id", tgID),
		slog.String("title", title),
	)
	return config, nil
}

// UpdateConfig rewrites a config belonging to the tgID account. Admin
// only; the owner scoping prevents cross-account edits by id guessing.
func (s *VPNService) UpdateConfig(ctx context.Context, tgID int64, configID, title, configText string, active bool) error {
	if title == "" || configText == "" {
		return ErrEmptyConfig
	}

	account, err := s.Store.Accounts().GetByTelegramID(ctx, tgID)
	if err != nil {
		return mapAccountErr(err)
	}

	err = s.Store.Configs().Update(ctx, configID, account.ID, title, configText, active)
	if errors.Is(err, store.ErrNotFound) {
		return ErrConfigNotFound
	}
	return err
}

// DeleteConfig removes a config belonging to the tgID account. Admin
// only.
func (s *VPNService) DeleteConfig(ctx context.Context, tgID int64, configID string) error {
	log := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().GetByTelegramID(ctx, tgID)
	if err != nil {
		return mapAccountErr(err)
	}

	err = s.Store.Configs().Delete(ctx, configID, account.ID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrConfigNotFound
	}
	if err != nil {
		return err
	}

	log.Info("config deleted", slog.String("config_id", configID), slog.Int64("tg_id", tgID))
	return nil
}
