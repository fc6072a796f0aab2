package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/stretchr/testify/require"
)

func TestVPNConfigs(t *testing.T) {
	ctx := context.Background()

	t.Run("connections are scoped to the caller", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.VPNService{Store: st}
		admin := adminIdentity(t, st, g, 1)

		_, err := svc.AddConfig(ctx, 1, "Germany #1", "vless://de-1", nil)
		require.NoError(t, err)
		_, err = svc.AddConfig(ctx, 1, "Germany #2", "vless://de-2", nil)
		require.NoError(t, err)

		configs, err := svc.Connections(ctx, admin)
		require.NoError(t, err)
		require.Len(t, configs, 2)
		require.Equal(t, "Germany #2", configs[0].Title, "newest first")
	})

	t.Run("add validates input and target", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.VPNService{Store: st}
		adminIdentity(t, st, g, 1)

		_, err := svc.AddConfig(ctx, 1, "", "vless://de-1", nil)
		require.ErrorIs(t, err, service.ErrEmptyConfig)

		_, err = svc.AddConfig(ctx, 404, "Germany #1", "vless://de-1", nil)
		require.ErrorIs(t, err, service.ErrAccountNotFound)
	})

	t.Run("update and delete are owner scoped", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.VPNService{Store: st}
		admin := adminIdentity(t, st, g, 1)
		other := adminIdentity(t, st, g, 2)
		_ = other

		cfg, err := svc.AddConfig(ctx, 1, "Germany #1", "vless://de-1", nil)
		require.NoError(t, err)

		// A config id under the wrong account resolves nothing.
		err = svc.UpdateConfig(ctx, 2, cfg.ID, "Hijack", "vless://evil", true)
		require.ErrorIs(t, err, service.ErrConfigNotFound)
		require.ErrorIs(t, svc.DeleteConfig(ctx, 2, cfg.ID), service.ErrConfigNotFound)

		require.NoError(t, svc.UpdateConfig(ctx, 1, cfg.ID, "Germany #1 (new)", "vless://de-1b", false))

		configs, err := svc.Connections(ctx, admin)
		require.NoError(t, err)
		require.Equal(t, "Germany #1 (new)", configs[0].Title)
		require.False(t, configs[0].Active)

		require.NoError(t, svc.DeleteConfig(ctx, 1, cfg.ID))
		configs, err = svc.Connections(ctx, admin)
		require.NoError(t, err)
		require.Empty(t, configs)
	})

	t.Run("expiry round-trips", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.VPNService{Store: st}
		admin := adminIdentity(t, st, g, 1)

		until := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)
		_, err := svc.AddConfig(ctx, 1, "Germany #1", "vless://de-1", &until)
		require.NoError(t, err)

		configs, err := svc.Connections(ctx, admin)
		require.NoError(t, err)
		require.NotNil(t, configs[0].ExpiresAt)
		require.WithinDuration(t, until, *configs[0].ExpiresAt, time.Second)
	})
}

func TestBootstrapSeed(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the admin once", func(t *testing.T) {
		st := newTestStore(t)
		one := int64(1)
		svc := &service.BootstrapService{
			Store: st, AdminTgID: 99, AdminName: "Root", AdminUsername: "root",
			AdminBalanceRub: 500, AdminTariffID: &one,
		}

		require.NoError(t, svc.Seed(ctx))

		got, err := st.Accounts().GetByTelegramID(ctx, 99)
		require.NoError(t, err)
		require.True(t, got.Active)
		require.Equal(t, "root", got.Username)
		require.Equal(t, 500.0, got.BalanceRub)
		require.NotNil(t, got.TariffID)
		require.Equal(t, one, *got.TariffID)

		// Second run leaves operator changes alone.
		require.NoError(t, st.Accounts().SetActive(ctx, 99, false))
		require.NoError(t, svc.Seed(ctx))
		got, err = st.Accounts().GetByTelegramID(ctx, 99)
		require.NoError(t, err)
		require.False(t, got.Active)
	})

	t.Run("zero id disables seeding", func(t *testing.T) {
		st := newTestStore(t)
		svc := &service.BootstrapService{Store: st}

		require.NoError(t, svc.Seed(ctx))
		accounts, err := st.Accounts().List(ctx)
		require.NoError(t, err)
		require.Empty(t, accounts)
	})
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &service.CatalogService{Store: st}

	tariffs, err := svc.Tariffs(ctx)
	require.NoError(t, err)
	require.Len(t, tariffs, 3)
	require.Equal(t, "Basic", tariffs[0].Name)
	require.Equal(t, 150.0, tariffs[0].PriceRub)
}
