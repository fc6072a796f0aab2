package service_test

import (
	"context"
	"testing"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/stretchr/testify/require"
)

func TestAccountPayload(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	g := testGate(st)
	svc := &service.AccountService{Store: st}
	admin := adminIdentity(t, st, g, 1)

	t.Run("without tariff", func(t *testing.T) {
		payload, err := svc.Payload(ctx, admin)
		require.NoError(t, err)
		require.Equal(t, int64(1), payload.Account.TelegramID)
		require.Nil(t, payload.Tariff)
	})

	t.Run("with tariff joined from catalog", func(t *testing.T) {
		two := int64(2)
		require.NoError(t, svc.SetTariff(ctx, 1, &two))

		payload, err := svc.Payload(ctx, admin)
		require.NoError(t, err)
		require.NotNil(t, payload.Tariff)
		require.Equal(t, "Half-year", payload.Tariff.Name)
		require.Equal(t, 6, payload.Tariff.Months)
	})
}

func TestAccountAdminOps(t *testing.T) {
	ctx := context.Background()

	t.Run("set role validates the role", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.AccountService{Store: st}
		adminIdentity(t, st, g, 1)

		require.ErrorIs(t, svc.SetRole(ctx, 1, "owner"), service.ErrInvalidRole)
		require.NoError(t, svc.SetRole(ctx, 1, domain.RoleUser))
		require.ErrorIs(t, svc.SetRole(ctx, 404, domain.RoleUser), service.ErrAccountNotFound)
	})

	t.Run("set balance rejects negatives", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.AccountService{Store: st}
		adminIdentity(t, st, g, 1)

		require.ErrorIs(t, svc.SetBalance(ctx, 1, -1), service.ErrNegativeBalance)
		require.NoError(t, svc.SetBalance(ctx, 1, 499.5))

		got, err := st.Accounts().GetByTelegramID(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, 499.5, got.BalanceRub)
	})

	t.Run("set tariff checks the catalog and clears with nil", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.AccountService{Store: st}
		adminIdentity(t, st, g, 1)

		bad := int64(99)
		require.ErrorIs(t, svc.SetTariff(ctx, 1, &bad), service.ErrUnknownTariff)

		one := int64(1)
		require.NoError(t, svc.SetTariff(ctx, 1, &one))
		require.NoError(t, svc.SetTariff(ctx, 1, nil))

		got, err := st.Accounts().GetByTelegramID(ctx, 1)
		require.NoError(t, err)
		require.Nil(t, got.TariffID)
	})

	t.Run("deactivation closes the gate, reactivation reopens it", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.AccountService{Store: st}
		adminIdentity(t, st, g, 1)

		require.NoError(t, svc.SetActive(ctx, 1, false))
		_, err := g.Authenticate(ctx, payloadFor(1, "Root"))
		require.ErrorIs(t, err, gate.ErrForbidden)

		require.NoError(t, svc.SetActive(ctx, 1, true))
		_, err = g.Authenticate(ctx, payloadFor(1, "Root"))
		require.NoError(t, err)
	})

	t.Run("delete removes the row", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.AccountService{Store: st}
		adminIdentity(t, st, g, 1)

		require.NoError(t, svc.Delete(ctx, 1))
		_, err := st.Accounts().GetByTelegramID(ctx, 1)
		require.ErrorIs(t, err, store.ErrNotFound)
		require.ErrorIs(t, svc.Delete(ctx, 1), service.ErrAccountNotFound)
	})
}
