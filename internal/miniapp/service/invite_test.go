package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/service"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
	"github.com/nebulavpn/miniapp/internal/miniapp/store/drivers/sqlite"
	"github.com/nebulavpn/miniapp/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// testGate skips signature verification so tests can pass bare
// `user={...}` payloads. The account gating still applies.
func testGate(st store.Store) *gate.Gate {
	return gate.New(gate.Config{Secret: []byte("unused"), InsecureSkipVerify: true}, st)
}

func payloadFor(tgID int64, firstName string) string {
	return fmt.Sprintf(`user={"id":%d,"first_name":%q}`, tgID, firstName)
}

// adminIdentity seeds an active admin account and authenticates it.
func adminIdentity(t *testing.T, st store.Store, g *gate.Gate, tgID int64) gate.Identity {
	t.Helper()

	err := st.Accounts().Create(context.Background(), domain.Account{
		ID:         idx.New().String(),
		TelegramID: tgID,
		FirstName:  "Root",
		Role:       domain.RoleAdmin,
		Active:     true,
	})
	require.NoError(t, err)

	id, err := g.Authenticate(context.Background(), payloadFor(tgID, "Root"))
	require.NoError(t, err)
	return id
}

func TestInviteIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("minted code is opaque and redeemable", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g}
		admin := adminIdentity(t, st, g, 1)

		code, err := svc.Issue(ctx, admin, domain.RoleUser)
		require.NoError(t, err)
		require.Len(t, code, 22, "128 bits of base64url")

		account, err := svc.Redeem(ctx, payloadFor(7, "Ann"), code)
		require.NoError(t, err)
		require.Equal(t, int64(7), account.TelegramID)
		require.Equal(t, domain.RoleUser, account.Role)
		require.True(t, account.Active)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g}
		admin := adminIdentity(t, st, g, 1)

		_, err := svc.Issue(ctx, admin, domain.Role("superuser"))
		require.ErrorIs(t, err, service.ErrInvalidRole)
	})

	t.Run("every mint yields a distinct code", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g}
		admin := adminIdentity(t, st, g, 1)

		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			code, err := svc.Issue(ctx, admin, domain.RoleUser)
			require.NoError(t, err)
			require.False(t, seen[code])
			seen[code] = true
		}
	})
}

func TestInviteRedeem(t *testing.T) {
	ctx := context.Background()

	t.Run("single use end to end", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g}
		admin := adminIdentity(t, st, g, 1)

		code, err := svc.Issue(ctx, admin, domain.RoleUser)
		require.NoError(t, err)

		// First redeemer gets the account.
		account, err := svc.Redeem(ctx, payloadFor(7, "Ann"), code)
		require.NoError(t, err)
		require.Equal(t, int64(7), account.TelegramID)

		// Second redeemer gets the uniform rejection and no account.
		_, err = svc.Redeem(ctx, payloadFor(9, "Bob"), code)
		require.ErrorIs(t, err, service.ErrInvalidCode)

		_, err = st.Accounts().GetByTelegramID(ctx, 9)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown and used codes are indistinguishable", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g}
		admin := adminIdentity(t, st, g, 1)

		code, err := svc.Issue(ctx, admin, domain.RoleUser)
		require.NoError(t, err)
		_, err = svc.Redeem(ctx, payloadFor(7, "Ann"), code)
		require.NoError(t, err)

		_, errUsed := svc.Redeem(ctx, payloadFor(9, "Bob"), code)
		_, errUnknown := svc.Redeem(ctx, payloadFor(9, "Bob"), "no-such-code")
		_, errEmpty := svc.Redeem(ctx, payloadFor(9, "Bob"), "")
		require.ErrorIs(t, errUsed, service.ErrInvalidCode)
		require.ErrorIs(t, errUnknown, service.ErrInvalidCode)
		require.ErrorIs(t, errEmpty, service.ErrInvalidCode)
	})

	t.Run("expired code is rejected without housekeeping", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g, TTL: -time.Minute}
		admin := adminIdentity(t, st, g, 1)

		code, err := svc.Issue(ctx, admin, domain.RoleUser)
		require.NoError(t, err)

		_, err = svc.Redeem(ctx, payloadFor(7, "Ann"), code)
		require.ErrorIs(t, err, service.ErrInvalidCode)
	})

	t.Run("unverifiable redeemer is unauthenticated", func(t *testing.T) {
		st := newTestStore(t)
		// Real verification here: the payload carries no hash.
		g := gate.New(gate.Config{Secret: []byte("secret")}, st)
		svc := &service.InviteService{Store: st, Gate: g}

		_, err := svc.Redeem(ctx, payloadFor(7, "Ann"), "whatever")
		require.ErrorIs(t, err, gate.ErrUnauthenticated)
	})

	t.Run("redeeming reactivates a deactivated account", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g}
		admin := adminIdentity(t, st, g, 1)

		code, err := svc.Issue(ctx, admin, domain.RoleUser)
		require.NoError(t, err)
		first, err := svc.Redeem(ctx, payloadFor(7, "Ann"), code)
		require.NoError(t, err)

		require.NoError(t, st.Accounts().SetBalance(ctx, 7, 300))
		require.NoError(t, st.Accounts().SetActive(ctx, 7, false))

		code2, err := svc.Issue(ctx, admin, domain.RoleAdmin)
		require.NoError(t, err)
		again, err := svc.Redeem(ctx, payloadFor(7, "Ann"), code2)
		require.NoError(t, err)

		require.Equal(t, first.ID, again.ID, "same account row")
		require.True(t, again.Active)
		require.Equal(t, domain.RoleAdmin, again.Role)
		require.Equal(t, 300.0, again.BalanceRub, "balance survives re-provisioning")
	})

	t.Run("concurrent redemptions consume the code exactly once", func(t *testing.T) {
		st := newTestStore(t)
		g := testGate(st)
		svc := &service.InviteService{Store: st, Gate: g}
		admin := adminIdentity(t, st, g, 1)

		code, err := svc.Issue(ctx, admin, domain.RoleUser)
		require.NoError(t, err)

		const redeemers = 8
		errs := make([]error, redeemers)
		var wg sync.WaitGroup
		for i := 0; i < redeemers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, errs[n] = svc.Redeem(ctx, payloadFor(int64(100+n), "Racer"), code)
			}(i)
		}
		wg.Wait()

		var won int
		for _, err := range errs {
			if err == nil {
				won++
			} else {
				require.ErrorIs(t, err, service.ErrInvalidCode)
			}
		}
		require.Equal(t, 1, won, "exactly one redemption succeeds")

		accounts, err := st.Accounts().List(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 2, "the seed admin plus the single winner")
	})
}
