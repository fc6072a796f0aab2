package gate_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/gate"
	"github.com/nebulavpn/miniapp/internal/miniapp/store/drivers/sqlite"
	"github.com/nebulavpn/miniapp/pkg/idx"
	"github.com/nebulavpn/miniapp/pkg/initdata"
	"github.com/stretchr/testify/require"
)

const testSecret = "123456:test-bot-token"

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

// signedPayload builds a raw init payload whose hash is valid under
// testSecret.
func signedPayload(t *testing.T, fields initdata.Fields) string {
	t.Helper()

	hash := initdata.Sign(fields, []byte(testSecret))
	raw := ""
	for k, v := range fields {
		raw += url.QueryEscape(k) + "=" + url.QueryEscape(v) + "&"
	}
	return raw + "hash=" + hash
}

func userPayload(t *testing.T, tgID int64, firstName, username string) string {
	t.Helper()

	user := fmt.Sprintf(`{"id":%d,"first_name":%q,"username":%q}`, tgID, firstName, username)
	return signedPayload(t, initdata.Fields{
		"user":      user,
		"auth_date": "1700000000",
	})
}

func seedAccount(t *testing.T, st *sqlite.Store, tgID int64, role domain.Role, active bool) {
	t.Helper()

	require.NoError(t, st.Accounts().Create(context.Background(), domain.Account{
		ID:         idx.New().String(),
		TelegramID: tgID,
		FirstName:  "Ann",
		Username:   "ann42",
		Role:       role,
		Active:     active,
	}))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("active account passes and profile is refreshed", func(t *testing.T) {
		st := newTestStore(t)
		seedAccount(t, st, 42, domain.RoleUser, true)
		g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

		id, err := g.Authenticate(ctx, userPayload(t, 42, "Annie", "annie"))
		require.NoError(t, err)
		require.Equal(t, int64(42), id.TelegramID())
		require.Equal(t, domain.RoleUser, id.Role())
		require.False(t, id.IsAdmin())
		require.Equal(t, "Annie", id.FirstName())

		got, err := st.Accounts().GetByTelegramID(ctx, 42)
		require.NoError(t, err)
		require.Equal(t, "Annie", got.FirstName)
		require.Equal(t, "annie", got.Username)
	})

	t.Run("tampered payload is unauthenticated", func(t *testing.T) {
		st := newTestStore(t)
		seedAccount(t, st, 42, domain.RoleUser, true)
		g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

		raw := userPayload(t, 42, "Ann", "ann42") + "x"
		_, err := g.Authenticate(ctx, raw)
		require.ErrorIs(t, err, gate.ErrUnauthenticated)
	})

	t.Run("missing hash is unauthenticated", func(t *testing.T) {
		st := newTestStore(t)
		g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

		_, err := g.Authenticate(ctx, `user={"id":42}&auth_date=1700000000`)
		require.ErrorIs(t, err, gate.ErrUnauthenticated)
	})

	t.Run("valid payload without a user claim is unauthenticated", func(t *testing.T) {
		st := newTestStore(t)
		g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

		raw := signedPayload(t, initdata.Fields{"auth_date": "1700000000"})
		_, err := g.Authenticate(ctx, raw)
		require.ErrorIs(t, err, gate.ErrUnauthenticated)
	})

	t.Run("no account is forbidden, not unauthenticated", func(t *testing.T) {
		st := newTestStore(t)
		g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

		_, err := g.Authenticate(ctx, userPayload(t, 42, "Ann", "ann42"))
		require.ErrorIs(t, err, gate.ErrForbidden)
		require.NotErrorIs(t, err, gate.ErrUnauthenticated)
	})

	t.Run("inactive account is forbidden", func(t *testing.T) {
		st := newTestStore(t)
		seedAccount(t, st, 42, domain.RoleUser, false)
		g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

		_, err := g.Authenticate(ctx, userPayload(t, 42, "Ann", "ann42"))
		require.ErrorIs(t, err, gate.ErrForbidden)
	})

	t.Run("skip-verify still requires an account", func(t *testing.T) {
		st := newTestStore(t)
		g := gate.New(gate.Config{Secret: []byte(testSecret), InsecureSkipVerify: true}, st)

		// Unsigned payload: accepted for identity, still gated on account.
		_, err := g.Authenticate(ctx, `user={"id":42,"first_name":"Ann"}`)
		require.ErrorIs(t, err, gate.ErrForbidden)

		seedAccount(t, st, 42, domain.RoleUser, true)
		id, err := g.Authenticate(ctx, `user={"id":42,"first_name":"Ann"}`)
		require.NoError(t, err)
		require.Equal(t, int64(42), id.TelegramID())
	})
}

func TestVerifyClaim(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

	// VerifyClaim never consults the account store.
	claim, err := g.VerifyClaim(ctx, userPayload(t, 7, "Bob", "bob"))
	require.NoError(t, err)
	require.Equal(t, int64(7), claim.ID)
	require.Equal(t, "Bob", claim.FirstName)

	// A zero id claim is no identity at all.
	raw := signedPayload(t, initdata.Fields{"user": `{"id":0}`, "auth_date": "1700000000"})
	_, err = g.VerifyClaim(ctx, raw)
	require.ErrorIs(t, err, gate.ErrUnauthenticated)
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	g := gate.New(gate.Config{Secret: []byte(testSecret)}, st)

	seedAccount(t, st, 1, domain.RoleAdmin, true)
	seedAccount(t, st, 2, domain.RoleUser, true)

	admin, err := g.Authenticate(ctx, userPayload(t, 1, "Root", "root"))
	require.NoError(t, err)
	require.NoError(t, g.RequireAdmin(admin))

	user, err := g.Authenticate(ctx, userPayload(t, 2, "Ann", "ann42"))
	require.NoError(t, err)
	require.ErrorIs(t, g.RequireAdmin(user), gate.ErrForbidden)
}
