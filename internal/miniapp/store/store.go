package store

import (
	"context"
	"errors"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement it. Sub-repositories keep concerns tidy; none of them
// enforce authorization — that is the gate's job, and the store trusts
// its callers.
type Store interface {
	Accounts() Accounts
	Invites() Invites
	Configs() Configs
	Tariffs() Tariffs

	ApplyMigrations() error

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed. Invite redemption
	// depends on this: the code-status flip and the account upsert must
	// commit or roll back together.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store with explicit Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetByTelegramID returns the account for an external identifier,
	// active or not.
	GetByTelegramID(ctx context.Context, tgID int64) (domain.Account, error)

	// Create inserts a new account (id is provided by the app via ULID).
	// A duplicate tg_id returns ErrAlreadyExists.
	Create(ctx context.Context, a domain.Account) error

	// Upsert inserts the account or, if the tg_id already exists,
	// rewrites role, active flag and profile fields in place. Only the
	// provisioning flow calls this.
	Upsert(ctx context.Context, a domain.Account) error

	// TouchProfile refreshes first_name and username on an existing
	// account. It never creates a row and never touches role or active;
	// ErrNotFound if the account does not exist.
	TouchProfile(ctx context.Context, tgID int64, firstName, username string) error

	// List returns all accounts, admins first, then by tg_id.
	List(ctx context.Context) ([]domain.Account, error)

	SetRole(ctx context.Context, tgID int64, role domain.Role) error
	SetActive(ctx context.Context, tgID int64, active bool) error
	SetBalance(ctx context.Context, tgID int64, balanceRub float64) error
	SetTariff(ctx context.Context, tgID int64, tariffID *int64) error

	// Delete removes the account row; configs cascade via foreign key.
	Delete(ctx context.Context, tgID int64) error
}

type Invites interface {
	// Create writes a new invite. A fingerprint collision returns
	// ErrAlreadyExists so the caller can regenerate.
	Create(ctx context.Context, inv domain.Invite) error

	// GetActiveByFingerprint returns a not-used, not-expired invite.
	// Unknown, used and expired fingerprints are all ErrNotFound; the
	// caller must not be able to distinguish them.
	GetActiveByFingerprint(ctx context.Context, fingerprint string) (domain.Invite, error)

	// MarkUsed flips used=0 to used=1 with the redeemer and timestamp in
	// a single conditional update. ErrNotFound if the invite was already
	// used — the losing side of a concurrent redemption lands here.
	MarkUsed(ctx context.Context, inviteID string, redeemerTgID int64) error

	// DeleteExpired removes expired unused invites. Housekeeping only;
	// redemption re-checks expiry itself.
	DeleteExpired(ctx context.Context) error
}

type Configs interface {
	// ListByAccount returns the account's configs, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]domain.VPNConfig, error)

	Create(ctx context.Context, c domain.VPNConfig) error

	// Update rewrites title, config text and active flag. Scoped by
	// owner: ErrNotFound when the config does not belong to accountID.
	Update(ctx context.Context, id, accountID, title, configText string, active bool) error

	// Delete is scoped by owner like Update.
	Delete(ctx context.Context, id, accountID string) error
}

type Tariffs interface {
	// List returns the catalog ordered by id.
	List(ctx context.Context) ([]domain.Tariff, error)

	GetByID(ctx context.Context, id int64) (domain.Tariff, error)
}
