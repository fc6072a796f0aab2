package domain

import "time"

// Role is the authorization level of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account is a provisioned user of the mini app, keyed by the Telegram
// user id. Inactive accounts are retained but treated as nonexistent by
// every gated operation.
type Account struct {
	ID         string // Internal surrogate id (ULID)
	TelegramID int64  // External platform identifier, immutable
	FirstName  string
	Username   string
	Role       Role
	Active     bool
	BalanceRub float64
	TariffID   *int64 // Nullable reference into the tariffs table
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
