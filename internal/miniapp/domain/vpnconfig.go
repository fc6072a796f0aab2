package domain

import "time"

// VPNConfig is a named connection config owned by an account. Deleting
// the account cascades to its configs.
type VPNConfig struct {
	ID         string
	AccountID  string
	Title      string
	ConfigText string
	Active     bool
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}
