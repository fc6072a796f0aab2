package domain

import "time"

// Invite is a single-use code granting the right to create or reactivate
// one account at a fixed role. The raw code is never stored; lookups go
// through its SHA-256 fingerprint.
type Invite struct {
	ID              string
	CodeFingerprint string
	Role            Role
	Used            bool
	UsedByTgID      *int64
	UsedAt          *time.Time
	CreatedBy       string     // Account id of the issuing admin
	ExpiresAt       *time.Time // Nil means the code never expires
	CreatedAt       time.Time
}
