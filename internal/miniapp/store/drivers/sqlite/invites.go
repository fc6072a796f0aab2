package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
)

type invitesRepo struct {
	db dbtx
}

func (r *invitesRepo) Create(ctx context.Context, inv domain.Invite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, code_fingerprint, role, used, created_by, expires_at, created_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)`,
		inv.ID, inv.CodeFingerprint, string(inv.Role),
		inv.CreatedBy, mapOptionalTime(inv.ExpiresAt), time.Now().UTC(),
	)
	return mapConstraint(err)
}

func (r *invitesRepo) GetActiveByFingerprint(ctx context.Context, fingerprint string) (domain.Invite, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, code_fingerprint, role, used, used_by_tg_id, used_at, created_by, expires_at, created_at
		FROM invites
		WHERE code_fingerprint = ?
		  AND used = 0
		  AND (expires_at IS NULL OR expires_at > ?)`,
		fingerprint, time.Now().UTC(),
	)

	var (
		inv       domain.Invite
		role      string
		usedBy    sql.NullInt64
		usedAt    sql.NullTime
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&inv.ID, &inv.CodeFingerprint, &role, &inv.Used,
		&usedBy, &usedAt, &inv.CreatedBy, &expiresAt, &inv.CreatedAt,
	)
	if err != nil {
		return domain.Invite{}, mapNotFound(err)
	}

	inv.Role = domain.Role(role)
	inv.UsedByTgID = mapNullInt64Ptr(usedBy)
	inv.UsedAt = mapNullTimePtr(usedAt)
	inv.ExpiresAt = mapNullTimePtr(expiresAt)
	return inv, nil
}

// MarkUsed is the unused-to-used transition. The WHERE used = 0 clause
// makes it a single conditional update, so of two concurrent redemptions
// exactly one sees a row flip and the other gets ErrNotFound.
func (r *invitesRepo) MarkUsed(ctx context.Context, inviteID string, redeemerTgID int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites SET used = 1, used_by_tg_id = ?, used_at = ?
		WHERE id = ? AND used = 0`,
		redeemerTgID, time.Now().UTC(), inviteID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *invitesRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM invites WHERE used = 0 AND expires_at IS NOT NULL AND expires_at <= ?`,
		time.Now().UTC())
	return err
}
