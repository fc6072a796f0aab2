package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
)

type configsRepo struct {
	db dbtx
}

func (r *configsRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.VPNConfig, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, title, config_text, active, expires_at, created_at
		FROM configs WHERE account_id = ? ORDER BY id DESC`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.VPNConfig
	for rows.Next() {
		var (
			c         domain.VPNConfig
			expiresAt sql.NullTime
		)
		err := rows.Scan(&c.ID, &c.AccountID, &c.Title, &c.ConfigText,
			&c.Active, &expiresAt, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		c.ExpiresAt = mapNullTimePtr(expiresAt)
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

func (r *configsRepo) Create(ctx context.Context, c domain.VPNConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO configs (id, account_id, title, config_text, active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.Title, c.ConfigText, c.Active,
		mapOptionalTime(c.ExpiresAt), time.Now().UTC(),
	)
	return err
}

func (r *configsRepo) Update(ctx context.Context, id, accountID, title, configText string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE configs SET title = ?, config_text = ?, active = ?
		WHERE id = ? AND account_id = ?`,
		title, configText, active, id, accountID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *configsRepo) Delete(ctx context.Context, id, accountID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM configs WHERE id = ? AND account_id = ?`, id, accountID)
	if err != nil {
		return err
	}
	return requireRow(res)
}
