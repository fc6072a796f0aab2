package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, tg_id, first_name, username, role, active, balance_rub, tariff_id, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (domain.Account, error) {
	var (
		a        domain.Account
		role     string
		tariffID sql.NullInt64
	)
	err := row.Scan(
		&a.ID, &a.TelegramID, &a.FirstName, &a.Username,
		&role, &a.Active, &a.BalanceRub, &tariffID,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.Role = domain.Role(role)
	a.TariffID = mapNullInt64Ptr(tariffID)
	return a, nil
}

func (r *accountsRepo) GetByTelegramID(ctx context.Context, tgID int64) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE tg_id = ?`, tgID)

	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) Create(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, tg_id, first_name, username, role, active, balance_rub, tariff_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TelegramID, a.FirstName, a.Username,
		string(a.Role), a.Active, a.BalanceRub, mapOptionalInt64(a.TariffID),
		now, now,
	)
	return mapConstraint(err)
}

// Upsert inserts a new account or rewrites role, active and profile
// fields of an existing one. Balance, tariff and created_at of an
// existing row are deliberately left alone: a reactivated account keeps
// its history.
func (r *accountsRepo) Upsert(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, tg_id, first_name, username, role, active, balance_rub, tariff_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tg_id) DO UPDATE SET
			first_name = excluded.first_name,
			username = excluded.username,
			role = excluded.role,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		a.ID, a.TelegramID, a.FirstName, a.Username,
		string(a.Role), a.Active, a.BalanceRub, mapOptionalInt64(a.TariffID),
		now, now,
	)
	return err
}

func (r *accountsRepo) TouchProfile(ctx context.Context, tgID int64, firstName, username string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET first_name = ?, username = ?, updated_at = ?
		WHERE tg_id = ?`,
		firstName, username, time.Now().UTC(), tgID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY role = 'admin' DESC, tg_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountsRepo) SetRole(ctx context.Context, tgID int64, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET role = ?, updated_at = ? WHERE tg_id = ?`,
		string(role), time.Now().UTC(), tgID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) SetActive(ctx context.Context, tgID int64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET active = ?, updated_at = ? WHERE tg_id = ?`,
		active, time.Now().UTC(), tgID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) SetBalance(ctx context.Context, tgID int64, balanceRub float64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance_rub = ?, updated_at = ? WHERE tg_id = ?`,
		balanceRub, time.Now().UTC(), tgID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) SetTariff(ctx context.Context, tgID int64, tariffID *int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET tariff_id = ?, updated_at = ? WHERE tg_id = ?`,
		mapOptionalInt64(tariffID), time.Now().UTC(), tgID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *accountsRepo) Delete(ctx context.Context, tgID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE tg_id = ?`, tgID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow maps "no rows affected" to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
