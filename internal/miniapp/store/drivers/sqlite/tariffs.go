package sqlite

import (
	"context"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
)

type tariffsRepo struct {
	db dbtx
}

func (r *tariffsRepo) List(ctx context.Context) ([]domain.Tariff, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, months, price_rub FROM tariffs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tariffs []domain.Tariff
	for rows.Next() {
		var t domain.Tariff
		if err := rows.Scan(&t.ID, &t.Name, &t.Months, &t.PriceRub); err != nil {
			return nil, err
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}

func (r *tariffsRepo) GetByID(ctx context.Context, id int64) (domain.Tariff, error) {
	var t domain.Tariff
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, months, price_rub FROM tariffs WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Months, &t.PriceRub)
	if err != nil {
		return domain.Tariff{}, mapNotFound(err)
	}
	return t, nil
}
