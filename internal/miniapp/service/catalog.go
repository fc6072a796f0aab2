package service

import (
	"context"

	"github.com/nebulavpn/miniapp/internal/miniapp/domain"
	"github.com/nebulavpn/miniapp/internal/miniapp/store"
)

// CatalogService exposes the tariff catalog. Read-only; the catalog is
// seeded by migrations and edited out of band.
type CatalogService struct {
	Store store.Store
}

func (s *CatalogService) Tariffs(ctx context.Context) ([]domain.Tariff, error) {
	return s.Store.Tariffs().List(ctx)
}
