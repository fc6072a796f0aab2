package domain

// Tariff is read-only catalog data. The core persists references to it
// but never computes with it.
type Tariff struct {
	ID       int64
	Name     string
	Months   int
	PriceRub float64
}
