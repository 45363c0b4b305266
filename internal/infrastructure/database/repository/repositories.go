package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories bundles the per-table repositories over one pool.
type Repositories struct {
	Listings  *ListingRepository
	Locations *LocationRepository
	Media     *MediaRepository
	Prices    *PriceRepository
	Frauds    *FraudRepository
}

// New creates all repositories over the given pool
func New(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Listings:  NewListingRepository(pool),
		Locations: NewLocationRepository(pool),
		Media:     NewMediaRepository(pool),
		Prices:    NewPriceRepository(pool),
		Frauds:    NewFraudRepository(pool),
	}
}
