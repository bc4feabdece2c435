package catalog

import (
	"context"
)

// UpsertOutcome tells whether an upsert inserted or updated a product
type UpsertOutcome int

const (
	UpsertCreated UpsertOutcome = iota + 1
	UpsertUpdated
)

// ProductFilter narrows a catalog snapshot
type ProductFilter struct {
	Category     string
	NameContains string
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByNormalizedName finds a product by its identifying key
	FindByNormalizedName(ctx context.Context, normalizedName string) (*Product, error)

	// FindAll returns the catalog snapshot matching the filter,
	// ordered by normalized name
	FindAll(ctx context.Context, filter ProductFilter) ([]Product, error)

	// Upsert creates the product identified by fields.Key() or updates the
	// fields present on the existing one. Safe under concurrent calls for
	// the same key.
	Upsert(ctx context.Context, fields ProductFields) (*Product, UpsertOutcome, error)

	// Count returns the number of products in the catalog
	Count(ctx context.Context) (int64, error)
}
