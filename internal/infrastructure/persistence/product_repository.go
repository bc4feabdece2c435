package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/interchange/internal/domain/catalog"
	"github.com/erp/interchange/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxUpsertAttempts bounds the find/insert race loop. Two rounds suffice:
// losing the insert race means the row now exists and the next find sees it.
const maxUpsertAttempts = 3

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormProductRepository) WithTx(tx *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: tx, now: r.now}
}

// FindByNormalizedName finds a product by its identifying key
func (r *GormProductRepository) FindByNormalizedName(ctx context.Context, normalizedName string) (*catalog.Product, error) {
	var p catalog.Product
	err := r.db.WithContext(ctx).Where("normalized_name = ?", normalizedName).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindAll returns the filtered catalog ordered by normalized name
func (r *GormProductRepository) FindAll(ctx context.Context, filter catalog.ProductFilter) ([]catalog.Product, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Product{})
	if c := strings.TrimSpace(filter.Category); c != "" {
		query = query.Where("category = ?", c)
	}
	if n := catalog.NormalizeName(filter.NameContains); n != "" {
		query = query.Where(`normalized_name LIKE ? ESCAPE '\'`, "%"+escapeLike(n)+"%")
	}

	var products []catalog.Product
	if err := query.Order("normalized_name ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Upsert creates the product named by fields or updates the present fields
// of the existing one. A concurrent insert of the same key turns the losing
// insert into an update.
func (r *GormProductRepository) Upsert(ctx context.Context, fields catalog.ProductFields) (*catalog.Product, catalog.UpsertOutcome, error) {
	key := fields.Key()
	if key == "" {
		return nil, 0, shared.ErrInvalidInput.WithMessage("product name is required")
	}

	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		existing, err := r.FindByNormalizedName(ctx, key)
		switch {
		case err == nil:
			if existing.Equivalent(fields) {
				return existing, catalog.UpsertUpdated, nil
			}
			if err := r.update(ctx, existing, fields); err != nil {
				return nil, 0, err
			}
			return existing, catalog.UpsertUpdated, nil
		case !errors.Is(err, shared.ErrNotFound):
			return nil, 0, err
		}

		product, err := catalog.NewProduct(fields, r.now())
		if err != nil {
			return nil, 0, err
		}
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "normalized_name"}},
				DoNothing: true,
			}).
			Create(product)
		if result.Error != nil {
			return nil, 0, result.Error
		}
		if result.RowsAffected == 1 {
			return product, catalog.UpsertCreated, nil
		}
	}
	return nil, 0, fmt.Errorf("upsert of %q did not settle after %d attempts", key, maxUpsertAttempts)
}

func (r *GormProductRepository) update(ctx context.Context, p *catalog.Product, fields catalog.ProductFields) error {
	p.Apply(fields, r.now())

	updates := map[string]any{"updated_at": p.UpdatedAt}
	if fields.Name != nil {
		updates["name"] = p.Name
	}
	if fields.Description != nil {
		updates["description"] = p.Description
	}
	if fields.Price != nil {
		updates["price"] = p.Price
	}
	if fields.Stock != nil {
		updates["stock"] = p.Stock
	}
	if fields.Category != nil {
		updates["category"] = p.Category
	}
	if fields.Brand != nil {
		updates["brand"] = p.Brand
	}
	if fields.SKU != nil {
		updates["sku"] = p.SKU
	}
	if fields.Images != nil {
		updates["images"] = p.Images
	}

	return r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("id = ?", p.ID).
		Updates(updates).Error
}

// Count returns the number of products in the catalog
func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalog.Product{}).Count(&count).Error
	return count, err
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
