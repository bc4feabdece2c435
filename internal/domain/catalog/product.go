package catalog

import (
	"strings"
	"time"

	"github.com/erp/interchange/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ImageSeparator separates multiple image URLs inside one CSV cell
const ImageSeparator = "|"

// Product is a catalog entry addressed by its normalized name.
// NormalizedName is the identifying key used by bulk import upserts.
type Product struct {
	shared.BaseEntity
	Name           string          `gorm:"type:varchar(255);not null"`
	NormalizedName string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_products_normalized_name"`
	Description    string          `gorm:"type:text"`
	Price          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Stock          int             `gorm:"not null;default:0"`
	Category       string          `gorm:"type:varchar(100);index"`
	Brand          string          `gorm:"type:varchar(100)"`
	SKU            string          `gorm:"column:sku;type:varchar(100)"`
	Images         Images          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NormalizeName produces the identifying key for a product name:
// trimmed, lower-cased, with inner whitespace runs collapsed.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// NewProduct creates a product from a validated field set
func NewProduct(fields ProductFields, now time.Time) (*Product, error) {
	if fields.Name == nil || strings.TrimSpace(*fields.Name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	p := &Product{
		BaseEntity: shared.NewBaseEntityAt(now),
		Price:      decimal.Zero,
	}
	p.Apply(fields, now)
	return p, nil
}

// Apply copies every field present in the set onto the product.
// Absent fields keep their current value.
func (p *Product) Apply(fields ProductFields, now time.Time) {
	if fields.Name != nil {
		p.Name = strings.TrimSpace(*fields.Name)
		p.NormalizedName = NormalizeName(p.Name)
	}
	if fields.Description != nil {
		p.Description = *fields.Description
	}
	if fields.Price != nil {
		p.Price = *fields.Price
	}
	if fields.Stock != nil {
		p.Stock = *fields.Stock
	}
	if fields.Category != nil {
		p.Category = *fields.Category
	}
	if fields.Brand != nil {
		p.Brand = *fields.Brand
	}
	if fields.SKU != nil {
		p.SKU = *fields.SKU
	}
	if fields.Images != nil {
		p.Images = fields.Images
	}
	p.Touch(now)
}

// Equivalent reports whether applying the field set would leave the
// product unchanged.
func (p *Product) Equivalent(fields ProductFields) bool {
	if fields.Name != nil && strings.TrimSpace(*fields.Name) != p.Name {
		return false
	}
	if fields.Description != nil && *fields.Description != p.Description {
		return false
	}
	if fields.Price != nil && !fields.Price.Equal(p.Price) {
		return false
	}
	if fields.Stock != nil && *fields.Stock != p.Stock {
		return false
	}
	if fields.Category != nil && *fields.Category != p.Category {
		return false
	}
	if fields.Brand != nil && *fields.Brand != p.Brand {
		return false
	}
	if fields.SKU != nil && *fields.SKU != p.SKU {
		return false
	}
	if fields.Images != nil && fields.Images.String() != p.Images.String() {
		return false
	}
	return true
}

// ProductFields is a sparse set of product attributes.
// A nil pointer means the field was not supplied.
type ProductFields struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	Brand       *string
	SKU         *string
	Images      Images
}

// Key returns the identifying key for the field set, or "" when no name is set
func (f ProductFields) Key() string {
	if f.Name == nil {
		return ""
	}
	return NormalizeName(*f.Name)
}
