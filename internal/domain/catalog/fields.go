package catalog

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Field names a catalog attribute that import mappings may target and
// exports may emit as a column.
type Field string

const (
	FieldName        Field = "name"
	FieldDescription Field = "description"
	FieldPrice       Field = "price"
	FieldStock       Field = "stock"
	FieldCategory    Field = "category"
	FieldBrand       Field = "brand"
	FieldSKU         Field = "sku"
	FieldImages      Field = "images"
)

// AllFields lists the closed set of catalog fields in wire order
var AllFields = []Field{
	FieldName,
	FieldDescription,
	FieldPrice,
	FieldStock,
	FieldCategory,
	FieldBrand,
	FieldSKU,
	FieldImages,
}

// Storage bounds of numeric fields. Price is stored as DECIMAL(18,4) and
// stock as a 32-bit INTEGER.
const (
	PriceScale int32 = 4
	MaxStock         = math.MaxInt32
)

// PriceLimit is the exclusive upper bound of a storable price
var PriceLimit = decimal.New(1, 18-PriceScale)

// RequiredFields must be present on every imported row
var RequiredFields = []Field{FieldName, FieldPrice}

// IsValid reports whether the field belongs to the closed set
func (f Field) IsValid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// IsRequired reports whether the field is mandatory on import
func (f Field) IsRequired() bool {
	for _, req := range RequiredFields {
		if f == req {
			return true
		}
	}
	return false
}

// FieldNames returns the wire names of the given fields
func FieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

// Images is an ordered list of image URLs stored as pipe-joined text
type Images []string

// ParseImages splits a pipe-separated cell into image URLs, dropping blanks.
// The result is never nil so an empty cell clears the list on update.
func ParseImages(cell string) Images {
	images := Images{}
	for _, part := range strings.Split(cell, ImageSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			images = append(images, part)
		}
	}
	return images
}

// String joins the images with the wire separator
func (i Images) String() string {
	return strings.Join(i, ImageSeparator)
}

// Value implements driver.Valuer
func (i Images) Value() (driver.Value, error) {
	return i.String(), nil
}

// Scan implements sql.Scanner
func (i *Images) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*i = Images{}
	case string:
		*i = ParseImages(v)
	case []byte:
		*i = ParseImages(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Images", value)
	}
	return nil
}
