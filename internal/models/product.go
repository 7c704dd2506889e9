package models

// MeasureType is the unit a product's measure value is expressed in.
type MeasureType string

const (
	MeasureLiter      MeasureType = "l"
	MeasureMilliliter MeasureType = "ml"
	MeasureKilogram   MeasureType = "kg"
	MeasureGram       MeasureType = "g"
	MeasureUnit       MeasureType = "un"
)

// MeasureTypes lists the accepted units in display order.
var MeasureTypes = []MeasureType{MeasureLiter, MeasureMilliliter, MeasureKilogram, MeasureGram, MeasureUnit}

// Valid reports whether m is one of the known units.
func (m MeasureType) Valid() bool {
	for _, t := range MeasureTypes {
		if m == t {
			return true
		}
	}
	return false
}

// Product represents a catalog entry as returned by the catalog API.
type Product struct {
	ID           int         `json:"id,omitempty"`
	Name         string      `json:"name" validate:"required"`
	Description  string      `json:"description"`
	Barcode      string      `json:"barcode"`
	Images       string      `json:"images"`
	Status       bool        `json:"status"`
	MeasureType  MeasureType `json:"measure_type" validate:"omitempty,oneof=l ml kg g un"`
	MeasureValue DecimalText `json:"measure_value"`
	Qtt          int         `json:"qtt" validate:"gte=0"`
	BrandID      *int        `json:"brand_id"`
	Brand        *Brand      `json:"brand"`
	CategoryIDs  []int       `json:"category_ids,omitempty"`
	Categories   []Category  `json:"categories,omitempty"`
	CreatedAt    string      `json:"created_at,omitempty"`
	UpdatedAt    string      `json:"updated_at,omitempty"`
}

// NewDraft returns the blank product seeded for a barcode the catalog does not know.
func NewDraft(barcode string) Product {
	return Product{
		Barcode:     barcode,
		Status:      true,
		MeasureType: MeasureUnit,
		Qtt:         1,
	}
}

// Brand is the manufacturer or label a product is sold under.
type Brand struct {
	ID      int    `json:"id"`
	Name    string `json:"name" validate:"required"`
	LogoURL string `json:"logo_url,omitempty"`
}

type Category struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
