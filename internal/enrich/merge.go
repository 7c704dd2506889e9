package enrich

import "github.com/rogerio-castellano/openbarcode/internal/models"

// MergePolicy decides which side wins when both the draft and the external
// record carry a value.
type MergePolicy int

const (
	// PreferExternal overwrites name and description with external values
	// when present.
	PreferExternal MergePolicy = iota
	// PreferLocal only fills fields the draft leaves empty.
	PreferLocal
)

func (p MergePolicy) String() string {
	if p == PreferLocal {
		return "prefer-local"
	}
	return "prefer-external"
}

// Merge copies name, description and brand from r into p. The brand is
// synthesized with ID 0 from the external brand name; every other field of
// p is left alone.
func Merge(p models.Product, r Result, policy MergePolicy) models.Product {
	description := firstNonEmpty(r.GenericName, r.ProductName)

	switch policy {
	case PreferLocal:
		if p.Name == "" {
			p.Name = r.ProductName
		}
		if p.Description == "" {
			p.Description = description
		}
		if p.Brand == nil && r.Brands != "" {
			p.Brand = &models.Brand{ID: 0, Name: r.Brands}
		}
	default:
		p.Name = firstNonEmpty(r.ProductName, p.Name)
		p.Description = firstNonEmpty(description, p.Description)
		if r.Brands != "" {
			p.Brand = &models.Brand{ID: 0, Name: r.Brands}
		}
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
