package scan

import "github.com/rogerio-castellano/openbarcode/internal/models"

// Draft is the product a session is editing. It is one of NotLoaded, Found
// or NewDraft; switch on the concrete type to handle every case.
type Draft interface {
	isDraft()
}

// NotLoaded means no lookup has produced a product yet.
type NotLoaded struct{}

// Found holds a product loaded from the catalog; saving updates it.
type Found struct {
	Product models.Product
}

// NewDraft holds a blank product seeded with a barcode the catalog does not
// know; saving creates it.
type NewDraft struct {
	Product models.Product
}

func (NotLoaded) isDraft() {}
func (Found) isDraft() {}
func (NewDraft) isDraft() {}

// ProductOf returns the product carried by d.
func ProductOf(d Draft) (models.Product, bool) {
	switch v := d.(type) {
	case Found:
		return v.Product, true
	case NewDraft:
		return v.Product, true
	default:
		return models.Product{}, false
	}
}

// replaceProduct returns d with its product swapped for p, keeping the variant.
func replaceProduct(d Draft, p models.Product) Draft {
	switch d.(type) {
	case Found:
		return Found{Product: p}
	case NewDraft:
		return NewDraft{Product: p}
	default:
		return d
	}
}
