package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rogerio-castellano/openbarcode/internal/models"
)

const productsPath = "/api/v1/products"

// ProductPayload is the body sent on create and update. It never carries the
// product identifier; fields that coerce to nothing are omitted.
type ProductPayload struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Barcode      string             `json:"barcode,omitempty"`
	Images       string             `json:"images"`
	Status       bool               `json:"status"`
	MeasureType  models.MeasureType `json:"measure_type,omitempty"`
	MeasureValue json.Number        `json:"measure_value,omitempty"`
	Qtt          int                `json:"qtt,omitempty"`
	BrandID      *int               `json:"brand_id,omitempty"`
	CategoryIDs  []int              `json:"category_ids,omitempty"`
}

// BuildProductPayload coerces the in-memory draft into the wire payload.
// The measure value accepts "," or "." as separator; a zero or unparseable
// value is dropped, as is a zero quantity.
func BuildProductPayload(p models.Product) ProductPayload {
	payload := ProductPayload{
		Name:        p.Name,
		Description: p.Description,
		Barcode:     p.Barcode,
		Images:      p.Images,
		Status:      p.Status,
		MeasureType: p.MeasureType,
		Qtt:         p.Qtt,
		BrandID:     p.BrandID,
		CategoryIDs: p.CategoryIDs,
	}
	if v, ok := p.MeasureValue.Decimal(); ok && !v.IsZero() {
		payload.MeasureValue = json.Number(v.String())
	}
	if payload.Qtt < 0 {
		payload.Qtt = 0
	}
	return payload
}

// SearchProducts looks products up by barcode.
func (c *Client) SearchProducts(ctx context.Context, barcode string) ([]models.Product, error) {
	var products []models.Product
	path := productsPath + "/search/?barcode=" + url.QueryEscape(barcode)
	if err := c.getJSON(ctx, path, &products, "Failed to search product"); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, productsPath, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, statusError(resp, "failed to fetch products")
	}
	var products []models.Product
	if err := decodeBody(resp, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a single product. Failures carry the response status text.
func (c *Client) GetProduct(ctx context.Context, id int) (models.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, productsPath+"/"+strconv.Itoa(id), nil, "")
	if err != nil {
		return models.Product{}, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return models.Product{}, statusError(resp, "failed to fetch product details")
	}
	var p models.Product
	if err := decodeBody(resp, &p); err != nil {
		return models.Product{}, err
	}
	return p, nil
}

func (c *Client) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	var created models.Product
	err := c.sendJSON(ctx, http.MethodPost, productsPath+"/", BuildProductPayload(p), &created, "Failed to save product")
	if err != nil {
		return models.Product{}, err
	}
	return created, nil
}

// UpdateProduct replaces product id with the fields of p. p.ID is ignored.
func (c *Client) UpdateProduct(ctx context.Context, id int, p models.Product) (models.Product, error) {
	if id <= 0 {
		return models.Product{}, fmt.Errorf("invalid product ID %d", id)
	}
	var updated models.Product
	path := fmt.Sprintf("%s/%d/", productsPath, id)
	if err := c.sendJSON(ctx, http.MethodPut, path, BuildProductPayload(p), &updated, "Failed to update product"); err != nil {
		return models.Product{}, err
	}
	return updated, nil
}
