package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rogerio-castellano/openbarcode/internal/models"
)

const (
	brandsPath     = "/api/v1/brands"
	categoriesPath = "/api/v1/categories"
)

type brandPayload struct {
	Name string `json:"name"`
}

func (c *Client) SearchBrands(ctx context.Context, name string) ([]models.Brand, error) {
	var brands []models.Brand
	if err := c.getJSON(ctx, brandsPath+"/search/?name="+url.QueryEscape(name), &brands, "Search failed"); err != nil {
		return nil, err
	}
	return brands, nil
}

func (c *Client) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	if err := c.getJSON(ctx, brandsPath, &brands, "Failed to fetch brands"); err != nil {
		return nil, err
	}
	return brands, nil
}

// CreateBrand creates a brand from free text. A blank name is rejected
// without contacting the API.
func (c *Client) CreateBrand(ctx context.Context, name string) (models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Brand{}, ErrBrandNameRequired
	}

	var created models.Brand
	err := c.sendJSON(ctx, http.MethodPost, brandsPath+"/", brandPayload{Name: name}, &created, "Failed to create brand")
	if err != nil {
		return models.Brand{}, err
	}
	return created, nil
}

func (c *Client) SearchCategories(ctx context.Context, name string) ([]models.Category, error) {
	var categories []models.Category
	if err := c.getJSON(ctx, categoriesPath+"/search/?name="+url.QueryEscape(name), &categories, "Search failed"); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.getJSON(ctx, categoriesPath, &categories, "Failed to fetch categories"); err != nil {
		return nil, err
	}
	return categories, nil
}
