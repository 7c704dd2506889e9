package fakeapi

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/openbarcode/internal/models"
)

var (
	ErrProductNotFound  = errors.New("Product not found")
	ErrBrandNotFound    = errors.New("Brand not found")
	ErrCategoryNotFound = errors.New("Category not found")
	ErrImageNotFound    = errors.New("Image not found")
	ErrDuplicateBarcode = errors.New("Product with this barcode already exists")
	ErrDuplicateBrand   = errors.New("Brand with this name already exists")
)

// ProductFilter selects products by case-insensitive substring. Empty fields
// match everything.
type ProductFilter struct {
	Name    string
	Barcode string
}

type storedImage struct {
	meta        models.UploadedImage
	contentType string
	data        []byte
}

// Store is an in-memory catalog. It is safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	products      []models.Product
	brands        []models.Brand
	categories    []models.Category
	images        map[string]storedImage
	nextProductID int
	nextBrandID   int
	nextCatID     int
}

func NewStore() *Store {
	return &Store{
		products:      []models.Product{},
		brands:        []models.Brand{},
		categories:    []models.Category{},
		images:        map[string]storedImage{},
		nextProductID: 1,
		nextBrandID:   1,
		nextCatID:     1,
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func matchesFilter(p models.Product, pf ProductFilter) bool {
	if pf.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(pf.Name)) {
		return false
	}
	if pf.Barcode != "" && p.Barcode != pf.Barcode {
		return false
	}
	return true
}

// CreateProduct stores p under a new ID after checking barcode uniqueness and
// references.
func (s *Store) CreateProduct(p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Barcode != "" && s.barcodeTaken(p.Barcode, 0) {
		return models.Product{}, ErrDuplicateBarcode
	}
	if err := s.checkRefs(p); err != nil {
		return models.Product{}, err
	}

	p.ID = s.nextProductID
	s.nextProductID++
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	p.Brand, p.Categories = nil, nil
	s.products = append(s.products, p)
	return s.expand(p), nil
}

func (s *Store) GetAll() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, len(s.products))
	for i, p := range s.products {
		out[i] = s.expand(p)
	}
	return out
}

func (s *Store) GetByID(id int) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, ErrProductNotFound
	}
	return s.expand(s.products[i]), nil
}

func (s *Store) Filter(pf ProductFilter) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := []models.Product{}
	for _, p := range s.products {
		if matchesFilter(p, pf) {
			filtered = append(filtered, s.expand(p))
		}
	}
	return filtered
}

// UpdateProduct replaces the stored fields of product id with p.
func (s *Store) UpdateProduct(id int, p models.Product) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.productIndex(id)
	if i < 0 {
		return models.Product{}, ErrProductNotFound
	}
	existing := s.products[i]
	if p.Barcode != "" && p.Barcode != existing.Barcode && s.barcodeTaken(p.Barcode, id) {
		return models.Product{}, ErrDuplicateBarcode
	}
	if err := s.checkRefs(p); err != nil {
		return models.Product{}, err
	}

	p.ID = id
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = now()
	p.Brand, p.Categories = nil, nil
	s.products[i] = p
	return s.expand(p), nil
}

func (s *Store) DeleteProduct(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.productIndex(id)
	if i < 0 {
		return ErrProductNotFound
	}
	s.products = slices.Delete(s.products, i, i+1)
	return nil
}

func (s *Store) CreateBrand(name string) (models.Brand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.brands {
		if strings.EqualFold(b.Name, name) {
			return models.Brand{}, ErrDuplicateBrand
		}
	}
	b := models.Brand{ID: s.nextBrandID, Name: name}
	s.nextBrandID++
	s.brands = append(s.brands, b)
	return b, nil
}

func (s *Store) Brands(query string) []models.Brand {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Brand{}
	for _, b := range s.brands {
		if query == "" || strings.Contains(strings.ToLower(b.Name), strings.ToLower(query)) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) CreateCategory(name, description string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := models.Category{ID: s.nextCatID, Name: name, Description: description}
	s.nextCatID++
	s.categories = append(s.categories, c)
	return c
}

func (s *Store) Categories(query string) []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Category{}
	for _, c := range s.categories {
		if query == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(query)) {
			out = append(out, c)
		}
	}
	return out
}

// PutImage stores data and addresses it by the hex MD5 of its content, the
// same ETag an S3-compatible store reports for a single-part upload.
func (s *Store) PutImage(filename, contentType string, data []byte) models.UploadedImage {
	sum := md5.Sum(data)
	etag := hex.EncodeToString(sum[:])

	meta := models.UploadedImage{
		ObjectName:   uuid.NewString() + filepath.Ext(filename),
		ETag:         etag,
		Size:         int64(len(data)),
		LastModified: now(),
	}

	s.mu.Lock()
	s.images[etag] = storedImage{meta: meta, contentType: contentType, data: data}
	s.mu.Unlock()
	return meta
}

func (s *Store) Image(etag string) (models.UploadedImage, string, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[etag]
	if !ok {
		return models.UploadedImage{}, "", nil, ErrImageNotFound
	}
	return img.meta, img.contentType, img.data, nil
}

func (s *Store) DeleteImage(etag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[etag]; !ok {
		return ErrImageNotFound
	}
	delete(s.images, etag)
	return nil
}

// Clear drops every stored record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = []models.Product{}
	s.brands = []models.Brand{}
	s.categories = []models.Category{}
	s.images = map[string]storedImage{}
}

func (s *Store) productIndex(id int) int {
	return slices.IndexFunc(s.products, func(p models.Product) bool { return p.ID == id })
}

func (s *Store) barcodeTaken(barcode string, exceptID int) bool {
	for _, p := range s.products {
		if p.Barcode == barcode && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) checkRefs(p models.Product) error {
	if p.BrandID != nil && *p.BrandID != 0 {
		if _, ok := s.brand(*p.BrandID); !ok {
			return ErrBrandNotFound
		}
	}
	for _, id := range p.CategoryIDs {
		if !slices.ContainsFunc(s.categories, func(c models.Category) bool { return c.ID == id }) {
			return ErrCategoryNotFound
		}
	}
	return nil
}

func (s *Store) brand(id int) (models.Brand, bool) {
	for _, b := range s.brands {
		if b.ID == id {
			return b, true
		}
	}
	return models.Brand{}, false
}

// expand fills the denormalized brand and categories of a stored product.
func (s *Store) expand(p models.Product) models.Product {
	if p.BrandID != nil {
		if b, ok := s.brand(*p.BrandID); ok {
			p.Brand = &b
		}
	}
	if len(p.CategoryIDs) > 0 {
		p.Categories = []models.Category{}
		for _, c := range s.categories {
			if slices.Contains(p.CategoryIDs, c.ID) {
				p.Categories = append(p.Categories, c)
			}
		}
	}
	if v, ok := p.MeasureValue.Decimal(); ok {
		p.MeasureValue = models.DecimalText(v.StringFixed(4))
	}
	return p
}
