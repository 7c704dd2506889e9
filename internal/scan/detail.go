package scan

import (
	"context"
	"sync"

	"github.com/rogerio-castellano/openbarcode/internal/imageurl"
	"github.com/rogerio-castellano/openbarcode/internal/logging"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"go.uber.org/zap"
)

// ProductEditor is the part of the catalog API the detail flow needs.
type ProductEditor interface {
	GetProduct(ctx context.Context, id int) (models.Product, error)
	UpdateProduct(ctx context.Context, id int, p models.Product) (models.Product, error)
}

// Detail edits one existing product by id. Unlike Session, every field
// including the barcode may be changed.
type Detail struct {
	store    ProductEditor
	notifier Notifier
	log      *zap.Logger

	mu      sync.Mutex
	product *models.Product
}

func NewDetail(store ProductEditor, n Notifier, log *zap.Logger) *Detail {
	if n == nil {
		n = discardNotifier{}
	}
	return &Detail{store: store, notifier: n, log: logging.OrNop(log)}
}

func (d *Detail) Load(ctx context.Context, id int) (models.Product, error) {
	p, err := d.store.GetProduct(ctx, id)
	if err != nil {
		d.log.Warn("product load failed", zap.Int("id", id), zap.Error(err))
		d.notifier.Notify(Notice{Level: LevelError, Title: "Error", Message: err.Error()})
		return models.Product{}, err
	}

	d.mu.Lock()
	d.product = &p
	d.mu.Unlock()
	return p, nil
}

func (d *Detail) Product() (models.Product, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.product == nil {
		return models.Product{}, false
	}
	return *d.product, true
}

// Edit applies fn to the loaded product. The id is kept.
func (d *Detail) Edit(fn func(p *models.Product)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.product == nil {
		return ErrNoDraft
	}
	p := *d.product
	fn(&p)
	p.ID = d.product.ID
	d.product = &p
	return nil
}

func (d *Detail) SelectBrand(b models.Brand) error {
	return d.Edit(func(p *models.Product) {
		brand := b
		p.Brand = &brand
		if b.ID != 0 {
			id := b.ID
			p.BrandID = &id
		}
	})
}

func (d *Detail) Images() []string {
	p, _ := d.Product()
	return imageurl.ParseImageURLs(p.Images)
}

func (d *Detail) SetImages(urls []string) error {
	return d.Edit(func(p *models.Product) {
		p.Images = imageurl.StringifyImageURLs(urls)
	})
}

// Save validates and updates the product, replacing the local copy with
// the server's response.
func (d *Detail) Save(ctx context.Context) (models.Product, error) {
	p, ok := d.Product()
	if !ok {
		return models.Product{}, ErrNoDraft
	}
	if errs := models.ValidateProduct(p); len(errs) > 0 {
		verr := &ValidationError{Errors: errs}
		d.notifier.Notify(Notice{Level: LevelError, Title: "Error", Message: verr.Error()})
		return models.Product{}, verr
	}

	saved, err := d.store.UpdateProduct(ctx, p.ID, p)
	if err != nil {
		d.log.Warn("product update failed", zap.Int("id", p.ID), zap.Error(err))
		d.notifier.Notify(Notice{Level: LevelError, Title: "Error", Message: err.Error()})
		return models.Product{}, err
	}

	d.mu.Lock()
	d.product = &saved
	d.mu.Unlock()
	d.log.Info("product updated", zap.Int("id", saved.ID))
	d.notifier.Notify(Notice{Level: LevelSuccess, Title: "Success", Message: "Product updated successfully!"})
	return saved, nil
}
