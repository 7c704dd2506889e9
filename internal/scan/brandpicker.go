package scan

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rogerio-castellano/openbarcode/internal/catalog"
	"github.com/rogerio-castellano/openbarcode/internal/logging"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"go.uber.org/zap"
)

const DefaultDebounce = 500 * time.Millisecond

type BrandSearcher interface {
	SearchBrands(ctx context.Context, name string) ([]models.Brand, error)
	CreateBrand(ctx context.Context, name string) (models.Brand, error)
}

// BrandPicker searches brands as the user types. Keystrokes within the
// debounce window collapse into one request, and a response is only kept
// when no newer request has been issued since.
type BrandPicker struct {
	searcher  BrandSearcher
	onSelect  func(models.Brand) error
	onResults func([]models.Brand)
	notifier  Notifier
	delay     time.Duration
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	query   string
	results []models.Brand
	err     error
}

type PickerOption func(*BrandPicker)

func WithDebounce(d time.Duration) PickerOption {
	return func(p *BrandPicker) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithResults registers a callback run after each accepted response.
func WithResults(fn func([]models.Brand)) PickerOption {
	return func(p *BrandPicker) { p.onResults = fn }
}

func WithPickerNotifier(n Notifier) PickerOption {
	return func(p *BrandPicker) {
		if n != nil {
			p.notifier = n
		}
	}
}

func WithPickerLogger(l *zap.Logger) PickerOption {
	return func(p *BrandPicker) { p.log = logging.OrNop(l) }
}

// NewBrandPicker returns a picker that hands the chosen brand to onSelect,
// usually Session.SelectBrand.
func NewBrandPicker(searcher BrandSearcher, onSelect func(models.Brand) error, opts ...PickerOption) *BrandPicker {
	ctx, cancel := context.WithCancel(context.Background())
	p := &BrandPicker{
		searcher: searcher,
		onSelect: onSelect,
		notifier: discardNotifier{},
		delay:    DefaultDebounce,
		log:      zap.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetQuery records the search text and schedules a search once typing
// pauses. A blank query clears the results.
func (p *BrandPicker) SetQuery(q string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.query = q
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if strings.TrimSpace(q) == "" {
		// Invalidate whatever is still in flight.
		p.seq++
		p.results = nil
		p.err = nil
		return
	}
	p.timer = time.AfterFunc(p.delay, func() {
		_, _ = p.search(p.ctx, q)
	})
}

// SearchNow skips the debounce and searches q immediately.
func (p *BrandPicker) SearchNow(ctx context.Context, q string) ([]models.Brand, error) {
	p.mu.Lock()
	p.query = q
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	return p.search(ctx, q)
}

func (p *BrandPicker) search(ctx context.Context, q string) ([]models.Brand, error) {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	brands, err := p.searcher.SearchBrands(ctx, strings.TrimSpace(q))

	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		p.log.Debug("stale brand results dropped", zap.Uint64("seq", seq), zap.String("query", q))
		return brands, err
	}
	p.results, p.err = brands, err
	cb := p.onResults
	p.mu.Unlock()

	if err != nil {
		p.log.Warn("brand search failed", zap.String("query", q), zap.Error(err))
		return nil, err
	}
	if cb != nil {
		cb(brands)
	}
	return brands, nil
}

func (p *BrandPicker) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Results returns the latest accepted results and search error.
func (p *BrandPicker) Results() ([]models.Brand, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Brand(nil), p.results...), p.err
}

func (p *BrandPicker) Select(b models.Brand) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	return p.onSelect(b)
}

// CreateAndSelect creates a brand named name and selects it.
func (p *BrandPicker) CreateAndSelect(ctx context.Context, name string) (models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		p.notifier.Notify(Notice{Level: LevelWarning, Title: "Attention", Message: "Please enter a brand name."})
		return models.Brand{}, catalog.ErrBrandNameRequired
	}

	b, err := p.searcher.CreateBrand(ctx, name)
	if err != nil {
		p.notifier.Notify(Notice{Level: LevelError, Title: "Error", Message: err.Error()})
		return models.Brand{}, err
	}
	p.log.Info("brand created", zap.Int("id", b.ID), zap.String("name", b.Name))
	return b, p.Select(b)
}

// Close stops pending searches and cancels the one in flight.
func (p *BrandPicker) Close() {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.seq++
	p.mu.Unlock()
	p.cancel()
}
