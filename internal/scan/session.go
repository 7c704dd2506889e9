// Package scan drives the scan → search → edit → save flow of one screen.
//
// A Session owns its draft exclusively: it is created when the screen is
// entered and discarded by Reset when the screen loses focus. All catalog and
// enrichment calls are made without holding the session lock; results that
// arrive after a Reset are dropped.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rogerio-castellano/openbarcode/internal/enrich"
	"github.com/rogerio-castellano/openbarcode/internal/imageurl"
	"github.com/rogerio-castellano/openbarcode/internal/logging"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateScanning
	StateBarcodeCaptured
	StateSearching
	StateEditing
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateBarcodeCaptured:
		return "barcode-captured"
	case StateSearching:
		return "searching"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	default:
		return "idle"
	}
}

var (
	ErrEmptyBarcode   = errors.New("barcode is required")
	ErrBusy           = errors.New("a request is already in progress")
	ErrNotEditing     = errors.New("no draft is being edited")
	ErrNoDraft        = errors.New("no product loaded")
	ErrNotEnrichable  = errors.New("only new products with a barcode can be enriched")
	ErrNoCamera       = errors.New("no camera available")
	ErrNoEnricher     = errors.New("external lookup is not configured")
	ErrPermission     = errors.New("camera permission denied")
	ErrSessionExpired = errors.New("session was reset while the request was in flight")
)

// ValidationError lists the draft fields that block a save.
type ValidationError struct {
	Errors []models.ValidationError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Description
	}
	return strings.Join(msgs, "; ")
}

// ProductStore is the part of the catalog API a session needs.
type ProductStore interface {
	SearchProducts(ctx context.Context, barcode string) ([]models.Product, error)
	CreateProduct(ctx context.Context, p models.Product) (models.Product, error)
	UpdateProduct(ctx context.Context, id int, p models.Product) (models.Product, error)
}

type Enricher interface {
	Lookup(ctx context.Context, barcode string) (enrich.Result, bool, error)
}

// Camera grants access to the barcode reader.
type Camera interface {
	RequestPermission(ctx context.Context) (bool, error)
}

type Session struct {
	store    ProductStore
	enricher Enricher
	camera   Camera
	notifier Notifier
	policy   enrich.MergePolicy
	log      *zap.Logger

	mu      sync.Mutex
	state   State
	barcode string
	draft   Draft
	// gen changes on every Reset so late results can be recognised.
	gen uint64
}

type Option func(*Session)

func WithEnricher(e Enricher) Option {
	return func(s *Session) { s.enricher = e }
}

func WithCamera(c Camera) Option {
	return func(s *Session) { s.camera = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithMergePolicy(p enrich.MergePolicy) Option {
	return func(s *Session) { s.policy = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = logging.OrNop(l) }
}

func NewSession(store ProductStore, opts ...Option) *Session {
	s := &Session{
		store:    store,
		notifier: discardNotifier{},
		policy:   enrich.PreferExternal,
		log:      zap.NewNop(),
		state:    StateIdle,
		draft:    NotLoaded{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Barcode returns the content of the barcode input.
func (s *Session) Barcode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.barcode
}

func (s *Session) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetBarcode updates the barcode input without searching.
func (s *Session) SetBarcode(code string) {
	s.mu.Lock()
	s.barcode = code
	s.mu.Unlock()
}

func (s *Session) notify(level Level, title, message string) {
	s.notifier.Notify(Notice{Level: level, Title: title, Message: message})
}

// StartScan asks for camera permission and, when granted, enters Scanning.
// A denial leaves the session where it was.
func (s *Session) StartScan(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateSearching || s.state == StateSaving {
		s.mu.Unlock()
		return ErrBusy
	}
	s.mu.Unlock()

	if s.camera == nil {
		s.notify(LevelError, "Error", "No camera available.")
		return ErrNoCamera
	}

	granted, err := s.camera.RequestPermission(ctx)
	if err != nil || !granted {
		if err != nil {
			s.log.Warn("camera permission request failed", zap.Error(err))
		}
		s.notify(LevelWarning, "Permission required", "We need camera permission to scan barcodes.")
		return ErrPermission
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSearching || s.state == StateSaving {
		return ErrBusy
	}
	s.state = StateScanning
	return nil
}

// CancelScan closes the scanner without a result.
func (s *Session) CancelScan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateScanning {
		return
	}
	s.state = s.restingState()
}

// HandleScan is the scanner callback. Only the first call of a scanning
// session is acted on; it reports false for the callbacks it ignores. The
// outcome of the search is reported through the notifier.
func (s *Session) HandleScan(ctx context.Context, code string) bool {
	code = strings.TrimSpace(code)

	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return false
	}
	s.state = StateBarcodeCaptured
	s.barcode = code
	s.mu.Unlock()

	s.log.Info("barcode scanned", zap.String("barcode", code))
	if code == "" {
		s.mu.Lock()
		s.state = s.restingState()
		s.mu.Unlock()
		s.notify(LevelWarning, "Attention", "Please type or scan a barcode.")
		return true
	}
	_ = s.runSearch(ctx, code)
	return true
}

// Search looks a typed barcode up in the catalog.
func (s *Session) Search(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		s.notify(LevelWarning, "Attention", "Please type or scan a barcode.")
		return ErrEmptyBarcode
	}

	s.mu.Lock()
	if s.state == StateSearching || s.state == StateSaving {
		s.mu.Unlock()
		return ErrBusy
	}
	s.barcode = code
	s.mu.Unlock()

	return s.runSearch(ctx, code)
}

func (s *Session) runSearch(ctx context.Context, code string) error {
	s.mu.Lock()
	s.state = StateSearching
	s.draft = NotLoaded{}
	gen := s.gen
	s.mu.Unlock()

	products, err := s.store.SearchProducts(ctx, code)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSessionExpired
	}
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		s.log.Warn("product search failed", zap.String("barcode", code), zap.Error(err))
		s.notify(LevelError, "Error", err.Error())
		return err
	}

	found := len(products) > 0
	if found {
		s.draft = Found{Product: products[0]}
	} else {
		s.draft = NewDraft{Product: models.NewDraft(code)}
	}
	s.state = StateEditing
	s.mu.Unlock()

	if found {
		s.log.Info("product found", zap.String("barcode", code), zap.Int("id", products[0].ID))
		s.notify(LevelSuccess, "Success", "Product found and ready for editing.")
	} else {
		s.log.Info("product not found", zap.String("barcode", code))
		s.notify(LevelInfo, "Information", "Product not found. Fill in the details to add it.")
	}
	return nil
}

// Edit applies fn to the draft. The barcode and identifier are restored
// afterwards; they cannot be changed in this flow.
func (s *Session) Edit(fn func(p *models.Product)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateEditing {
		return ErrNotEditing
	}
	p, ok := ProductOf(s.draft)
	if !ok {
		return ErrNoDraft
	}

	barcode, id := p.Barcode, p.ID
	fn(&p)
	p.Barcode, p.ID = barcode, id
	s.draft = replaceProduct(s.draft, p)
	return nil
}

// SelectBrand sets the draft's brand reference and denormalized brand.
func (s *Session) SelectBrand(b models.Brand) error {
	return s.Edit(func(p *models.Product) {
		brand := b
		p.Brand = &brand
		if b.ID != 0 {
			id := b.ID
			p.BrandID = &id
		}
	})
}

// Images returns the draft's image URLs in order.
func (s *Session) Images() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _ := ProductOf(s.draft)
	return imageurl.ParseImageURLs(p.Images)
}

// SetImages replaces the draft's image list.
func (s *Session) SetImages(urls []string) error {
	return s.Edit(func(p *models.Product) {
		p.Images = imageurl.StringifyImageURLs(urls)
	})
}

// Enrich fills a new draft from the external product database. It reports
// whether a match was merged.
func (s *Session) Enrich(ctx context.Context) (bool, error) {
	if s.enricher == nil {
		return false, ErrNoEnricher
	}

	s.mu.Lock()
	nd, ok := s.draft.(NewDraft)
	if s.state != StateEditing || !ok || nd.Product.Barcode == "" {
		s.mu.Unlock()
		s.notify(LevelError, "Error", "Barcode not found.")
		return false, ErrNotEnrichable
	}
	barcode := nd.Product.Barcode
	gen := s.gen
	s.mu.Unlock()

	result, found, err := s.enricher.Lookup(ctx, barcode)

	s.mu.Lock()
	nd, ok = s.draft.(NewDraft)
	if s.gen != gen || !ok || nd.Product.Barcode != barcode {
		s.mu.Unlock()
		return false, ErrSessionExpired
	}
	if err != nil || !found {
		s.mu.Unlock()
		if err != nil {
			s.log.Warn("external lookup failed", zap.String("barcode", barcode), zap.Error(err))
			s.notify(LevelError, "Error", "Failed to fetch external data. Please try again.")
			return false, err
		}
		s.notify(LevelInfo, "Information", "No data found for this barcode.")
		return false, nil
	}
	s.draft = NewDraft{Product: enrich.Merge(nd.Product, result, s.policy)}
	s.mu.Unlock()

	s.log.Info("draft enriched", zap.String("barcode", barcode), zap.Stringer("policy", s.policy))
	s.notify(LevelSuccess, "Success", "Product data loaded automatically!")
	return true, nil
}

// Save persists the draft: Found drafts are updated, new drafts created. On
// success the draft and barcode input are cleared; on failure the draft is
// kept for further editing.
func (s *Session) Save(ctx context.Context) (models.Product, error) {
	s.mu.Lock()
	if s.state != StateEditing {
		s.mu.Unlock()
		return models.Product{}, ErrNotEditing
	}
	draft := s.draft
	p, ok := ProductOf(draft)
	if !ok {
		s.mu.Unlock()
		return models.Product{}, ErrNoDraft
	}
	if errs := models.CheckCoercible(p); len(errs) > 0 {
		s.mu.Unlock()
		verr := &ValidationError{Errors: errs}
		s.notify(LevelError, "Error", verr.Error())
		return models.Product{}, verr
	}
	s.state = StateSaving
	gen := s.gen
	s.mu.Unlock()

	var (
		saved  models.Product
		err    error
		action string
	)
	switch draft.(type) {
	case Found:
		action = "updated"
		saved, err = s.store.UpdateProduct(ctx, p.ID, p)
	case NewDraft:
		action = "created"
		saved, err = s.store.CreateProduct(ctx, p)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return saved, err
	}
	if err != nil {
		s.state = StateEditing
		s.mu.Unlock()
		s.log.Warn("save failed", zap.String("barcode", p.Barcode), zap.Error(err))
		s.notify(LevelError, "Error", err.Error())
		return models.Product{}, err
	}
	s.state = StateIdle
	s.draft = NotLoaded{}
	s.barcode = ""
	s.mu.Unlock()

	s.log.Info("product saved", zap.String("action", action), zap.Int("id", saved.ID))
	s.notify(LevelSuccess, "Success", fmt.Sprintf("Product %s successfully!", action))
	return saved, nil
}

// Reset discards the draft and barcode input, as when the screen loses focus.
// Requests still in flight finish but their results are dropped.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = StateIdle
	s.draft = NotLoaded{}
	s.barcode = ""
}

// restingState is where the session settles when nothing is in progress.
// Callers must hold s.mu.
func (s *Session) restingState() State {
	if _, ok := ProductOf(s.draft); ok {
		return StateEditing
	}
	return StateIdle
}
