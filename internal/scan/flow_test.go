package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/rogerio-castellano/openbarcode/internal/catalog"
	"github.com/rogerio-castellano/openbarcode/internal/fakeapi"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// recorder wraps the stub catalog and keeps the JSON bodies it receives.
type recorder struct {
	next http.Handler

	mu       sync.Mutex
	requests []recordedRequest
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	entry := recordedRequest{Method: r.Method, Path: r.URL.Path}
	if r.Header.Get("Content-Type") == "application/json" {
		_ = json.Unmarshal(body, &entry.Body)
	}
	rec.mu.Lock()
	rec.requests = append(rec.requests, entry)
	rec.mu.Unlock()

	rec.next.ServeHTTP(w, r)
}

func (rec *recorder) find(method string) []recordedRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []recordedRequest
	for _, r := range rec.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func newStubCatalog(t *testing.T) (*fakeapi.Store, *recorder, *catalog.Client) {
	t.Helper()
	store := fakeapi.NewStore()
	rec := &recorder{next: fakeapi.NewRouter(store, nil)}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return store, rec, catalog.New(srv.URL)
}

func TestFlow_NewBarcodeIsCreated(t *testing.T) {
	store, rec, client := newStubCatalog(t)
	s := NewSession(client, WithCamera(fakeCamera{granted: true}))

	require.NoError(t, s.StartScan(context.Background()))
	require.True(t, s.HandleScan(context.Background(), "7891000100103"))
	require.IsType(t, NewDraft{}, s.Draft())

	require.NoError(t, s.Edit(func(p *models.Product) {
		p.Name = "Coffee"
		p.MeasureValue = "0,5"
		p.MeasureType = models.MeasureKilogram
	}))
	created, err := s.Save(context.Background())
	require.NoError(t, err)

	posts := rec.find(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, "/api/v1/products/", posts[0].Path)
	body := posts[0].Body
	assert.NotContains(t, body, "id")
	assert.Equal(t, "7891000100103", body["barcode"])
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "kg", body["measure_type"])
	assert.Equal(t, 0.5, body["measure_value"])
	assert.Equal(t, float64(1), body["qtt"])

	stored, err := store.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", stored.Name)
}

func TestFlow_UneditedDraftIsPosted(t *testing.T) {
	_, rec, client := newStubCatalog(t)
	notices := &noticeLog{}
	s := NewSession(client, WithCamera(fakeCamera{granted: true}), WithNotifier(notices))

	require.NoError(t, s.StartScan(context.Background()))
	require.True(t, s.HandleScan(context.Background(), "7891234567890"))
	_, err := s.Save(context.Background())

	// The stub requires a name, so the rejection comes from the server.
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, catalog.StatusCode(err))
	assert.Equal(t, LevelError, notices.last().Level)
	assert.Equal(t, StateEditing, s.State())

	posts := rec.find(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, "/api/v1/products/", posts[0].Path)
	body := posts[0].Body
	assert.NotContains(t, body, "id")
	assert.Equal(t, "7891234567890", body["barcode"])
	assert.Equal(t, true, body["status"])
	assert.Equal(t, "un", body["measure_type"])
	assert.Equal(t, float64(1), body["qtt"])
}

func TestFlow_FoundProductIsUpdated(t *testing.T) {
	store, rec, client := newStubCatalog(t)
	existing, err := store.CreateProduct(models.Product{Name: "Milk", Barcode: "111", Status: true, Qtt: 2})
	require.NoError(t, err)

	s := NewSession(client)
	require.NoError(t, s.Search(context.Background(), "111"))
	require.IsType(t, Found{}, s.Draft())
	require.NoError(t, s.Edit(func(p *models.Product) { p.Name = "Whole milk" }))

	_, err = s.Save(context.Background())
	require.NoError(t, err)

	puts := rec.find(http.MethodPut)
	require.Len(t, puts, 1)
	assert.Equal(t, "/api/v1/products/"+strconv.Itoa(existing.ID)+"/", puts[0].Path)
	assert.NotContains(t, puts[0].Body, "id")
	assert.Equal(t, "Whole milk", puts[0].Body["name"])

	stored, err := store.GetByID(existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Whole milk", stored.Name)
}

func TestFlow_PartialBarcodeStartsNewDraft(t *testing.T) {
	store, _, client := newStubCatalog(t)
	_, err := store.CreateProduct(models.Product{Name: "Milk", Barcode: "7891234567890"})
	require.NoError(t, err)

	s := NewSession(client)
	require.NoError(t, s.Search(context.Background(), "789"))

	nd, ok := s.Draft().(NewDraft)
	require.True(t, ok, "expected NewDraft, got %T", s.Draft())
	assert.Equal(t, "789", nd.Product.Barcode)
}

func TestFlow_ServerDetailIsShownVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"barcode already exists"}`))
	}))
	defer srv.Close()

	notices := &noticeLog{}
	s := NewSession(catalog.New(srv.URL), WithNotifier(notices))
	require.NoError(t, s.Search(context.Background(), "789"))
	require.NoError(t, s.Edit(func(p *models.Product) { p.Name = "Coffee" }))

	_, err := s.Save(context.Background())

	require.Error(t, err)
	assert.Equal(t, 400, catalog.StatusCode(err))
	assert.Equal(t, "barcode already exists", notices.last().Message)
	assert.Equal(t, StateEditing, s.State())
	assert.IsType(t, NewDraft{}, s.Draft())
}

func TestFlow_DuplicateBarcodeFromStub(t *testing.T) {
	store, _, client := newStubCatalog(t)
	_, err := store.CreateProduct(models.Product{Name: "Milk", Barcode: "111"})
	require.NoError(t, err)

	_, err = client.CreateProduct(context.Background(), models.Product{Name: "Other", Barcode: "111"})

	require.Error(t, err)
	assert.Equal(t, "Product with this barcode already exists", err.Error())
}

func TestFlow_GalleryAgainstStub(t *testing.T) {
	_, rec, client := newStubCatalog(t)
	s := NewSession(client)
	require.NoError(t, s.Search(context.Background(), "789"))
	require.NoError(t, s.SetImages([]string{"http://cdn.example.com/legacy.jpg"}))

	g := NewGallery(catalog.NewImages(client), s, nil)
	url, err := g.Add(context.Background(), "photo.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Contains(t, url, client.BaseURL()+"/api/v1/images/download/")

	// The legacy URL has no ETag: removing it must not reach the server.
	require.NoError(t, g.Remove(context.Background(), 0))
	assert.Empty(t, rec.find(http.MethodDelete))

	require.NoError(t, g.Remove(context.Background(), 0))
	assert.Len(t, rec.find(http.MethodDelete), 1)
	assert.Empty(t, s.Images())
}
