package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rogerio-castellano/openbarcode/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pathLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *pathLog) add(p string) {
	l.mu.Lock()
	l.paths = append(l.paths, p)
	l.mu.Unlock()
}

func (l *pathLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func newOFFServer(t *testing.T) (*httptest.Server, *pathLog) {
	t.Helper()
	paths := &pathLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v0/product/7891000100103.json":
			w.Write([]byte(`{"status":1,"code":"7891000100103","product":{"product_name":"Leite Condensado","generic_name":"Sweetened condensed milk","brands":"Moça"}}`))
		case "/api/v0/product/3017620422003.json":
			w.Write([]byte(`{"status":1,"code":"3017620422003","product":{"product_name":"Nutella"}}`))
		case "/api/v0/product/500.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`{"status":0,"status_verbose":"product not found","code":"0"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, paths
}

func TestLookup_Found(t *testing.T) {
	srv, paths := newOFFServer(t)
	c := New(srv.URL)

	res, ok, err := c.Lookup(context.Background(), "7891000100103")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Leite Condensado", res.ProductName)
	assert.Equal(t, "Sweetened condensed milk", res.GenericName)
	assert.Equal(t, "Moça", res.Brands)
	assert.Equal(t, "7891000100103", res.Code)
	assert.Equal(t, []string{"/api/v0/product/7891000100103.json"}, paths.get())
}

func TestLookup_NotFound(t *testing.T) {
	srv, _ := newOFFServer(t)
	c := New(srv.URL)

	_, ok, err := c.Lookup(context.Background(), "0000000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookup_ServerError(t *testing.T) {
	srv, _ := newOFFServer(t)
	c := New(srv.URL)

	_, ok, err := c.Lookup(context.Background(), "500")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestLookup_Unreachable(t *testing.T) {
	srv, _ := newOFFServer(t)
	srv.Close()
	c := New(srv.URL)

	_, ok, err := c.Lookup(context.Background(), "7891000100103")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestLookup_RateLimitHonoursContext(t *testing.T) {
	srv, paths := newOFFServer(t)
	c := New(srv.URL, WithRatePerMinute(1))

	_, _, err := c.Lookup(context.Background(), "7891000100103")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = c.Lookup(ctx, "7891000100103")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Len(t, paths.get(), 1)
}

func TestMerge_PreferExternal(t *testing.T) {
	brandID := 3
	draft := models.Product{
		Name:        "typed by user",
		Description: "local",
		Barcode:     "7891000100103",
		Status:      true,
		MeasureType: models.MeasureGram,
		Qtt:         2,
		BrandID:     &brandID,
		Brand:       &models.Brand{ID: 3, Name: "Local"},
		Images:      "http://x/1",
	}

	got := Merge(draft, Result{ProductName: "Leite", GenericName: "Milk", Brands: "Moça"}, PreferExternal)

	assert.Equal(t, "Leite", got.Name)
	assert.Equal(t, "Milk", got.Description)
	assert.Equal(t, &models.Brand{ID: 0, Name: "Moça"}, got.Brand)
	assert.Equal(t, &brandID, got.BrandID)
	assert.Equal(t, draft.Barcode, got.Barcode)
	assert.Equal(t, draft.MeasureType, got.MeasureType)
	assert.Equal(t, draft.Qtt, got.Qtt)
	assert.Equal(t, draft.Images, got.Images)
	assert.True(t, got.Status)
}

func TestMerge_PreferExternal_Fallbacks(t *testing.T) {
	draft := models.Product{Name: "n", Description: "d", Brand: &models.Brand{ID: 1, Name: "b"}}

	got := Merge(draft, Result{ProductName: "Nutella"}, PreferExternal)
	assert.Equal(t, "Nutella", got.Name)
	assert.Equal(t, "Nutella", got.Description)
	assert.Equal(t, "b", got.Brand.Name)

	got = Merge(draft, Result{}, PreferExternal)
	assert.Equal(t, draft, got)
}

func TestMerge_PreferLocal(t *testing.T) {
	draft := models.Product{Name: "mine"}

	got := Merge(draft, Result{ProductName: "Leite", GenericName: "Milk", Brands: "Moça"}, PreferLocal)

	assert.Equal(t, "mine", got.Name)
	assert.Equal(t, "Milk", got.Description)
	assert.Equal(t, "Moça", got.Brand.Name)
}
