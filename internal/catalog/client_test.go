package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rogerio-castellano/openbarcode/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestBuildProductPayload(t *testing.T) {
	tests := []struct {
		name      string
		product   models.Product
		wantKeys  []string
		skipKeys  []string
		wantValue map[string]any
	}{
		{
			name:      "comma decimal",
			product:   models.Product{Name: "Milk", MeasureValue: "1,5", Qtt: 2, Barcode: "789"},
			wantKeys:  []string{"measure_value", "qtt", "barcode"},
			wantValue: map[string]any{"measure_value": 1.5, "qtt": float64(2)},
		},
		{
			name:     "zero measure and qtt dropped",
			product:  models.Product{Name: "Milk", MeasureValue: "0", Qtt: 0},
			skipKeys: []string{"measure_value", "qtt"},
		},
		{
			name:     "unparseable measure dropped",
			product:  models.Product{Name: "Milk", MeasureValue: "abc"},
			skipKeys: []string{"measure_value"},
		},
		{
			name:     "id never sent",
			product:  models.Product{ID: 7, Name: "Milk", BrandID: intPtr(3)},
			wantKeys: []string{"brand_id", "name", "description", "images", "status"},
			skipKeys: []string{"id", "brand", "barcode"},
		},
		{
			name:     "nil brand omitted",
			product:  models.Product{Name: "Milk"},
			skipKeys: []string{"brand_id", "category_ids"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(BuildProductPayload(tt.product))
			require.NoError(t, err)

			var body map[string]any
			require.NoError(t, json.Unmarshal(raw, &body))
			for _, k := range tt.wantKeys {
				assert.Contains(t, body, k)
			}
			for _, k := range tt.skipKeys {
				assert.NotContains(t, body, k)
			}
			for k, v := range tt.wantValue {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestSearchProducts(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.Query().Get("barcode")
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`[{"id":1,"name":"Milk","barcode":"789 1","measure_value":"1.0000","brand":{"id":2,"name":"Acme"}}]`))
	})

	products, err := c.SearchProducts(context.Background(), "789 1")

	require.NoError(t, err)
	assert.Equal(t, "/api/v1/products/search/", gotPath)
	assert.Equal(t, "789 1", gotQuery)
	require.Len(t, products, 1)
	assert.Equal(t, "Acme", products[0].Brand.Name)
	assert.Equal(t, models.DecimalText("1.0000"), products[0].MeasureValue)
}

func TestSearchProducts_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"detail string", http.StatusBadRequest, `{"detail":"At least one search parameter (name or barcode) is required"}`, "At least one search parameter (name or barcode) is required"},
		{"no body", http.StatusInternalServerError, ``, "Failed to search product"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["query","barcode"],"msg":"bad"}]}`, "Failed to search product"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.SearchProducts(context.Background(), "1")

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, err.Error())
		})
	}
}

func TestGetProduct_StatusText(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/5", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Product not found"}`))
	})

	_, err := c.GetProduct(context.Background(), 5)

	require.Error(t, err)
	assert.Equal(t, "failed to fetch product details: Not Found", err.Error())
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestCreateAndUpdateProduct(t *testing.T) {
	type call struct {
		method, path string
		body         map[string]any
	}
	var (
		mu    sync.Mutex
		calls []call
	)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.Path, body})
		mu.Unlock()
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"id":9,"name":"Milk"}`))
	})

	created, err := c.CreateProduct(context.Background(), models.Product{ID: 3, Name: "Milk"})
	require.NoError(t, err)
	assert.Equal(t, 9, created.ID)

	_, err = c.UpdateProduct(context.Background(), 9, models.Product{ID: 9, Name: "Milk"})
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, "/api/v1/products/", calls[0].path)
	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Equal(t, "/api/v1/products/9/", calls[1].path)
	for _, cl := range calls {
		assert.NotContains(t, cl.body, "id")
	}
}

func TestUpdateProduct_InvalidID(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.UpdateProduct(context.Background(), 0, models.Product{Name: "Milk"})
	assert.Error(t, err)
}

func TestCreateProduct_Fallback(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`oops`))
	})

	_, err := c.CreateProduct(context.Background(), models.Product{Name: "Milk"})
	assert.EqualError(t, err, "Failed to save product")
}

func TestCreateBrand(t *testing.T) {
	var got brandPayload
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/brands/", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":4,"name":"Acme"}`))
	})

	b, err := c.CreateBrand(context.Background(), "  Acme ")

	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, models.Brand{ID: 4, Name: "Acme"}, b)
}

func TestCreateBrand_BlankNameSendsNothing(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.CreateBrand(context.Background(), "   ")

	assert.ErrorIs(t, err, ErrBrandNameRequired)
	assert.False(t, called)
}

func TestSearchBrands(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/brands/search/", r.URL.Path)
		assert.Equal(t, "ac me", r.URL.Query().Get("name"))
		_, _ = w.Write([]byte(`[{"id":1,"name":"Acme"}]`))
	})

	brands, err := c.SearchBrands(context.Background(), "ac me")

	require.NoError(t, err)
	assert.Equal(t, []models.Brand{{ID: 1, Name: "Acme"}}, brands)
}

func TestTransportError(t *testing.T) {
	c := New("http://127.0.0.1:1", WithTimeout(time.Second))
	_, err := c.ListProducts(context.Background())

	require.Error(t, err)
	assert.Zero(t, StatusCode(err))
}

func TestImages_Upload(t *testing.T) {
	var (
		field, filename, contentType string
		data                         []byte
	)
	uploading := make(chan bool, 1)
	var im *Images
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		uploading <- im.Uploading()
		assert.Equal(t, "/api/v1/images/", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		for name, files := range r.MultipartForm.File {
			field = name
			filename = files[0].Filename
			contentType = files[0].Header.Get("Content-Type")
			f, _ := files[0].Open()
			data, _ = io.ReadAll(f)
			f.Close()
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"object_name":"x.png","etag":"abc","size":3,"last_modified":"2026-01-01T00:00:00Z"}`))
	})
	im = NewImages(c)

	up, err := im.Upload(context.Background(), "photo.png", "image/png", strings.NewReader("png"))

	require.NoError(t, err)
	assert.True(t, <-uploading)
	assert.False(t, im.Uploading())
	assert.Equal(t, "file", field)
	assert.Equal(t, "photo.png", filename)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, []byte("png"), data)
	assert.Equal(t, &models.UploadedImage{ObjectName: "x.png", ETag: "abc", Size: 3, LastModified: "2026-01-01T00:00:00Z"}, up)
	assert.Equal(t, c.BaseURL()+"/api/v1/images/download/abc", im.URL(up.ETag))
	assert.Empty(t, im.Err())
}

func TestImages_UploadFailure(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	im := NewImages(c)

	_, err := im.Upload(context.Background(), "photo.png", "image/png", strings.NewReader("png"))

	assert.EqualError(t, err, "Failed to upload image")
	assert.Equal(t, "Failed to upload image", im.Err())
	assert.False(t, im.Uploading())
}

func TestImages_Delete(t *testing.T) {
	status := http.StatusNoContent
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/images/abc", r.URL.Path)
		w.WriteHeader(status)
		if status != http.StatusNoContent {
			_, _ = w.Write([]byte(`{"detail":"Image not found"}`))
		}
	})
	im := NewImages(c)

	assert.True(t, im.Delete(context.Background(), "abc"))

	status = http.StatusNotFound
	assert.False(t, im.Delete(context.Background(), "abc"))
	assert.Equal(t, "Image not found", im.Err())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestImages_UploadReadError(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	im := NewImages(c)

	_, err := im.Upload(context.Background(), "photo.png", "image/png", failingReader{})

	require.Error(t, err)
	assert.False(t, called)
	assert.NotEmpty(t, im.Err())
}
