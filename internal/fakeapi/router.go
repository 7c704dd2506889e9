// Package fakeapi serves an in-memory stand-in for the catalog REST API. It
// backs the client tests and the "openbarcode stub" command.
package fakeapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rogerio-castellano/openbarcode/internal/logging"
	"go.uber.org/zap"
)

// MaxUploadSize bounds accepted image uploads.
const MaxUploadSize = 10 << 20

type Server struct {
	store *Store
	log   *zap.Logger
}

// NewRouter mounts the catalog endpoints under /api/v1.
func NewRouter(store *Store, log *zap.Logger) http.Handler {
	s := &Server{store: store, log: logging.OrNop(log)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Post("/", s.createProduct)
			r.Get("/search/", s.searchProducts)
			r.Get("/{id}", s.getProduct)
			r.Put("/{id}", s.updateProduct)
			r.Put("/{id}/", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
		})
		r.Route("/brands", func(r chi.Router) {
			r.Get("/", s.listBrands)
			r.Post("/", s.createBrand)
			r.Get("/search/", s.searchBrands)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Get("/search/", s.searchCategories)
		})
		r.Route("/images", func(r chi.Router) {
			r.Post("/", s.uploadImage)
			r.Get("/download/{etag}", s.downloadImage)
			r.Get("/{etag}", s.imageDetails)
			r.Delete("/{etag}", s.deleteImage)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("stub request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("remote", r.RemoteAddr),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
