package fakeapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/openbarcode/internal/models"
	"go.uber.org/zap"
)

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, s.store.GetAll())
}

func (s *Server) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ProductFilter{Name: q.Get("name"), Barcode: q.Get("barcode")}
	if filter.Name == "" && filter.Barcode == "" {
		writeDetail(w, http.StatusBadRequest, "At least one search parameter (name or barcode) is required")
		return
	}
	_ = writeJSON(w, http.StatusOK, s.store.Filter(filter))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := s.store.GetByID(id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, product)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req models.Product
	if err := readJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid input")
		return
	}
	if errs := validateProduct(req); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	created, err := s.store.CreateProduct(req)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("product created", zap.Int("id", created.ID), zap.String("barcode", created.Barcode))
	_ = writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req models.Product
	if err := readJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid input")
		return
	}
	if errs := validateProduct(req); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	updated, err := s.store.UpdateProduct(id, req)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.log.Info("product updated", zap.Int("id", updated.ID))
	_ = writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteProduct(id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid product ID")
		return 0, false
	}
	return id, true
}

func validateProduct(p models.Product) []fieldError {
	errs := []fieldError{}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, fieldError{Loc: []string{"body", "name"}, Msg: "Field required", Type: "missing"})
	}
	if p.MeasureType != "" && !p.MeasureType.Valid() {
		errs = append(errs, fieldError{Loc: []string{"body", "measure_type"}, Msg: "Input should be 'l', 'ml', 'kg', 'g' or 'un'", Type: "enum"})
	}
	if len(p.Barcode) > 50 {
		errs = append(errs, fieldError{Loc: []string{"body", "barcode"}, Msg: "String should have at most 50 characters", Type: "string_too_long"})
	}
	return errs
}

// writeStoreError maps store sentinel errors onto HTTP statuses.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrImageNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateBarcode), errors.Is(err, ErrDuplicateBrand),
		errors.Is(err, ErrBrandNotFound), errors.Is(err, ErrCategoryNotFound):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("store failure", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
