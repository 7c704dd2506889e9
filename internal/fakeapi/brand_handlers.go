package fakeapi

import (
	"net/http"
	"strings"
)

type brandRequest struct {
	Name string `json:"name"`
}

func (s *Server) listBrands(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, s.store.Brands(""))
}

func (s *Server) searchBrands(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, s.store.Brands(r.URL.Query().Get("name")))
}

func (s *Server) createBrand(w http.ResponseWriter, r *http.Request) {
	var req brandRequest
	if err := readJSON(w, r, &req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid input")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 100 {
		writeValidation(w, []fieldError{{Loc: []string{"body", "name"}, Msg: "Field required", Type: "missing"}})
		return
	}

	brand, err := s.store.CreateBrand(name)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, brand)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, s.store.Categories(""))
}

func (s *Server) searchCategories(w http.ResponseWriter, r *http.Request) {
	_ = writeJSON(w, http.StatusOK, s.store.Categories(r.URL.Query().Get("name")))
}
