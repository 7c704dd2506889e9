package fakeapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to upload image: %v", err))
		return
	}

	meta := s.store.PutImage(header.Filename, header.Header.Get("Content-Type"), data)
	s.log.Info("image stored", zap.String("etag", meta.ETag), zap.String("object", meta.ObjectName))
	_ = writeJSON(w, http.StatusCreated, meta)
}

func (s *Server) imageDetails(w http.ResponseWriter, r *http.Request) {
	meta, _, _, err := s.store.Image(chi.URLParam(r, "etag"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, meta)
}

// downloadImage serves the stored bytes. Resize parameters (w, h, quality)
// are accepted and ignored.
func (s *Server) downloadImage(w http.ResponseWriter, r *http.Request) {
	meta, contentType, data, err := s.store.Image(chi.URLParam(r, "etag"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.ObjectName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) deleteImage(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteImage(chi.URLParam(r, "etag")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
