package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/images"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/go-chi/chi/v5"
)

type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64) (images.Info, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]images.Info, error)
}

type UploadsHandler struct {
	Store ImageStore
	Log   *logger.Logger
}

type uploadResp struct {
	Message  string      `json:"message"`
	ImageURL string      `json:"imageUrl"`
	FileInfo images.Info `json:"fileInfo"`
}

func (h *UploadsHandler) Register(r chi.Router) {
	r.Post("/upload/image", h.upload)
	r.Get("/upload/images", h.list)
	r.Delete("/upload/image/{filename}", h.remove)
}

func (h *UploadsHandler) upload(w http.ResponseWriter, r *http.Request) {
	// multipart framing needs some room above the image limit
	r.Body = http.MaxBytesReader(w, r.Body, images.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(images.MaxUploadBytes); err != nil {
		writeError(w, r, h.Log, apperr.Validation("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, h.Log, apperr.Validation("no image file provided"))
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	info, err := h.Store.Upload(ctx, header.Filename, file, header.Size)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResp{
		Message:  "image uploaded",
		ImageURL: info.URL,
		FileInfo: info,
	})
}

func (h *UploadsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Store.List(ctx)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []images.Info{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": list, "count": len(list)})
}

func (h *UploadsHandler) remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if !images.ValidName(name) {
		writeError(w, r, h.Log, apperr.Validation("invalid filename"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.Delete(ctx, name); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
