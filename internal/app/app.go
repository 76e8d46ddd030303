package app

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/molpadia/molpaupload/internal/domain/repository"
)

type appHandler func(http.ResponseWriter, *http.Request) error

func (fn appHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		if e, ok := err.(*AppError); ok {
			slog.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "code", e.Code, "message", e.Message)
			replyJSON(w, e, e.Code)
		} else {
			slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
			replyJSON(w, &AppError{http.StatusInternalServerError, "internal server error"}, http.StatusInternalServerError)
		}
	}
}

// Options tunes the upload server.
type Options struct {
	// PublicURL is the base of the upload URLs handed to clients. The request's
	// host is used when empty.
	PublicURL string
	// MinPartSize is the smallest accepted chunk except the last one. S3 rejects
	// multipart parts below 5 MiB. Zero accepts any size.
	MinPartSize int64
}

// Register API endpoints to the router.
func SetupRoutes(r *mux.Router, uploads repository.UploadRepository, storage repository.Storage, opts Options) {
	c := newController(uploads, storage, opts)
	r.Methods("POST").Path("/uploads").Handler(appHandler(c.createUpload))
	r.Methods("GET").Path("/uploads/{id}").Handler(appHandler(c.getUpload))
	r.Methods("POST").Path("/upload/{id}").Handler(appHandler(c.uploadFile))
}
