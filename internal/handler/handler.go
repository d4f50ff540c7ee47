package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/GoArmGo/PlacesApp/internal/domain"
)

const unknownErrorMessage = "An unknown error occurred!"

// ImageStore сохраняет загруженные изображения и удаляет их по ссылке
type ImageStore interface {
	Save(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error)
	Remove(ctx context.Context, ref string) error
}

// respondWithJSON - отправляет JSON-ответ клиенту.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}, logger *slog.Logger) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		logger.Error("failed to marshal JSON response", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(response); err != nil {
		logger.Error("failed to write HTTP response", "error", err)
	}
}

// ErrorResponder - единственное место, где ошибка превращается в HTTP-ответ.
type ErrorResponder struct {
	images ImageStore
	logger *slog.Logger
}

func NewErrorResponder(images ImageStore, logger *slog.Logger) *ErrorResponder {
	return &ErrorResponder{images: images, logger: logger}
}

// Respond пишет {message} с кодом ошибки.
// Если ответ уже начат, ошибка только логируется.
// Если в запросе было загружено изображение, оно удаляется.
func (e *ErrorResponder) Respond(w http.ResponseWriter, r *http.Request, err error) {
	e.discardUpload(r)

	if responseStarted(w) {
		e.logger.Error("error after response started", "path", r.URL.Path, "error", err)
		return
	}

	code := http.StatusInternalServerError
	message := unknownErrorMessage
	var de *domain.Error
	if errors.As(err, &de) {
		code = de.Code
		if de.Message != "" {
			message = de.Message
		}
	}

	if code >= http.StatusInternalServerError {
		e.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	} else {
		e.logger.Info("request rejected", "method", r.Method, "path", r.URL.Path, "status", code, "error", err)
	}

	respondWithJSON(w, code, map[string]string{"message": message}, e.logger)
}

func (e *ErrorResponder) discardUpload(r *http.Request) {
	t, ok := r.Context().Value(uploadKey{}).(*uploadTracker)
	if !ok {
		return
	}
	ref := t.take()
	if ref == "" {
		return
	}
	if err := e.images.Remove(context.WithoutCancel(r.Context()), ref); err != nil {
		e.logger.Warn("failed to remove upload of failed request", "image", ref, "error", err)
	}
}

// responseStarted проходит по цепочке обёрток ResponseWriter
func responseStarted(w http.ResponseWriter) bool {
	for w != nil {
		if s, ok := w.(interface{ Written() bool }); ok && s.Written() {
			return true
		}
		u, ok := w.(interface{ Unwrap() http.ResponseWriter })
		if !ok {
			return false
		}
		w = u.Unwrap()
	}
	return false
}

type uploadKey struct{}

// uploadTracker запоминает изображение, загруженное в рамках запроса
type uploadTracker struct {
	mu  sync.Mutex
	ref string
}

func (t *uploadTracker) set(ref string) {
	t.mu.Lock()
	t.ref = ref
	t.mu.Unlock()
}

func (t *uploadTracker) take() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ref := t.ref
	t.ref = ""
	return ref
}

// trackUpload регистрирует загруженный файл для удаления при ошибке
func trackUpload(ctx context.Context, ref string) {
	if t, ok := ctx.Value(uploadKey{}).(*uploadTracker); ok {
		t.set(ref)
	}
}
