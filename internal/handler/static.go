package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/go-chi/chi/v5"
)

// uploadedImages отдает файлы из каталога загрузок.
// Каталог плоский: вложенные пути и сами каталоги отвечают 404, списка файлов нет.
func uploadedImages(dir string, errs *ErrorResponder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notFound := domain.NewNotFound("Could not find this route.", nil)

		name := chi.URLParam(r, "*")
		if name == "" || name != filepath.Base(name) {
			errs.Respond(w, r, notFound)
			return
		}

		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			errs.Respond(w, r, notFound)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			errs.Respond(w, r, notFound)
			return
		}

		http.ServeContent(w, r, name, info.ModTime(), f)
	}
}
