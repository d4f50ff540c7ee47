package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
)

// Storage хранит изображения на локальном диске в каталоге UPLOAD_DIR,
// который раздается статикой по /uploads/images/*.
type Storage struct {
	dir    string
	logger *slog.Logger
}

// NewStorage создает каталог, если его нет.
func NewStorage(dir string, logger *slog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &Storage{dir: dir, logger: logger}, nil
}

// Dir возвращает каталог с файлами.
func (s *Storage) Dir() string {
	return s.dir
}

// UploadFile записывает файл и возвращает относительный путь uploads/images/<file>.
func (s *Storage) UploadFile(_ context.Context, key string, reader io.Reader, _ string) (string, error) {
	name := filepath.Base(key)
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create file %s: %w", name, err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write file %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file %s: %w", name, err)
	}

	s.logger.Debug("file stored locally", "file", name)
	return path.Join("uploads", "images", name), nil
}

// DeleteFile удаляет файл по ключу или относительному пути.
// Имя берется из последнего сегмента, выйти за пределы каталога нельзя.
func (s *Storage) DeleteFile(_ context.Context, key string) error {
	name := filepath.Base(filepath.FromSlash(key))
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid file reference %q", key)
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file %s not found: %w", name, err)
		}
		return fmt.Errorf("remove file %s: %w", name, err)
	}
	return nil
}
