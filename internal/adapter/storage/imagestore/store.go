package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"
	"path"
	"strings"

	"github.com/GoArmGo/PlacesApp/internal/core/ports"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const keyPrefix = "uploads/images"

// allowedTypes - допустимые MIME-типы и расширения файлов.
var allowedTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

var errNoRemote = errors.New("remote image storage is not configured")

// Store проверяет и сохраняет загруженные изображения,
// а также удаляет их по ссылке.
type Store struct {
	uploads ports.FileStorage // куда пишем новые файлы
	remote  ports.FileStorage // S3, может быть nil
	local   ports.FileStorage
	maxSize int64
	logger  *slog.Logger
}

func NewStore(uploads, remote, local ports.FileStorage, maxSize int64, logger *slog.Logger) *Store {
	return &Store{
		uploads: uploads,
		remote:  remote,
		local:   local,
		maxSize: maxSize,
		logger:  logger,
	}
}

// Save проверяет размер и содержимое файла и загружает его.
// Возвращает URL (S3) или относительный путь (локальный диск).
func (s *Store) Save(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > s.maxSize {
		return "", domain.NewUnprocessable("Image is too large.", nil)
	}

	mt, err := mimetype.DetectReader(file)
	if err != nil {
		return "", domain.NewInternal("Could not read uploaded image.", err)
	}
	ext, ok := allowedTypes[mt.String()]
	if !ok {
		s.logger.Warn("rejected upload", "filename", header.Filename, "mime", mt.String())
		return "", domain.NewUnprocessable("Invalid mime type!", nil)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", domain.NewInternal("Could not read uploaded image.", err)
	}

	key := fmt.Sprintf("%s/%s.%s", keyPrefix, uuid.NewString(), ext)
	ref, err := s.uploads.UploadFile(ctx, key, file, mt.String())
	if err != nil {
		return "", domain.NewInternal("Uploading image failed, please try again.", err)
	}

	s.logger.Info("image stored", "ref", ref, "size", header.Size)
	return ref, nil
}

// Remove удаляет изображение: http(s)-ссылки в S3, остальное с локального диска.
func (s *Store) Remove(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	if !isRemote(ref) {
		return s.local.DeleteFile(ctx, ref)
	}

	if s.remote == nil {
		return fmt.Errorf("remove %s: %w", ref, errNoRemote)
	}
	key, err := objectKey(ref)
	if err != nil {
		return err
	}
	return s.remote.DeleteFile(ctx, key)
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// objectKey достает ключ объекта из ссылки вида {public}/{bucket}/uploads/images/<file>.
func objectKey(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse image url %q: %w", ref, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	// первый сегмент - бакет
	if len(segments) < 2 || segments[len(segments)-1] == "" {
		return "", fmt.Errorf("image url %q has no object key", ref)
	}
	return path.Join(segments[1:]...), nil
}
