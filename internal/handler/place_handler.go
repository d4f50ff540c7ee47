package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/PlacesApp/internal/auth"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/GoArmGo/PlacesApp/internal/usecase"
	"github.com/go-chi/chi/v5"
)

// PlaceHandler - обработчик HTTP-запросов для работы с местами.
type PlaceHandler struct {
	placeUseCase usecase.PlaceUseCase
	images       ImageStore
	errs         *ErrorResponder
	maxImageSize int64
	logger       *slog.Logger
}

// NewPlaceHandler создаёт новый экземпляр PlaceHandler.
func NewPlaceHandler(
	uc usecase.PlaceUseCase,
	images ImageStore,
	errs *ErrorResponder,
	maxImageSize int64,
	logger *slog.Logger,
) *PlaceHandler {
	return &PlaceHandler{
		placeUseCase: uc,
		images:       images,
		errs:         errs,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// GetPlaceByID - GET /api/places/{pid}
func (h *PlaceHandler) GetPlaceByID(w http.ResponseWriter, r *http.Request) {
	place, err := h.placeUseCase.GetPlaceByID(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"place": place}, h.logger)
}

// GetPlacesByUserID - GET /api/places/user/{uid}
func (h *PlaceHandler) GetPlacesByUserID(w http.ResponseWriter, r *http.Request) {
	places, err := h.placeUseCase.GetPlacesByUserID(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"places": places}, h.logger)
}

// CreatePlace - POST /api/places, multipart с файлом image
func (h *PlaceHandler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.errs.Respond(w, r, domain.NewUnauthorized("Authentication failed!", nil))
		return
	}

	release, err := parseMultipart(w, r, h.maxImageSize)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	defer release()

	req := createPlaceRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Address:     r.FormValue("address"),
	}
	if err := validateRequest(req); err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	// клиент может уйти, но начатую запись доводим до конца
	ctx := context.WithoutCancel(r.Context())

	image, err := saveImage(ctx, r, h.images)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	place, err := h.placeUseCase.CreatePlace(ctx, usecase.CreatePlaceInput{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Image:       image,
		CreatorID:   userID,
	})
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{"place": place}, h.logger)
}

// UpdatePlace - PATCH /api/places/{pid}, JSON {title, description}
func (h *PlaceHandler) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.errs.Respond(w, r, domain.NewUnauthorized("Authentication failed!", nil))
		return
	}

	var req updatePlaceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	place, err := h.placeUseCase.UpdatePlace(context.WithoutCancel(r.Context()), chi.URLParam(r, "pid"),
		usecase.UpdatePlaceInput{Title: req.Title, Description: req.Description}, userID)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"place": place}, h.logger)
}

// DeletePlace - DELETE /api/places/{pid}
func (h *PlaceHandler) DeletePlace(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.errs.Respond(w, r, domain.NewUnauthorized("Authentication failed!", nil))
		return
	}

	if err := h.placeUseCase.DeletePlace(context.WithoutCancel(r.Context()), chi.URLParam(r, "pid"), userID); err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Deleted place."}, h.logger)
}

// parseMultipart читает multipart-форму, ограничивая размер тела.
// release удаляет временные файлы формы: net/http чистит их только
// для исходного *Request, а r здесь - копия из WithContext.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxImageSize int64) (release func(), err error) {
	// запас на текстовые поля формы
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewUnprocessable("Image is too large.", err)
		}
		return nil, domain.NewUnprocessable(invalidInputMessage, err)
	}

	form := r.MultipartForm
	return func() { _ = form.RemoveAll() }, nil
}

// saveImage сохраняет файл из поля image и регистрирует его для отката
func saveImage(ctx context.Context, r *http.Request, images ImageStore) (string, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", domain.NewUnprocessable("No image provided.", err)
	}
	defer file.Close()

	ref, err := images.Save(ctx, file, header)
	if err != nil {
		return "", err
	}
	trackUpload(r.Context(), ref)
	return ref, nil
}

func decodeJSON(r *http.Request, dest any) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return domain.NewUnprocessable(invalidInputMessage, err)
	}
	return nil
}
