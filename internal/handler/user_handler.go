package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/GoArmGo/PlacesApp/internal/usecase"
)

// UserHandler - регистрация, вход и список пользователей.
type UserHandler struct {
	userUseCase  usecase.UserUseCase
	images       ImageStore
	errs         *ErrorResponder
	maxImageSize int64
	logger       *slog.Logger
}

func NewUserHandler(uc usecase.UserUseCase, images ImageStore, errs *ErrorResponder, maxImageSize int64, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userUseCase:  uc,
		images:       images,
		errs:         errs,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// ListUsers - GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userUseCase.ListUsers(r.Context())
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"users": users}, h.logger)
}

// Signup - POST /api/users/signup, multipart с аватаром в поле image
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	release, err := parseMultipart(w, r, h.maxImageSize)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}
	defer release()

	req := signupRequest{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}
	if err := validateRequest(req); err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())

	image, err := saveImage(ctx, r, h.images)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	res, err := h.userUseCase.Signup(ctx, usecase.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    image,
	})
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, res, h.logger)
}

// Login - POST /api/users/login, JSON {email, password}
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	res, err := h.userUseCase.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errs.Respond(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, res, h.logger)
}
