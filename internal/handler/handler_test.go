package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GoArmGo/PlacesApp/internal/auth"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/GoArmGo/PlacesApp/internal/logger"
	"github.com/GoArmGo/PlacesApp/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlaces struct {
	created *usecase.CreatePlaceInput
	err     error
	deleted string
}

func (s *stubPlaces) GetPlaceByID(_ context.Context, id string) (*domain.Place, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Place{ID: uuid.MustParse(id), Title: "Empire State Building"}, nil
}

func (s *stubPlaces) GetPlacesByUserID(context.Context, string) ([]domain.Place, error) {
	return nil, domain.NewNotFound("Could not find places for the provided user id.", nil)
}

func (s *stubPlaces) CreatePlace(_ context.Context, in usecase.CreatePlaceInput) (*domain.Place, error) {
	s.created = &in
	if s.err != nil {
		return nil, s.err
	}
	p := domain.NewPlace(in.Title, in.Description, in.Address, domain.Location{Lat: 1, Lng: 2}, in.Image, in.CreatorID, time.Now())
	return &p, nil
}

func (s *stubPlaces) UpdatePlace(_ context.Context, id string, in usecase.UpdatePlaceInput, _ uuid.UUID) (*domain.Place, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Place{ID: uuid.MustParse(id), Title: in.Title, Description: in.Description}, nil
}

func (s *stubPlaces) DeletePlace(_ context.Context, id string, _ uuid.UUID) error {
	s.deleted = id
	return s.err
}

type stubUsers struct {
	signup *usecase.SignupInput
}

func (s *stubUsers) Signup(_ context.Context, in usecase.SignupInput) (*domain.AuthResult, error) {
	s.signup = &in
	return &domain.AuthResult{UserID: uuid.New(), Email: in.Email, Token: "t"}, nil
}

func (s *stubUsers) Login(_ context.Context, email, password string) (*domain.AuthResult, error) {
	if password != "secret1" {
		return nil, domain.NewUnauthorized("Invalid credentials, could not log you in.", nil)
	}
	return &domain.AuthResult{UserID: uuid.New(), Email: email, Token: "t"}, nil
}

func (s *stubUsers) ListUsers(context.Context) ([]domain.UserSummary, error) {
	return []domain.UserSummary{{ID: uuid.New(), Name: "Max", PlaceCount: 2}}, nil
}

type stubImages struct {
	saved   int
	removed []string
	saveErr error
}

func (s *stubImages) Save(context.Context, multipart.File, *multipart.FileHeader) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.saved++
	return "uploads/images/new.png", nil
}

func (s *stubImages) Remove(_ context.Context, ref string) error {
	s.removed = append(s.removed, ref)
	return nil
}

type testServer struct {
	router    http.Handler
	uploadDir string
	places    *stubPlaces
	users     *stubUsers
	images    *stubImages
	tokens    *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()
	ts := &testServer{
		uploadDir: t.TempDir(),
		places:    &stubPlaces{},
		users:     &stubUsers{},
		images:    &stubImages{},
		tokens:    auth.NewTokenManager("test-secret", time.Hour),
	}
	errs := NewErrorResponder(ts.images, log)
	ts.router = NewRouter(RouterDeps{
		Places:      NewPlaceHandler(ts.places, ts.images, errs, 5_000_000, log),
		Users:       NewUserHandler(ts.users, ts.images, errs, 5_000_000, log),
		Errors:      errs,
		Tokens:      ts.tokens,
		AuthLimiter: NewRateLimiter(100, 100, errs),
		UploadDir:   ts.uploadDir,
		Logger:      log,
	})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := ts.tokens.Issue(userID, "max@test.com")
	require.NoError(t, err)
	return "Bearer " + token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func multipartBody(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	size := 0
	if withImage {
		size = len(pngHeader)
	}
	return multipartBodySized(t, fields, size)
}

const pngHeader = "\x89PNG\r\n\x1a\n"

// multipartBodySized добавляет поле image заданного размера (0 - без файла)
func multipartBodySized(t *testing.T, fields map[string]string, imageSize int) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if imageSize > 0 {
		fw, err := mw.CreateFormFile("image", "a.png")
		require.NoError(t, err)
		_, err = fw.Write([]byte(pngHeader))
		require.NoError(t, err)
		if pad := imageSize - len(pngHeader); pad > 0 {
			_, err = fw.Write(make([]byte, pad))
			require.NoError(t, err)
		}
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/nothing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not find this route.", decodeBody(t, rec)["message"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PATCH, DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestPreflight(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodOptions, "/api/places", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestGetPlace(t *testing.T) {
	ts := newTestServer(t)
	id := uuid.New()

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/places/"+id.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	place := decodeBody(t, rec)["place"].(map[string]any)
	assert.Equal(t, id.String(), place["id"])
}

func TestGetPlacesByUser_Empty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/places/user/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Could not find places for the provided user id.", decodeBody(t, rec)["message"])
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	pid := uuid.NewString()

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer nope"},
		{"foreign secret", "Bearer " + mustToken(t, auth.NewTokenManager("other", time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/places/"+pid, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := ts.do(req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Authentication failed!", decodeBody(t, rec)["message"])
			assert.Empty(t, ts.places.deleted)
		})
	}
}

func mustToken(t *testing.T, m *auth.TokenManager) string {
	t.Helper()
	token, err := m.Issue(uuid.New(), "x@test.com")
	require.NoError(t, err)
	return token
}

func TestDeletePlace(t *testing.T) {
	ts := newTestServer(t)
	pid := uuid.NewString()

	req := httptest.NewRequest(http.MethodDelete, "/api/places/"+pid, nil)
	req.Header.Set("Authorization", ts.bearer(t, uuid.New()))
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deleted place.", decodeBody(t, rec)["message"])
	assert.Equal(t, pid, ts.places.deleted)
}

func TestCreatePlace(t *testing.T) {
	ts := newTestServer(t)
	userID := uuid.New()

	body, contentType := multipartBody(t, map[string]string{
		"title":       "Empire State Building",
		"description": "Famous sky scraper",
		"address":     "20 W 34th St, New York",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/places", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", ts.bearer(t, userID))

	rec := ts.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, ts.places.created)
	assert.Equal(t, userID, ts.places.created.CreatorID)
	assert.Equal(t, "uploads/images/new.png", ts.places.created.Image)
	assert.Empty(t, ts.images.removed)
}

func TestCreatePlace_InvalidInputSkipsUpload(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{"title": "", "description": "abc", "address": ""}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/places", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", ts.bearer(t, uuid.New()))

	rec := ts.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, invalidInputMessage, decodeBody(t, rec)["message"])
	assert.Zero(t, ts.images.saved)
	assert.Nil(t, ts.places.created)
}

func TestCreatePlace_RejectedImage(t *testing.T) {
	ts := newTestServer(t)
	ts.images.saveErr = domain.NewUnprocessable("Invalid mime type!", nil)

	body, contentType := multipartBody(t, map[string]string{
		"title": "t", "description": "long enough", "address": "a",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/places", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", ts.bearer(t, uuid.New()))

	rec := ts.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Invalid mime type!", decodeBody(t, rec)["message"])
	assert.Nil(t, ts.places.created)
}

func TestCreatePlace_FailureRemovesUpload(t *testing.T) {
	ts := newTestServer(t)
	ts.places.err = domain.NewUnprocessable("Could not find location for the specified address.", nil)

	body, contentType := multipartBody(t, map[string]string{
		"title": "t", "description": "long enough", "address": "nowhere",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/places", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", ts.bearer(t, uuid.New()))

	rec := ts.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"uploads/images/new.png"}, ts.images.removed)
}

func TestUpdatePlace_Validation(t *testing.T) {
	ts := newTestServer(t)
	pid := uuid.NewString()

	req := httptest.NewRequest(http.MethodPatch, "/api/places/"+pid, strings.NewReader(`{"title":"New","description":"abc"}`))
	req.Header.Set("Authorization", ts.bearer(t, uuid.New()))
	rec := ts.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/api/places/"+pid, strings.NewReader(`{"title":"New","description":"abcdef"}`))
	req.Header.Set("Authorization", ts.bearer(t, uuid.New()))
	rec = ts.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New", decodeBody(t, rec)["place"].(map[string]any)["title"])
}

func TestUpdatePlace_NotOwner(t *testing.T) {
	ts := newTestServer(t)
	ts.places.err = domain.NewUnauthorized("You are not allowed to edit this place.", nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/places/"+uuid.NewString(), strings.NewReader(`{"title":"New","description":"abcdef"}`))
	req.Header.Set("Authorization", ts.bearer(t, uuid.New()))
	rec := ts.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "You are not allowed to edit this place.", decodeBody(t, rec)["message"])
}

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{
		"name": "Max", "email": "max@test.com", "password": "secret1",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", body)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "max@test.com", decodeBody(t, rec)["email"])
	assert.Equal(t, "uploads/images/new.png", ts.users.signup.Image)

	rec = ts.do(httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"max@test.com","password":"secret1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t", decodeBody(t, rec)["token"])

	rec = ts.do(httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(`{"email":"max@test.com","password":"wrong!"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignup_InvalidEmail(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{
		"name": "Max", "email": "not-an-email", "password": "secret1",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", body)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Nil(t, ts.users.signup)
}

func TestListUsers(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/users", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody(t, rec)["users"].([]any)
	require.Len(t, users, 1)
	assert.Equal(t, float64(2), users[0].(map[string]any)["placeCount"])
}

func TestRateLimiter(t *testing.T) {
	errs := NewErrorResponder(&stubImages{}, logger.Discard())
	rl := NewRateLimiter(1, 1, errs)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/api/users/login", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/api/users/login", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	rl.Cleanup(-time.Second)
	assert.Empty(t, rl.visitors)
}

func TestErrorResponder_PlainError(t *testing.T) {
	errs := NewErrorResponder(&stubImages{}, logger.Discard())
	rec := httptest.NewRecorder()

	errs.Respond(rec, httptest.NewRequest(http.MethodGet, "/", nil), assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, unknownErrorMessage, decodeBody(t, rec)["message"])
}

func TestErrorResponder_AfterResponseStarted(t *testing.T) {
	errs := NewErrorResponder(&stubImages{}, logger.Discard())
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	ww.WriteHeader(http.StatusOK)

	errs.Respond(ww, httptest.NewRequest(http.MethodGet, "/", nil), assert.AnError)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSignup_PasswordTooLong(t *testing.T) {
	ts := newTestServer(t)

	body, contentType := multipartBody(t, map[string]string{
		"name": "Max", "email": "max@test.com", "password": strings.Repeat("a", 73),
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/users/signup", body)
	req.Header.Set("Content-Type", contentType)
	rec := ts.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, invalidInputMessage, decodeBody(t, rec)["message"])
	assert.Nil(t, ts.users.signup)
	assert.Zero(t, ts.images.saved)
}

func TestMultipartTempFilesRemoved(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		fields map[string]string
		auth   bool
	}{
		{
			name:   "create place",
			path:   "/api/places",
			fields: map[string]string{"title": "t", "description": "long enough", "address": "a"},
			auth:   true,
		},
		{
			name:   "signup",
			path:   "/api/users/signup",
			fields: map[string]string{"name": "Max", "email": "max@test.com", "password": "secret1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			tmp := t.TempDir()
			t.Setenv("TMPDIR", tmp)

			// больше 1 MiB: файл формы уходит на диск
			body, contentType := multipartBodySized(t, tt.fields, 2<<20)
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", contentType)
			if tt.auth {
				req.Header.Set("Authorization", ts.bearer(t, uuid.New()))
			}

			rec := ts.do(req)

			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
			entries, err := os.ReadDir(tmp)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestUploadedImages(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(ts.uploadDir, "a.png"), []byte(pngHeader), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(ts.uploadDir, "nested"), 0o755))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/uploads/images/a.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngHeader, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	for _, path := range []string{"/uploads/images/", "/uploads/images/nested", "/uploads/images/missing.png"} {
		rec := ts.do(httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "a.png", path)
		assert.Equal(t, "Could not find this route.", decodeBody(t, rec)["message"], path)
	}
}

func TestRecoverer(t *testing.T) {
	images := &stubImages{}
	errs := NewErrorResponder(images, logger.Discard())
	h := TrackUploads(Recoverer(errs, logger.Discard())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		trackUpload(r.Context(), "uploads/images/new.png")
		panic("nil map")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/places", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, unknownErrorMessage, decodeBody(t, rec)["message"])
	assert.Equal(t, []string{"uploads/images/new.png"}, images.removed)
}

func TestRecoverer_AbortHandlerPropagates(t *testing.T) {
	errs := NewErrorResponder(&stubImages{}, logger.Discard())
	h := Recoverer(errs, logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
