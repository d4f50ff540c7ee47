package handler

import (
	"log/slog"
	"net/http"

	"github.com/GoArmGo/PlacesApp/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterDeps - всё, что нужно для сборки маршрутов
type RouterDeps struct {
	Places      *PlaceHandler
	Users       *UserHandler
	Errors      *ErrorResponder
	Tokens      TokenParser
	AuthLimiter *RateLimiter
	UploadDir   string
	Logger      *slog.Logger
}

// NewRouter собирает HTTP API
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(d.Logger))
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS)
	r.Use(TrackUploads)
	r.Use(Recoverer(d.Errors, d.Logger))

	r.NotFound(NotFound(d.Errors))
	r.MethodNotAllowed(NotFound(d.Errors))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"}, d.Logger)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/uploads/images/*", uploadedImages(d.UploadDir, d.Errors))

	r.Route("/api/places", func(r chi.Router) {
		r.Get("/{pid}", d.Places.GetPlaceByID)
		r.Get("/user/{uid}", d.Places.GetPlacesByUserID)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Tokens, d.Errors))
			r.Post("/", d.Places.CreatePlace)
			r.Patch("/{pid}", d.Places.UpdatePlace)
			r.Delete("/{pid}", d.Places.DeletePlace)
		})
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", d.Users.ListUsers)

		r.Group(func(r chi.Router) {
			r.Use(d.AuthLimiter.Handler)
			r.Post("/signup", d.Users.Signup)
			r.Post("/login", d.Users.Login)
		})
	})

	return r
}
