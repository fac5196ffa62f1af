package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/picrate/picrate/config"
	"github.com/picrate/picrate/session"
)

// NewRouter wires the annotator page, the state/action API, the
// embedded static assets and the image server into one chi router.
func NewRouter(cfg *config.Config, sess *session.Session, sqlDB *sql.DB) (http.Handler, error) {
	pageHandler, err := NewPageHandler(cfg)
	if err != nil {
		return nil, err
	}
	annotator := &AnnotatorHandler{Session: sess, Cfg: *cfg, SQLDB: sqlDB}

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	r.Get("/", pageHandler.Index)
	r.Handle("/static/*", StaticServer())

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", annotator.GetState)
		r.Get("/progress", annotator.GetProgress)
		r.Post("/rate/{value}", annotator.Rate)
		r.Post("/mark", annotator.Mark)
		r.Post("/prev", annotator.Prev)
		r.Post("/next", annotator.Next)
		r.Post("/undo", annotator.Undo)
		r.Post("/filter", annotator.ToggleFilter)
	})

	r.Get("/images/*", ImageServer(cfg.ImagesFolder))

	return r, nil
}
