package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) Mux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", c.healthz)
		r.Post("/rooms", c.createRoom)
		r.Get("/rooms/{room-code}", c.getRoom)
		r.Get("/rooms/{room-code}/history", c.getHistory)
	})

	r.Get("/ws", c.serveWS)

	return r
}
