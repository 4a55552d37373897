// Package bridge exposes the sync engines' presentation boundary over a
// local HTTP surface: the observable view, the loading/degraded state, the
// mutation operations, and the last error. It holds no state of its own.
package bridge

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sozial/client/internal/engine"
	"github.com/sozial/client/internal/session"
)

type Bridge struct {
	sessions session.Provider
	events   *engine.EventEngine
	profile  *engine.ProfileEngine
}

func New(sessions session.Provider, events *engine.EventEngine, profile *engine.ProfileEngine) *Bridge {
	return &Bridge{
		sessions: sessions,
		events:   events,
		profile:  profile,
	}
}

func (b *Bridge) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", b.handleSignUp)
			r.Post("/login", b.handleLogin)
			r.Post("/logout", b.handleLogout)
			r.Get("/session", b.handleSession)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", b.handleListEvents)
			r.Post("/", b.handleCreateEvent)
			r.Get("/stream", b.handleEventStream)

			r.Route("/{eventId}", func(r chi.Router) {
				r.Put("/", b.handleUpdateEvent)
				r.Delete("/", b.handleDeleteEvent)
			})
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", b.handleGetProfile)
			r.Put("/", b.handleSaveProfile)
		})
	})

	return r
}
