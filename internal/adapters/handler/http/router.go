package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth          *AuthHandler
	Elections     *ElectionHandler
	Candidates    *CandidateHandler
	Sessions      *SessionHandler
	Notifications *NotificationHub
}

func NewHandler(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.Auth.Authenticate)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})
		r.Post("/logout", h.Auth.Logout)

		r.Route("/elections", func(r chi.Router) {
			r.Get("/", h.Elections.ListElections)
			r.Post("/", h.Elections.CreateElection)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Elections.GetElection)
				r.Delete("/", h.Elections.DeleteElection)
				r.Post("/verify", h.Auth.Verify)
				r.Get("/candidates", h.Candidates.ListCandidates)

				r.Group(func(r chi.Router) {
					r.Use(RequireElectionToken)
					r.Get("/results", h.Elections.Results)
					r.Delete("/votes", h.Elections.ClearVotes)
					r.Post("/candidates", h.Candidates.AddCandidate)
					r.Put("/candidates/{candidateID}", h.Candidates.UpdateCandidate)
					r.Delete("/candidates/{candidateID}", h.Candidates.DeleteCandidate)
				})
			})
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.Sessions.GetSession)
			r.Post("/", h.Sessions.StartSession)
			r.Post("/engage", h.Sessions.EngageSession)
			r.Post("/abort", h.Sessions.AbortSession)
			r.Post("/events", h.Sessions.DispatchEvent)
			r.Post("/keys", h.Sessions.PressKey)
			r.Get("/notifications", h.Notifications.ServeWS)
		})
	})

	return r
}
