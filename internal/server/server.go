package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/kazz187/taskman/internal/config"
	"github.com/kazz187/taskman/internal/history"
	"github.com/kazz187/taskman/internal/session"
	"github.com/kazz187/taskman/internal/taskman"
	"github.com/kazz187/taskman/pkg/cerr"
	"github.com/kazz187/taskman/pkg/clog"
)

// Server exposes the task management system over a JSON HTTP API.
type Server struct {
	server      *http.Server
	env         *config.BaseEnv
	sys         *taskman.System
	sessions    *session.Manager
	broadcaster *Broadcaster
	history     *history.Stack
}

func NewServer(env *config.BaseEnv, sys *taskman.System, sessions *session.Manager, broadcaster *Broadcaster) *Server {
	return &Server{
		env:         env,
		sys:         sys,
		sessions:    sessions,
		broadcaster: broadcaster,
		history:     history.NewStack(),
	}
}

// Handler builds the full route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})

		r.Get("/system", s.getSystem)
		r.Get("/clock", s.getClock)
		r.Post("/clock/advance", s.advanceClock)

		r.Post("/users", s.registerUser)
		r.Get("/users", s.listUsers)

		r.Get("/session", s.currentSession)
		r.Post("/session/login", s.login)
		r.Post("/session/logout", s.logout)

		r.Post("/undo", s.undo)
		r.Post("/redo", s.redo)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.createProject)
			r.Get("/", s.listProjects)
			r.Route("/{project}", func(r chi.Router) {
				r.Get("/", s.getProject)
				r.Post("/dependencies", s.addDependency)
				r.Delete("/dependencies", s.removeDependency)
				r.Route("/tasks", func(r chi.Router) {
					r.Post("/", s.addTask)
					r.Route("/{task}", func(r chi.Router) {
						r.Get("/", s.getTask)
						r.Delete("/", s.deleteTask)
						r.Post("/replace", s.replaceTask)
						r.Post("/start", s.startTask)
						r.Post("/undo-start", s.undoStartTask)
						r.Post("/finish", s.finishTask)
						r.Post("/fail", s.failTask)
						r.Post("/undo-end", s.undoEndTask)
					})
				})
			})
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", &HealthChecker{})
	mux.Handle("/api/events", http.HandlerFunc(s.streamEvents))
	mux.Handle("/api/", r)
	return mux
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests, so cancelling it also cancels open
// event streams and lets shutdown complete without waiting for them.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr: addr,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
		}).Handler(s.Handler()),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type HealthChecker struct{}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
