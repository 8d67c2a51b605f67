package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator"
	"go.uber.org/zap"

	"github.com/rebuttal-io/rebuttal/internal/ai"
	"github.com/rebuttal-io/rebuttal/internal/archive"
	"github.com/rebuttal-io/rebuttal/internal/auth"
	"github.com/rebuttal-io/rebuttal/internal/config"
	"github.com/rebuttal-io/rebuttal/internal/store"
)

var validate = validator.New()

// Api wires the HTTP surface: routing, middleware and handlers. Persistence
// and credential resolution are injected so tests can run against the
// in-memory store and either authenticator.
type Api struct {
	Config  config.Config
	Store   store.Store
	Auth    auth.Authenticator
	Log     *zap.Logger
	AI      *ai.Client
	Archive *archive.Uploader
	Router  *chi.Mux
}

// New builds the API. aiClient and uploader may be nil; the corresponding
// endpoints degrade gracefully.
func New(cfg config.Config, st store.Store, authn auth.Authenticator, log *zap.Logger, aiClient *ai.Client, uploader *archive.Uploader) (*Api, error) {
	if cfg.APIPort <= 0 {
		return nil, fmt.Errorf("must have at least a port to start API")
	}
	if log == nil {
		log = zap.NewNop()
	}

	api := &Api{
		Config:  cfg,
		Store:   st,
		Auth:    authn,
		Log:     log,
		AI:      aiClient,
		Archive: uploader,
		Router:  chi.NewRouter(),
	}
	api.setupRoutes()
	return api, nil
}

func (api *Api) setupRoutes() {
	r := api.Router

	allowedOrigins := api.Config.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/heartbeat", api.Heartbeat)

	// Public routes
	r.Post("/auth/signup", api.SignupHandler)
	r.Post("/auth/login", api.LoginHandler)
	r.Post("/waitlist", api.WaitlistHandler)

	// Room lookups work for anonymous viewers too.
	r.Group(func(r chi.Router) {
		r.Use(api.OptionalAuth)
		r.Get("/rooms/{code}", api.GetRoomHandler)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(api.RequireAuth)

		r.Post("/auth/logout", api.LogoutHandler)
		r.Get("/auth/me", api.MeHandler)

		r.Get("/users/me", api.GetProfileHandler)
		r.Patch("/users/me", api.UpdateProfileHandler)

		r.Route("/debates", func(r chi.Router) {
			r.Post("/", api.CreateDebateHandler)
			r.Get("/", api.ListDebatesHandler)
			r.Get("/{debateID}", api.GetDebateHandler)
			r.Patch("/{debateID}", api.UpdateDebateHandler)
			r.Delete("/{debateID}", api.DeleteDebateHandler)
			r.Post("/{debateID}/messages", api.CreateMessageHandler)
			r.Get("/{debateID}/messages", api.ListMessagesHandler)
			r.Post("/{debateID}/score", api.ScoreDebateHandler)
		})

		r.Post("/rooms", api.CreateRoomHandler)
		r.Post("/rooms/{code}/join", api.JoinRoomHandler)
		r.Post("/rooms/{code}/leave", api.LeaveRoomHandler)
	})

	// Static marketing landing page
	if api.Config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(api.Config.StaticDir)))
	}
}

// Serve starts the HTTP server and blocks.
func (api *Api) Serve() error {
	addr := fmt.Sprintf("0.0.0.0:%d", api.Config.APIPort)
	api.Log.Info("starting API server", zap.String("addr", addr), zap.String("authMode", api.Config.Auth.Mode))
	return http.ListenAndServe(addr, api.Router)
}

func (api *Api) Heartbeat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
