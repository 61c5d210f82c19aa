package api

import (
	"log"
	"net/http"
	"time"

	"solbot-backend/internal/config"
	"solbot-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	ChatHandler     *handlers.ChatHandlers
	UserDataHandler *handlers.UserDataHandlers
	Config          *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// The model call alone can take up to a minute, so the request timeout
	// sits above the full retry budget.
	r.Use(middleware.Timeout(3 * time.Minute))

	// --- CORS Configuration ---
	// Adjust AllowedOrigins for your frontend deployment(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		if deps.ChatHandler != nil {
			r.Route("/chat", func(r chi.Router) {
				r.Post("/", deps.ChatHandler.HandleChat)
				r.Post("/submit", deps.ChatHandler.HandleSubmit)
				r.Get("/history/{userID}", deps.ChatHandler.HandleGetHistory)
				r.Get("/health", deps.ChatHandler.HandleHealth)
			})
		} else {
			log.Println("WARN: ChatHandler dependency is nil, skipping /api/chat routes.")
		}

		if deps.UserDataHandler != nil {
			r.Route("/user-data", func(r chi.Router) {
				r.Post("/{userID}", deps.UserDataHandler.HandleSaveUserData)
				r.Get("/{userID}", deps.UserDataHandler.HandleGetUserData)
			})
		} else {
			log.Println("WARN: UserDataHandler dependency is nil, skipping /api/user-data routes.")
		}
	})

	return r
}
