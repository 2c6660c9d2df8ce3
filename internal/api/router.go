package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/libreshelf/bookstore-be/internal/api/handlers"
	"github.com/libreshelf/bookstore-be/internal/api/middleware"
	"github.com/libreshelf/bookstore-be/internal/auth"
	"github.com/libreshelf/bookstore-be/internal/metrics"
	"github.com/libreshelf/bookstore-be/internal/services"
	"github.com/libreshelf/bookstore-be/internal/session"
	"github.com/libreshelf/bookstore-be/internal/websocket"
)

// Deps bundle everything the router needs wired in.
type Deps struct {
	Users     services.UserServiceProvider
	Books     services.BookServiceProvider
	Events    services.EventServiceProvider
	Tokens    *auth.TokenManager
	Sessions  *session.Store
	Hub       *websocket.Hub
	Collector *metrics.Collector
	Gatherer  prometheus.Gatherer
	Limiter   *middleware.LoginLimiter
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(statusRecorder(d.Collector))

	// CORS configuration for development
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Adjust for your frontend URL
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.Users, d.Events, d.Tokens, d.Sessions, d.Collector)
	bookHandler := handlers.NewBookHandler(d.Books, d.Events)
	eventHandler := handlers.NewEventHandler(d.Events)
	wsHandler := handlers.NewWebSocketHandler(d.Hub)

	// Open endpoints
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Server is healthy"}`))
	})
	r.Handle("/metrics", metrics.Handler(d.Gatherer))

	r.Post("/register", authHandler.Register)
	r.With(d.Limiter.Handler).Post("/login", authHandler.Login)

	// Logout parses the bearer header itself rather than running the full
	// validator, so a malformed header is a 400 here, not a 401.
	r.Post("/logout", authHandler.Logout)

	// Protected endpoints
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.Tokens, d.Sessions, d.Collector))

		r.Get("/getbooks", bookHandler.GetAll)
		r.Get("/getbook/{id}", bookHandler.Get)
		r.Post("/createbook", bookHandler.Create)
		r.Patch("/updatebook/{id}", bookHandler.Update)
		r.Delete("/deletebook/{id}", bookHandler.Delete)
		r.Get("/filterbooks", bookHandler.Filter)
		r.Get("/searchbooks", bookHandler.Search)

		r.Get("/events", eventHandler.GetRecent)
		r.Get("/events/ws", wsHandler.Serve)
	})

	return r
}

// statusRecorder feeds response status codes into the metrics collector.
func statusRecorder(c *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if c != nil {
				c.RecordHTTPStatus(ww.Status())
			}
		})
	}
}
