package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/softside/user-message/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	svc *service.Service
}

type Options struct {
	AuthMiddleware func(http.Handler) http.Handler
	CORSOrigins    []string
	RateLimit      int
}

func NewRouter(svc *service.Service, opts Options) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, 1*time.Minute))
	}

	c := cors.Options{
		AllowedOrigins:   originsIfSet(opts.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	r.Use(cors.Handler(c))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		if opts.AuthMiddleware != nil {
			pr.Use(opts.AuthMiddleware)
		}
		pr.Post("/messages", h.handleSend)
		pr.Get("/conversations/{userID}", h.handleConversation)
		pr.Get("/messages/unread/count", h.handleUnreadCount)
		pr.Post("/messages/{id}/read", h.handleMarkRead)
		pr.Delete("/messages/{id}", h.handleDelete)
		pr.Get("/contacts", h.handleContacts)
	})

	return r
}

func originsIfSet(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
