package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/softside/user-message/internal/authz"
	"github.com/softside/user-message/internal/config"
	"github.com/softside/user-message/internal/observability/logging"
	"github.com/softside/user-message/internal/observability/metrics"
	"github.com/softside/user-message/internal/observability/middleware"
	"github.com/softside/user-message/internal/service"
	"github.com/softside/user-message/internal/store"
	transport "github.com/softside/user-message/internal/transport/http"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "dev"
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "usermsg",
		Environment: env,
		Level:       os.Getenv("LOG_LEVEL"),
	})

	slog.SetDefault(logger)
	metrics.MustRegister("usermsg")

	logger.Info("starting service")

	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		logger.Error("auto migrate", "error", err)
		os.Exit(1)
	}

	svc := service.New(st)
	validator := authz.NewHMACValidator(cfg.AuthSecret, cfg.AuthIssuer)
	router := transport.NewRouter(svc, transport.Options{
		AuthMiddleware: validator.Middleware,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      cfg.RateLimit,
	})

	handler := middleware.WithRequestAndTrace(middleware.WithMetrics(router))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("usermsg service listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
