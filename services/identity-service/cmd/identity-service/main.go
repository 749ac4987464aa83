package main

import (
	"context"
	"net/http"
	"time"

	"github.com/toxifacil/toxifacil/libs/config"
	"github.com/toxifacil/toxifacil/libs/db"
	"github.com/toxifacil/toxifacil/libs/httpx"
	"github.com/toxifacil/toxifacil/libs/kafkax"
	otelx "github.com/toxifacil/toxifacil/libs/otel"
	"github.com/toxifacil/toxifacil/libs/outbox"
	"github.com/toxifacil/toxifacil/libs/runtime"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/audit"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/handlers"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/sessions"
	"github.com/toxifacil/toxifacil/services/identity-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "identity-service")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, int32(config.Int("DB_MAX_CONNS", 10)))
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	userRepo := storage.NewUserRepository(pool)
	auditRepo := audit.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	refreshRepo := sessions.NewRefreshRepository(pool)
	resetRepo := sessions.NewResetRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	accessTTL := time.Duration(config.Int("ACCESS_TTL_MINUTES", 60)) * time.Minute
	refreshTTL := time.Duration(config.Int("REFRESH_TTL_HOURS", 720)) * time.Hour

	authHandler := handlers.NewAuthHandler(
		pool, userRepo, refreshRepo, resetRepo, outboxRepo, auditRepo,
		jwtSecret, accessTTL, refreshTTL,
		config.String("PUBLIC_BASE_URL", "http://localhost:3000"),
		config.String("ADMIN_API_KEY", ""),
	)
	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/confirm", authHandler.Confirm)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("/api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("/api/v1/auth/session", authHandler.Session)
	mux.HandleFunc("/api/v1/auth/password-reset", authHandler.RequestPasswordReset)
	mux.HandleFunc("/api/v1/auth/password-reset/complete", authHandler.ResetPassword)
	mux.HandleFunc("/api/v1/auth/audit", authHandler.Audit)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "identity")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
