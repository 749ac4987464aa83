package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/toxifacil/toxifacil/libs/config"
	"github.com/toxifacil/toxifacil/libs/db"
	"github.com/toxifacil/toxifacil/libs/httpx"
	"github.com/toxifacil/toxifacil/libs/kafkax"
	otelx "github.com/toxifacil/toxifacil/libs/otel"
	"github.com/toxifacil/toxifacil/libs/outbox"
	"github.com/toxifacil/toxifacil/libs/runtime"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/address"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/handlers"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/labs"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/resume"
	"github.com/toxifacil/toxifacil/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8082")
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

	rdb := redis.NewClient(&redis.Options{
		Addr: config.String("REDIS_ADDR", "localhost:6379"),
	})
	defer rdb.Close()

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	outboxRepo := outbox.NewRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool, outboxRepo)
	resultRepo := storage.NewResultRepository(pool)
	labsRepo := labs.NewRepository(pool)
	resolver := address.NewResolver(
		config.String("VIACEP_BASE_URL", "https://viacep.com.br"),
		time.Duration(config.Int("OUTBOUND_TIMEOUT_SECONDS", 5))*time.Second,
	)
	resumeStore := resume.NewStore(rdb, time.Duration(config.Int("RESUME_TTL_MINUTES", 30))*time.Minute)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	bookingHandler := handlers.NewBookingHandler(
		appointmentRepo, resultRepo, labsRepo, resolver, resumeStore, logger, jwtSecret,
	)
	mux.HandleFunc("/api/v1/public/exams", bookingHandler.Exams)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/address", bookingHandler.Address)
	mux.HandleFunc("/api/v1/public/laboratories", bookingHandler.Laboratories)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			bookingHandler.Create(w, r)
		default:
			bookingHandler.List(w, r)
		}
	})
	mux.HandleFunc("/api/v1/results", bookingHandler.Results)
	mux.HandleFunc("/api/v1/overview", bookingHandler.Overview)
	mux.HandleFunc("/api/v1/wizard/suspend", bookingHandler.Suspend)
	mux.HandleFunc("/api/v1/wizard/resume", bookingHandler.ResumePreview)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "booking")
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
