package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/toxifacil/toxifacil/libs/config"
	"github.com/toxifacil/toxifacil/libs/db"
	"github.com/toxifacil/toxifacil/libs/httpx"
	"github.com/toxifacil/toxifacil/libs/kafkax"
	otelx "github.com/toxifacil/toxifacil/libs/otel"
	"github.com/toxifacil/toxifacil/libs/runtime"
	"github.com/toxifacil/toxifacil/services/mailer-service/internal/consumer"
	"github.com/toxifacil/toxifacil/services/mailer-service/internal/email"
	"github.com/toxifacil/toxifacil/services/mailer-service/internal/handlers"
	"github.com/toxifacil/toxifacil/services/mailer-service/internal/inbox"
	"github.com/toxifacil/toxifacil/services/mailer-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type registeredPayload struct {
	Email           string `json:"email"`
	ConfirmationURL string `json:"confirmation_url"`
}

type passwordResetPayload struct {
	Email    string `json:"email"`
	ResetURL string `json:"reset_url"`
}

type scheduledPayload struct {
	ExamTitle      string `json:"exam_title"`
	LaboratoryName string `json:"laboratory_name"`
	Address        string `json:"address"`
	City           string `json:"city"`
	State          string `json:"state"`
	ScheduledAt    string `json:"scheduled_at"`
	ClientID       string `json:"client_id"`
	ClientEmail    string `json:"client_email"`
}

func main() {
	service := config.String("SERVICE_NAME", "mailer-service")
	port, err := config.Port("PORT", "8083")
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

	pool, err := db.Open(ctx, dbURL, int32(config.Int("DB_MAX_CONNS", 5)))
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	sender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@toxifacil.local"),
		config.String("SMTP_USER", ""),
		config.String("SMTP_PASSWORD", ""),
	)

	inboxRepo := inbox.NewRepository(pool)
	deliveries := storage.NewDeliveryRepository(pool)
	mailHandler := handlers.NewMailHandler(sender, deliveries, logger,
		config.String("CONTACT_RECIPIENT", "contato@toxifacil.com.br"))

	eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "mailer-service"),
		Topics: []string{
			"identity.user.registered.v1",
			"identity.password_reset.requested.v1",
			"booking.appointment.scheduled.v1",
		},
	}, func(ctx context.Context, msg kafka.Message) error {
		meta := kafkax.ExtractEventMeta(msg)
		switch meta.EventType {
		case "identity.user.registered.v1":
			var payload registeredPayload
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid registered payload", "err", err)
				return nil
			}
			if payload.Email == "" || payload.ConfirmationURL == "" {
				logger.Error("missing registered fields", "event_id", meta.EventID)
				return nil
			}
			body, err := email.RenderConfirmation(email.LinkData{URL: payload.ConfirmationURL})
			if err != nil {
				return err
			}
			return deliver(ctx, deliveries, sender, logger, "confirmation", payload.Email, email.SubjectConfirmation, body)

		case "identity.password_reset.requested.v1":
			var payload passwordResetPayload
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid password reset payload", "err", err)
				return nil
			}
			if payload.Email == "" || payload.ResetURL == "" {
				logger.Error("missing password reset fields", "event_id", meta.EventID)
				return nil
			}
			body, err := email.RenderPasswordReset(email.LinkData{URL: payload.ResetURL})
			if err != nil {
				return err
			}
			return deliver(ctx, deliveries, sender, logger, "password_reset", payload.Email, email.SubjectPasswordReset, body)

		case "booking.appointment.scheduled.v1":
			var payload scheduledPayload
			if err := json.Unmarshal(msg.Value, &payload); err != nil {
				logger.Error("invalid scheduled payload", "err", err)
				return nil
			}
			recipient := payload.ClientEmail
			if recipient == "" {
				logger.Error("scheduled event without recipient", "event_id", meta.EventID)
				return nil
			}
			body, err := email.RenderBooking(email.BookingData{
				ExamTitle:      payload.ExamTitle,
				LaboratoryName: payload.LaboratoryName,
				Address:        payload.Address,
				City:           payload.City,
				State:          payload.State,
				ScheduledAt:    payload.ScheduledAt,
			})
			if err != nil {
				return err
			}
			return deliver(ctx, deliveries, sender, logger, "booking", recipient, email.SubjectBooking, body)

		default:
			logger.Warn("unexpected event type", "event_type", meta.EventType)
			return nil
		}
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/contact", mailHandler.Contact)
	mux.HandleFunc("/api/v1/mail/confirmation", mailHandler.SendConfirmation)
	mux.HandleFunc("/api/v1/mail/password-reset", mailHandler.SendPasswordReset)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "mailer")
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

func deliver(ctx context.Context, deliveries *storage.DeliveryRepository, sender email.Sender, logger *slog.Logger, kind, to, subject, body string) error {
	sendErr := sender.Send(to, subject, body)

	status := "sent"
	reason := ""
	if sendErr != nil {
		status = "failed"
		reason = sendErr.Error()
	}
	if err := deliveries.Insert(ctx, storage.Delivery{
		Kind:          kind,
		Recipient:     to,
		Subject:       subject,
		Status:        status,
		FailureReason: reason,
	}); err != nil {
		logger.Error("delivery audit failed", "err", err)
	}

	if sendErr != nil {
		logger.Error("mail send failed", "err", sendErr, "kind", kind, "recipient", to)
		return sendErr
	}
	logger.Info("mail sent", "kind", kind, "recipient", to)
	return nil
}
