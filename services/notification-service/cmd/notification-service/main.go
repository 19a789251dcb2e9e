package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/tavolo/tavolo/libs/config"
	"github.com/tavolo/tavolo/libs/db"
	"github.com/tavolo/tavolo/libs/events"
	"github.com/tavolo/tavolo/libs/grpcx"
	"github.com/tavolo/tavolo/libs/httpx"
	"github.com/tavolo/tavolo/libs/kafkax"
	otelx "github.com/tavolo/tavolo/libs/otel"
	"github.com/tavolo/tavolo/libs/runtime"
	"github.com/tavolo/tavolo/services/notification-service/internal/consumer"
	"github.com/tavolo/tavolo/services/notification-service/internal/email"
	"github.com/tavolo/tavolo/services/notification-service/internal/inbox"
	"github.com/tavolo/tavolo/services/notification-service/internal/notifier"
	"github.com/tavolo/tavolo/services/notification-service/internal/sms"
	"github.com/tavolo/tavolo/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("AUTO_MIGRATE", false) {
		if err := storage.Migrate(ctx, pool); err != nil {
			logger.Error("schema migration failed", "err", err)
			panic(err)
		}
	}

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "reservations@tavolo.local"),
	)

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "none")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""))
	case "noop":
		smsSender = sms.NewNoopSender()
	}

	handler := notifier.New(emailSender, smsSender, storage.NewRepository(pool), logger, notifier.Config{
		Restaurant: config.String("RESTAURANT_NAME", "Tavolo"),
		StaffEmail: config.String("STAFF_EMAIL", ""),
		FailSuffix: config.String("NOTIFICATION_FAIL_SUFFIX", ""),
	})

	brokers := config.String("KAFKA_BROKERS", "")
	eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topics:  config.List("KAFKA_CONSUME_TOPICS", strings.Join(events.ReservationTopics, ",")),
	}, handler.Handle)
	go eventConsumer.Run(ctx)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	if addr := config.String("BOOKING_GRPC_ADDR", ""); addr != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "booking-grpc", Check: grpcx.HealthCheck(addr, "")})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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
