package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"workplan/internal/logging"
	"workplan/internal/notify"
	"workplan/internal/server"
	"workplan/internal/service"
	"workplan/internal/session"
	"workplan/internal/storage/sqlite"
	"workplan/internal/util"
)

func main() {
	// Values already present in the environment win over the .env file.
	envErr := godotenv.Load()

	addrFlag := flag.String("addr", util.EnvOrDefault("WORKPLAN_ADDR", ":8080"), "HTTP listen address")
	dbFlag := flag.String("db", util.EnvOrDefault("WORKPLAN_DB_PATH", "data/workplan.db"), "Path to sqlite database file")
	staticFlag := flag.String("static", util.EnvOrDefault("WORKPLAN_STATIC_DIR", "web/dist"), "Directory with built frontend")
	otpFlag := flag.Int("otp-expiration", util.EnvIntOrDefault("WORKPLAN_OTP_EXPIRATION_MINUTES", int(service.DefaultOTPExpiration/time.Minute)), "Minutes a login code stays valid")
	sessionFlag := flag.Duration("session-ttl", util.EnvDurationOrDefault("WORKPLAN_SESSION_TTL", 12*time.Hour), "Lifetime of a login session")
	levelFlag := flag.String("log-level", util.EnvOrDefault("WORKPLAN_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	logFileFlag := flag.String("log-file", util.EnvOrDefault("WORKPLAN_LOG_FILE", ""), "Optional rotating log file")
	flag.Parse()

	logger, logOutput, err := logging.New(os.Stdout, logging.Options{Level: *levelFlag, File: *logFileFlag})
	if err != nil {
		slog.Error("invalid logging configuration", slog.String("error", err.Error()))
		os.Exit(2)
	}
	defer logOutput.Close()
	slog.SetDefault(logger)

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("unable to read .env file", slog.String("error", envErr.Error()))
	}
	if *otpFlag < 1 {
		logger.Error("otp expiration must be at least one minute", slog.Int("minutes", *otpFlag))
		os.Exit(2)
	}

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	sender, err := newSender(logger)
	if err != nil {
		logger.Error("unable to configure email", slog.String("error", err.Error()))
		os.Exit(1)
	}

	secret := os.Getenv("WORKPLAN_SESSION_SECRET")
	if secret == "" {
		logger.Warn("WORKPLAN_SESSION_SECRET is not set, sessions will not survive a restart")
	}
	sessions, err := session.NewManager([]byte(secret), *sessionFlag)
	if err != nil {
		logger.Error("unable to create session manager", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv := server.New(server.Options{
		Store:         store,
		Sender:        sender,
		Sessions:      sessions,
		OTPExpiration: time.Duration(*otpFlag) * time.Minute,
		StaticDir:     *staticFlag,
		SecureCookies: util.EnvBoolOrDefault("WORKPLAN_SECURE_COOKIES", false),
		AccessLog:     logOutput,
	}, logger)

	httpServer := &http.Server{
		Addr:              *addrFlag,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// newSender picks SMTP delivery when a host is configured and falls back to
// logging the messages otherwise.
func newSender(logger *slog.Logger) (notify.Sender, error) {
	host := os.Getenv("WORKPLAN_SMTP_HOST")
	if host == "" {
		logger.Warn("WORKPLAN_SMTP_HOST is not set, login codes will be written to the log")
		return notify.NewBreaker(notify.NewLogSender(logger), notify.BreakerSettings{}, logger), nil
	}

	smtpSender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     host,
		Port:     util.EnvOrDefault("WORKPLAN_SMTP_PORT", "587"),
		Username: os.Getenv("WORKPLAN_SMTP_USER"),
		Password: os.Getenv("WORKPLAN_SMTP_PASSWORD"),
		From:     os.Getenv("WORKPLAN_SMTP_FROM"),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("email delivery via smtp", slog.String("host", host))
	return notify.NewBreaker(smtpSender, notify.BreakerSettings{}, logger), nil
}
