package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/claudia/internal/auth"
	"github.com/pathakanu/claudia/internal/config"
	"github.com/pathakanu/claudia/internal/database"
	myopenai "github.com/pathakanu/claudia/internal/openai"
	"github.com/pathakanu/claudia/internal/rates"
	"github.com/pathakanu/claudia/internal/reminders"
	"github.com/pathakanu/claudia/internal/session"
	"github.com/pathakanu/claudia/internal/twilio"
	"github.com/pathakanu/claudia/internal/verify"
	"github.com/pathakanu/claudia/internal/web"
)

func main() {
	logger := log.New(os.Stdout, "[claudia] ", log.LstdFlags|log.Lshortfile)
	cfg := config.Load()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := database.New(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		logger.Fatalf("database init failed: %v", err)
	}

	authService := auth.NewService(
		database.NewCredentialRepository(db),
		database.NewProfileRepository(db),
		auth.Options{Secret: cfg.SessionSecret, TTL: cfg.SessionTTL, Logger: logger},
	)

	calOpts := reminders.Options{Logger: logger, Location: cfg.LocalTimezone}
	if openAIClient := myopenai.New(cfg.OpenAIAPIKey); openAIClient.Configured() {
		calOpts.Summarizer = openAIClient
	}
	sessions := session.NewManager(authService, database.NewReminderRepository(db), calOpts, logger)

	rateService := rates.NewService(
		rates.NewClient(cfg.RatesURL, cfg.RatesCurrency, nil),
		cfg.RatesCurrency, cfg.RatesFallback, cfg.LocalTimezone, logger,
	)
	if err := rateService.Start(cfg.RatesSchedule); err != nil {
		logger.Fatalf("rates scheduler start: %v", err)
	}

	server, err := web.New(authService, sessions, newVerifier(cfg, logger), rateService, web.Options{
		ChatNumber:         cfg.ChatNumber,
		ChatMessage:        cfg.ChatMessage,
		DefaultCountryCode: cfg.DefaultCountryCode,
		Location:           cfg.LocalTimezone,
		SecureCookies:      gin.Mode() == gin.ReleaseMode,
		SessionTTL:         cfg.SessionTTL,
		PendingTTL:         15 * time.Minute,
	}, logger)
	if err != nil {
		logger.Fatalf("web init failed: %v", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Printf("server starting on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	waitForShutdown(httpServer, rateService, sessions, logger)
}

// newVerifier prefers the webhook, then Twilio Verify. Without either,
// registration skips the WhatsApp code step.
func newVerifier(cfg *config.Config, logger *log.Logger) verify.Verifier {
	switch {
	case cfg.VerifyWebhookURL != "":
		logger.Printf("verification: webhook")
		return verify.NewWebhook(cfg.VerifyWebhookURL, nil)
	case cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioVerifyServiceSID != "":
		logger.Printf("verification: twilio verify")
		return twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioVerifyServiceSID)
	default:
		logger.Printf("verification: disabled, accounts are created without a WhatsApp code")
		return verify.Disabled{}
	}
}

func waitForShutdown(server *http.Server, rateService *rates.Service, sessions *session.Manager, logger *log.Logger) {
	stopCtx := make(chan os.Signal, 1)
	signal.Notify(stopCtx, syscall.SIGINT, syscall.SIGTERM)
	<-stopCtx
	logger.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
	rateService.Stop()
	sessions.Close()
}
