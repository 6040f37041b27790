package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"runclub-sync/internal/config"
	"runclub-sync/internal/database"
	"runclub-sync/internal/handlers"
	"runclub-sync/internal/metrics"
	"runclub-sync/internal/middleware"
	"runclub-sync/internal/oauth"
	"runclub-sync/internal/points"
	"runclub-sync/internal/strava"
	"runclub-sync/internal/sync"
	"runclub-sync/internal/token"
)

func main() {
	// Define CLI flags
	listSubscriptions := flag.Bool("list-strava-subscriptions", false, "List all Strava webhook subscriptions")
	deleteSubscription := flag.String("delete-strava-subscription", "", "Delete a Strava webhook subscription by ID")
	createSubscription := flag.Bool("create-strava-subscription", false, "Create a Strava webhook subscription")

	flag.Parse()

	// Check if any CLI command was requested
	if *listSubscriptions || *deleteSubscription != "" || *createSubscription {
		runCLI(*listSubscriptions, *deleteSubscription, *createSubscription)
		return
	}

	// Otherwise, start the server
	runServer()
}

func runCLI(listSubs bool, deleteSub string, createSub bool) {
	// Disable structured logging for CLI
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors
	})))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	client := strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret, slog.Default())

	switch {
	case listSubs:
		handleListSubscriptions(client)
	case deleteSub != "":
		handleDeleteSubscription(client, deleteSub)
	case createSub:
		handleCreateSubscription(client, cfg)
	}
}

func handleListSubscriptions(client *strava.Client) {
	subscriptions, err := client.ListSubscriptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list subscriptions: %v\n", err)
		os.Exit(1)
	}

	if len(subscriptions) == 0 {
		fmt.Println("No active subscriptions found.")
		return
	}

	fmt.Printf("Found %d subscription(s):\n\n", len(subscriptions))
	for _, sub := range subscriptions {
		fmt.Printf("ID: %d\n", sub.ID)
		fmt.Printf("  Application ID: %d\n", sub.ApplicationID)
		fmt.Printf("  Callback URL: %s\n", sub.CallbackURL)
		fmt.Printf("  Created: %s\n", sub.CreatedAt)
		fmt.Printf("  Updated: %s\n", sub.UpdatedAt)
		fmt.Println()
	}
}

func handleDeleteSubscription(client *strava.Client, idStr string) {
	subscriptionID, err := strconv.Atoi(idStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid subscription ID: %s\n", idStr)
		os.Exit(1)
	}

	fmt.Printf("Deleting subscription %d...\n", subscriptionID)

	err = client.DeleteSubscription(subscriptionID)
	if err != nil {
		if httpErr, ok := err.(*strava.HTTPError); ok && httpErr.StatusCode == 404 {
			fmt.Fprintf(os.Stderr, "Error: Subscription %d not found\n", subscriptionID)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("✓ Subscription deleted successfully!")
}

func handleCreateSubscription(client *strava.Client, cfg *config.Config) {
	if cfg.Domain == "" {
		fmt.Fprintln(os.Stderr, "Error: DOMAIN must be set to create a subscription")
		os.Exit(1)
	}

	callbackURL := fmt.Sprintf("https://%s/webhook-callback", cfg.Domain)

	fmt.Printf("Creating webhook subscription...\n")
	fmt.Printf("Callback URL: %s\n", callbackURL)
	fmt.Println()

	subscription, err := client.CreateSubscription(callbackURL, cfg.StravaVerifyToken)
	if err != nil {
		if httpErr, ok := err.(*strava.HTTPError); ok {
			fmt.Fprintf(os.Stderr, "Error: Subscription creation failed (HTTP %d)\n", httpErr.StatusCode)
			fmt.Fprintf(os.Stderr, "Response: %s\n", httpErr.Body)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("✓ Subscription created successfully!")
	fmt.Printf("  ID: %d\n", subscription.ID)
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Set up logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting runclub-sync server",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.DatabasePath,
		"log_level", cfg.LogLevel)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("Database opened successfully")

	// Wire the pipeline: Strava client -> token guard -> sync orchestrator
	// -> points aggregator
	stravaClient := strava.NewClient(cfg.StravaClientID, cfg.StravaClientSecret, logger)
	guard := token.NewGuard(stravaClient, db)
	orchestrator := sync.NewOrchestrator(db, stravaClient, guard)
	aggregator := points.NewAggregator(db)
	oauthManager := oauth.NewManager(cfg, db, stravaClient)

	// Create handlers
	oauthHandler := handlers.NewOAuthHandler(oauthManager, cfg)
	webhookHandler := handlers.NewWebhookHandler(db, cfg, orchestrator, aggregator)
	syncHandler := handlers.NewSyncHandler(db, cfg, orchestrator)
	standingsHandler := handlers.NewStandingsHandler(cfg, aggregator)

	// Set up HTTP routes
	mux := http.NewServeMux()

	// OAuth endpoints
	mux.Handle("/oauth-start", middleware.WrapHandler(metrics.EndpointOAuthStart, oauthHandler.HandleAuthStart))
	mux.Handle("/oauth-callback", middleware.WrapHandler(metrics.EndpointOAuthCallback, oauthHandler.HandleCallback))

	// Webhook endpoint (GET = verification handshake, POST = notification)
	mux.Handle("/webhook-callback", middleware.Metrics(metrics.EndpointWebhook, webhookHandler))

	// Internal API endpoints
	mux.Handle("/sync", middleware.WrapHandler(metrics.EndpointSync, syncHandler.HandleSync))
	mux.Handle("/events/", middleware.WrapHandler(metrics.EndpointStandings, standingsHandler.HandleStandings))

	// Health check endpoint
	mux.Handle("/health", middleware.WrapHandler(metrics.EndpointHealth, func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(); err != nil {
			http.Error(w, "Unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  35 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	collectorCtx, collectorCancel := context.WithCancel(context.Background())
	defer collectorCancel()

	// Start stats collector if metrics are enabled
	if cfg.MetricsEnabled {
		go func() {
			logger.Info("Starting stats collector")
			metrics.StartStatsCollector(collectorCtx, db, 15*time.Second)
		}()
	}

	// Start metrics server if enabled
	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())

		metricsAddr := fmt.Sprintf("%s:%d", cfg.MetricsHost, cfg.MetricsPort)
		metricsServer = &http.Server{
			Addr:    metricsAddr,
			Handler: metricsMux,
		}

		go func() {
			logger.Info("Metrics server listening", "addr", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	// Start HTTP server in background
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")

	collectorCancel()

	// Shutdown HTTP servers with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", "error", err)
		}
	}

	logger.Info("Server stopped")
}
