package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/restock-api/internal/auth"
	"github.com/ksred/restock-api/internal/database"
	"github.com/ksred/restock-api/internal/forecast"
	"github.com/ksred/restock-api/internal/registry"
	"github.com/ksred/restock-api/internal/runner"
	"github.com/ksred/restock-api/internal/suggestion"
	"github.com/ksred/restock-api/internal/types"
	"github.com/ksred/restock-api/internal/workflow"
	"github.com/ksred/restock-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// seedSchedules is the explicit seed set injected into the registry on
// startup; there is no implicit global schedule list.
func seedSchedules() []types.ScheduleConfig {
	return []types.ScheduleConfig{
		{
			ScheduleID: "SCH_daily_replenishment",
			Name:       "Daily replenishment analysis",
			Enabled:    true,
			Frequency:  types.FrequencyDaily,
			TimeOfDay:  "06:00",
			Thresholds: types.ConfidenceThresholds{
				FMReviewThreshold:       0.60,
				HighConfidenceThreshold: 0.80,
				AutoApproveThreshold:    0.90,
			},
			Approval: types.ApprovalWorkflow{
				AutoApproveEnabled:     true,
				MaxAutoApproveAmount:   500,
				RequireDMApprovalAbove: 2000,
				EscalationRules: types.EscalationRules{
					CriticalItems:   true,
					HighCostItems:   true,
					HighCostCeiling: 1500,
				},
			},
			VendorPrefs: types.VendorPreferences{
				PreferPrimaryVendors:    true,
				AllowVendorSubstitution: true,
			},
			ML: types.MLConfig{ModelVersion: "v2", LookbackDays: 90, IncludeSeasonality: true},
		},
	}
}

// main initializes and runs the replenishment API server with graceful
// shutdown support. It sets up all required services, the database
// connection, the background schedule runner, and API routes.
func main() {
	// Initialize database
	db, err := database.NewDatabase(os.Getenv("DB_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "restock-secret-key"
	}

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService(jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials, one per role
	authService.RegisterAPICredentials(auth.TestDMKey, auth.TestDMSecret, types.RoleDM)
	authService.RegisterAPICredentials(auth.TestFMKey, auth.TestFMSecret, types.RoleFM)
	authService.RegisterAPICredentials(auth.TestSysKey, auth.TestSysSecret, types.RoleSystem)

	workflowService := workflow.NewService(db)
	workflowHandlers := workflow.NewGinHandlers(workflowService)

	registryService, err := registry.NewServiceWithSeed(db, seedSchedules())
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to seed schedule registry")
	}
	registryHandlers := registry.NewGinHandlers(registryService)

	suggestionService := suggestion.NewService(db, registryService)
	suggestionHandlers := suggestion.NewGinHandlers(suggestionService)

	// Create and start the schedule runner
	interval := time.Minute
	if raw := os.Getenv("RUNNER_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			interval = parsed
		}
	}
	scheduleRunner := runner.NewRunner(registryService, suggestionService, forecast.NewMockOracle(), interval)
	runnerHandlers := runner.NewGinHandlers(scheduleRunner)

	runnerCtx, runnerCancel := context.WithCancel(context.Background())
	defer runnerCancel()
	go scheduleRunner.Start(runnerCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, jwtSecret, authHandlers, workflowHandlers, suggestionHandlers, registryHandlers, runnerHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Stop the runner, then give outstanding requests 5 seconds to complete
	runnerCancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Order/suggestion/schedule routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	workflowHandlers *workflow.GinHandlers,
	suggestionHandlers *suggestion.GinHandlers,
	registryHandlers *registry.GinHandlers,
	runnerHandlers *runner.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Order workflow routes
		orders := v1.Group("/orders")
		orders.Use(middleware.JWTAuth(jwtSecret))
		{
			orders.POST("", workflowHandlers.CreateOrderHandler())
			orders.GET("", workflowHandlers.ListOrdersHandler())
			orders.GET("/:order_id", workflowHandlers.GetOrderHandler())
			orders.GET("/:order_id/audit", workflowHandlers.AuditHistoryHandler())
			orders.POST("/:order_id/approve", workflowHandlers.ApproveOrderHandler())
			orders.POST("/:order_id/reject", workflowHandlers.RejectOrderHandler())
			orders.POST("/:order_id/dispatch", workflowHandlers.DispatchOrderHandler())
			orders.POST("/:order_id/receive", workflowHandlers.ReceiveOrderHandler())
			orders.PUT("/:order_id/line-items", workflowHandlers.UpdateLineItemsHandler())
		}

		// Suggestion triage routes
		suggestions := v1.Group("/suggestions")
		suggestions.Use(middleware.JWTAuth(jwtSecret))
		{
			suggestions.GET("", suggestionHandlers.ListPendingHandler())
			suggestions.GET("/:suggestion_id", suggestionHandlers.GetSuggestionHandler())
			suggestions.POST("/:suggestion_id/approve", suggestionHandlers.ApproveSuggestionHandler())
			suggestions.POST("/:suggestion_id/reject", suggestionHandlers.RejectSuggestionHandler())
		}

		// Schedule registry routes
		schedules := v1.Group("/schedules")
		schedules.Use(middleware.JWTAuth(jwtSecret))
		{
			schedules.POST("", registryHandlers.CreateScheduleHandler())
			schedules.GET("", registryHandlers.ListSchedulesHandler())
			schedules.GET("/:schedule_id", registryHandlers.GetScheduleHandler())
			schedules.PATCH("/:schedule_id", registryHandlers.UpdateScheduleHandler())
			schedules.DELETE("/:schedule_id", registryHandlers.DeleteScheduleHandler())
			schedules.POST("/:schedule_id/enable", registryHandlers.EnableScheduleHandler())
			schedules.POST("/:schedule_id/disable", registryHandlers.DisableScheduleHandler())
			schedules.GET("/:schedule_id/history", registryHandlers.ExecutionHistoryHandler())
			schedules.GET("/:schedule_id/confidence-report", registryHandlers.ConfidenceReportHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth(jwtSecret))
		{
			internal.POST("/schedules/:schedule_id/run", runnerHandlers.RunScheduleHandler())
		}
	}
}
