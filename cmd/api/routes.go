package main

import (
	"log"
	"net/http"

	httphandlers "finpath/internal/interfaces/http"
	"finpath/internal/shared/config"
	"finpath/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Public auth routes
	mux.HandleFunc("/api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("/api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("/api/auth/logout", deps.AuthHandler.HandleLogout)

	// Aggregator webhook (authenticated by the aggregator, not by user JWT)
	mux.HandleFunc("/api/webhooks/consent", deps.ConsentHandler.HandleWebhook)

	// Agent write-backs (authenticated by API key, not user JWT)
	mux.HandleFunc("/api/alerts/ingest", deps.AlertHandler.HandleIngest)
	mux.HandleFunc("/api/transactions/categorize", deps.TransactionHandler.HandleCategorize)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)

	mux.Handle("/api/users/me", authMiddleware(http.HandlerFunc(deps.UserHandler.HandleMe)))

	mux.Handle("/api/transactions", authMiddleware(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))
	mux.Handle("/api/transactions/", authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			deps.TransactionHandler.HandleGetTransaction(w, r)
		case http.MethodDelete:
			deps.TransactionHandler.HandleDeleteTransaction(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})))

	mux.Handle("/api/summary/monthly", authMiddleware(http.HandlerFunc(deps.SummaryHandler.HandleMonthlySummary)))
	mux.Handle("/api/summary/trailing", authMiddleware(http.HandlerFunc(deps.SummaryHandler.HandleTrailingSummary)))
	mux.Handle("/api/summary/categories", authMiddleware(http.HandlerFunc(deps.SummaryHandler.HandleCategoryBreakdown)))
	mux.Handle("/api/summary/budget", authMiddleware(http.HandlerFunc(deps.SummaryHandler.HandleBudgetStatus)))
	mux.Handle("/api/insights", authMiddleware(http.HandlerFunc(deps.SummaryHandler.HandleInsights)))

	mux.Handle("/api/goals", authMiddleware(http.HandlerFunc(deps.GoalHandler.HandleGoals)))
	mux.Handle("/api/goals/rebalance", authMiddleware(http.HandlerFunc(deps.GoalHandler.HandleRebalance)))
	mux.Handle("/api/goals/", authMiddleware(http.HandlerFunc(deps.GoalHandler.HandleGoal)))

	mux.Handle("/api/alerts", authMiddleware(http.HandlerFunc(deps.AlertHandler.HandleListAlerts)))
	mux.Handle("/api/alerts/", authMiddleware(http.HandlerFunc(deps.AlertHandler.HandleAlert)))

	mux.Handle("/api/consents", authMiddleware(http.HandlerFunc(deps.ConsentHandler.HandleConsents)))
	mux.Handle("/api/consents/", authMiddleware(http.HandlerFunc(deps.ConsentHandler.HandleConsent)))

	mux.Handle("/api/coach/chat", authMiddleware(http.HandlerFunc(deps.ChatHandler.HandleChat)))

	mux.Handle("/api/notifications/tokens", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleRegisterToken)))
	mux.Handle("/api/notifications/tokens/deactivate", authMiddleware(http.HandlerFunc(deps.NotificationHandler.HandleDeactivateToken)))

	// Apply global middleware
	var handler http.Handler = mux
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(middleware.Tracing(handler))
	}
	handler = middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(handler))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Println("TLS security middleware enabled (HSTS)")
	}

	return handler
}
