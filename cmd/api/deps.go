package main

import (
	"context"
	"log"

	"finpath/internal/domain/alert"
	"finpath/internal/domain/consent"
	"finpath/internal/domain/goal"
	"finpath/internal/infrastructure/coach"
	"finpath/internal/infrastructure/firebase"
	"finpath/internal/infrastructure/postgres"
	"finpath/internal/infrastructure/setu"
	httphandlers "finpath/internal/interfaces/http"
	"finpath/internal/shared/auth"
	"finpath/internal/shared/config"
	"finpath/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	UserHandler         *httphandlers.UserHandler
	TransactionHandler  *httphandlers.TransactionHandler
	SummaryHandler      *httphandlers.SummaryHandler
	GoalHandler         *httphandlers.GoalHandler
	AlertHandler        *httphandlers.AlertHandler
	ConsentHandler      *httphandlers.ConsentHandler
	ChatHandler         *httphandlers.ChatHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Auth
	JWT *auth.JWT

	// Services (for scheduler jobs)
	SyncService *consent.SyncService
	GoalService *goal.Service
	Analyzer    goal.Analyzer

	// Repositories (for the scheduler job provider)
	UserRepo    *postgres.UserRepository
	ConsentRepo consent.Repository
}

// NewDependencies initializes all application dependencies. The scheduler is
// wired separately because handlers submit jobs into it.
func NewDependencies(cfg *config.Config, jobs httphandlers.JobSubmitter) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	ledgerRepo := postgres.NewTransactionRepository(db)
	goalRepo := postgres.NewGoalRepository(db)
	contributionRepo := postgres.NewContributionRepository(db)
	reminderRepo := postgres.NewReminderRepository(db)
	alertRepo := postgres.NewAlertRepository(db)
	consentRepo := postgres.NewConsentRepository(db)
	deviceTokenRepo := postgres.NewDeviceTokenRepository(db)

	// Initialize push delivery (optional)
	var messenger alert.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		resolver := func(ctx context.Context, userID string) ([]string, error) {
			deviceTokens, err := deviceTokenRepo.GetActiveTokensByUserID(ctx, userID)
			if err != nil {
				return nil, err
			}
			tokens := make([]string, 0, len(deviceTokens))
			for _, dt := range deviceTokens {
				tokens = append(tokens, dt.Token)
			}
			return tokens, nil
		}
		fcmClient, err := firebase.NewClient(
			context.Background(),
			cfg.Firebase.CredentialsFile,
			resolver,
			deviceTokenRepo.DeactivateToken,
		)
		if err != nil {
			log.Printf("Warning: push delivery disabled: %v", err)
		} else {
			messenger = fcmClient
			log.Println("Firebase messaging initialized")
		}
	} else {
		log.Println("Firebase credentials not configured, push delivery disabled")
	}

	// Load push notification copy (optional)
	var notificationMessages *messages.Messages
	if msgs, err := messages.Load(cfg.Notifications.MessagesFile); err != nil {
		log.Printf("Warning: notification messages unavailable: %v", err)
	} else {
		notificationMessages = msgs
	}

	// Initialize external clients
	setuClient := setu.NewClient(cfg.Setu.BaseURL, cfg.Setu.ClientID, cfg.Setu.ClientSecret, cfg.Setu.RedirectURL)
	coachClient := coach.NewClient(cfg.Coach.BaseURL, cfg.Coach.APIKey)

	// Initialize domain services
	goalService := goal.NewService(goalRepo, contributionRepo, reminderRepo)
	alertService := alert.NewService(alertRepo, messenger)
	syncService := consent.NewSyncService(setuClient, consentRepo, ledgerRepo, messenger, notificationMessages)

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	// Initialize handlers
	authHandler := httphandlers.NewAuthHandler(userRepo, jwt)
	userHandler := httphandlers.NewUserHandler(userRepo)
	transactionHandler := httphandlers.NewTransactionHandler(ledgerRepo, cfg.Alert.AgentAPIKey)
	summaryHandler := httphandlers.NewSummaryHandler(ledgerRepo, alertService)
	goalHandler := httphandlers.NewGoalHandler(goalService, ledgerRepo, coachClient, jobs)
	alertHandler := httphandlers.NewAlertHandler(alertService, cfg.Alert.AgentAPIKey)
	consentHandler := httphandlers.NewConsentHandler(syncService, jobs)
	chatHandler := httphandlers.NewChatHandler(coachClient)
	notificationHandler := httphandlers.NewNotificationHandler(deviceTokenRepo)

	return &Dependencies{
		DB:                  db,
		AuthHandler:         authHandler,
		UserHandler:         userHandler,
		TransactionHandler:  transactionHandler,
		SummaryHandler:      summaryHandler,
		GoalHandler:         goalHandler,
		AlertHandler:        alertHandler,
		ConsentHandler:      consentHandler,
		ChatHandler:         chatHandler,
		NotificationHandler: notificationHandler,
		JWT:                 jwt,
		SyncService:         syncService,
		GoalService:         goalService,
		Analyzer:            coachClient,
		UserRepo:            userRepo,
		ConsentRepo:         consentRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
