package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"finpath/internal/domain/consent"
	"finpath/internal/domain/goal"
	"finpath/internal/infrastructure/coach"
	"finpath/internal/infrastructure/postgres"
	"finpath/internal/infrastructure/setu"
	"finpath/internal/shared/config"
)

const usage = `FinPath Admin CLI - Management commands for the FinPath API

Usage:
  admin <command> [options]

Commands:
  consent-sync     Pull transactions for every active consent
  goal-reanalyze   Re-run coach feasibility analysis on existing goals

Examples:
  # Sync consents for a specific user
  admin consent-sync --user-id=6f1c...

  # Sync consents for multiple users
  admin consent-sync --user-id=id1,id2,id3

  # Sync consents for all users
  admin consent-sync --all

  # Run with custom worker count for higher concurrency
  admin consent-sync --all --workers=8

  # Run with timeout
  admin consent-sync --all --timeout=5m

  # Re-analyze goals for a user
  admin goal-reanalyze --user-id=6f1c...

  # Re-analyze goals for all users
  admin goal-reanalyze --all --workers=8
`

const defaultWorkerCount = 4

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "consent-sync":
		runConsentSync(os.Args[2:])
	case "goal-reanalyze":
		runGoalReanalyze(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage)
		os.Exit(1)
	}
}

type commonFlags struct {
	userIDs []string
	workers int
	timeout time.Duration
}

func parseCommonFlags(name string, args []string, db func(cfg *config.Config) ([]string, error)) (*config.Config, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)

	userIDStr := fs.String("user-id", "", "User ID(s) to process (comma-separated for multiple)")
	allUsers := fs.Bool("all", false, "Process all users")
	workers := fs.Int("workers", defaultWorkerCount, "Number of concurrent workers")
	timeoutStr := fs.String("timeout", "30m", "Timeout for the operation (e.g., 5m, 1h)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *userIDStr == "" && !*allUsers {
		fmt.Println("Error: must specify --user-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(*timeoutStr)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var userIDs []string
	if *allUsers {
		userIDs, err = db(cfg)
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		log.Printf("Found %d users", len(userIDs))
	} else {
		for _, p := range strings.Split(*userIDStr, ",") {
			if p = strings.TrimSpace(p); p != "" {
				userIDs = append(userIDs, p)
			}
		}
	}

	return cfg, &commonFlags{userIDs: userIDs, workers: *workers, timeout: timeout}
}

func listAllUserIDs(db *postgres.DB) ([]string, error) {
	users, err := postgres.NewUserRepository(db).List(context.Background())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// forEachUser fans userIDs out over a bounded worker set.
func forEachUser(ctx context.Context, userIDs []string, workers int, fn func(ctx context.Context, userID string)) {
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, uid := range userIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(uid string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(ctx, uid)
		}(uid)
	}
	wg.Wait()
}

func runConsentSync(args []string) {
	var db *postgres.DB
	cfg, flags := parseCommonFlags("consent-sync", args, func(cfg *config.Config) ([]string, error) {
		var err error
		db, err = postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		return listAllUserIDs(db)
	})

	if db == nil {
		var err error
		db, err = postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
	}
	defer db.Close()
	log.Println("Connected to database")

	consentRepo := postgres.NewConsentRepository(db)
	ledgerRepo := postgres.NewTransactionRepository(db)
	setuClient := setu.NewClient(cfg.Setu.BaseURL, cfg.Setu.ClientID, cfg.Setu.ClientSecret, cfg.Setu.RedirectURL)
	syncService := consent.NewSyncService(setuClient, consentRepo, ledgerRepo, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	log.Printf("Starting consent sync for %d user(s) with %d workers", len(flags.userIDs), flags.workers)
	startTime := time.Now()

	forEachUser(ctx, flags.userIDs, flags.workers, func(ctx context.Context, userID string) {
		consents, err := consentRepo.ListByUserID(ctx, userID)
		if err != nil {
			log.Printf("User %s: failed to list consents: %v", userID, err)
			return
		}
		for _, c := range consents {
			if !strings.EqualFold(c.Status, consent.StatusActive) {
				continue
			}
			result, err := syncService.SyncTransactions(ctx, c.ID)
			if err != nil {
				log.Printf("User %s consent %s: sync failed: %v", userID, c.ID, err)
				continue
			}
			printSyncResult(userID, result)
		}
	})

	log.Printf("Consent sync completed in %v", time.Since(startTime))
}

func printSyncResult(userID string, result *consent.SyncResult) {
	fmt.Printf("\n=== User %s (consent %s) ===\n", userID, result.ConsentID)
	fmt.Printf("  Transactions found: %d\n", result.TransactionsFound)
	fmt.Printf("  Upserted:           %d\n", result.Upserted)
	fmt.Printf("  Rejected:           %d\n", result.Rejected)

	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:             %d\n", len(result.Errors))
		for i, e := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more errors\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %s\n", e)
		}
	}
}

func runGoalReanalyze(args []string) {
	var db *postgres.DB
	cfg, flags := parseCommonFlags("goal-reanalyze", args, func(cfg *config.Config) ([]string, error) {
		var err error
		db, err = postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		return listAllUserIDs(db)
	})

	if db == nil {
		var err error
		db, err = postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
	}
	defer db.Close()
	log.Println("Connected to database")

	goalRepo := postgres.NewGoalRepository(db)
	contributionRepo := postgres.NewContributionRepository(db)
	goalService := goal.NewService(goalRepo, contributionRepo, postgres.NewReminderRepository(db))
	coachClient := coach.NewClient(cfg.Coach.BaseURL, cfg.Coach.APIKey)

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	log.Printf("Starting goal re-analysis for %d user(s) with %d workers", len(flags.userIDs), flags.workers)
	startTime := time.Now()

	forEachUser(ctx, flags.userIDs, flags.workers, func(ctx context.Context, userID string) {
		goals, err := goalService.ListGoals(ctx, userID)
		if err != nil {
			log.Printf("User %s: failed to list goals: %v", userID, err)
			return
		}
		for _, g := range goals {
			res, err := coachClient.AnalyzeGoal(ctx, g, "admin-reanalyze")
			if err != nil {
				log.Printf("User %s goal %s: analysis failed: %v", userID, g.ID, err)
				if markErr := goalService.MarkAnalysisFailed(ctx, g.ID, err); markErr != nil {
					log.Printf("User %s goal %s: failed to record analysis failure: %v", userID, g.ID, markErr)
				}
				continue
			}
			if err := goalService.ApplyAnalysis(ctx, g.ID, res); err != nil {
				log.Printf("User %s goal %s: failed to apply analysis: %v", userID, g.ID, err)
				continue
			}
			fmt.Printf("Goal %s (%s): feasible=%v risk=%s\n", g.ID, g.Title, res.Feasible, res.RiskLevel)
		}
	})

	log.Printf("Goal re-analysis completed in %v", time.Since(startTime))
}
